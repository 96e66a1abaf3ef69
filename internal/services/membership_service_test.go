package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pennlabs/clubs/internal/models"
)

func TestMembershipServiceSoleOwnerGuards(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	members, err := NewMembershipService(db, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, clubs, owner.ID, "Singing Group")

	ctx := context.Background()

	// The final owner can be neither demoted, deactivated nor removed.
	member := models.RoleMember
	_, err = members.Update(ctx, owner.ID, club.ID, "owner", UpdateMembershipInput{Role: &member})
	require.ErrorIs(t, err, ErrLastOwner)

	inactive := false
	_, err = members.Update(ctx, owner.ID, club.ID, "owner", UpdateMembershipInput{Active: &inactive})
	require.ErrorIs(t, err, ErrLastOwner)

	require.ErrorIs(t, members.Delete(ctx, owner.ID, club.ID, "owner"), ErrLastOwner)

	// With a second owner everything is allowed again.
	second := seedUser(t, db, "cofounder")
	_, err = members.Create(ctx, club.ID, second.ID, models.RoleOwner, "")
	require.NoError(t, err)

	updated, err := members.Update(ctx, owner.ID, club.ID, "owner", UpdateMembershipInput{Role: &member})
	require.NoError(t, err)
	require.Equal(t, models.RoleMember, updated.Role)
}

func TestMembershipServiceSuperuserOverridesSoleOwnerGuard(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	members, err := NewMembershipService(db, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	admin := seedSuperuser(t, db, "admin")
	club := seedClub(t, db, clubs, owner.ID, "Chess Society")

	ctx := context.Background()

	// A superuser may demote the sole owner.
	member := models.RoleMember
	updated, err := members.Update(ctx, admin.ID, club.ID, "owner", UpdateMembershipInput{Role: &member})
	require.NoError(t, err)
	require.Equal(t, models.RoleMember, updated.Role)

	ownerRole := models.RoleOwner
	_, err = members.Update(ctx, admin.ID, club.ID, "owner", UpdateMembershipInput{Role: &ownerRole})
	require.NoError(t, err)

	// And remove them outright.
	require.NoError(t, members.Delete(ctx, admin.ID, club.ID, "owner"))

	_, err = members.GetByUsername(ctx, club.ID, "owner")
	require.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestMembershipServiceRolePersistsZeroValues(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	members, err := NewMembershipService(db, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, clubs, owner.ID, "Debate Union")

	ctx := context.Background()

	// The creator's membership round-trips as Owner (role 0), not the
	// member tier.
	var stored models.Membership
	require.NoError(t, db.Where("club_id = ? AND user_id = ?", club.ID, owner.ID).Take(&stored).Error)
	require.Equal(t, models.RoleOwner, stored.Role)
	require.True(t, stored.Active)

	// Deactivation survives a reload instead of resurrecting.
	second := seedUser(t, db, "treasurer")
	_, err = members.Create(ctx, club.ID, second.ID, models.RoleOfficer, "")
	require.NoError(t, err)

	inactive := false
	_, err = members.Update(ctx, owner.ID, club.ID, "treasurer", UpdateMembershipInput{Active: &inactive})
	require.NoError(t, err)

	var reloaded models.Membership
	require.NoError(t, db.Where("club_id = ? AND user_id = ?", club.ID, second.ID).Take(&reloaded).Error)
	require.False(t, reloaded.Active)
}

func TestMembershipServicePromotionGuard(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	members, err := NewMembershipService(db, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	officer := seedUser(t, db, "officer")
	recruit := seedUser(t, db, "recruit")
	admin := seedSuperuser(t, db, "admin")
	club := seedClub(t, db, clubs, owner.ID, "Improv Troupe")

	ctx := context.Background()

	_, err = members.Create(ctx, club.ID, officer.ID, models.RoleOfficer, "")
	require.NoError(t, err)
	_, err = members.Create(ctx, club.ID, recruit.ID, models.RoleMember, "")
	require.NoError(t, err)

	// An officer cannot mint owners.
	ownerRole := models.RoleOwner
	_, err = members.Update(ctx, officer.ID, club.ID, "recruit", UpdateMembershipInput{Role: &ownerRole})
	require.ErrorIs(t, err, ErrRoleTooHigh)

	// An officer may promote up to their own level.
	officerRole := models.RoleOfficer
	updated, err := members.Update(ctx, officer.ID, club.ID, "recruit", UpdateMembershipInput{Role: &officerRole})
	require.NoError(t, err)
	require.Equal(t, models.RoleOfficer, updated.Role)

	// Non-members cannot change roles at all.
	outsider := seedUser(t, db, "outsider")
	memberRole := models.RoleMember
	_, err = members.Update(ctx, outsider.ID, club.ID, "recruit", UpdateMembershipInput{Role: &memberRole})
	require.Error(t, err)

	// Superusers bypass the guard.
	updated, err = members.Update(ctx, admin.ID, club.ID, "recruit", UpdateMembershipInput{Role: &ownerRole})
	require.NoError(t, err)
	require.Equal(t, models.RoleOwner, updated.Role)
}

func TestMembershipServiceRosterOrderAndDuplicates(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	members, err := NewMembershipService(db, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	regular := seedUser(t, db, "regular")
	club := seedClub(t, db, clubs, owner.ID, "Archery Club")

	ctx := context.Background()

	_, err = members.Create(ctx, club.ID, regular.ID, models.RoleMember, "")
	require.NoError(t, err)

	_, err = members.Create(ctx, club.ID, regular.ID, models.RoleMember, "")
	require.ErrorIs(t, err, ErrMembershipExists)

	roster, err := members.ListForClub(ctx, club.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.Equal(t, models.RoleOwner, roster[0].Role)
	require.Equal(t, models.RoleMember, roster[1].Role)
	require.NotNil(t, roster[0].User)
	require.Equal(t, "owner", roster[0].User.Username)
}
