package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pennlabs/clubs/internal/models"
)

func TestInviteServiceClaim(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	invites, err := NewInviteService(db, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, clubs, owner.ID, "Radio Station")

	ctx := context.Background()

	invitee := seedUser(t, db, "newdj")
	invite, err := invites.Create(ctx, club, owner.ID, invitee.Email, models.RoleMember, "", false)
	require.NoError(t, err)
	require.Len(t, invite.ID, 8)
	require.Len(t, invite.Token, 128)
	require.True(t, invite.Active)

	_, err = invites.Claim(ctx, club, invite.ID, "wrong-token", invitee)
	require.ErrorIs(t, err, ErrInviteTokenMismatch)

	membership, err := invites.Claim(ctx, club, invite.ID, invite.Token, invitee)
	require.NoError(t, err)
	require.Equal(t, invitee.ID, membership.UserID)
	require.Equal(t, models.RoleMember, membership.Role)
	require.True(t, membership.Active)

	// A claimed invite is spent.
	_, err = invites.Claim(ctx, club, invite.ID, invite.Token, invitee)
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestInviteServiceClaimAddressMatching(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	invites, err := NewInviteService(db, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, clubs, owner.ID, "Bio Society")

	ctx := context.Background()

	// A upenn.edu invite matches on the username part of the address.
	right := seedUser(t, db, "bfrank")
	wrong := seedUser(t, db, "impostor")

	invite, err := invites.Create(ctx, club, owner.ID, "bfrank@upenn.edu", models.RoleMember, "", false)
	require.NoError(t, err)

	_, err = invites.Claim(ctx, club, invite.ID, invite.Token, wrong)
	require.ErrorIs(t, err, ErrInviteWrongAccount)

	_, err = invites.Claim(ctx, club, invite.ID, invite.Token, right)
	require.NoError(t, err)

	// School subdomains are held to the same username convention.
	seas := seedUser(t, db, "seasdev")
	intruder := seedUser(t, db, "intruder")
	invite, err = invites.Create(ctx, club, owner.ID, "seasdev@seas.upenn.edu", models.RoleMember, "", false)
	require.NoError(t, err)

	_, err = invites.Claim(ctx, club, invite.ID, invite.Token, intruder)
	require.ErrorIs(t, err, ErrInviteWrongAccount)

	_, err = invites.Claim(ctx, club, invite.ID, invite.Token, seas)
	require.NoError(t, err)

	// A matching account email is accepted even when the username differs.
	alias := &models.User{Username: "wgates", Email: "wg-alias@upenn.edu", Password: "x", IsActive: true}
	require.NoError(t, db.Create(alias).Error)
	invite, err = invites.Create(ctx, club, owner.ID, "wg-alias@upenn.edu", models.RoleMember, "", false)
	require.NoError(t, err)

	_, err = invites.Claim(ctx, club, invite.ID, invite.Token, alias)
	require.NoError(t, err)

	// pennmedicine addresses are exempt from the username convention.
	medic := seedUser(t, db, "medic")
	invite, err = invites.Create(ctx, club, owner.ID, "jane.doe@pennmedicine.upenn.edu", models.RoleMember, "", false)
	require.NoError(t, err)

	_, err = invites.Claim(ctx, club, invite.ID, invite.Token, medic)
	require.NoError(t, err)

	// Invitations to outside addresses are claimable by whoever holds the
	// token.
	external := seedUser(t, db, "external")
	invite, err = invites.Create(ctx, club, owner.ID, "someone@gmail.com", models.RoleMember, "", false)
	require.NoError(t, err)

	_, err = invites.Claim(ctx, club, invite.ID, invite.Token, external)
	require.NoError(t, err)
}

func TestInviteServiceMassInviteSkipsTakenAddresses(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	invites, err := NewInviteService(db, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, clubs, owner.ID, "Chess Team")

	ctx := context.Background()

	_, err = invites.Create(ctx, club, owner.ID, "pending@example.com", models.RoleMember, "", false)
	require.NoError(t, err)

	sent, skipped, err := invites.MassInvite(ctx, club, owner.ID, []string{
		"owner@example.com",   // already a member
		"pending@example.com", // already invited
		"Fresh@example.com",   // new, case-insensitive
		"fresh@example.com",   // duplicate within the batch
	}, models.RoleMember, "")
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Equal(t, 2, skipped)
}

func TestInviteServiceExpireStale(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	invites, err := NewInviteService(db, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, clubs, owner.ID, "Film Club")

	ctx := context.Background()

	stale, err := invites.Create(ctx, club, owner.ID, "old@example.com", models.RoleMember, "", false)
	require.NoError(t, err)
	fresh, err := invites.Create(ctx, club, owner.ID, "new@example.com", models.RoleMember, "", false)
	require.NoError(t, err)

	backdated := time.Now().AddDate(0, 0, -30)
	require.NoError(t, db.Model(&models.MembershipInvite{}).
		Where("id = ?", stale.ID).
		Update("created_at", backdated).Error)

	expired, err := invites.ExpireStale(ctx, time.Now().AddDate(0, 0, -14))
	require.NoError(t, err)
	require.EqualValues(t, 1, expired)

	remaining, err := invites.ListForClub(ctx, club.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, fresh.ID, remaining[0].ID)
}
