package services

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pennlabs/clubs/internal/models"
)

func TestClubServiceCreateDefaults(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustClubService(t, db)
	owner := seedUser(t, db, "benfranklin")

	ctx := context.Background()

	club, err := svc.Create(ctx, owner.ID, CreateClubInput{Name: "Penn Chess Club"})
	require.NoError(t, err)
	require.Equal(t, "penn-chess-club", club.Code)
	require.Nil(t, club.Approved)
	require.True(t, club.Active)

	var membership models.Membership
	require.NoError(t, db.Where("club_id = ? AND user_id = ?", club.ID, owner.ID).Take(&membership).Error)
	require.Equal(t, models.RoleOwner, membership.Role)
	require.Equal(t, "Founder", membership.Title)

	var snapshots int64
	require.NoError(t, db.Model(&models.ClubSnapshot{}).Where("club_id = ?", club.ID).Count(&snapshots).Error)
	require.EqualValues(t, 1, snapshots)

	_, err = svc.Create(ctx, owner.ID, CreateClubInput{Name: "Penn Chess Club"})
	require.ErrorIs(t, err, ErrClubCodeExists)
}

func TestClubServiceApprovalLifecycle(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustClubService(t, db)
	owner := seedUser(t, db, "owner")
	reviewer := seedSuperuser(t, db, "reviewer")
	club := seedClub(t, db, svc, owner.ID, "Debate Society")

	ctx := context.Background()

	approved := true
	comment := "Looks good"
	updated, err := svc.ApplyApproval(ctx, club.Code, reviewer.ID, &approved, &comment)
	require.NoError(t, err)
	require.NotNil(t, updated.Approved)
	require.True(t, *updated.Approved)
	require.NotNil(t, updated.ApprovedByID)
	require.Equal(t, reviewer.ID, *updated.ApprovedByID)
	require.NotNil(t, updated.ApprovedOn)
	require.False(t, updated.Ghost)

	// Revoking the decision clears the reviewer bookkeeping.
	updated, err = svc.ApplyApproval(ctx, club.Code, reviewer.ID, nil, nil)
	require.NoError(t, err)
	require.Nil(t, updated.Approved)
	require.Nil(t, updated.ApprovedByID)
	require.Nil(t, updated.ApprovedOn)
}

func TestClubServiceSensitiveEditTriggersReview(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustClubService(t, db)
	owner := seedUser(t, db, "owner")
	reviewer := seedSuperuser(t, db, "reviewer")
	club := seedClub(t, db, svc, owner.ID, "Glee Club")

	ctx := context.Background()

	approved := true
	_, err := svc.ApplyApproval(ctx, club.Code, reviewer.ID, &approved, nil)
	require.NoError(t, err)

	newName := "Glee and A Cappella Club"
	updated, err := svc.Update(ctx, club.Code, UpdateClubInput{Name: &newName})
	require.NoError(t, err)
	require.Nil(t, updated.Approved)
	require.Nil(t, updated.ApprovedByID)
	require.True(t, updated.Ghost)

	// Anonymous viewers keep seeing the approved snapshot.
	public, err := svc.GetByCode(ctx, club.Code, "")
	require.NoError(t, err)
	require.Equal(t, "Glee Club", public.Name)

	// Members see the live pending row.
	live, err := svc.GetByCode(ctx, club.Code, owner.ID)
	require.NoError(t, err)
	require.Equal(t, newName, live.Name)

	// Re-approval clears the ghost and publishes the new name.
	_, err = svc.ApplyApproval(ctx, club.Code, reviewer.ID, &approved, nil)
	require.NoError(t, err)
	public, err = svc.GetByCode(ctx, club.Code, "")
	require.NoError(t, err)
	require.Equal(t, newName, public.Name)
	require.False(t, public.Ghost)
}

func TestClubServiceNonSensitiveEditKeepsApproval(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustClubService(t, db)
	owner := seedUser(t, db, "owner")
	reviewer := seedSuperuser(t, db, "reviewer")
	club := seedClub(t, db, svc, owner.ID, "Robotics")

	ctx := context.Background()

	approved := true
	_, err := svc.ApplyApproval(ctx, club.Code, reviewer.ID, &approved, nil)
	require.NoError(t, err)

	website := "https://robotics.example.com"
	updated, err := svc.Update(ctx, club.Code, UpdateClubInput{Website: &website})
	require.NoError(t, err)
	require.NotNil(t, updated.Approved)
	require.True(t, *updated.Approved)
	require.False(t, updated.Ghost)
}

func TestClubServiceSetFairRecordsFirstRegistration(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustClubService(t, db)
	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, svc, owner.ID, "Outdoors Club")

	ctx := context.Background()

	updated, err := svc.SetFair(ctx, club.Code, true)
	require.NoError(t, err)
	require.True(t, updated.Fair)
	require.NotNil(t, updated.FairOn)
	firstRegistration := *updated.FairOn

	updated, err = svc.SetFair(ctx, club.Code, false)
	require.NoError(t, err)
	require.False(t, updated.Fair)

	updated, err = svc.SetFair(ctx, club.Code, true)
	require.NoError(t, err)
	require.True(t, updated.Fair)
	require.NotNil(t, updated.FairOn)
	require.True(t, updated.FairOn.Equal(firstRegistration))
}

func TestClubServiceListVisibility(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustClubService(t, db)
	owner := seedUser(t, db, "owner")
	reviewer := seedSuperuser(t, db, "reviewer")
	outsider := seedUser(t, db, "outsider")

	pending := seedClub(t, db, svc, owner.ID, "Pending Club")
	public := seedClub(t, db, svc, owner.ID, "Public Club")

	ctx := context.Background()

	approved := true
	_, err := svc.ApplyApproval(ctx, public.Code, reviewer.ID, &approved, nil)
	require.NoError(t, err)

	anon, err := svc.List(ctx, "", url.Values{}, false)
	require.NoError(t, err)
	require.Len(t, anon, 1)
	require.Equal(t, public.Code, anon[0].Code)

	// Members see their own pending clubs.
	member, err := svc.List(ctx, owner.ID, url.Values{}, false)
	require.NoError(t, err)
	require.Len(t, member, 2)

	// Outsiders do not.
	other, err := svc.List(ctx, outsider.ID, url.Values{}, false)
	require.NoError(t, err)
	require.Len(t, other, 1)

	// Superusers can bypass visibility entirely.
	all, err := svc.List(ctx, reviewer.ID, url.Values{}, true)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = svc.GetByCode(ctx, pending.Code, outsider.ID)
	require.ErrorIs(t, err, ErrClubNotFound)
}

func TestClubServiceRenewalCycle(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustClubService(t, db)
	owner := seedUser(t, db, "owner")
	reviewer := seedSuperuser(t, db, "reviewer")

	approvedClub := seedClub(t, db, svc, owner.ID, "Approved Club")
	pendingClub := seedClub(t, db, svc, owner.ID, "Pending Club")

	ctx := context.Background()

	yes := true
	_, err := svc.ApplyApproval(ctx, approvedClub.Code, reviewer.ID, &yes, nil)
	require.NoError(t, err)

	renewed, err := svc.StartRenewalCycle(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, renewed)

	reloaded, err := svc.Load(ctx, approvedClub.Code)
	require.NoError(t, err)
	require.False(t, reloaded.Active)
	require.Nil(t, reloaded.Approved)
	require.True(t, reloaded.Ghost)

	reloaded, err = svc.Load(ctx, pendingClub.Code)
	require.NoError(t, err)
	require.False(t, reloaded.Active)
	require.False(t, reloaded.Ghost)

	reminded, err := svc.RemindUnrenewed(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, reminded)
}

func TestClubServiceDeleteRemovesChildren(t *testing.T) {
	db := openServiceTestDB(t)
	svc := mustClubService(t, db)
	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, svc, owner.ID, "Short Lived Club")

	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, club.Code))

	_, err := svc.Load(ctx, club.Code)
	require.ErrorIs(t, err, ErrClubNotFound)

	var memberships int64
	require.NoError(t, db.Model(&models.Membership{}).Where("club_id = ?", club.ID).Count(&memberships).Error)
	require.Zero(t, memberships)
}
