package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pennlabs/clubs/internal/models"
)

func TestNoteServiceDualVisibility(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	notes, err := NewNoteService(db, mustChecker(t, db))
	require.NoError(t, err)

	writerOwner := seedUser(t, db, "writerowner")
	writerMember := seedUser(t, db, "writermember")
	subjectOwner := seedUser(t, db, "subjectowner")
	stranger := seedUser(t, db, "stranger")
	admin := seedSuperuser(t, db, "admin")

	writing := seedClub(t, db, clubs, writerOwner.ID, "Writing Club")
	subject := seedClub(t, db, clubs, subjectOwner.ID, "Subject Club")

	members, err := NewMembershipService(db, mustChecker(t, db))
	require.NoError(t, err)

	ctx := context.Background()

	_, err = members.Create(ctx, writing.ID, writerMember.ID, models.RoleMember, "")
	require.NoError(t, err)

	// Officers of the writing club may read it; the subject club may not.
	private, err := notes.Create(ctx, writerOwner.ID, CreateNoteInput{
		CreatingClubID:         writing.ID,
		SubjectClubID:          subject.ID,
		Title:                  "Collaboration history",
		Content:                "They cancelled on us twice.",
		CreatingClubPermission: models.RoleOfficer,
		OutsideClubPermission:  models.NotePermissionNone,
	})
	require.NoError(t, err)

	// Anyone may read it, even anonymously.
	public, err := notes.Create(ctx, writerOwner.ID, CreateNoteInput{
		CreatingClubID:         writing.ID,
		SubjectClubID:          subject.ID,
		Title:                  "Joint event recap",
		Content:                "Great turnout at the mixer.",
		CreatingClubPermission: models.RoleOfficer,
		OutsideClubPermission:  models.NotePermissionPublic,
	})
	require.NoError(t, err)

	// Owners of the subject club may read it too.
	shared, err := notes.Create(ctx, writerOwner.ID, CreateNoteInput{
		CreatingClubID:         writing.ID,
		SubjectClubID:          subject.ID,
		Title:                  "Contact details",
		Content:                "Reach out to their events chair.",
		CreatingClubPermission: models.RoleOfficer,
		OutsideClubPermission:  models.RoleOwner,
	})
	require.NoError(t, err)

	noteIDs := func(list []models.Note) []string {
		ids := make([]string, 0, len(list))
		for _, n := range list {
			ids = append(ids, n.ID)
		}
		return ids
	}

	anon, err := notes.ListAbout(ctx, subject.ID, "")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{public.ID}, noteIDs(anon))

	outsider, err := notes.ListAbout(ctx, subject.ID, stranger.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{public.ID}, noteIDs(outsider))

	// A plain member of the writing club is below the officer threshold.
	inside, err := notes.ListAbout(ctx, subject.ID, writerMember.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{public.ID}, noteIDs(inside))

	officer, err := notes.ListAbout(ctx, subject.ID, writerOwner.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{private.ID, public.ID, shared.ID}, noteIDs(officer))

	about, err := notes.ListAbout(ctx, subject.ID, subjectOwner.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{public.ID, shared.ID}, noteIDs(about))

	everything, err := notes.ListAbout(ctx, subject.ID, admin.ID)
	require.NoError(t, err)
	require.Len(t, everything, 3)
}

func TestNoteServiceCreateRejectsSelfSubject(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	notes, err := NewNoteService(db, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, clubs, owner.ID, "Lonely Club")

	_, err = notes.Create(context.Background(), owner.ID, CreateNoteInput{
		CreatingClubID: club.ID,
		SubjectClubID:  club.ID,
		Content:        "Talking to ourselves",
	})
	require.Error(t, err)
}

func TestNoteServiceListByCreatingClubAndDelete(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	notes, err := NewNoteService(db, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	subjectOwner := seedUser(t, db, "subjectowner")
	writing := seedClub(t, db, clubs, owner.ID, "Authors Guild")
	subject := seedClub(t, db, clubs, subjectOwner.ID, "Reviewed Club")

	tag := models.NoteTag{Name: "funding"}
	require.NoError(t, db.Create(&tag).Error)

	ctx := context.Background()

	note, err := notes.Create(ctx, owner.ID, CreateNoteInput{
		CreatingClubID:         writing.ID,
		SubjectClubID:          subject.ID,
		Title:                  "Budget notes",
		Content:                "Shared a venue deposit last spring.",
		CreatingClubPermission: models.RoleOwner,
		OutsideClubPermission:  models.NotePermissionNone,
		TagIDs:                 []string{tag.ID},
	})
	require.NoError(t, err)

	own, err := notes.ListByCreatingClub(ctx, writing.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Len(t, own[0].Tags, 1)
	require.Equal(t, "funding", own[0].Tags[0].Name)

	// Members of the subject club never see the creating club's list.
	other, err := notes.ListByCreatingClub(ctx, writing.ID, subjectOwner.ID)
	require.NoError(t, err)
	require.Empty(t, other)

	require.NoError(t, notes.Delete(ctx, writing.ID, note.ID))
	require.ErrorIs(t, notes.Delete(ctx, writing.ID, note.ID), ErrNoteNotFound)
}
