package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/database/testutil"
	"github.com/pennlabs/clubs/internal/models"
	appmail "github.com/pennlabs/clubs/pkg/mail"
)

type captureMailer struct {
	messages []appmail.Message
	err      error
}

func (m *captureMailer) Send(_ context.Context, msg appmail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func seedNotifyUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    email,
		Password: "not-a-real-hash",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedNotifyClub(t *testing.T, db *gorm.DB, code, contact string) *models.Club {
	t.Helper()
	club := &models.Club{Code: code, Name: code, Email: contact, Active: true}
	require.NoError(t, db.Create(club).Error)
	return club
}

func addMember(t *testing.T, db *gorm.DB, club *models.Club, user *models.User, role int, active bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.Membership{
		ClubID: club.ID,
		UserID: user.ID,
		Role:   role,
		Active: active,
	}).Error)
}

func TestDispatcherOfficerEmails(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	dispatcher, err := NewDispatcher(db, nil, "https://clubs.example.com", nil)
	require.NoError(t, err)

	club := seedNotifyClub(t, db, "glee-club", "board@example.com")

	owner := seedNotifyUser(t, db, "owner", "owner@example.com")
	officer := seedNotifyUser(t, db, "officer", "board@example.com")
	member := seedNotifyUser(t, db, "member", "member@example.com")
	former := seedNotifyUser(t, db, "former", "former@example.com")

	addMember(t, db, club, owner, models.RoleOwner, true)
	addMember(t, db, club, officer, models.RoleOfficer, true)
	addMember(t, db, club, member, models.RoleMember, true)
	addMember(t, db, club, former, models.RoleOfficer, false)

	// The officer's address matches the club contact and is deduplicated;
	// plain members and inactive officers are excluded.
	emails, err := dispatcher.OfficerEmails(context.Background(), club)
	require.NoError(t, err)
	require.Equal(t, []string{"board@example.com", "owner@example.com"}, emails)
}

func TestDispatcherOfficerEmailsSkipsInvalidContact(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	dispatcher, err := NewDispatcher(db, nil, "https://clubs.example.com", nil)
	require.NoError(t, err)

	club := seedNotifyClub(t, db, "quiet-club", "not an address")
	owner := seedNotifyUser(t, db, "owner", "owner@example.com")
	addMember(t, db, club, owner, models.RoleOwner, true)

	emails, err := dispatcher.OfficerEmails(context.Background(), club)
	require.NoError(t, err)
	require.Equal(t, []string{"owner@example.com"}, emails)
}

func TestDispatcherSendsRenderedMail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &captureMailer{}
	dispatcher, err := NewDispatcher(db, mailer, "https://clubs.example.com/", nil)
	require.NoError(t, err)

	club := seedNotifyClub(t, db, "chess-club", "")
	club.Name = "Chess Club"
	owner := seedNotifyUser(t, db, "owner", "owner@example.com")
	addMember(t, db, club, owner, models.RoleOwner, true)

	invite := &models.MembershipInvite{
		Email: "recruit@example.com",
		Role:  models.RoleMember,
		Token: "tok",
	}
	invite.ID = "abc12345"

	ctx := context.Background()
	dispatcher.MembershipInvite(ctx, club, invite)

	require.Len(t, mailer.messages, 1)
	msg := mailer.messages[0]
	require.Equal(t, []string{"recruit@example.com"}, msg.To)
	require.Contains(t, msg.Subject, "Chess Club")
	require.NotContains(t, msg.Subject, "\n")
	require.Contains(t, msg.Body, "https://clubs.example.com/club/chess-club/invite/abc12345?token=tok")

	// Officer notifications fan out to the roster.
	question := &models.QuestionAnswer{ClubID: club.ID, Question: "When are tryouts?"}
	dispatcher.QuestionAsked(ctx, club, question)

	require.Len(t, mailer.messages, 2)
	require.Equal(t, []string{"owner@example.com"}, mailer.messages[1].To)
	require.Contains(t, mailer.messages[1].Body, "When are tryouts?")
}

func TestDispatcherSendFailuresDoNotPropagate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &captureMailer{err: context.DeadlineExceeded}
	dispatcher, err := NewDispatcher(db, mailer, "https://clubs.example.com", nil)
	require.NoError(t, err)

	club := seedNotifyClub(t, db, "busy-club", "")
	owner := seedNotifyUser(t, db, "owner", "owner@example.com")
	addMember(t, db, club, owner, models.RoleOwner, true)

	// Fire-and-forget: nothing to assert beyond the absence of a panic.
	dispatcher.ClubRenewal(context.Background(), club)
	require.Empty(t, mailer.messages)
}

func TestSplitRendered(t *testing.T) {
	subject, body := splitRendered("Subject line\n\nBody first line\nBody second line")
	require.Equal(t, "Subject line", subject)
	require.Equal(t, "Body first line\nBody second line", body)

	subject, body = splitRendered("Only a subject")
	require.Equal(t, "Only a subject", subject)
	require.Empty(t, body)
}
