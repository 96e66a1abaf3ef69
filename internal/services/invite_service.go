package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/notifications"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
)

const (
	inviteIDLength    = 8
	inviteTokenLength = 128
)

var (
	// ErrInviteNotFound indicates the invite does not exist or was already used.
	ErrInviteNotFound = apperrors.New("INVITE_NOT_FOUND", "Invitation not found", http.StatusNotFound)
	// ErrInviteTokenMismatch rejects claims carrying the wrong token.
	ErrInviteTokenMismatch = apperrors.New("INVITE_TOKEN_MISMATCH", "Invalid invitation token", http.StatusForbidden)
	// ErrInviteWrongAccount rejects claims from an account that does not match the invited address.
	ErrInviteWrongAccount = apperrors.New("INVITE_WRONG_ACCOUNT", "This invitation was sent to a different account", http.StatusForbidden)
)

// InviteService issues, resends and redeems membership invitations.
type InviteService struct {
	db       *gorm.DB
	notifier *notifications.Dispatcher
}

// NewInviteService constructs an InviteService instance.
func NewInviteService(db *gorm.DB, notifier *notifications.Dispatcher) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}
	return &InviteService{db: db, notifier: notifier}, nil
}

// ListForClub returns the club's pending invitations.
func (s *InviteService) ListForClub(ctx context.Context, clubID string) ([]models.MembershipInvite, error) {
	ctx = ensureContext(ctx)

	var invites []models.MembershipInvite
	err := s.db.WithContext(ctx).
		Where("club_id = ? AND active = ?", clubID, true).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("invite service: list invites: %w", err)
	}
	return invites, nil
}

// Create issues a single invitation and emails it to the recipient.
func (s *InviteService) Create(ctx context.Context, club *models.Club, creatorID, email string, role int, title string, auto bool) (*models.MembershipInvite, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}

	id, err := randomToken(inviteIDLength)
	if err != nil {
		return nil, fmt.Errorf("invite service: generate id: %w", err)
	}
	token, err := randomToken(inviteTokenLength)
	if err != nil {
		return nil, fmt.Errorf("invite service: generate token: %w", err)
	}

	if title == "" {
		title = models.RoleName(role)
	}

	invite := &models.MembershipInvite{
		ID:        id,
		Token:     token,
		ClubID:    club.ID,
		Email:     email,
		Role:      role,
		Title:     title,
		Active:    true,
		Auto:      auto,
		CreatorID: &creatorID,
	}
	if err := s.db.WithContext(ctx).Create(invite).Error; err != nil {
		return nil, fmt.Errorf("invite service: create invite: %w", err)
	}

	if s.notifier != nil {
		s.notifier.MembershipInvite(ctx, club, invite)
	}
	return invite, nil
}

// MassInvite issues invitations for every address that is neither already a
// member nor already invited. It returns how many invitations were sent and
// how many addresses were skipped.
func (s *InviteService) MassInvite(ctx context.Context, club *models.Club, creatorID string, emails []string, role int, title string) (sent, skipped int, err error) {
	ctx = ensureContext(ctx)

	emails = normaliseEmails(emails)
	if len(emails) == 0 {
		return 0, 0, apperrors.NewBadRequest("at least one email is required")
	}

	var memberEmails []string
	err = s.db.WithContext(ctx).
		Table("memberships").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.club_id = ? AND memberships.active = ?", club.ID, true).
		Pluck("LOWER(users.email)", &memberEmails).Error
	if err != nil {
		return 0, 0, fmt.Errorf("invite service: list member emails: %w", err)
	}

	var invitedEmails []string
	err = s.db.WithContext(ctx).
		Model(&models.MembershipInvite{}).
		Where("club_id = ? AND active = ?", club.ID, true).
		Pluck("LOWER(email)", &invitedEmails).Error
	if err != nil {
		return 0, 0, fmt.Errorf("invite service: list invited emails: %w", err)
	}

	taken := make(map[string]struct{}, len(memberEmails)+len(invitedEmails))
	for _, email := range memberEmails {
		taken[email] = struct{}{}
	}
	for _, email := range invitedEmails {
		taken[email] = struct{}{}
	}

	for _, email := range emails {
		if _, ok := taken[email]; ok {
			skipped++
			continue
		}
		if _, err := s.Create(ctx, club, creatorID, email, role, title, true); err != nil {
			return sent, skipped, err
		}
		sent++
	}
	return sent, skipped, nil
}

// Resend re-emails a pending invitation.
func (s *InviteService) Resend(ctx context.Context, club *models.Club, inviteID string) error {
	ctx = ensureContext(ctx)

	invite, err := s.load(ctx, club.ID, inviteID)
	if err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.MembershipInvite(ctx, club, invite)
	}
	return nil
}

// Delete revokes a pending invitation.
func (s *InviteService) Delete(ctx context.Context, clubID, inviteID string) error {
	ctx = ensureContext(ctx)

	invite, err := s.load(ctx, clubID, inviteID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(invite).Error
}

// Claim redeems an invitation for the given user. The invite is deactivated
// and an existing membership is reused when one exists. Once the club has
// members, invitations sent to a Penn address (any *.upenn.edu domain) may
// only be claimed by the matching username or the matching account email;
// pennmedicine addresses are exempt because their local parts do not follow
// the username convention. Non-Penn invitations are claimable by whoever
// holds the token.
func (s *InviteService) Claim(ctx context.Context, club *models.Club, inviteID, token string, user *models.User) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	invite, err := s.load(ctx, club.ID, inviteID)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(invite.Token), []byte(token)) != 1 {
		return nil, ErrInviteTokenMismatch
	}

	var memberCount int64
	if err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Where("club_id = ? AND active = ?", club.ID, true).
		Count(&memberCount).Error; err != nil {
		return nil, fmt.Errorf("invite service: count members: %w", err)
	}

	if memberCount > 0 && !inviteAddressMatches(invite.Email, user) {
		return nil, ErrInviteWrongAccount
	}

	var membership models.Membership
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MembershipInvite{}).
			Where("id = ?", invite.ID).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("invite service: deactivate invite: %w", err)
		}

		err := tx.Where("club_id = ? AND user_id = ?", club.ID, user.ID).
			Take(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			membership = models.Membership{
				ClubID: club.ID,
				UserID: user.ID,
				Role:   invite.Role,
				Title:  invite.Title,
				Active: true,
				Public: true,
			}
			return tx.Create(&membership).Error
		}
		if err != nil {
			return fmt.Errorf("invite service: load membership: %w", err)
		}

		return tx.Model(&membership).Update("active", true).Error
	})
	if err != nil {
		return nil, err
	}

	return &membership, nil
}

// ExpireStale deactivates invitations created before the cutoff. Used by
// the maintenance sweep.
func (s *InviteService) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Model(&models.MembershipInvite{}).
		Where("active = ? AND created_at < ?", true, cutoff).
		Update("active", false)
	return res.RowsAffected, res.Error
}

func (s *InviteService) load(ctx context.Context, clubID, inviteID string) (*models.MembershipInvite, error) {
	var invite models.MembershipInvite
	err := s.db.WithContext(ctx).
		Where("id = ? AND club_id = ? AND active = ?", inviteID, clubID, true).
		Take(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: load invite: %w", err)
	}
	return &invite, nil
}

func inviteAddressMatches(email string, user *models.User) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if strings.HasSuffix(email, "@pennmedicine.upenn.edu") {
		return true
	}
	if !strings.HasSuffix(email, "@upenn.edu") && !strings.HasSuffix(email, ".upenn.edu") {
		return true
	}
	if strings.EqualFold(email, user.Email) {
		return true
	}
	local := strings.SplitN(email, "@", 2)[0]
	return strings.EqualFold(local, user.Username)
}
