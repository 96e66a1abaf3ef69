package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/notifications"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
)

var (
	// ErrRequestNotFound indicates no open membership request exists.
	ErrRequestNotFound = apperrors.New("REQUEST_NOT_FOUND", "Membership request not found", http.StatusNotFound)
	// ErrRequestExists signals the user already has an open request.
	ErrRequestExists = apperrors.New("REQUEST_EXISTS", "A membership request is already open", http.StatusConflict)
)

// RequestService handles users asking to join clubs.
type RequestService struct {
	db       *gorm.DB
	notifier *notifications.Dispatcher
}

// NewRequestService constructs a RequestService instance.
func NewRequestService(db *gorm.DB, notifier *notifications.Dispatcher) (*RequestService, error) {
	if db == nil {
		return nil, errors.New("request service: db is required")
	}
	return &RequestService{db: db, notifier: notifier}, nil
}

// Create opens a membership request. A previously withdrawn request is
// reopened rather than duplicated.
func (s *RequestService) Create(ctx context.Context, club *models.Club, user *models.User) (*models.MembershipRequest, error) {
	ctx = ensureContext(ctx)

	var request models.MembershipRequest
	err := s.db.WithContext(ctx).
		Where("club_id = ? AND user_id = ?", club.ID, user.ID).
		Take(&request).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		request = models.MembershipRequest{ClubID: club.ID, UserID: user.ID}
		if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
			if isUniqueConstraintError(err) {
				return nil, ErrRequestExists
			}
			return nil, fmt.Errorf("request service: create request: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("request service: load request: %w", err)
	case !request.Withdrew:
		return nil, ErrRequestExists
	default:
		if err := s.db.WithContext(ctx).Model(&request).Update("withdrew", false).Error; err != nil {
			return nil, fmt.Errorf("request service: reopen request: %w", err)
		}
		request.Withdrew = false
	}

	if s.notifier != nil {
		s.notifier.MembershipRequested(ctx, club, user)
	}
	return &request, nil
}

// Withdraw marks the user's request as withdrawn without deleting it.
func (s *RequestService) Withdraw(ctx context.Context, clubID, userID string) error {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Model(&models.MembershipRequest{}).
		Where("club_id = ? AND user_id = ? AND withdrew = ?", clubID, userID, false).
		Update("withdrew", true)
	if res.Error != nil {
		return fmt.Errorf("request service: withdraw request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// ListForClub returns the club's open requests with requester profiles.
func (s *RequestService) ListForClub(ctx context.Context, clubID string) ([]models.MembershipRequest, error) {
	ctx = ensureContext(ctx)

	var requests []models.MembershipRequest
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("club_id = ? AND withdrew = ?", clubID, false).
		Order("created_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("request service: list requests: %w", err)
	}
	return requests, nil
}

// ListForUser returns the user's open requests.
func (s *RequestService) ListForUser(ctx context.Context, userID string) ([]models.MembershipRequest, error) {
	ctx = ensureContext(ctx)

	var requests []models.MembershipRequest
	err := s.db.WithContext(ctx).
		Preload("Club").
		Where("user_id = ? AND withdrew = ?", userID, false).
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("request service: list requests: %w", err)
	}
	return requests, nil
}

// Accept turns an open request into a membership and removes the request.
func (s *RequestService) Accept(ctx context.Context, clubID, username string) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	var request models.MembershipRequest
	err := s.db.WithContext(ctx).
		Joins("JOIN users ON users.id = membership_requests.user_id").
		Where("membership_requests.club_id = ? AND users.username = ? AND membership_requests.withdrew = ?",
			clubID, username, false).
		Take(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("request service: load request: %w", err)
	}

	var membership models.Membership
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		membership = models.Membership{
			ClubID: clubID,
			UserID: request.UserID,
			Role:   models.RoleMember,
			Title:  models.RoleName(models.RoleMember),
			Active: true,
			Public: true,
		}
		if err := tx.Create(&membership).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrMembershipExists
			}
			return fmt.Errorf("request service: create membership: %w", err)
		}
		return tx.Delete(&models.MembershipRequest{}, "id = ?", request.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &membership, nil
}
