package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
)

var (
	// ErrAlreadyFavorited signals a duplicate bookmark.
	ErrAlreadyFavorited = apperrors.New("ALREADY_FAVORITED", "Club is already bookmarked", http.StatusConflict)
	// ErrAlreadySubscribed signals a duplicate subscription.
	ErrAlreadySubscribed = apperrors.New("ALREADY_SUBSCRIBED", "Already subscribed to this club", http.StatusConflict)
	// ErrEngagementNotFound indicates no bookmark or subscription exists to remove.
	ErrEngagementNotFound = apperrors.New("ENGAGEMENT_NOT_FOUND", "Not found", http.StatusNotFound)
)

// SubscriberEntry is one row of a club's subscription roster.
type SubscriberEntry struct {
	Username       string `json:"username"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	GraduationYear *int   `json:"graduation_year"`
	Bookmark       bool   `json:"bookmark"`
}

// EngagementService tracks favorites, subscriptions and page visits.
type EngagementService struct {
	db *gorm.DB
}

// NewEngagementService constructs an EngagementService instance.
func NewEngagementService(db *gorm.DB) (*EngagementService, error) {
	if db == nil {
		return nil, errors.New("engagement service: db is required")
	}
	return &EngagementService{db: db}, nil
}

// Favorite bookmarks a club for the user.
func (s *EngagementService) Favorite(ctx context.Context, userID, clubID string) (*models.Favorite, error) {
	ctx = ensureContext(ctx)

	favorite := &models.Favorite{UserID: userID, ClubID: clubID}
	if err := s.db.WithContext(ctx).Create(favorite).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAlreadyFavorited
		}
		return nil, fmt.Errorf("engagement service: create favorite: %w", err)
	}
	return favorite, nil
}

// Unfavorite removes the user's bookmark.
func (s *EngagementService) Unfavorite(ctx context.Context, userID, clubID string) error {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND club_id = ?", userID, clubID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return fmt.Errorf("engagement service: delete favorite: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEngagementNotFound
	}
	return nil
}

// ListFavorites returns the user's bookmarked clubs.
func (s *EngagementService) ListFavorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	ctx = ensureContext(ctx)

	var favorites []models.Favorite
	err := s.db.WithContext(ctx).
		Preload("Club").
		Where("user_id = ?", userID).
		Find(&favorites).Error
	if err != nil {
		return nil, fmt.Errorf("engagement service: list favorites: %w", err)
	}
	return favorites, nil
}

// Subscribe puts the user on the club's interest list.
func (s *EngagementService) Subscribe(ctx context.Context, userID, clubID string) (*models.Subscribe, error) {
	ctx = ensureContext(ctx)

	subscription := &models.Subscribe{UserID: userID, ClubID: clubID}
	if err := s.db.WithContext(ctx).Create(subscription).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("engagement service: create subscription: %w", err)
	}
	return subscription, nil
}

// Unsubscribe removes the user from the club's interest list.
func (s *EngagementService) Unsubscribe(ctx context.Context, userID, clubID string) error {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND club_id = ?", userID, clubID).
		Delete(&models.Subscribe{})
	if res.Error != nil {
		return fmt.Errorf("engagement service: delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEngagementNotFound
	}
	return nil
}

// ListSubscriptions returns the clubs the user subscribed to.
func (s *EngagementService) ListSubscriptions(ctx context.Context, userID string) ([]models.Subscribe, error) {
	ctx = ensureContext(ctx)

	var subscriptions []models.Subscribe
	err := s.db.WithContext(ctx).
		Preload("Club").
		Where("user_id = ?", userID).
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("engagement service: list subscriptions: %w", err)
	}
	return subscriptions, nil
}

// RecordVisit stores a club page view for analytics.
func (s *EngagementService) RecordVisit(ctx context.Context, userID, clubID string) (*models.ClubVisit, error) {
	ctx = ensureContext(ctx)

	visit := &models.ClubVisit{UserID: userID, ClubID: clubID}
	if err := s.db.WithContext(ctx).Create(visit).Error; err != nil {
		return nil, fmt.Errorf("engagement service: record visit: %w", err)
	}
	return visit, nil
}

// SubscriberRoster returns the club's subscribers plus the bookmarkers who
// opted into sharing their identity.
func (s *EngagementService) SubscriberRoster(ctx context.Context, clubID string) ([]SubscriberEntry, error) {
	ctx = ensureContext(ctx)

	var entries []SubscriberEntry

	var subscribers []models.Subscribe
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("club_id = ?", clubID).
		Find(&subscribers).Error
	if err != nil {
		return nil, fmt.Errorf("engagement service: list subscribers: %w", err)
	}

	seen := map[string]struct{}{}
	for _, sub := range subscribers {
		if sub.User == nil {
			continue
		}
		entries = append(entries, SubscriberEntry{
			Username:       sub.User.Username,
			Name:           sub.User.FullName(),
			Email:          sub.User.Email,
			GraduationYear: sub.User.GraduationYear,
		})
		seen[sub.UserID] = struct{}{}
	}

	var bookmarkers []models.User
	err = s.db.WithContext(ctx).
		Joins("JOIN favorites ON favorites.user_id = users.id").
		Where("favorites.club_id = ? AND users.share_bookmarks = ?", clubID, true).
		Find(&bookmarkers).Error
	if err != nil {
		return nil, fmt.Errorf("engagement service: list bookmarkers: %w", err)
	}

	for _, user := range bookmarkers {
		if _, dup := seen[user.ID]; dup {
			continue
		}
		entries = append(entries, SubscriberEntry{
			Username:       user.Username,
			Name:           user.FullName(),
			Email:          user.Email,
			GraduationYear: user.GraduationYear,
			Bookmark:       true,
		})
	}
	return entries, nil
}
