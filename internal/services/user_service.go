package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/auth"
	"github.com/pennlabs/clubs/internal/models"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
	"github.com/pennlabs/clubs/pkg/metrics"
)

// UpdateProfileInput describes the fields a user may change on themselves.
type UpdateProfileInput struct {
	FirstName      *string
	LastName       *string
	GraduationYear *int
	ShareBookmarks *bool
	SchoolIDs      []string
	MajorIDs       []string
}

// UserService handles account lookup, login and profile settings.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Authenticate verifies a username/password pair and returns the account.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", strings.TrimSpace(username), true).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if !auth.CheckPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &user, nil
}

// GetByID loads an account by its identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Preload("Schools").Preload("Majors").
		First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// GetByUsername loads an account by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Preload("Schools").Preload("Majors").
		Where("username = ?", strings.TrimSpace(username)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// UpdateProfile applies the user's settings changes.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.GraduationYear != nil {
		updates["graduation_year"] = *input.GraduationYear
	}
	if input.ShareBookmarks != nil {
		updates["share_bookmarks"] = *input.ShareBookmarks
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(user).Updates(updates).Error; err != nil {
				return fmt.Errorf("user service: update profile: %w", err)
			}
		}
		if input.SchoolIDs != nil {
			var schools []models.School
			if err := tx.Where("id IN ?", input.SchoolIDs).Find(&schools).Error; err != nil {
				return fmt.Errorf("user service: load schools: %w", err)
			}
			if err := tx.Model(user).Association("Schools").Replace(&schools); err != nil {
				return fmt.Errorf("user service: replace schools: %w", err)
			}
		}
		if input.MajorIDs != nil {
			var majors []models.Major
			if err := tx.Where("id IN ?", input.MajorIDs).Find(&majors).Error; err != nil {
				return fmt.Errorf("user service: load majors: %w", err)
			}
			if err := tx.Model(user).Association("Majors").Replace(&majors); err != nil {
				return fmt.Errorf("user service: replace majors: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, userID)
}

// PermissionCodenames returns the named permissions granted to the user.
func (s *UserService) PermissionCodenames(ctx context.Context, userID string) ([]string, error) {
	ctx = ensureContext(ctx)

	var codenames []string
	err := s.db.WithContext(ctx).
		Table("user_permissions").
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ?", userID).
		Order("permissions.codename ASC").
		Pluck("permissions.codename", &codenames).Error
	if err != nil {
		return nil, fmt.Errorf("user service: list permissions: %w", err)
	}
	return codenames, nil
}
