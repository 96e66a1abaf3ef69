package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/permissions"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
)

var (
	// ErrMembershipNotFound indicates the user is not a member of the club.
	ErrMembershipNotFound = apperrors.New("MEMBERSHIP_NOT_FOUND", "Membership not found", http.StatusNotFound)
	// ErrMembershipExists signals the user already belongs to the club.
	ErrMembershipExists = apperrors.New("MEMBERSHIP_EXISTS", "User is already a member of this club", http.StatusConflict)
	// ErrLastOwner guards the final owner from demotion or removal.
	ErrLastOwner = apperrors.New("LAST_OWNER", "A club must have at least one owner", http.StatusBadRequest)
	// ErrRoleTooHigh rejects granting a role more powerful than the actor's own.
	ErrRoleTooHigh = apperrors.New("ROLE_TOO_HIGH", "Cannot grant a role above your own", http.StatusForbidden)
)

// UpdateMembershipInput describes mutable membership fields.
type UpdateMembershipInput struct {
	Role   *int
	Title  *string
	Active *bool
	Public *bool
}

// MembershipService manages club rosters and enforces the role guards.
type MembershipService struct {
	db      *gorm.DB
	checker *permissions.Checker
}

// NewMembershipService constructs a MembershipService instance.
func NewMembershipService(db *gorm.DB, checker *permissions.Checker) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	return &MembershipService{db: db, checker: checker}, nil
}

// ListForClub returns the club's active roster with user profiles attached.
func (s *MembershipService) ListForClub(ctx context.Context, clubID string) ([]models.Membership, error) {
	ctx = ensureContext(ctx)

	var memberships []models.Membership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("club_id = ? AND active = ?", clubID, true).
		Order("role ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("membership service: list members: %w", err)
	}
	return memberships, nil
}

// ListForUser returns the clubs the user belongs to.
func (s *MembershipService) ListForUser(ctx context.Context, userID string) ([]models.Membership, error) {
	ctx = ensureContext(ctx)

	var memberships []models.Membership
	err := s.db.WithContext(ctx).
		Preload("Club").
		Where("user_id = ? AND active = ?", userID, true).
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("membership service: list memberships: %w", err)
	}
	return memberships, nil
}

// GetByUsername looks up one member of a club.
func (s *MembershipService) GetByUsername(ctx context.Context, clubID, username string) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	var membership models.Membership
	err := s.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.club_id = ? AND users.username = ?", clubID, strings.TrimSpace(username)).
		Take(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: load member: %w", err)
	}
	return &membership, nil
}

// Create adds a user to a club directly.
func (s *MembershipService) Create(ctx context.Context, clubID, userID string, role int, title string) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	if title == "" {
		title = models.RoleName(role)
	}

	membership := &models.Membership{
		ClubID: clubID,
		UserID: userID,
		Role:   role,
		Title:  title,
		Active: true,
		Public: true,
	}
	if err := s.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrMembershipExists
		}
		return nil, fmt.Errorf("membership service: create membership: %w", err)
	}
	return membership, nil
}

// Update modifies a member's role, title or visibility on behalf of the
// actor. Promotions above the actor's own role are rejected, as is demoting
// the club's final owner. Superusers bypass both guards.
//
// The guard re-reads the owner count inside the write transaction; SQLite
// serialises the two steps, Postgres narrows but does not close the race.
func (s *MembershipService) Update(ctx context.Context, actorID, clubID, username string, input UpdateMembershipInput) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	membership, err := s.GetByUsername(ctx, clubID, username)
	if err != nil {
		return nil, err
	}

	super, err := s.checker.IsSuperuser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if input.Role != nil && !super {
		actorRole, ok, err := s.checker.MembershipRole(ctx, actorID, clubID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.ErrForbidden
		}
		if *input.Role < actorRole {
			return nil, ErrRoleTooHigh
		}
	}

	updates := map[string]interface{}{}
	if input.Role != nil {
		updates["role"] = *input.Role
	}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if input.Public != nil {
		updates["public"] = *input.Public
	}
	if len(updates) == 0 {
		return membership, nil
	}

	demotesOwner := !super && membership.Role == models.RoleOwner &&
		((input.Role != nil && *input.Role > models.RoleOwner) ||
			(input.Active != nil && !*input.Active))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if demotesOwner {
			owners, err := s.countOwners(tx, clubID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}
		return tx.Model(&models.Membership{}).
			Where("id = ?", membership.ID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetByUsername(ctx, clubID, username)
}

// Delete removes a member from a club. The final owner cannot be removed
// except by a superuser.
func (s *MembershipService) Delete(ctx context.Context, actorID, clubID, username string) error {
	ctx = ensureContext(ctx)

	membership, err := s.GetByUsername(ctx, clubID, username)
	if err != nil {
		return err
	}

	super, err := s.checker.IsSuperuser(ctx, actorID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !super && membership.Role == models.RoleOwner {
			owners, err := s.countOwners(tx, clubID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}
		return tx.Delete(&models.Membership{}, "id = ?", membership.ID).Error
	})
}

func (s *MembershipService) countOwners(tx *gorm.DB, clubID string) (int64, error) {
	var owners int64
	err := tx.Model(&models.Membership{}).
		Where("club_id = ? AND role = ? AND active = ?", clubID, models.RoleOwner, true).
		Count(&owners).Error
	if err != nil {
		return 0, fmt.Errorf("membership service: count owners: %w", err)
	}
	return owners, nil
}
