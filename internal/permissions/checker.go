package permissions

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/pkg/metrics"
)

// Named permission codenames granted to individual users.
const (
	ApproveClub     = "approve_club"
	SeePendingClubs = "see_pending_clubs"
	SeeFairStatus   = "see_fair_status"
)

// Checker evaluates club-role and named-permission access rules.
type Checker struct {
	db *gorm.DB
}

// NewChecker constructs a permission checker backed by the provided database.
func NewChecker(db *gorm.DB) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permission checker: db is required")
	}
	return &Checker{db: db}, nil
}

// HasPermission reports whether the user holds the named permission.
// Superusers hold every permission implicitly.
func (c *Checker) HasPermission(ctx context.Context, userID, codename string) (bool, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}
	codename = strings.TrimSpace(codename)
	if codename == "" {
		return false, errors.New("permission checker: codename is required")
	}

	var user models.User
	if err := c.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if user.IsSuperuser {
		metrics.PermissionChecks.WithLabelValues(codename, "allow").Inc()
		return true, nil
	}

	var count int64
	err := c.db.WithContext(ctx).
		Table("user_permissions").
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ? AND permissions.codename = ?", userID, codename).
		Count(&count).Error
	if err != nil {
		metrics.PermissionChecks.WithLabelValues(codename, "error").Inc()
		return false, err
	}

	result := "deny"
	if count > 0 {
		result = "allow"
	}
	metrics.PermissionChecks.WithLabelValues(codename, result).Inc()
	return count > 0, nil
}

// MembershipRole returns the user's active role in the club, with ok=false
// when no active membership exists.
func (c *Checker) MembershipRole(ctx context.Context, userID, clubID string) (int, bool, error) {
	ctx = ensureContext(ctx)

	if userID == "" || clubID == "" {
		return 0, false, nil
	}

	var membership models.Membership
	err := c.db.WithContext(ctx).
		Where("user_id = ? AND club_id = ? AND active = ?", userID, clubID, true).
		Take(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return membership.Role, true, nil
}

// HasClubRole reports whether the user holds a role at least as powerful as
// maxRole in the club. Lower role values outrank higher ones, so the check
// is role <= maxRole. Superusers always pass.
func (c *Checker) HasClubRole(ctx context.Context, userID, clubID string, maxRole int) (bool, error) {
	ctx = ensureContext(ctx)

	if userID == "" {
		return false, nil
	}

	super, err := c.IsSuperuser(ctx, userID)
	if err != nil {
		return false, err
	}
	if super {
		return true, nil
	}

	role, ok, err := c.MembershipRole(ctx, userID, clubID)
	if err != nil || !ok {
		return false, err
	}
	return role <= maxRole, nil
}

// IsSuperuser reports whether the user is flagged as a superuser.
func (c *Checker) IsSuperuser(ctx context.Context, userID string) (bool, error) {
	ctx = ensureContext(ctx)

	if userID == "" {
		return false, nil
	}

	var user models.User
	if err := c.db.WithContext(ctx).Select("is_superuser").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsSuperuser, nil
}

// CanSeeAllClubs reports whether the user may list clubs regardless of
// approval state.
func (c *Checker) CanSeeAllClubs(ctx context.Context, userID string) (bool, error) {
	return c.HasPermission(ctx, userID, SeePendingClubs)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
