package models

import "time"

// Membership roles. Lower values carry more authority.
const (
	RoleOwner   = 0
	RoleOfficer = 10
	RoleMember  = 20
)

// RoleName returns the display label for a role tier.
func RoleName(role int) string {
	switch {
	case role <= RoleOwner:
		return "Owner"
	case role <= RoleOfficer:
		return "Officer"
	default:
		return "Member"
	}
}

// Membership links a user to a club with a role tier and display title.
type Membership struct {
	BaseModel

	ClubID string `gorm:"type:uuid;uniqueIndex:idx_membership_club_user;not null" json:"club_id"`
	UserID string `gorm:"type:uuid;uniqueIndex:idx_membership_club_user;not null" json:"user_id"`

	// Role and the flags carry no column defaults: role 0 is Owner and a
	// database default would silently rewrite it on insert. Every create
	// path sets them explicitly.
	Role  int    `json:"role"`
	Title string `json:"title"`

	Active bool `json:"active"`
	// Public=false hides the member's identity in unauthenticated listings.
	Public bool `json:"public"`

	Club *Club `json:"club,omitempty"`
	User *User `json:"-"`
}

// MembershipInvite is an emailed offer to join a club. The short ID appears
// in URLs, the long token authenticates the claim.
type MembershipInvite struct {
	ID    string `gorm:"primaryKey;size:8" json:"id"`
	Token string `gorm:"size:128;not null" json:"-"`

	ClubID string `gorm:"type:uuid;index;not null" json:"club_id"`
	Email  string `gorm:"index;not null" json:"email"`

	Role  int    `json:"role"`
	Title string `json:"title"`

	Active bool `json:"active"`
	// Auto marks invites produced by the mass-invite endpoint.
	Auto      bool    `json:"auto"`
	CreatorID *string `gorm:"type:uuid" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Club *Club `json:"club,omitempty"`
}

// MembershipRequest records a user asking to join a club. Withdrawing sets
// the flag rather than deleting, so clubs keep the history.
type MembershipRequest struct {
	BaseModel

	ClubID string `gorm:"type:uuid;uniqueIndex:idx_request_club_user;not null" json:"club_id"`
	UserID string `gorm:"type:uuid;uniqueIndex:idx_request_club_user;not null" json:"user_id"`

	Withdrew bool `json:"withdrew"`

	Club *Club `json:"club,omitempty"`
	User *User `json:"-"`
}
