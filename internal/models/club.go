package models

import (
	"time"

	"gorm.io/datatypes"
)

// Club sizes.
const (
	SizeSmall     = 1 // 1-20 members
	SizeMedium    = 2 // 21-50
	SizeLarge     = 3 // 51-100
	SizeVeryLarge = 4 // 101+
)

// Application requirement levels.
const (
	ApplicationNone     = 1
	ApplicationSome     = 2
	ApplicationAll      = 3
	ApplicationAudition = 4
	ApplicationTryout   = 5
)

// Club is the central directory entry. Approved is tri-state: nil means the
// club is awaiting review, true/false record the reviewer's decision.
type Club struct {
	BaseModel

	Code string `gorm:"uniqueIndex;not null" json:"code"`
	Name string `gorm:"not null" json:"name"`

	Approved        *bool      `json:"approved"`
	ApprovedByID    *string    `gorm:"type:uuid" json:"-"`
	ApprovedBy      *User      `gorm:"foreignKey:ApprovedByID" json:"-"`
	ApprovedOn      *time.Time `json:"approved_on,omitempty"`
	ApprovedComment string     `json:"approved_comment,omitempty"`

	// Ghost marks a club whose live row is pending re-review; anonymous
	// readers are served its latest approved snapshot instead.
	Ghost  bool `json:"ghost"`
	Active bool `json:"active"`

	Fair   bool       `json:"fair"`
	FairOn *time.Time `json:"fair_on,omitempty"`

	Subtitle    string     `json:"subtitle"`
	Description string     `json:"description"`
	Founded     *time.Time `json:"founded"`
	Size        int        `json:"size"`

	Email       string `json:"email"`
	EmailPublic bool   `json:"email_public"`
	Website     string `json:"website"`
	Facebook    string `json:"facebook"`
	Twitter     string `json:"twitter"`
	Instagram   string `json:"instagram"`
	Linkedin    string `json:"linkedin"`
	Github      string `json:"github"`
	Youtube     string `json:"youtube"`
	Listserv    string `json:"listserv"`

	HowToGetInvolved    string `json:"how_to_get_involved"`
	ApplicationRequired int    `json:"application_required"`
	AcceptingMembers    bool   `json:"accepting_members"`

	ImagePath string `json:"image_path"`
	Rank      int    `json:"rank"`

	Tags          []Tag    `gorm:"many2many:club_tags;" json:"tags,omitempty"`
	Badges        []Badge  `gorm:"many2many:club_badges;" json:"badges,omitempty"`
	TargetSchools []School `gorm:"many2many:club_target_schools;" json:"target_schools,omitempty"`
	TargetMajors  []Major  `gorm:"many2many:club_target_majors;" json:"target_majors,omitempty"`
	TargetYears   []Year   `gorm:"many2many:club_target_years;" json:"target_years,omitempty"`
	ParentOrgs    []*Club  `gorm:"many2many:club_parent_orgs;joinForeignKey:child_id;joinReferences:parent_id" json:"-"`

	Memberships []Membership `gorm:"foreignKey:ClubID" json:"-"`
}

// ClubSnapshot is a point-in-time copy of a club row, written on every
// mutation. The newest approved snapshot backs ghost reads.
type ClubSnapshot struct {
	BaseModel

	ClubID     string         `gorm:"type:uuid;index;not null" json:"club_id"`
	Payload    datatypes.JSON `gorm:"not null" json:"payload"`
	Approved   bool           `json:"approved"`
	ApprovedOn *time.Time     `json:"approved_on,omitempty"`
}

// Testimonial is an anonymous quote displayed on a club's page.
type Testimonial struct {
	BaseModel

	ClubID string `gorm:"type:uuid;index;not null" json:"club_id"`
	Text   string `gorm:"not null" json:"text"`
}

// Advisor is a faculty or staff contact point for a club.
type Advisor struct {
	BaseModel

	ClubID string `gorm:"type:uuid;index;not null" json:"club_id"`
	Name   string `gorm:"not null" json:"name"`
	Title  string `json:"title"`
	Email  string `json:"email"`
	Phone  string `gorm:"uniqueIndex" json:"phone"`
	Public bool   `json:"public"`
}

