package models

import "time"

// Event types.
const (
	EventOther       = 0
	EventRecruitment = 1
	EventGBM         = 2
	EventSpeaker     = 3
	// EventFair events are managed by administrators only.
	EventFair = 4
)

// Event is a dated happening hosted by a club.
type Event struct {
	BaseModel

	Code   string `gorm:"index" json:"code"`
	ClubID string `gorm:"type:uuid;index;not null" json:"club_id"`

	CreatorID *string `gorm:"type:uuid" json:"-"`

	Name        string    `gorm:"not null" json:"name"`
	Type        int       `gorm:"index" json:"type"`
	StartTime   time.Time `gorm:"index;not null" json:"start_time"`
	EndTime     time.Time `gorm:"index;not null" json:"end_time"`
	Location    string    `json:"location"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	ImagePath   string    `json:"image_path"`

	Club *Club `json:"club,omitempty"`
}

// QuestionAnswer is a public question asked about a club. Once answered the
// question text is frozen and the entry becomes visible to everyone.
type QuestionAnswer struct {
	BaseModel

	ClubID      string  `gorm:"type:uuid;index;not null" json:"club_id"`
	AuthorID    *string `gorm:"type:uuid" json:"-"`
	ResponderID *string `gorm:"type:uuid" json:"-"`

	Question string  `gorm:"not null" json:"question"`
	Answer   *string `json:"answer"`

	Approved    bool `json:"approved"`
	IsAnonymous bool `json:"is_anonymous"`

	Author    *User `gorm:"foreignKey:AuthorID" json:"-"`
	Responder *User `gorm:"foreignKey:ResponderID" json:"-"`
}
