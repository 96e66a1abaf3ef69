package models

// Note permission thresholds. Values mirror membership roles, with two
// extremes for "no access" and "everyone".
const (
	NotePermissionNone   = -1
	NotePermissionPublic = 100
)

// Note is a private annotation one club keeps about another. Visibility is
// controlled separately for the creating club and the subject club.
type Note struct {
	BaseModel

	CreatorID      string `gorm:"type:uuid;not null" json:"-"`
	CreatingClubID string `gorm:"type:uuid;index;not null" json:"creating_club_id"`
	SubjectClubID  string `gorm:"type:uuid;index;not null" json:"subject_club_id"`

	Title   string `json:"title"`
	Content string `json:"content"`

	// Role threshold a member of the creating club must meet to read the
	// note; 0/10/20 per membership roles. No column default: 0 means Owner
	// and must round-trip as written.
	CreatingClubPermission int `json:"creating_club_permission"`
	// Threshold for members of the subject club, extended with
	// NotePermissionNone and NotePermissionPublic.
	OutsideClubPermission int `json:"outside_club_permission"`

	Tags []NoteTag `gorm:"many2many:note_note_tags;" json:"tags,omitempty"`

	CreatingClub *Club `gorm:"foreignKey:CreatingClubID" json:"-"`
	SubjectClub  *Club `gorm:"foreignKey:SubjectClubID" json:"-"`
}

// NoteTag labels notes for filtering.
type NoteTag struct {
	BaseModel

	Name string `gorm:"uniqueIndex;not null" json:"name"`
}
