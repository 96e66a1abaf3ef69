package models

// User is a registered account. Profile fields feed the public membership
// listings and the subscriber rosters clubs can download.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImagePath string `json:"image_path"`

	IsSuperuser bool `json:"is_superuser"`
	IsActive    bool `json:"is_active"`

	GraduationYear *int     `json:"graduation_year"`
	Schools        []School `gorm:"many2many:user_schools;" json:"schools,omitempty"`
	Majors         []Major  `gorm:"many2many:user_majors;" json:"majors,omitempty"`

	// ShareBookmarks lets clubs the user bookmarked see their identity in
	// the subscription roster.
	ShareBookmarks bool `json:"share_bookmarks"`

	Permissions []Permission `gorm:"many2many:user_permissions;" json:"-"`
}

// FullName joins the user's first and last names for display.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Permission is a named capability granted to individual users outside the
// club role hierarchy, such as the right to approve clubs.
type Permission struct {
	BaseModel

	Codename    string `gorm:"uniqueIndex;not null" json:"codename"`
	Description string `json:"description"`
}
