package models

// Favorite bookmarks a club for a user. One per (user, club) pair.
type Favorite struct {
	BaseModel

	UserID string `gorm:"type:uuid;uniqueIndex:idx_favorite_user_club;not null" json:"user_id"`
	ClubID string `gorm:"type:uuid;uniqueIndex:idx_favorite_user_club;not null" json:"club_id"`

	Club *Club `json:"club,omitempty"`
}

// Subscribe puts a user on a club's interest list. One per (user, club) pair.
type Subscribe struct {
	BaseModel

	UserID string `gorm:"type:uuid;uniqueIndex:idx_subscribe_user_club;not null" json:"user_id"`
	ClubID string `gorm:"type:uuid;uniqueIndex:idx_subscribe_user_club;not null" json:"club_id"`

	Club *Club `json:"club,omitempty"`
	User *User `json:"-"`
}

// ClubVisit records a page view for analytics. Unbounded, never unique.
type ClubVisit struct {
	BaseModel

	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`
	ClubID string `gorm:"type:uuid;index;not null" json:"club_id"`
}
