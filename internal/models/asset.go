package models

import "time"

// Asset is a file uploaded by a club (bylaws, constitutions, images).
type Asset struct {
	BaseModel

	ClubID    string  `gorm:"type:uuid;index;not null" json:"club_id"`
	CreatorID *string `gorm:"type:uuid" json:"-"`

	Name     string `gorm:"not null" json:"name"`
	FilePath string `gorm:"not null" json:"-"`
}

// CacheEntry backs the database cache store.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     []byte    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
