package models

import (
	"strconv"
	"time"
)

// Tag categorises clubs and drives the directory filters.
type Tag struct {
	BaseModel

	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// Badge is an award or affiliation displayed on a club page. Badges with a
// fair purpose group clubs in the activities-fair directory.
type Badge struct {
	BaseModel

	Label       string `gorm:"not null" json:"label"`
	Purpose     string `gorm:"index" json:"purpose"`
	Description string `json:"description"`
	Color       string `json:"color"`
	// OrgID links the badge to the organization that grants it.
	OrgID *string `gorm:"type:uuid" json:"org_id,omitempty"`
}

// School is an academic school (college) clubs can target.
type School struct {
	BaseModel

	Name       string `gorm:"uniqueIndex;not null" json:"name"`
	IsGraduate bool   `json:"is_graduate"`
}

// Major is a course of study clubs can target.
type Major struct {
	BaseModel

	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// Year is a school year (Freshman, Sophomore, ...) clubs can target.
type Year struct {
	BaseModel

	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// GraduationYear converts the class name into the calendar year in which
// that class graduates, or 0 when the name is not recognised.
func (y *Year) GraduationYear(now time.Time) int {
	offsets := map[string]int{
		"freshman":  4,
		"sophomore": 3,
		"junior":    2,
		"senior":    1,
	}

	offset, ok := offsets[normalizeYearName(y.Name)]
	if !ok {
		if parsed, err := strconv.Atoi(y.Name); err == nil {
			return parsed
		}
		return 0
	}

	year := now.Year()
	// Academic years roll over in the summer.
	if now.Month() >= time.June {
		year++
	}
	return year + offset - 1
}

func normalizeYearName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if r == ' ' {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
