package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
)

// ErrLabelExists signals a duplicate label row.
var ErrLabelExists = apperrors.New("LABEL_EXISTS", "An entry with that name already exists", http.StatusConflict)

// TagCount pairs a tag with the number of visible clubs carrying it.
type TagCount struct {
	models.Tag
	ClubCount int `json:"club_count"`
}

// LookupService serves the label tables: tags, badges, schools, majors and
// years.
type LookupService struct {
	db *gorm.DB
}

// NewLookupService constructs a LookupService instance.
func NewLookupService(db *gorm.DB) (*LookupService, error) {
	if db == nil {
		return nil, errors.New("lookup service: db is required")
	}
	return &LookupService{db: db}, nil
}

// ListTags returns every tag with its approved-club usage count.
func (s *LookupService) ListTags(ctx context.Context) ([]TagCount, error) {
	ctx = ensureContext(ctx)

	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("lookup service: list tags: %w", err)
	}

	out := make([]TagCount, 0, len(tags))
	for _, tag := range tags {
		var count int64
		err := s.db.WithContext(ctx).
			Table("club_tags").
			Joins("JOIN clubs ON clubs.id = club_tags.club_id").
			Where("club_tags.tag_id = ? AND (clubs.approved = ? OR clubs.ghost = ?)", tag.ID, true, true).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("lookup service: count tag clubs: %w", err)
		}
		out = append(out, TagCount{Tag: tag, ClubCount: int(count)})
	}
	return out, nil
}

// ListBadges returns badges with a fair purpose or carrying the given
// purpose filter.
func (s *LookupService) ListBadges(ctx context.Context, purpose string) ([]models.Badge, error) {
	ctx = ensureContext(ctx)

	db := s.db.WithContext(ctx)
	if purpose = strings.TrimSpace(purpose); purpose != "" {
		db = db.Where("purpose = ?", purpose)
	} else {
		db = db.Where("purpose = ?", "fair")
	}

	var badges []models.Badge
	if err := db.Order("label ASC").Find(&badges).Error; err != nil {
		return nil, fmt.Errorf("lookup service: list badges: %w", err)
	}
	return badges, nil
}

// ListSchools returns every school.
func (s *LookupService) ListSchools(ctx context.Context) ([]models.School, error) {
	ctx = ensureContext(ctx)

	var schools []models.School
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&schools).Error; err != nil {
		return nil, fmt.Errorf("lookup service: list schools: %w", err)
	}
	return schools, nil
}

// ListMajors returns every major.
func (s *LookupService) ListMajors(ctx context.Context) ([]models.Major, error) {
	ctx = ensureContext(ctx)

	var majors []models.Major
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&majors).Error; err != nil {
		return nil, fmt.Errorf("lookup service: list majors: %w", err)
	}
	return majors, nil
}

// ListYears returns every school year.
func (s *LookupService) ListYears(ctx context.Context) ([]models.Year, error) {
	ctx = ensureContext(ctx)

	var years []models.Year
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&years).Error; err != nil {
		return nil, fmt.Errorf("lookup service: list years: %w", err)
	}
	return years, nil
}

// CreateSchool adds a school. Superuser only, enforced by the route.
func (s *LookupService) CreateSchool(ctx context.Context, name string, graduate bool) (*models.School, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("school name is required")
	}

	school := &models.School{Name: name, IsGraduate: graduate}
	if err := s.db.WithContext(ctx).Create(school).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrLabelExists
		}
		return nil, fmt.Errorf("lookup service: create school: %w", err)
	}
	return school, nil
}

// CreateMajor adds a major. Superuser only, enforced by the route.
func (s *LookupService) CreateMajor(ctx context.Context, name string) (*models.Major, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("major name is required")
	}

	major := &models.Major{Name: name}
	if err := s.db.WithContext(ctx).Create(major).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrLabelExists
		}
		return nil, fmt.Errorf("lookup service: create major: %w", err)
	}
	return major, nil
}

// CreateYear adds a school year. Superuser only, enforced by the route.
func (s *LookupService) CreateYear(ctx context.Context, name string) (*models.Year, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("year name is required")
	}

	year := &models.Year{Name: name}
	if err := s.db.WithContext(ctx).Create(year).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrLabelExists
		}
		return nil, fmt.Errorf("lookup service: create year: %w", err)
	}
	return year, nil
}

// ListNoteTags returns the note label table.
func (s *LookupService) ListNoteTags(ctx context.Context) ([]models.NoteTag, error) {
	ctx = ensureContext(ctx)

	var tags []models.NoteTag
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("lookup service: list note tags: %w", err)
	}
	return tags, nil
}
