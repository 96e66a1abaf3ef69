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

var (
	// ErrTestimonialNotFound indicates the testimonial does not exist.
	ErrTestimonialNotFound = apperrors.New("TESTIMONIAL_NOT_FOUND", "Testimonial not found", http.StatusNotFound)
	// ErrAdvisorNotFound indicates the advisor does not exist.
	ErrAdvisorNotFound = apperrors.New("ADVISOR_NOT_FOUND", "Advisor not found", http.StatusNotFound)
	// ErrAdvisorPhoneExists signals a duplicate advisor phone number.
	ErrAdvisorPhoneExists = apperrors.New("ADVISOR_PHONE_EXISTS", "An advisor with that phone number already exists", http.StatusConflict)
)

// AdvisorInput captures advisor contact details.
type AdvisorInput struct {
	Name   string
	Title  string
	Email  string
	Phone  string
	Public *bool
}

// ClubItemService manages a club's testimonials and advisors.
type ClubItemService struct {
	db *gorm.DB
}

// NewClubItemService constructs a ClubItemService instance.
func NewClubItemService(db *gorm.DB) (*ClubItemService, error) {
	if db == nil {
		return nil, errors.New("club item service: db is required")
	}
	return &ClubItemService{db: db}, nil
}

// ListTestimonials returns the club's testimonials.
func (s *ClubItemService) ListTestimonials(ctx context.Context, clubID string) ([]models.Testimonial, error) {
	ctx = ensureContext(ctx)

	var testimonials []models.Testimonial
	err := s.db.WithContext(ctx).
		Where("club_id = ?", clubID).
		Order("created_at DESC").
		Find(&testimonials).Error
	if err != nil {
		return nil, fmt.Errorf("club item service: list testimonials: %w", err)
	}
	return testimonials, nil
}

// CreateTestimonial adds an anonymous quote to the club page.
func (s *ClubItemService) CreateTestimonial(ctx context.Context, clubID, text string) (*models.Testimonial, error) {
	ctx = ensureContext(ctx)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewBadRequest("testimonial text is required")
	}

	testimonial := &models.Testimonial{ClubID: clubID, Text: text}
	if err := s.db.WithContext(ctx).Create(testimonial).Error; err != nil {
		return nil, fmt.Errorf("club item service: create testimonial: %w", err)
	}
	return testimonial, nil
}

// DeleteTestimonial removes a testimonial.
func (s *ClubItemService) DeleteTestimonial(ctx context.Context, clubID, id string) error {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Where("id = ? AND club_id = ?", id, clubID).
		Delete(&models.Testimonial{})
	if res.Error != nil {
		return fmt.Errorf("club item service: delete testimonial: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTestimonialNotFound
	}
	return nil
}

// ListAdvisors returns the club's advisors; publicOnly hides private ones.
func (s *ClubItemService) ListAdvisors(ctx context.Context, clubID string, publicOnly bool) ([]models.Advisor, error) {
	ctx = ensureContext(ctx)

	db := s.db.WithContext(ctx).Where("club_id = ?", clubID)
	if publicOnly {
		db = db.Where("public = ?", true)
	}

	var advisors []models.Advisor
	if err := db.Order("name ASC").Find(&advisors).Error; err != nil {
		return nil, fmt.Errorf("club item service: list advisors: %w", err)
	}
	return advisors, nil
}

// CreateAdvisor records a faculty or staff contact for the club.
func (s *ClubItemService) CreateAdvisor(ctx context.Context, clubID string, input AdvisorInput) (*models.Advisor, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("advisor name is required")
	}

	advisor := &models.Advisor{
		ClubID: clubID,
		Name:   name,
		Title:  strings.TrimSpace(input.Title),
		Email:  strings.TrimSpace(input.Email),
		Phone:  strings.TrimSpace(input.Phone),
		Public: true,
	}
	if input.Public != nil {
		advisor.Public = *input.Public
	}

	if err := s.db.WithContext(ctx).Create(advisor).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAdvisorPhoneExists
		}
		return nil, fmt.Errorf("club item service: create advisor: %w", err)
	}
	return advisor, nil
}

// UpdateAdvisor edits an advisor entry.
func (s *ClubItemService) UpdateAdvisor(ctx context.Context, clubID, id string, input AdvisorInput) (*models.Advisor, error) {
	ctx = ensureContext(ctx)

	var advisor models.Advisor
	err := s.db.WithContext(ctx).
		Where("id = ? AND club_id = ?", id, clubID).
		Take(&advisor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdvisorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("club item service: load advisor: %w", err)
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(input.Name); name != "" {
		updates["name"] = name
	}
	if input.Title != "" {
		updates["title"] = strings.TrimSpace(input.Title)
	}
	if input.Email != "" {
		updates["email"] = strings.TrimSpace(input.Email)
	}
	if input.Phone != "" {
		updates["phone"] = strings.TrimSpace(input.Phone)
	}
	if input.Public != nil {
		updates["public"] = *input.Public
	}
	if len(updates) == 0 {
		return &advisor, nil
	}

	if err := s.db.WithContext(ctx).Model(&advisor).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAdvisorPhoneExists
		}
		return nil, fmt.Errorf("club item service: update advisor: %w", err)
	}
	return &advisor, nil
}

// DeleteAdvisor removes an advisor.
func (s *ClubItemService) DeleteAdvisor(ctx context.Context, clubID, id string) error {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Where("id = ? AND club_id = ?", id, clubID).
		Delete(&models.Advisor{})
	if res.Error != nil {
		return fmt.Errorf("club item service: delete advisor: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAdvisorNotFound
	}
	return nil
}
