package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/permissions"
	"github.com/pennlabs/clubs/internal/services"
	"github.com/pennlabs/clubs/pkg/response"
)

// ClubItemHandler serves testimonials and advisors attached to a club.
type ClubItemHandler struct {
	clubs   *services.ClubService
	items   *services.ClubItemService
	checker *permissions.Checker
}

// NewClubItemHandler constructs a ClubItemHandler.
func NewClubItemHandler(clubs *services.ClubService, items *services.ClubItemService, checker *permissions.Checker) *ClubItemHandler {
	return &ClubItemHandler{clubs: clubs, items: items, checker: checker}
}

// ListTestimonials returns the club's testimonials, oldest first.
func (h *ClubItemHandler) ListTestimonials(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	testimonials, err := h.items.ListTestimonials(requestContext(c), club.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, testimonials)
}

type testimonialRequest struct {
	Text string `json:"text" validate:"required"`
}

// CreateTestimonial adds a testimonial. Officers and above.
func (h *ClubItemHandler) CreateTestimonial(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	var req testimonialRequest
	if !bindAndValidate(c, &req) {
		return
	}

	testimonial, err := h.items.CreateTestimonial(requestContext(c), club.ID, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, testimonial)
}

// DeleteTestimonial removes a testimonial. Officers and above.
func (h *ClubItemHandler) DeleteTestimonial(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	if err := h.items.DeleteTestimonial(requestContext(c), club.ID, c.Param("testimonial")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ListAdvisors returns the club's advisors. The public listing only shows
// advisors marked public; members see the full list.
func (h *ClubItemHandler) ListAdvisors(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	advisors, err := h.items.ListAdvisors(requestContext(c), club.ID, !isClubPrivileged(c, h.checker, club.ID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, advisors)
}

type advisorRequest struct {
	Name   string `json:"name" validate:"required"`
	Title  string `json:"title"`
	Email  string `json:"email" validate:"omitempty,email"`
	Phone  string `json:"phone"`
	Public *bool  `json:"public"`
}

// CreateAdvisor adds an advisor. Officers and above.
func (h *ClubItemHandler) CreateAdvisor(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	var req advisorRequest
	if !bindAndValidate(c, &req) {
		return
	}

	advisor, err := h.items.CreateAdvisor(requestContext(c), club.ID, services.AdvisorInput{
		Name:   req.Name,
		Title:  req.Title,
		Email:  req.Email,
		Phone:  req.Phone,
		Public: req.Public,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, advisor)
}

// UpdateAdvisor edits an advisor. Officers and above.
func (h *ClubItemHandler) UpdateAdvisor(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	var req advisorRequest
	if !bindAndValidate(c, &req) {
		return
	}

	advisor, err := h.items.UpdateAdvisor(requestContext(c), club.ID, c.Param("advisor"), services.AdvisorInput{
		Name:   req.Name,
		Title:  req.Title,
		Email:  req.Email,
		Phone:  req.Phone,
		Public: req.Public,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, advisor)
}

// DeleteAdvisor removes an advisor. Officers and above.
func (h *ClubItemHandler) DeleteAdvisor(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	if err := h.items.DeleteAdvisor(requestContext(c), club.ID, c.Param("advisor")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
