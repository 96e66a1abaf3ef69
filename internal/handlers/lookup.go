package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pennlabs/clubs/internal/permissions"
	"github.com/pennlabs/clubs/internal/services"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
	"github.com/pennlabs/clubs/pkg/response"
)

// LookupHandler serves the shared vocabulary tables.
type LookupHandler struct {
	lookups *services.LookupService
	checker *permissions.Checker
}

// NewLookupHandler constructs a LookupHandler.
func NewLookupHandler(lookups *services.LookupService, checker *permissions.Checker) *LookupHandler {
	return &LookupHandler{lookups: lookups, checker: checker}
}

// Tags returns every tag with the number of visible clubs carrying it.
func (h *LookupHandler) Tags(c *gin.Context) {
	tags, err := h.lookups.ListTags(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tags)
}

// Badges returns badges, filtered by purpose. The default purpose is the
// activities fair.
func (h *LookupHandler) Badges(c *gin.Context) {
	badges, err := h.lookups.ListBadges(requestContext(c), c.Query("purpose"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, badges)
}

// Schools lists every school.
func (h *LookupHandler) Schools(c *gin.Context) {
	schools, err := h.lookups.ListSchools(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, schools)
}

// Majors lists every major.
func (h *LookupHandler) Majors(c *gin.Context) {
	majors, err := h.lookups.ListMajors(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, majors)
}

// Years lists class years with their computed graduation years.
func (h *LookupHandler) Years(c *gin.Context) {
	years, err := h.lookups.ListYears(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, years)
}

// NoteTags lists the tags available for inter-club notes.
func (h *LookupHandler) NoteTags(c *gin.Context) {
	tags, err := h.lookups.ListNoteTags(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tags)
}

func (h *LookupHandler) requireSuperuser(c *gin.Context) bool {
	super, err := h.checker.IsSuperuser(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return false
	}
	if !super {
		response.Error(c, apperrors.ErrForbidden)
		return false
	}
	return true
}

type createSchoolRequest struct {
	Name       string `json:"name" validate:"required"`
	IsGraduate bool   `json:"is_graduate"`
}

// CreateSchool adds a school. Superusers only.
func (h *LookupHandler) CreateSchool(c *gin.Context) {
	if !h.requireSuperuser(c) {
		return
	}

	var req createSchoolRequest
	if !bindAndValidate(c, &req) {
		return
	}

	school, err := h.lookups.CreateSchool(requestContext(c), req.Name, req.IsGraduate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, school)
}

type createNameRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateMajor adds a major. Superusers only.
func (h *LookupHandler) CreateMajor(c *gin.Context) {
	if !h.requireSuperuser(c) {
		return
	}

	var req createNameRequest
	if !bindAndValidate(c, &req) {
		return
	}

	major, err := h.lookups.CreateMajor(requestContext(c), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, major)
}

// CreateYear adds a class year. Superusers only.
func (h *LookupHandler) CreateYear(c *gin.Context) {
	if !h.requireSuperuser(c) {
		return
	}

	var req createNameRequest
	if !bindAndValidate(c, &req) {
		return
	}

	year, err := h.lookups.CreateYear(requestContext(c), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, year)
}
