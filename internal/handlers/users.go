package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pennlabs/clubs/internal/permissions"
	"github.com/pennlabs/clubs/internal/services"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
	"github.com/pennlabs/clubs/pkg/response"
)

// UserHandler serves profile settings and account lookups.
type UserHandler struct {
	users   *services.UserService
	members *services.MembershipService
	checker *permissions.Checker
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *services.UserService, members *services.MembershipService, checker *permissions.Checker) *UserHandler {
	return &UserHandler{users: users, members: members, checker: checker}
}

// Settings returns the caller's profile.
func (h *UserHandler) Settings(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, userJSON(user))
}

type updateSettingsRequest struct {
	FirstName      *string  `json:"first_name"`
	LastName       *string  `json:"last_name"`
	GraduationYear *int     `json:"graduation_year" validate:"omitempty,min=1900,max=2200"`
	ShareBookmarks *bool    `json:"share_bookmarks"`
	Schools        []string `json:"schools"`
	Majors         []string `json:"majors"`
}

// UpdateSettings edits the caller's profile.
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req updateSettingsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(requestContext(c), userID, services.UpdateProfileInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		GraduationYear: req.GraduationYear,
		ShareBookmarks: req.ShareBookmarks,
		SchoolIDs:      req.Schools,
		MajorIDs:       req.Majors,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, userJSON(user))
}

// Retrieve returns another user's profile. Superusers only.
func (h *UserHandler) Retrieve(c *gin.Context) {
	super, err := h.checker.IsSuperuser(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !super {
		response.Error(c, apperrors.ErrForbidden)
		return
	}

	user, err := h.users.GetByUsername(requestContext(c), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, userJSON(user))
}

// Permissions returns the caller's permission codenames.
func (h *UserHandler) Permissions(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	codenames, err := h.users.PermissionCodenames(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"permissions": codenames})
}

// Memberships returns the caller's club memberships.
func (h *UserHandler) Memberships(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	memberships, err := h.members.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]gin.H, 0, len(memberships))
	for i := range memberships {
		m := &memberships[i]
		entry := memberJSON(m, true)
		if m.Club != nil {
			entry["club"] = m.Club.Code
			entry["club_name"] = m.Club.Name
		}
		out = append(out, entry)
	}
	response.Success(c, http.StatusOK, out)
}
