package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/permissions"
	"github.com/pennlabs/clubs/internal/services"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
	"github.com/pennlabs/clubs/pkg/response"
)

// RequestHandler serves membership requests.
type RequestHandler struct {
	clubs    *services.ClubService
	requests *services.RequestService
	users    *services.UserService
	checker  *permissions.Checker
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(clubs *services.ClubService, requests *services.RequestService, users *services.UserService, checker *permissions.Checker) *RequestHandler {
	return &RequestHandler{clubs: clubs, requests: requests, users: users, checker: checker}
}

// Create files a membership request from the authenticated user. A
// previously withdrawn request is reopened instead of duplicated.
func (h *RequestHandler) Create(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

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

	request, err := h.requests.Create(requestContext(c), club, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, requestJSON(request))
}

// Withdraw marks the caller's request withdrawn. The row is kept so that
// officers retain the paper trail.
func (h *RequestHandler) Withdraw(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.requests.Withdraw(requestContext(c), club.ID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"withdrawn": true})
}

// ListForClub returns the club's open requests. Officers and above.
func (h *RequestHandler) ListForClub(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	requests, err := h.requests.ListForClub(requestContext(c), club.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]gin.H, 0, len(requests))
	for i := range requests {
		out = append(out, requestJSON(&requests[i]))
	}
	response.Success(c, http.StatusOK, out)
}

// Accept converts a request into a member-level membership. Officers and
// above.
func (h *RequestHandler) Accept(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	membership, err := h.requests.Accept(requestContext(c), club.ID, c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, memberJSON(membership, true))
}

// ListOwn returns the authenticated user's open requests across clubs.
func (h *RequestHandler) ListOwn(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	requests, err := h.requests.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]gin.H, 0, len(requests))
	for i := range requests {
		out = append(out, requestJSON(&requests[i]))
	}
	response.Success(c, http.StatusOK, out)
}
