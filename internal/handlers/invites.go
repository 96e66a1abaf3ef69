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

// InviteHandler serves membership invitations.
type InviteHandler struct {
	clubs   *services.ClubService
	invites *services.InviteService
	users   *services.UserService
	checker *permissions.Checker
}

// NewInviteHandler constructs an InviteHandler.
func NewInviteHandler(clubs *services.ClubService, invites *services.InviteService, users *services.UserService, checker *permissions.Checker) *InviteHandler {
	return &InviteHandler{clubs: clubs, invites: invites, users: users, checker: checker}
}

// List returns the club's pending invitations. Officers and above.
func (h *InviteHandler) List(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	invites, err := h.invites.ListForClub(requestContext(c), club.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]gin.H, 0, len(invites))
	for i := range invites {
		out = append(out, inviteJSON(&invites[i]))
	}
	response.Success(c, http.StatusOK, out)
}

type createInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  int    `json:"role" validate:"omitempty,min=0,max=20"`
	Title string `json:"title"`
}

// Create issues a single invitation. Officers and above; granting a role
// above the actor's own is rejected.
func (h *InviteHandler) Create(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	var req createInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.Role == 0 && req.Title == "" {
		req.Role = models.RoleMember
	}

	if ok, err := h.roleWithinActor(c, club.ID, req.Role); err != nil {
		response.Error(c, err)
		return
	} else if !ok {
		response.Error(c, services.ErrRoleTooHigh)
		return
	}

	invite, err := h.invites.Create(requestContext(c), club, currentUserID(c), req.Email, req.Role, req.Title, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, inviteJSON(invite))
}

type massInviteRequest struct {
	Emails []string `json:"emails" validate:"required,min=1"`
	Role   int      `json:"role" validate:"omitempty,min=0,max=20"`
	Title  string   `json:"title"`
}

// MassInvite issues invitations in bulk, skipping addresses that already
// belong to the club or hold an active invite. Officers and above.
func (h *InviteHandler) MassInvite(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	var req massInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.Role == 0 && req.Title == "" {
		req.Role = models.RoleMember
	}

	if ok, err := h.roleWithinActor(c, club.ID, req.Role); err != nil {
		response.Error(c, err)
		return
	} else if !ok {
		response.Error(c, services.ErrRoleTooHigh)
		return
	}

	sent, skipped, err := h.invites.MassInvite(requestContext(c), club, currentUserID(c), req.Emails, req.Role, req.Title)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sent": sent, "skipped": skipped})
}

// Resend re-emails a pending invitation. Officers and above.
func (h *InviteHandler) Resend(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	if err := h.invites.Resend(requestContext(c), club, c.Param("invite")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resent": true})
}

// Delete revokes a pending invitation. Officers and above.
func (h *InviteHandler) Delete(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	if err := h.invites.Delete(requestContext(c), club.ID, c.Param("invite")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

type claimInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

// Claim redeems an invitation for the authenticated user.
func (h *InviteHandler) Claim(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req claimInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	membership, err := h.invites.Claim(requestContext(c), club, c.Param("invite"), req.Token, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, memberJSON(membership, true))
}

func (h *InviteHandler) roleWithinActor(c *gin.Context, clubID string, role int) (bool, error) {
	userID := currentUserID(c)
	super, err := h.checker.IsSuperuser(requestContext(c), userID)
	if err != nil || super {
		return super, err
	}

	actorRole, ok, err := h.checker.MembershipRole(requestContext(c), userID, clubID)
	if err != nil {
		return false, err
	}
	return ok && role >= actorRole, nil
}
