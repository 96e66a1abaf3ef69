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

// MemberHandler serves a club's roster.
type MemberHandler struct {
	clubs   *services.ClubService
	members *services.MembershipService
	checker *permissions.Checker
}

// NewMemberHandler constructs a MemberHandler.
func NewMemberHandler(clubs *services.ClubService, members *services.MembershipService, checker *permissions.Checker) *MemberHandler {
	return &MemberHandler{clubs: clubs, members: members, checker: checker}
}

// List returns the club roster. Members and superusers see contact details;
// the public view anonymises members who opted out.
func (h *MemberHandler) List(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	members, err := h.members.ListForClub(requestContext(c), club.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, memberListJSON(members, isClubPrivileged(c, h.checker, club.ID)))
}

// Retrieve returns one member by username.
func (h *MemberHandler) Retrieve(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	member, err := h.members.GetByUsername(requestContext(c), club.ID, c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, memberJSON(member, isClubPrivileged(c, h.checker, club.ID)))
}

type updateMemberRequest struct {
	Role   *int    `json:"role" validate:"omitempty,min=0,max=20"`
	Title  *string `json:"title"`
	Active *bool   `json:"active"`
	Public *bool   `json:"public"`
}

// Update edits a member's role, title or visibility. Officers and above,
// except that members may always edit their own title and visibility.
func (h *MemberHandler) Update(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	var req updateMemberRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	target, err := h.members.GetByUsername(requestContext(c), club.ID, c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}

	selfEdit := target.UserID == userID && req.Role == nil && req.Active == nil
	if !selfEdit {
		super, err := h.checker.IsSuperuser(requestContext(c), userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !super {
			actorRole, member, err := h.checker.MembershipRole(requestContext(c), userID, club.ID)
			if err != nil {
				response.Error(c, err)
				return
			}
			// Officers and above, and never a member outranking the actor.
			if !member || actorRole > models.RoleOfficer || actorRole > target.Role {
				response.Error(c, apperrors.ErrForbidden)
				return
			}
		}
	}

	member, err := h.members.Update(requestContext(c), userID, club.ID, c.Param("username"), services.UpdateMembershipInput{
		Role:   req.Role,
		Title:  req.Title,
		Active: req.Active,
		Public: req.Public,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, memberJSON(member, true))
}

// Delete removes a member. Owners may remove anyone; members may remove
// themselves. The final owner can never leave.
func (h *MemberHandler) Delete(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	target, err := h.members.GetByUsername(requestContext(c), club.ID, c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if target.UserID != userID {
		allowed, err := h.checker.HasClubRole(requestContext(c), userID, club.ID, models.RoleOwner)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !allowed {
			response.Error(c, apperrors.ErrForbidden)
			return
		}
	}

	if err := h.members.Delete(requestContext(c), userID, club.ID, c.Param("username")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
