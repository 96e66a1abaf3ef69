package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/permissions"
	"github.com/pennlabs/clubs/internal/services"
	"github.com/pennlabs/clubs/pkg/errors"
	"github.com/pennlabs/clubs/pkg/response"
)

// clubAccess resolves the :code route parameter to the live club row and
// verifies the caller holds at least maxRole in it. A maxRole below zero
// skips the role check. On failure an error response has already been
// written and ok is false.
func clubAccess(c *gin.Context, clubs *services.ClubService, checker *permissions.Checker, maxRole int) (club *models.Club, ok bool) {
	club, err := clubs.Load(requestContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}

	if maxRole < 0 {
		return club, true
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return nil, false
	}

	allowed, err := checker.HasClubRole(requestContext(c), userID, club.ID, maxRole)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if !allowed {
		response.Error(c, errors.ErrForbidden)
		return nil, false
	}
	return club, true
}

// isClubPrivileged reports whether the viewer is a member of the club, a
// superuser, or may see pending clubs.
func isClubPrivileged(c *gin.Context, checker *permissions.Checker, clubID string) bool {
	userID := currentUserID(c)
	if userID == "" {
		return false
	}

	if ok, err := checker.CanSeeAllClubs(requestContext(c), userID); err == nil && ok {
		return true
	}
	_, member, err := checker.MembershipRole(requestContext(c), userID, clubID)
	return err == nil && member
}
