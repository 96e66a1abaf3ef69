package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pennlabs/clubs/internal/permissions"
	"github.com/pennlabs/clubs/internal/services"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
	"github.com/pennlabs/clubs/pkg/response"
)

// EngagementHandler serves bookmarks, subscriptions and visit tracking.
type EngagementHandler struct {
	clubs   *services.ClubService
	engage  *services.EngagementService
	checker *permissions.Checker
}

// NewEngagementHandler constructs an EngagementHandler.
func NewEngagementHandler(clubs *services.ClubService, engage *services.EngagementService, checker *permissions.Checker) *EngagementHandler {
	return &EngagementHandler{clubs: clubs, engage: engage, checker: checker}
}

func (h *EngagementHandler) resolveClub(c *gin.Context) (string, bool) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return "", false
	}
	if currentUserID(c) == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return "", false
	}
	return club.ID, true
}

// Favorite bookmarks a club for the authenticated user.
func (h *EngagementHandler) Favorite(c *gin.Context) {
	clubID, ok := h.resolveClub(c)
	if !ok {
		return
	}

	favorite, err := h.engage.Favorite(requestContext(c), currentUserID(c), clubID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, favorite)
}

// Unfavorite removes a bookmark.
func (h *EngagementHandler) Unfavorite(c *gin.Context) {
	clubID, ok := h.resolveClub(c)
	if !ok {
		return
	}

	if err := h.engage.Unfavorite(requestContext(c), currentUserID(c), clubID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ListFavorites returns the caller's bookmarked clubs.
func (h *EngagementHandler) ListFavorites(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	favorites, err := h.engage.ListFavorites(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, favorites)
}

// Subscribe puts the caller on the club's mailing list.
func (h *EngagementHandler) Subscribe(c *gin.Context) {
	clubID, ok := h.resolveClub(c)
	if !ok {
		return
	}

	subscription, err := h.engage.Subscribe(requestContext(c), currentUserID(c), clubID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, subscription)
}

// Unsubscribe removes the caller from the club's mailing list.
func (h *EngagementHandler) Unsubscribe(c *gin.Context) {
	clubID, ok := h.resolveClub(c)
	if !ok {
		return
	}

	if err := h.engage.Unsubscribe(requestContext(c), currentUserID(c), clubID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ListSubscriptions returns the caller's subscriptions.
func (h *EngagementHandler) ListSubscriptions(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	subscriptions, err := h.engage.ListSubscriptions(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, subscriptions)
}

// Visit records a club page view for analytics. Visits are append-only.
func (h *EngagementHandler) Visit(c *gin.Context) {
	clubID, ok := h.resolveClub(c)
	if !ok {
		return
	}

	visit, err := h.engage.RecordVisit(requestContext(c), currentUserID(c), clubID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, visit)
}
