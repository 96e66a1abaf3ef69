package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/permissions"
	"github.com/pennlabs/clubs/internal/services"
	"github.com/pennlabs/clubs/pkg/response"
)

// EventHandler serves club events and the global fair listings.
type EventHandler struct {
	clubs   *services.ClubService
	events  *services.EventService
	assets  *services.AssetService
	checker *permissions.Checker
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(clubs *services.ClubService, events *services.EventService, assets *services.AssetService, checker *permissions.Checker) *EventHandler {
	return &EventHandler{clubs: clubs, events: events, assets: assets, checker: checker}
}

type eventRequest struct {
	Name        string    `json:"name" validate:"required"`
	Type        int       `json:"type" validate:"omitempty,min=0,max=4"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Location    string    `json:"location"`
	URL         string    `json:"url" validate:"omitempty,url"`
	Description string    `json:"description"`
}

// ListForClub returns a club's events.
func (h *EventHandler) ListForClub(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	events, err := h.events.ListForClub(requestContext(c), club.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}

// Create adds an event to a club. Officers and above.
func (h *EventHandler) Create(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	var req eventRequest
	if !bindAndValidate(c, &req) {
		return
	}

	event, err := h.events.Create(requestContext(c), club.ID, currentUserID(c), services.CreateEventInput{
		Name:        req.Name,
		Type:        req.Type,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		URL:         req.URL,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, event)
}

type updateEventRequest struct {
	Name        *string    `json:"name"`
	Type        *int       `json:"type" validate:"omitempty,min=0,max=4"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Location    *string    `json:"location"`
	URL         *string    `json:"url"`
	Description *string    `json:"description"`
}

// Update edits an event. Officers and above.
func (h *EventHandler) Update(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	var req updateEventRequest
	if !bindAndValidate(c, &req) {
		return
	}

	event, err := h.events.Update(requestContext(c), club.ID, c.Param("event"), services.UpdateEventInput{
		Name:        req.Name,
		Type:        req.Type,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		URL:         req.URL,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, event)
}

// Delete removes an event. Officers and above; fair events are superuser
// territory, enforced by the service.
func (h *EventHandler) Delete(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	if err := h.events.Delete(requestContext(c), currentUserID(c), club.ID, c.Param("event")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Upload attaches an image to an event. Officers and above.
func (h *EventHandler) Upload(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	content, name, ok := readUpload(c)
	if !ok {
		return
	}

	asset, err := h.assets.Save(requestContext(c), club.ID, currentUserID(c), name, content)
	if err != nil {
		response.Error(c, err)
		return
	}

	event, err := h.events.Update(requestContext(c), club.ID, c.Param("event"), services.UpdateEventInput{
		ImagePath: &asset.FilePath,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, event)
}

// ListGlobal returns future events across all visible clubs.
func (h *EventHandler) ListGlobal(c *gin.Context) {
	events, err := h.events.ListGlobal(requestContext(c), c.Request.URL.Query())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}

// Fair returns the cached activities-fair schedule.
func (h *EventHandler) Fair(c *gin.Context) {
	sessions, err := h.events.Fair(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, sessions)
}

// Live returns fair events happening right now.
func (h *EventHandler) Live(c *gin.Context) {
	events, err := h.events.Live(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}

// Upcoming returns fair events that have not started yet.
func (h *EventHandler) Upcoming(c *gin.Context) {
	events, err := h.events.Upcoming(requestContext(c), currentUserID(c) != "")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}

// Owned returns events of clubs the caller helps run.
func (h *EventHandler) Owned(c *gin.Context) {
	events, err := h.events.Owned(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}

// Ended returns past events.
func (h *EventHandler) Ended(c *gin.Context) {
	events, err := h.events.Ended(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}
