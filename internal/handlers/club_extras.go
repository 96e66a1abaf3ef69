package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/services"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
	"github.com/pennlabs/clubs/pkg/response"
)

// Analytics returns hourly engagement counts for a date window. Officers
// and above.
func (h *ClubHandler) Analytics(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	end := time.Now()
	start := end.Add(-24 * time.Hour)
	if raw := c.Query("start"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			start = parsed
		}
	}
	if raw := c.Query("end"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			end = parsed
		}
	}

	overview, err := h.analytics.Overview(requestContext(c), club.ID, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, overview)
}

// AnalyticsPieCharts returns demographic breakdowns of the club's recent
// audience. Officers and above.
func (h *ClubHandler) AnalyticsPieCharts(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	charts, err := h.analytics.Demographics(requestContext(c), club.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, charts)
}

// Subscription returns the club's subscriber roster including bookmarkers
// who share their identity. Officers and above.
func (h *ClubHandler) Subscription(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	roster, err := h.engage.SubscriberRoster(requestContext(c), club.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roster)
}

// UploadLogo replaces the club image. The image is a sensitive field, so an
// approved club goes back into review. Officers and above.
func (h *ClubHandler) UploadLogo(c *gin.Context) {
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

	updated, err := h.clubs.Update(requestContext(c), club.Code, services.UpdateClubInput{ImagePath: &asset.FilePath})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, clubJSON(updated, true))
}

// UploadFile attaches an arbitrary file to the club. Officers and above.
func (h *ClubHandler) UploadFile(c *gin.Context) {
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
	response.Success(c, http.StatusCreated, gin.H{
		"id":   asset.ID,
		"name": asset.Name,
	})
}

// readUpload extracts the multipart "file" part; a missing part is a 400.
func readUpload(c *gin.Context) ([]byte, string, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("a file part named 'file' is required"))
		return nil, "", false
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("unable to open uploaded file"))
		return nil, "", false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("unable to read uploaded file"))
		return nil, "", false
	}
	return content, header.Filename, true
}
