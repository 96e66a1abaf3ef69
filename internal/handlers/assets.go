package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/permissions"
	"github.com/pennlabs/clubs/internal/services"
	"github.com/pennlabs/clubs/pkg/response"
)

// AssetHandler serves files uploaded to a club.
type AssetHandler struct {
	clubs   *services.ClubService
	assets  *services.AssetService
	checker *permissions.Checker
}

// NewAssetHandler constructs an AssetHandler.
func NewAssetHandler(clubs *services.ClubService, assets *services.AssetService, checker *permissions.Checker) *AssetHandler {
	return &AssetHandler{clubs: clubs, assets: assets, checker: checker}
}

// List returns the club's uploaded files. Officers and above.
func (h *AssetHandler) List(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	assets, err := h.assets.ListForClub(requestContext(c), club.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, assets)
}

// Download streams one uploaded file.
func (h *AssetHandler) Download(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	asset, err := h.assets.Get(requestContext(c), club.ID, c.Param("asset"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(asset.FilePath, asset.Name)
}

// Delete removes one uploaded file and its row. Officers and above.
func (h *AssetHandler) Delete(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	if err := h.assets.Delete(requestContext(c), club.ID, c.Param("asset")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
