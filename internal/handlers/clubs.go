package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/permissions"
	"github.com/pennlabs/clubs/internal/services"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
	"github.com/pennlabs/clubs/pkg/response"
)

// ClubHandler serves the club resource and its page-level extras.
type ClubHandler struct {
	clubs     *services.ClubService
	checker   *permissions.Checker
	assets    *services.AssetService
	analytics *services.AnalyticsService
	engage    *services.EngagementService
	notes     *services.NoteService
	baseURL   string
}

// NewClubHandler constructs a ClubHandler.
func NewClubHandler(
	clubs *services.ClubService,
	checker *permissions.Checker,
	assets *services.AssetService,
	analytics *services.AnalyticsService,
	engage *services.EngagementService,
	notes *services.NoteService,
	baseURL string,
) *ClubHandler {
	return &ClubHandler{
		clubs:     clubs,
		checker:   checker,
		assets:    assets,
		analytics: analytics,
		engage:    engage,
		notes:     notes,
		baseURL:   baseURL,
	}
}

type clubRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name" validate:"required"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	Email       string `json:"email" validate:"omitempty,email"`
	EmailPublic *bool  `json:"email_public"`
	Size        int    `json:"size" validate:"omitempty,min=1,max=4"`

	Website   string `json:"website" validate:"omitempty,url"`
	Facebook  string `json:"facebook"`
	Twitter   string `json:"twitter"`
	Instagram string `json:"instagram"`
	Linkedin  string `json:"linkedin"`
	Github    string `json:"github"`
	Youtube   string `json:"youtube"`
	Listserv  string `json:"listserv"`

	HowToGetInvolved    string     `json:"how_to_get_involved"`
	ApplicationRequired int        `json:"application_required" validate:"omitempty,min=1,max=5"`
	AcceptingMembers    bool       `json:"accepting_members"`
	Founded             *time.Time `json:"founded"`

	Tags          []string `json:"tags"`
	Badges        []string `json:"badges"`
	TargetSchools []string `json:"target_schools"`
	TargetMajors  []string `json:"target_majors"`
	TargetYears   []string `json:"target_years"`
	ParentOrgs    []string `json:"parent_orgs"`
}

// List returns the clubs visible to the viewer, narrowed by query filters.
func (h *ClubHandler) List(c *gin.Context) {
	bypass := c.Query("bypass") == "true"
	clubs, err := h.clubs.List(requestContext(c), currentUserID(c), c.Request.URL.Query(), bypass)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, clubListJSON(clubs, false))
}

// Directory returns a lightweight roster of approved clubs.
func (h *ClubHandler) Directory(c *gin.Context) {
	clubs, err := h.clubs.Directory(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]gin.H, 0, len(clubs))
	for _, club := range clubs {
		out = append(out, gin.H{"code": club.Code, "name": club.Name})
	}
	response.Success(c, http.StatusOK, out)
}

// Retrieve returns one club, falling back to the approved snapshot for
// ghosted clubs when the viewer is not privileged.
func (h *ClubHandler) Retrieve(c *gin.Context) {
	club, err := h.clubs.GetByCode(requestContext(c), c.Param("code"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, clubJSON(club, isClubPrivileged(c, h.checker, club.ID)))
}

// Create registers a new club owned by the caller.
func (h *ClubHandler) Create(c *gin.Context) {
	var req clubRequest
	if !bindAndValidate(c, &req) {
		return
	}

	club, err := h.clubs.Create(requestContext(c), currentUserID(c), services.CreateClubInput{
		Code:                req.Code,
		Name:                req.Name,
		Subtitle:            req.Subtitle,
		Description:         req.Description,
		Email:               req.Email,
		EmailPublic:         req.EmailPublic,
		Size:                req.Size,
		Website:             req.Website,
		Facebook:            req.Facebook,
		Twitter:             req.Twitter,
		Instagram:           req.Instagram,
		Linkedin:            req.Linkedin,
		Github:              req.Github,
		Youtube:             req.Youtube,
		Listserv:            req.Listserv,
		HowToGetInvolved:    req.HowToGetInvolved,
		ApplicationRequired: req.ApplicationRequired,
		AcceptingMembers:    req.AcceptingMembers,
		Founded:             req.Founded,
		Tags:                req.Tags,
		Badges:              req.Badges,
		TargetSchools:       req.TargetSchools,
		TargetMajors:        req.TargetMajors,
		TargetYears:         req.TargetYears,
		ParentOrgs:          req.ParentOrgs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, clubJSON(club, true))
}

var approvalKeys = map[string]struct{}{"approved": {}, "approved_comment": {}}

// Update edits a club. Two special PATCH shapes are recognised before the
// general edit: an approval decision (only approved/approved_comment keys,
// requires the approve_club permission) and a fair toggle (exactly the fair
// key, officers and above). Mixing either with other fields is rejected.
func (h *ClubHandler) Update(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("unable to read request body"))
		return
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return
	}
	if len(body) == 0 {
		response.Error(c, apperrors.NewBadRequest("request body is empty"))
		return
	}

	hasApproval := false
	hasFair := false
	hasOther := false
	for key := range body {
		switch {
		case key == "fair":
			hasFair = true
		default:
			if _, ok := approvalKeys[key]; ok {
				hasApproval = true
			} else {
				hasOther = true
			}
		}
	}

	switch {
	case hasApproval && (hasFair || hasOther):
		response.Error(c, apperrors.NewBadRequest("approval decisions cannot be combined with other changes"))
	case hasFair && hasOther:
		response.Error(c, apperrors.NewBadRequest("fair registration cannot be combined with other changes"))
	case hasApproval:
		h.applyApproval(c, body)
	case hasFair:
		h.applyFair(c, body)
	default:
		h.applyEdit(c, raw)
	}
}

func (h *ClubHandler) applyApproval(c *gin.Context, body map[string]json.RawMessage) {
	userID := currentUserID(c)
	allowed, err := h.checker.HasPermission(requestContext(c), userID, permissions.ApproveClub)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowed {
		response.Error(c, apperrors.NewForbidden("club approval requires reviewer access"))
		return
	}

	var decision struct {
		Approved *bool   `json:"approved"`
		Comment  *string `json:"approved_comment"`
	}
	if raw, ok := body["approved"]; ok {
		if err := json.Unmarshal(raw, &decision.Approved); err != nil {
			response.Error(c, apperrors.NewBadRequest("approved must be a boolean or null"))
			return
		}
	}
	if raw, ok := body["approved_comment"]; ok {
		if err := json.Unmarshal(raw, &decision.Comment); err != nil {
			response.Error(c, apperrors.NewBadRequest("approved_comment must be a string"))
			return
		}
	}

	club, err := h.clubs.ApplyApproval(requestContext(c), c.Param("code"), userID, decision.Approved, decision.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, clubJSON(club, true))
}

func (h *ClubHandler) applyFair(c *gin.Context, body map[string]json.RawMessage) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	var fair bool
	if err := json.Unmarshal(body["fair"], &fair); err != nil {
		response.Error(c, apperrors.NewBadRequest("fair must be a boolean"))
		return
	}

	club, err := h.clubs.SetFair(requestContext(c), club.Code, fair)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, clubJSON(club, true))
}

func (h *ClubHandler) applyEdit(c *gin.Context, raw []byte) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	var req struct {
		Name        *string    `json:"name"`
		Subtitle    *string    `json:"subtitle"`
		Description *string    `json:"description"`
		Email       *string    `json:"email"`
		EmailPublic *bool      `json:"email_public"`
		Size        *int       `json:"size"`
		Website     *string    `json:"website"`
		Facebook    *string    `json:"facebook"`
		Twitter     *string    `json:"twitter"`
		Instagram   *string    `json:"instagram"`
		Linkedin    *string    `json:"linkedin"`
		Github      *string    `json:"github"`
		Youtube     *string    `json:"youtube"`
		Listserv    *string    `json:"listserv"`
		HowTo       *string    `json:"how_to_get_involved"`
		AppRequired *int       `json:"application_required"`
		Accepting   *bool      `json:"accepting_members"`
		Active      *bool      `json:"active"`
		Founded     *time.Time `json:"founded"`

		Tags          []string `json:"tags"`
		Badges        []string `json:"badges"`
		TargetSchools []string `json:"target_schools"`
		TargetMajors  []string `json:"target_majors"`
		TargetYears   []string `json:"target_years"`
		ParentOrgs    []string `json:"parent_orgs"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return
	}

	// Deactivating or reactivating a club is reserved for owners.
	if req.Active != nil {
		allowed, err := h.checker.HasClubRole(requestContext(c), currentUserID(c), club.ID, models.RoleOwner)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !allowed {
			response.Error(c, apperrors.ErrForbidden)
			return
		}
	}

	updated, err := h.clubs.Update(requestContext(c), club.Code, services.UpdateClubInput{
		Name:                req.Name,
		Subtitle:            req.Subtitle,
		Description:         req.Description,
		Email:               req.Email,
		EmailPublic:         req.EmailPublic,
		Size:                req.Size,
		Website:             req.Website,
		Facebook:            req.Facebook,
		Twitter:             req.Twitter,
		Instagram:           req.Instagram,
		Linkedin:            req.Linkedin,
		Github:              req.Github,
		Youtube:             req.Youtube,
		Listserv:            req.Listserv,
		HowToGetInvolved:    req.HowTo,
		ApplicationRequired: req.AppRequired,
		AcceptingMembers:    req.Accepting,
		Active:              req.Active,
		Founded:             req.Founded,
		Tags:                req.Tags,
		Badges:              req.Badges,
		TargetSchools:       req.TargetSchools,
		TargetMajors:        req.TargetMajors,
		TargetYears:         req.TargetYears,
		ParentOrgs:          req.ParentOrgs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, clubJSON(updated, true))
}

// Delete removes a club. Owners only.
func (h *ClubHandler) Delete(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOwner)
	if !ok {
		return
	}

	if err := h.clubs.Delete(requestContext(c), club.Code); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Children lists the clubs naming this one as a parent organisation.
func (h *ClubHandler) Children(c *gin.Context) {
	children, err := h.clubs.Children(requestContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, clubListJSON(children, false))
}

// Parents lists the club's parent organisations.
func (h *ClubHandler) Parents(c *gin.Context) {
	parents, err := h.clubs.Parents(requestContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, clubListJSON(parents, false))
}

// QR renders a PNG QR code pointing at the club's page.
func (h *ClubHandler) QR(c *gin.Context) {
	club, err := h.clubs.GetByCode(requestContext(c), c.Param("code"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	png, err := qrcode.Encode(h.baseURL+"/club/"+club.Code, qrcode.Medium, 512)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// NotesAbout lists the notes other clubs have written about this one, as
// far as the viewer may see them.
func (h *ClubHandler) NotesAbout(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	notes, err := h.notes.ListAbout(requestContext(c), club.ID, currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notes)
}
