package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/permissions"
	"github.com/pennlabs/clubs/internal/services"
	"github.com/pennlabs/clubs/pkg/response"
)

// NoteHandler serves inter-club notes. Routes are nested under the club
// that wrote the note.
type NoteHandler struct {
	clubs   *services.ClubService
	notes   *services.NoteService
	checker *permissions.Checker
}

// NewNoteHandler constructs a NoteHandler.
func NewNoteHandler(clubs *services.ClubService, notes *services.NoteService, checker *permissions.Checker) *NoteHandler {
	return &NoteHandler{clubs: clubs, notes: notes, checker: checker}
}

type createNoteRequest struct {
	SubjectClub            string   `json:"subject_club" validate:"required"`
	Title                  string   `json:"title"`
	Content                string   `json:"content" validate:"required"`
	CreatingClubPermission *int     `json:"creating_club_permission"`
	OutsideClubPermission  *int     `json:"outside_club_permission"`
	Tags                   []string `json:"tags"`
}

// Create writes a note about another club. Officers and above in the
// creating club.
func (h *NoteHandler) Create(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	var req createNoteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	subject, err := h.clubs.Load(requestContext(c), req.SubjectClub)
	if err != nil {
		response.Error(c, err)
		return
	}

	input := services.CreateNoteInput{
		CreatingClubID:         club.ID,
		SubjectClubID:          subject.ID,
		Title:                  req.Title,
		Content:                req.Content,
		CreatingClubPermission: models.RoleOfficer,
		OutsideClubPermission:  models.NotePermissionNone,
		TagIDs:                 req.Tags,
	}
	if req.CreatingClubPermission != nil {
		input.CreatingClubPermission = *req.CreatingClubPermission
	}
	if req.OutsideClubPermission != nil {
		input.OutsideClubPermission = *req.OutsideClubPermission
	}

	note, err := h.notes.Create(requestContext(c), currentUserID(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, note)
}

// List returns the notes this club has written, filtered to what the
// viewer's role allows.
func (h *NoteHandler) List(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	notes, err := h.notes.ListByCreatingClub(requestContext(c), club.ID, currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notes)
}

// Delete removes a note written by this club. Officers and above.
func (h *NoteHandler) Delete(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	if err := h.notes.Delete(requestContext(c), club.ID, c.Param("note")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
