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

// QuestionHandler serves the public Q&A on club pages.
type QuestionHandler struct {
	clubs     *services.ClubService
	questions *services.QuestionService
	checker   *permissions.Checker
}

// NewQuestionHandler constructs a QuestionHandler.
func NewQuestionHandler(clubs *services.ClubService, questions *services.QuestionService, checker *permissions.Checker) *QuestionHandler {
	return &QuestionHandler{clubs: clubs, questions: questions, checker: checker}
}

// List returns the club's questions. The public sees approved entries;
// authors additionally see their own pending ones and officers see all.
func (h *QuestionHandler) List(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	questions, err := h.questions.ListForClub(requestContext(c), club.ID, currentUserID(c), isClubPrivileged(c, h.checker, club.ID))
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]gin.H, 0, len(questions))
	for i := range questions {
		out = append(out, questionJSON(&questions[i]))
	}
	response.Success(c, http.StatusOK, out)
}

type createQuestionRequest struct {
	Question    string `json:"question" validate:"required"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// Create posts a new question and notifies the club's officers.
func (h *QuestionHandler) Create(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req createQuestionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	question, err := h.questions.Create(requestContext(c), club, userID, req.Question, req.IsAnonymous)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, questionJSON(question))
}

type updateQuestionRequest struct {
	Question    *string `json:"question"`
	Answer      *string `json:"answer"`
	Approved    *bool   `json:"approved"`
	IsAnonymous *bool   `json:"is_anonymous"`
}

// Update edits a question or records an answer. Authors may rephrase an
// unanswered question; answering and approving take an officer. Once a
// question has an answer its text is frozen.
func (h *QuestionHandler) Update(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, -1)
	if !ok {
		return
	}

	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req updateQuestionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	officer, err := h.checker.HasClubRole(requestContext(c), userID, club.ID, models.RoleOfficer)
	if err != nil {
		response.Error(c, err)
		return
	}
	if (req.Answer != nil || req.Approved != nil) && !officer {
		response.Error(c, apperrors.ErrForbidden)
		return
	}
	if req.Question != nil || !officer {
		entry, err := h.questions.Get(requestContext(c), club.ID, c.Param("question"))
		if err != nil {
			response.Error(c, err)
			return
		}
		author := entry.AuthorID != nil && *entry.AuthorID == userID
		// The question text belongs to its author, officers included.
		if req.Question != nil && !author {
			response.Error(c, apperrors.ErrForbidden)
			return
		}
		if !officer && !author {
			response.Error(c, apperrors.ErrForbidden)
			return
		}
	}

	question, err := h.questions.Update(requestContext(c), club.ID, c.Param("question"), userID, services.UpdateQuestionInput{
		Question:    req.Question,
		Answer:      req.Answer,
		Approved:    req.Approved,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, questionJSON(question))
}

// Delete removes a question. Officers and above.
func (h *QuestionHandler) Delete(c *gin.Context) {
	club, ok := clubAccess(c, h.clubs, h.checker, models.RoleOfficer)
	if !ok {
		return
	}

	if err := h.questions.Delete(requestContext(c), club.ID, c.Param("question")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
