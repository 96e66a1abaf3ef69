package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/notifications"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
)

var (
	// ErrQuestionNotFound indicates the question does not exist.
	ErrQuestionNotFound = apperrors.New("QUESTION_NOT_FOUND", "Question not found", http.StatusNotFound)
	// ErrQuestionLocked rejects edits to a question that has been answered.
	ErrQuestionLocked = apperrors.New("QUESTION_LOCKED", "Answered questions cannot be reworded", http.StatusBadRequest)
)

// UpdateQuestionInput describes mutable question fields.
type UpdateQuestionInput struct {
	Question    *string
	Answer      *string
	Approved    *bool
	IsAnonymous *bool
}

// QuestionService manages the public Q&A on club pages.
type QuestionService struct {
	db       *gorm.DB
	notifier *notifications.Dispatcher
}

// NewQuestionService constructs a QuestionService instance.
func NewQuestionService(db *gorm.DB, notifier *notifications.Dispatcher) (*QuestionService, error) {
	if db == nil {
		return nil, errors.New("question service: db is required")
	}
	return &QuestionService{db: db, notifier: notifier}, nil
}

// ListForClub returns the questions visible to the viewer: everyone sees
// approved entries, authors additionally see their own, and officers see
// everything.
func (s *QuestionService) ListForClub(ctx context.Context, clubID, viewerID string, officer bool) ([]models.QuestionAnswer, error) {
	ctx = ensureContext(ctx)

	db := s.db.WithContext(ctx).Where("club_id = ?", clubID)
	switch {
	case officer:
	case viewerID != "":
		db = db.Where("approved = ? OR author_id = ?", true, viewerID)
	default:
		db = db.Where("approved = ?", true)
	}

	var questions []models.QuestionAnswer
	if err := db.Preload("Author").Preload("Responder").
		Order("created_at ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("question service: list questions: %w", err)
	}
	return questions, nil
}

// Create posts a new question and notifies the club's officers.
func (s *QuestionService) Create(ctx context.Context, club *models.Club, authorID, question string, anonymous bool) (*models.QuestionAnswer, error) {
	ctx = ensureContext(ctx)

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.NewBadRequest("question text is required")
	}

	entry := &models.QuestionAnswer{
		ClubID:      club.ID,
		AuthorID:    &authorID,
		Question:    question,
		IsAnonymous: anonymous,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("question service: create question: %w", err)
	}

	if s.notifier != nil {
		s.notifier.QuestionAsked(ctx, club, entry)
	}
	return entry, nil
}

// Get returns one question belonging to the club.
func (s *QuestionService) Get(ctx context.Context, clubID, questionID string) (*models.QuestionAnswer, error) {
	return s.load(ensureContext(ctx), clubID, questionID)
}

// Update edits a question entry. The question text is frozen once an answer
// exists; supplying an answer records the responder and approves the entry.
func (s *QuestionService) Update(ctx context.Context, clubID, questionID, actorID string, input UpdateQuestionInput) (*models.QuestionAnswer, error) {
	ctx = ensureContext(ctx)

	entry, err := s.load(ctx, clubID, questionID)
	if err != nil {
		return nil, err
	}

	if input.Question != nil && entry.Answer != nil {
		return nil, ErrQuestionLocked
	}

	updates := map[string]interface{}{}
	if input.Question != nil {
		text := strings.TrimSpace(*input.Question)
		if text == "" {
			return nil, apperrors.NewBadRequest("question text is required")
		}
		updates["question"] = text
	}
	if input.Answer != nil {
		updates["answer"] = *input.Answer
		updates["responder_id"] = actorID
		updates["approved"] = true
	}
	if input.Approved != nil {
		updates["approved"] = *input.Approved
	}
	if input.IsAnonymous != nil {
		updates["is_anonymous"] = *input.IsAnonymous
	}
	if len(updates) == 0 {
		return entry, nil
	}
	updates["updated_at"] = time.Now()

	if err := s.db.WithContext(ctx).Model(entry).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("question service: update question: %w", err)
	}
	return s.load(ctx, clubID, questionID)
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, clubID, questionID string) error {
	ctx = ensureContext(ctx)

	entry, err := s.load(ctx, clubID, questionID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(entry).Error
}

func (s *QuestionService) load(ctx context.Context, clubID, questionID string) (*models.QuestionAnswer, error) {
	var entry models.QuestionAnswer
	err := s.db.WithContext(ctx).
		Where("id = ? AND club_id = ?", questionID, clubID).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("question service: load question: %w", err)
	}
	return &entry, nil
}
