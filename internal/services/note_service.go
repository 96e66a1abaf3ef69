package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/permissions"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
)

// ErrNoteNotFound indicates the note does not exist or is not visible.
var ErrNoteNotFound = apperrors.New("NOTE_NOT_FOUND", "Note not found", http.StatusNotFound)

// CreateNoteInput captures a new note about a club.
type CreateNoteInput struct {
	CreatingClubID string
	SubjectClubID  string
	Title          string
	Content        string

	CreatingClubPermission int
	OutsideClubPermission  int

	TagIDs []string
}

// NoteService manages inter-club notes and their dual visibility thresholds.
type NoteService struct {
	db      *gorm.DB
	checker *permissions.Checker
}

// NewNoteService constructs a NoteService instance.
func NewNoteService(db *gorm.DB, checker *permissions.Checker) (*NoteService, error) {
	if db == nil {
		return nil, errors.New("note service: db is required")
	}
	return &NoteService{db: db, checker: checker}, nil
}

// Create stores a note written by one club about another.
func (s *NoteService) Create(ctx context.Context, creatorID string, input CreateNoteInput) (*models.Note, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "Note"
	}
	if input.CreatingClubID == input.SubjectClubID {
		return nil, apperrors.NewBadRequest("a club cannot write a note about itself")
	}

	note := &models.Note{
		CreatorID:              creatorID,
		CreatingClubID:         input.CreatingClubID,
		SubjectClubID:          input.SubjectClubID,
		Title:                  title,
		Content:                input.Content,
		CreatingClubPermission: input.CreatingClubPermission,
		OutsideClubPermission:  input.OutsideClubPermission,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(note).Error; err != nil {
			return fmt.Errorf("note service: create note: %w", err)
		}
		if len(input.TagIDs) > 0 {
			var tags []models.NoteTag
			if err := tx.Where("id IN ?", input.TagIDs).Find(&tags).Error; err != nil {
				return fmt.Errorf("note service: load tags: %w", err)
			}
			if err := tx.Model(note).Association("Tags").Append(&tags); err != nil {
				return fmt.Errorf("note service: attach tags: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// ListAbout returns the notes about a club that the viewer may read.
//
// A note is visible when the viewer's role in the creating club meets the
// creating-club threshold, or their role in the subject club meets the
// outside threshold. An outside threshold of NotePermissionPublic opens the
// note to everyone; NotePermissionNone hides it from the subject club
// entirely. Superusers see everything.
func (s *NoteService) ListAbout(ctx context.Context, subjectClubID, viewerID string) ([]models.Note, error) {
	ctx = ensureContext(ctx)

	var notes []models.Note
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Where("subject_club_id = ?", subjectClubID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("note service: list notes: %w", err)
	}

	if viewerID != "" {
		if super, err := s.checker.IsSuperuser(ctx, viewerID); err != nil {
			return nil, err
		} else if super {
			return notes, nil
		}
	}

	roles := map[string]int{}
	roleIn := func(clubID string) (int, bool, error) {
		if role, ok := roles[clubID]; ok {
			return role, role <= models.RoleMember, nil
		}
		if viewerID == "" {
			return 0, false, nil
		}
		role, ok, err := s.checker.MembershipRole(ctx, viewerID, clubID)
		if err != nil {
			return 0, false, err
		}
		if ok {
			roles[clubID] = role
		}
		return role, ok, nil
	}

	visible := notes[:0]
	for _, note := range notes {
		if note.OutsideClubPermission == models.NotePermissionPublic {
			visible = append(visible, note)
			continue
		}

		if viewerID == "" {
			continue
		}
		if viewerID != "" && note.CreatorID == viewerID {
			visible = append(visible, note)
			continue
		}

		if role, ok, err := roleIn(note.CreatingClubID); err != nil {
			return nil, err
		} else if ok && role <= note.CreatingClubPermission {
			visible = append(visible, note)
			continue
		}

		if note.OutsideClubPermission == models.NotePermissionNone {
			continue
		}
		if role, ok, err := roleIn(note.SubjectClubID); err != nil {
			return nil, err
		} else if ok && role <= note.OutsideClubPermission {
			visible = append(visible, note)
		}
	}
	return visible, nil
}

// ListByCreatingClub returns the notes a club has written, for its own
// members who meet the creating-club threshold.
func (s *NoteService) ListByCreatingClub(ctx context.Context, creatingClubID, viewerID string) ([]models.Note, error) {
	ctx = ensureContext(ctx)

	var notes []models.Note
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Where("creating_club_id = ?", creatingClubID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("note service: list notes: %w", err)
	}

	if viewerID != "" {
		if super, err := s.checker.IsSuperuser(ctx, viewerID); err != nil {
			return nil, err
		} else if super {
			return notes, nil
		}
	}

	role, member, err := s.checker.MembershipRole(ctx, viewerID, creatingClubID)
	if err != nil {
		return nil, err
	}

	visible := notes[:0]
	for _, note := range notes {
		if note.CreatorID == viewerID {
			visible = append(visible, note)
			continue
		}
		if member && role <= note.CreatingClubPermission {
			visible = append(visible, note)
		}
	}
	return visible, nil
}

// Delete removes a note written by the creating club.
func (s *NoteService) Delete(ctx context.Context, creatingClubID, noteID string) error {
	ctx = ensureContext(ctx)

	var note models.Note
	err := s.db.WithContext(ctx).
		Where("id = ? AND creating_club_id = ?", noteID, creatingClubID).
		Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoteNotFound
	}
	if err != nil {
		return fmt.Errorf("note service: load note: %w", err)
	}
	return s.db.WithContext(ctx).Select("Tags").Delete(&note).Error
}
