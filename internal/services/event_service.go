package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/cache"
	"github.com/pennlabs/clubs/internal/filters"
	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/permissions"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
)

// Cache keys for the event listing endpoints.
const (
	cacheKeyFairEvents   = "events:fair"
	cacheKeyLiveEvents   = "events:live"
	cacheKeyUpcomingAuth = "events:upcoming:authenticated"
	cacheKeyUpcomingAnon = "events:upcoming:anonymous"

	eventCacheTTL = 5 * time.Minute
)

var (
	// ErrEventNotFound indicates the requested event does not exist.
	ErrEventNotFound = apperrors.New("EVENT_NOT_FOUND", "Event not found", http.StatusNotFound)
	// ErrFairEventRestricted limits fair events to administrators.
	ErrFairEventRestricted = apperrors.New("FAIR_EVENT_RESTRICTED", "Fair events are managed by administrators", http.StatusForbidden)
)

// CreateEventInput captures new event metadata.
type CreateEventInput struct {
	Name        string
	Type        int
	StartTime   time.Time
	EndTime     time.Time
	Location    string
	URL         string
	Description string
}

// UpdateEventInput describes mutable event fields.
type UpdateEventInput struct {
	Name        *string
	Type        *int
	StartTime   *time.Time
	EndTime     *time.Time
	Location    *string
	URL         *string
	Description *string
	ImagePath   *string
}

// FairCategory groups the clubs presenting under one fair badge.
type FairCategory struct {
	Name   string         `json:"name"`
	Events []models.Event `json:"events"`
}

// FairSession is one time slot of the activities fair.
type FairSession struct {
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	Categories []FairCategory `json:"categories"`
}

// EventService manages club events and the cached fair listings.
type EventService struct {
	db      *gorm.DB
	store   cache.Store
	checker *permissions.Checker
	now     func() time.Time
}

// NewEventService constructs an EventService instance.
func NewEventService(db *gorm.DB, store cache.Store, checker *permissions.Checker) (*EventService, error) {
	if db == nil {
		return nil, errors.New("event service: db is required")
	}
	return &EventService{db: db, store: store, checker: checker, now: time.Now}, nil
}

// WithClock overrides the service clock, for tests.
func (s *EventService) WithClock(now func() time.Time) *EventService {
	if now != nil {
		s.now = now
	}
	return s
}

// ListForClub returns all events of one club, newest first.
func (s *EventService) ListForClub(ctx context.Context, clubID string) ([]models.Event, error) {
	ctx = ensureContext(ctx)

	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("club_id = ?", clubID).
		Order("start_time DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("event service: list events: %w", err)
	}
	return events, nil
}

// Get loads one event of a club.
func (s *EventService) Get(ctx context.Context, clubID, eventID string) (*models.Event, error) {
	ctx = ensureContext(ctx)

	var event models.Event
	err := s.db.WithContext(ctx).
		Where("id = ? AND club_id = ?", eventID, clubID).
		Take(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("event service: load event: %w", err)
	}
	return &event, nil
}

// Create adds an event to a club. Fair events may only be created by
// superusers.
func (s *EventService) Create(ctx context.Context, clubID, creatorID string, input CreateEventInput) (*models.Event, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("event name is required")
	}
	if input.EndTime.Before(input.StartTime) {
		return nil, apperrors.NewBadRequest("event cannot end before it starts")
	}

	if input.Type == models.EventFair {
		super, err := s.checker.IsSuperuser(ctx, creatorID)
		if err != nil {
			return nil, err
		}
		if !super {
			return nil, ErrFairEventRestricted
		}
	}

	event := &models.Event{
		Code:        slugify(name),
		ClubID:      clubID,
		CreatorID:   &creatorID,
		Name:        name,
		Type:        input.Type,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Location:    strings.TrimSpace(input.Location),
		URL:         strings.TrimSpace(input.URL),
		Description: input.Description,
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("event service: create event: %w", err)
	}

	s.invalidateListings(ctx)
	return event, nil
}

// Update edits an event in place.
func (s *EventService) Update(ctx context.Context, clubID, eventID string, input UpdateEventInput) (*models.Event, error) {
	ctx = ensureContext(ctx)

	event, err := s.Get(ctx, clubID, eventID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
		updates["code"] = slugify(*input.Name)
	}
	if input.Type != nil {
		updates["type"] = *input.Type
	}
	if input.StartTime != nil {
		updates["start_time"] = *input.StartTime
	}
	if input.EndTime != nil {
		updates["end_time"] = *input.EndTime
	}
	if input.Location != nil {
		updates["location"] = strings.TrimSpace(*input.Location)
	}
	if input.URL != nil {
		updates["url"] = strings.TrimSpace(*input.URL)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.ImagePath != nil {
		updates["image_path"] = *input.ImagePath
	}
	if len(updates) == 0 {
		return event, nil
	}

	if err := s.db.WithContext(ctx).Model(event).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("event service: update event: %w", err)
	}

	s.invalidateListings(ctx)
	return s.Get(ctx, clubID, eventID)
}

// Delete removes an event. Fair events may only be deleted by superusers.
func (s *EventService) Delete(ctx context.Context, actorID, clubID, eventID string) error {
	ctx = ensureContext(ctx)

	event, err := s.Get(ctx, clubID, eventID)
	if err != nil {
		return err
	}

	if event.Type == models.EventFair {
		super, err := s.checker.IsSuperuser(ctx, actorID)
		if err != nil {
			return err
		}
		if !super {
			return ErrFairEventRestricted
		}
	}

	if err := s.db.WithContext(ctx).Delete(event).Error; err != nil {
		return fmt.Errorf("event service: delete event: %w", err)
	}

	s.invalidateListings(ctx)
	return nil
}

// ListGlobal returns future events of publicly visible clubs, narrowed by
// the request query (type plus club__ filters).
func (s *EventService) ListGlobal(ctx context.Context, query url.Values) ([]models.Event, error) {
	ctx = ensureContext(ctx)

	db := s.db.WithContext(ctx).Model(&models.Event{}).
		Joins("JOIN clubs ON clubs.id = events.club_id").
		Where("clubs.approved = ? OR clubs.ghost = ?", true, true).
		Where("events.end_time >= ?", s.now())

	db = filters.Events().Apply(db, query)

	var events []models.Event
	if err := db.Preload("Club").Order("events.start_time ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("event service: list events: %w", err)
	}
	return events, nil
}

// Ended returns past events of publicly visible clubs.
func (s *EventService) Ended(ctx context.Context) ([]models.Event, error) {
	ctx = ensureContext(ctx)

	var events []models.Event
	err := s.db.WithContext(ctx).
		Joins("JOIN clubs ON clubs.id = events.club_id").
		Where("clubs.approved = ? OR clubs.ghost = ?", true, true).
		Where("events.end_time < ?", s.now()).
		Preload("Club").
		Order("events.end_time DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("event service: list ended events: %w", err)
	}
	return events, nil
}

// Owned returns events belonging to clubs where the user is an officer.
func (s *EventService) Owned(ctx context.Context, userID string) ([]models.Event, error) {
	ctx = ensureContext(ctx)

	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("club_id IN (SELECT club_id FROM memberships WHERE user_id = ? AND active = ? AND role <= ?)",
			userID, true, models.RoleOfficer).
		Preload("Club").
		Order("start_time DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("event service: list owned events: %w", err)
	}
	return events, nil
}

// Fair returns the activities-fair schedule: fair events grouped into time
// slots, then into badge categories, each sorted by category and
// case-folded club name. The result is cached for five minutes.
func (s *EventService) Fair(ctx context.Context) ([]FairSession, error) {
	ctx = ensureContext(ctx)

	if s.store != nil {
		if raw, ok, err := s.store.Get(ctx, cacheKeyFairEvents); err == nil && ok {
			var sessions []FairSession
			if err := json.Unmarshal(raw, &sessions); err == nil {
				return sessions, nil
			}
		}
	}

	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("type = ?", models.EventFair).
		Preload("Club").Preload("Club.Badges").
		Order("start_time ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("event service: list fair events: %w", err)
	}

	sessions := groupFairSessions(events)

	if s.store != nil {
		if raw, err := json.Marshal(sessions); err == nil {
			_ = s.store.Set(ctx, cacheKeyFairEvents, raw, eventCacheTTL)
		}
	}
	return sessions, nil
}

// Live returns fair events happening right now, cached for five minutes.
func (s *EventService) Live(ctx context.Context) ([]models.Event, error) {
	return s.cachedWindow(ctx, cacheKeyLiveEvents, func(db *gorm.DB, now time.Time) *gorm.DB {
		return db.Where("start_time <= ? AND end_time >= ?", now, now)
	})
}

// Upcoming returns fair events that have not started yet. The cache key is
// split by authentication state because the serialisations differ.
func (s *EventService) Upcoming(ctx context.Context, authenticated bool) ([]models.Event, error) {
	key := cacheKeyUpcomingAnon
	if authenticated {
		key = cacheKeyUpcomingAuth
	}
	return s.cachedWindow(ctx, key, func(db *gorm.DB, now time.Time) *gorm.DB {
		return db.Where("start_time > ?", now)
	})
}

func (s *EventService) cachedWindow(ctx context.Context, key string, window func(*gorm.DB, time.Time) *gorm.DB) ([]models.Event, error) {
	ctx = ensureContext(ctx)

	if s.store != nil {
		if raw, ok, err := s.store.Get(ctx, key); err == nil && ok {
			var events []models.Event
			if err := json.Unmarshal(raw, &events); err == nil {
				return events, nil
			}
		}
	}

	db := s.db.WithContext(ctx).
		Where("type = ?", models.EventFair).
		Preload("Club").
		Order("start_time ASC")
	db = window(db, s.now())

	var events []models.Event
	if err := db.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("event service: list fair window: %w", err)
	}

	if s.store != nil {
		if raw, err := json.Marshal(events); err == nil {
			_ = s.store.Set(ctx, key, raw, eventCacheTTL)
		}
	}
	return events, nil
}

// invalidateListings drops the cached fair listings after any event write.
func (s *EventService) invalidateListings(ctx context.Context) {
	if s.store == nil {
		return
	}
	_ = s.store.Delete(ctx, cacheKeyFairEvents, cacheKeyLiveEvents, cacheKeyUpcomingAuth, cacheKeyUpcomingAnon)
}

func groupFairSessions(events []models.Event) []FairSession {
	type slot struct {
		start, end time.Time
	}

	bySlot := map[slot]map[string][]models.Event{}
	for _, event := range events {
		key := slot{event.StartTime, event.EndTime}
		if bySlot[key] == nil {
			bySlot[key] = map[string][]models.Event{}
		}

		category := "Other"
		if event.Club != nil {
			for _, badge := range event.Club.Badges {
				if badge.Purpose == "fair" {
					category = badge.Label
					break
				}
			}
		}
		bySlot[key][category] = append(bySlot[key][category], event)
	}

	slots := make([]slot, 0, len(bySlot))
	for key := range bySlot {
		slots = append(slots, key)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].start.Before(slots[j].start) })

	sessions := make([]FairSession, 0, len(slots))
	for _, key := range slots {
		categories := make([]FairCategory, 0, len(bySlot[key]))
		for name, evts := range bySlot[key] {
			sort.Slice(evts, func(i, j int) bool {
				return strings.ToLower(clubName(evts[i])) < strings.ToLower(clubName(evts[j]))
			})
			categories = append(categories, FairCategory{Name: name, Events: evts})
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })

		sessions = append(sessions, FairSession{
			StartTime:  key.start,
			EndTime:    key.end,
			Categories: categories,
		})
	}
	return sessions
}

func clubName(event models.Event) string {
	if event.Club != nil {
		return event.Club.Name
	}
	return event.Name
}
