package services

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pennlabs/clubs/internal/cache"
	"github.com/pennlabs/clubs/internal/models"
)

func TestEventServiceCreateValidation(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	events, err := NewEventService(db, nil, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, clubs, owner.ID, "Jazz Ensemble")

	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	_, err = events.Create(ctx, club.ID, owner.ID, CreateEventInput{
		Name:      "Winter Concert",
		StartTime: start,
		EndTime:   start.Add(-time.Hour),
	})
	require.Error(t, err)

	event, err := events.Create(ctx, club.ID, owner.ID, CreateEventInput{
		Name:      "Winter Concert",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Location:  "  Irvine Auditorium ",
	})
	require.NoError(t, err)
	require.Equal(t, "winter-concert", event.Code)
	require.Equal(t, "Irvine Auditorium", event.Location)
	require.NotNil(t, event.CreatorID)
	require.Equal(t, owner.ID, *event.CreatorID)
}

func TestEventServiceFairRestrictedToSuperusers(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	events, err := NewEventService(db, nil, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	admin := seedSuperuser(t, db, "admin")
	club := seedClub(t, db, clubs, owner.ID, "Fair Host")

	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour)
	input := CreateEventInput{
		Name:      "Activities Fair",
		Type:      models.EventFair,
		StartTime: start,
		EndTime:   start.Add(3 * time.Hour),
	}

	_, err = events.Create(ctx, club.ID, owner.ID, input)
	require.ErrorIs(t, err, ErrFairEventRestricted)

	event, err := events.Create(ctx, club.ID, admin.ID, input)
	require.NoError(t, err)

	require.ErrorIs(t, events.Delete(ctx, owner.ID, club.ID, event.ID), ErrFairEventRestricted)
	require.NoError(t, events.Delete(ctx, admin.ID, club.ID, event.ID))
	_, err = events.Get(ctx, club.ID, event.ID)
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventServiceGlobalListingVisibility(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	events, err := NewEventService(db, nil, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	reviewer := seedSuperuser(t, db, "reviewer")
	visible := seedClub(t, db, clubs, owner.ID, "Visible Club")
	hidden := seedClub(t, db, clubs, owner.ID, "Hidden Club")

	ctx := context.Background()

	yes := true
	_, err = clubs.ApplyApproval(ctx, visible.Code, reviewer.ID, &yes, nil)
	require.NoError(t, err)

	start := time.Now().Add(time.Hour)
	for _, club := range []*models.Club{visible, hidden} {
		_, err = events.Create(ctx, club.ID, owner.ID, CreateEventInput{
			Name:      "Open House",
			StartTime: start,
			EndTime:   start.Add(time.Hour),
		})
		require.NoError(t, err)
	}

	// Only events of approved (or ghosted) clubs appear globally.
	listed, err := events.ListGlobal(ctx, url.Values{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, visible.ID, listed[0].ClubID)

	// Past events drop off the global listing but show up under ended.
	past, err := events.Create(ctx, visible.ID, owner.ID, CreateEventInput{
		Name:      "Last Semester Mixer",
		StartTime: time.Now().Add(-48 * time.Hour),
		EndTime:   time.Now().Add(-47 * time.Hour),
	})
	require.NoError(t, err)

	listed, err = events.ListGlobal(ctx, url.Values{})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	ended, err := events.Ended(ctx)
	require.NoError(t, err)
	require.Len(t, ended, 1)
	require.Equal(t, past.ID, ended[0].ID)
}

func TestEventServiceOwned(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	events, err := NewEventService(db, nil, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	outsider := seedUser(t, db, "outsider")
	club := seedClub(t, db, clubs, owner.ID, "Chamber Orchestra")

	ctx := context.Background()
	start := time.Now().Add(time.Hour)

	_, err = events.Create(ctx, club.ID, owner.ID, CreateEventInput{
		Name:      "Rehearsal",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	require.NoError(t, err)

	owned, err := events.Owned(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)

	owned, err = events.Owned(ctx, outsider.ID)
	require.NoError(t, err)
	require.Empty(t, owned)
}

func TestEventServiceFairSchedule(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	admin := seedSuperuser(t, db, "admin")
	events, err := NewEventService(db, nil, mustChecker(t, db))
	require.NoError(t, err)

	arts := seedClub(t, db, clubs, admin.ID, "Arts Club")
	sports := seedClub(t, db, clubs, admin.ID, "Sports Club")
	uncategorised := seedClub(t, db, clubs, admin.ID, "Misc Club")

	artsBadge := models.Badge{Label: "Arts", Purpose: "fair"}
	sportsBadge := models.Badge{Label: "Athletics", Purpose: "fair"}
	require.NoError(t, db.Create(&artsBadge).Error)
	require.NoError(t, db.Create(&sportsBadge).Error)
	require.NoError(t, db.Model(arts).Association("Badges").Append(&artsBadge))
	require.NoError(t, db.Model(sports).Association("Badges").Append(&sportsBadge))

	ctx := context.Background()

	slotOne := time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC)
	slotTwo := time.Date(2026, 9, 2, 17, 0, 0, 0, time.UTC)
	for _, entry := range []struct {
		club  *models.Club
		start time.Time
	}{
		{arts, slotOne},
		{sports, slotOne},
		{uncategorised, slotTwo},
	} {
		_, err = events.Create(ctx, entry.club.ID, admin.ID, CreateEventInput{
			Name:      "Fair Booth",
			Type:      models.EventFair,
			StartTime: entry.start,
			EndTime:   entry.start.Add(2 * time.Hour),
		})
		require.NoError(t, err)
	}

	sessions, err := events.Fair(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	require.True(t, sessions[0].StartTime.Before(sessions[1].StartTime))
	require.Len(t, sessions[0].Categories, 2)
	require.Equal(t, "Arts", sessions[0].Categories[0].Name)
	require.Equal(t, "Athletics", sessions[0].Categories[1].Name)

	require.Len(t, sessions[1].Categories, 1)
	require.Equal(t, "Other", sessions[1].Categories[0].Name)
}

func TestEventServiceFairWindowsAndCache(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	admin := seedSuperuser(t, db, "admin")
	store := cache.NewDatabaseStore(db)
	events, err := NewEventService(db, store, mustChecker(t, db))
	require.NoError(t, err)

	club := seedClub(t, db, clubs, admin.ID, "Fair Club")

	ctx := context.Background()
	now := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	events.WithClock(func() time.Time { return now })

	live, err := events.Create(ctx, club.ID, admin.ID, CreateEventInput{
		Name:      "Happening Now",
		Type:      models.EventFair,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	})
	require.NoError(t, err)
	upcoming, err := events.Create(ctx, club.ID, admin.ID, CreateEventInput{
		Name:      "Later Today",
		Type:      models.EventFair,
		StartTime: now.Add(2 * time.Hour),
		EndTime:   now.Add(3 * time.Hour),
	})
	require.NoError(t, err)

	current, err := events.Live(ctx)
	require.NoError(t, err)
	require.Len(t, current, 1)
	require.Equal(t, live.ID, current[0].ID)

	future, err := events.Upcoming(ctx, false)
	require.NoError(t, err)
	require.Len(t, future, 1)
	require.Equal(t, upcoming.ID, future[0].ID)

	// The listings are now cached.
	_, ok, err := store.Get(ctx, cacheKeyLiveEvents)
	require.NoError(t, err)
	require.True(t, ok)

	// Any event write invalidates the cached listings.
	require.NoError(t, events.Delete(ctx, admin.ID, club.ID, upcoming.ID))
	_, ok, err = store.Get(ctx, cacheKeyLiveEvents)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEventServiceUpdate(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	events, err := NewEventService(db, nil, mustChecker(t, db))
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, clubs, owner.ID, "Photo Society")

	ctx := context.Background()
	start := time.Now().Add(time.Hour)

	event, err := events.Create(ctx, club.ID, owner.ID, CreateEventInput{
		Name:      "Darkroom Workshop",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	require.NoError(t, err)

	name := "Film Development Workshop"
	location := "Addams Hall"
	updated, err := events.Update(ctx, club.ID, event.ID, UpdateEventInput{
		Name:     &name,
		Location: &location,
	})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	require.Equal(t, "film-development-workshop", updated.Code)
	require.Equal(t, location, updated.Location)
	require.True(t, updated.StartTime.Equal(event.StartTime))
}
