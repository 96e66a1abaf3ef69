package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pennlabs/clubs/internal/models"
)

func TestAnalyticsServiceOverview(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	analytics, err := NewAnalyticsService(db)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	visitor := seedUser(t, db, "visitor")
	club := seedClub(t, db, clubs, owner.ID, "Analytics Club")

	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	stamp := func(model interface{}, at time.Time) {
		require.NoError(t, db.Model(model).Update("created_at", at).Error)
	}

	// Two visits in the first hour, one in the third.
	for _, at := range []time.Time{
		base.Add(5 * time.Minute),
		base.Add(40 * time.Minute),
		base.Add(2*time.Hour + 10*time.Minute),
	} {
		visit := models.ClubVisit{UserID: visitor.ID, ClubID: club.ID}
		require.NoError(t, db.Create(&visit).Error)
		stamp(&visit, at)
	}

	favorite := models.Favorite{UserID: visitor.ID, ClubID: club.ID}
	require.NoError(t, db.Create(&favorite).Error)
	stamp(&favorite, base.Add(30*time.Minute))

	ctx := context.Background()

	overview, err := analytics.Overview(ctx, club.ID, base, base.Add(24*time.Hour))
	require.NoError(t, err)

	require.Len(t, overview.Visits, 2)
	require.Equal(t, base, overview.Visits[0].Hour)
	require.Equal(t, 2, overview.Visits[0].Count)
	require.Equal(t, base.Add(2*time.Hour), overview.Visits[1].Hour)
	require.Equal(t, 1, overview.Visits[1].Count)

	require.Len(t, overview.Favorites, 1)
	require.Empty(t, overview.Subscriptions)
	require.Equal(t, 2, overview.Max)

	// Swapped bounds are tolerated.
	swapped, err := analytics.Overview(ctx, club.ID, base.Add(24*time.Hour), base)
	require.NoError(t, err)
	require.Len(t, swapped.Visits, 2)

	// The window is capped at 31 days.
	capped, err := analytics.Overview(ctx, club.ID, base.AddDate(0, 0, -60), base.AddDate(0, 0, 60))
	require.NoError(t, err)
	require.Empty(t, capped.Visits)
}

func TestAnalyticsServiceDemographics(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	analytics, err := NewAnalyticsService(db)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, clubs, owner.ID, "Demographics Club")

	wharton := models.School{Name: "Wharton"}
	require.NoError(t, db.Create(&wharton).Error)

	first := seedUser(t, db, "first")
	year2027 := 2027
	require.NoError(t, db.Model(first).Update("graduation_year", year2027).Error)
	require.NoError(t, db.Model(first).Association("Schools").Append(&wharton))

	second := seedUser(t, db, "second")
	require.NoError(t, db.Model(second).Update("graduation_year", year2027).Error)

	ctx := context.Background()
	engagement, err := NewEngagementService(db)
	require.NoError(t, err)

	// The same user engaging twice counts once.
	_, err = engagement.Subscribe(ctx, first.ID, club.ID)
	require.NoError(t, err)
	_, err = engagement.Favorite(ctx, first.ID, club.ID)
	require.NoError(t, err)
	_, err = engagement.RecordVisit(ctx, second.ID, club.ID)
	require.NoError(t, err)

	charts, err := analytics.Demographics(ctx, club.ID)
	require.NoError(t, err)

	require.Len(t, charts.GraduationYears, 1)
	require.Equal(t, "2027", charts.GraduationYears[0].Label)
	require.Equal(t, 2, charts.GraduationYears[0].Count)

	byLabel := map[string]int{}
	for _, slice := range charts.Schools {
		byLabel[slice.Label] = slice.Count
	}
	require.Equal(t, 1, byLabel["Wharton"])
	require.Equal(t, 1, byLabel["Unknown"])
}

func TestAnalyticsServiceDemographicsEmpty(t *testing.T) {
	db := openServiceTestDB(t)
	clubs := mustClubService(t, db)
	analytics, err := NewAnalyticsService(db)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner")
	club := seedClub(t, db, clubs, owner.ID, "Quiet Club")

	charts, err := analytics.Demographics(context.Background(), club.ID)
	require.NoError(t, err)
	require.Empty(t, charts.GraduationYears)
	require.Empty(t, charts.Schools)
}
