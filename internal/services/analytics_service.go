package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
)

// HourlyPoint is one hour of engagement activity.
type HourlyPoint struct {
	Hour  time.Time `json:"hour"`
	Count int       `json:"count"`
}

// AnalyticsOverview aggregates a club's engagement over a time window.
type AnalyticsOverview struct {
	Visits        []HourlyPoint `json:"visits"`
	Favorites     []HourlyPoint `json:"favorites"`
	Subscriptions []HourlyPoint `json:"subscriptions"`
	Max           int           `json:"max"`
}

// PieSlice is one segment of a demographic breakdown.
type PieSlice struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PieCharts breaks a club's recent audience down by demographics.
type PieCharts struct {
	GraduationYears []PieSlice `json:"graduation_years"`
	Schools         []PieSlice `json:"schools"`
}

// AnalyticsService computes engagement statistics for club officers.
type AnalyticsService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAnalyticsService constructs an AnalyticsService instance.
func NewAnalyticsService(db *gorm.DB) (*AnalyticsService, error) {
	if db == nil {
		return nil, errors.New("analytics service: db is required")
	}
	return &AnalyticsService{db: db, now: time.Now}, nil
}

// Overview buckets the club's visits, bookmarks and subscriptions into
// hourly counts across the window and reports the busiest hour.
func (s *AnalyticsService) Overview(ctx context.Context, clubID string, start, end time.Time) (*AnalyticsOverview, error) {
	ctx = ensureContext(ctx)

	if end.Before(start) {
		start, end = end, start
	}
	if end.Sub(start) > 31*24*time.Hour {
		end = start.Add(31 * 24 * time.Hour)
	}

	overview := &AnalyticsOverview{}
	var err error

	if overview.Visits, err = s.hourlyCounts(ctx, &models.ClubVisit{}, clubID, start, end); err != nil {
		return nil, err
	}
	if overview.Favorites, err = s.hourlyCounts(ctx, &models.Favorite{}, clubID, start, end); err != nil {
		return nil, err
	}
	if overview.Subscriptions, err = s.hourlyCounts(ctx, &models.Subscribe{}, clubID, start, end); err != nil {
		return nil, err
	}

	for _, series := range [][]HourlyPoint{overview.Visits, overview.Favorites, overview.Subscriptions} {
		for _, point := range series {
			if point.Count > overview.Max {
				overview.Max = point.Count
			}
		}
	}
	return overview, nil
}

func (s *AnalyticsService) hourlyCounts(ctx context.Context, model interface{}, clubID string, start, end time.Time) ([]HourlyPoint, error) {
	type row struct {
		CreatedAt time.Time
	}

	var rows []row
	err := s.db.WithContext(ctx).
		Model(model).
		Select("created_at").
		Where("club_id = ? AND created_at >= ? AND created_at < ?", clubID, start, end).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("analytics service: load series: %w", err)
	}

	buckets := map[time.Time]int{}
	for _, r := range rows {
		buckets[r.CreatedAt.UTC().Truncate(time.Hour)]++
	}

	points := make([]HourlyPoint, 0, len(buckets))
	for hour := start.UTC().Truncate(time.Hour); hour.Before(end); hour = hour.Add(time.Hour) {
		if count, ok := buckets[hour]; ok {
			points = append(points, HourlyPoint{Hour: hour, Count: count})
		}
	}
	return points, nil
}

// Demographics breaks the club's audience from the past six months down by
// graduation year and school.
func (s *AnalyticsService) Demographics(ctx context.Context, clubID string) (*PieCharts, error) {
	ctx = ensureContext(ctx)

	since := s.now().AddDate(0, -6, 0)

	userIDs := map[string]struct{}{}
	collect := func(model interface{}) error {
		var ids []string
		err := s.db.WithContext(ctx).
			Model(model).
			Where("club_id = ? AND created_at >= ?", clubID, since).
			Pluck("user_id", &ids).Error
		if err != nil {
			return fmt.Errorf("analytics service: load audience: %w", err)
		}
		for _, id := range ids {
			userIDs[id] = struct{}{}
		}
		return nil
	}

	for _, model := range []interface{}{&models.Subscribe{}, &models.Favorite{}, &models.ClubVisit{}} {
		if err := collect(model); err != nil {
			return nil, err
		}
	}

	if len(userIDs) == 0 {
		return &PieCharts{}, nil
	}

	ids := make([]string, 0, len(userIDs))
	for id := range userIDs {
		ids = append(ids, id)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Preload("Schools").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("analytics service: load users: %w", err)
	}

	yearCounts := map[string]int{}
	schoolCounts := map[string]int{}
	for _, user := range users {
		label := "Unknown"
		if user.GraduationYear != nil {
			label = fmt.Sprintf("%d", *user.GraduationYear)
		}
		yearCounts[label]++

		if len(user.Schools) == 0 {
			schoolCounts["Unknown"]++
		}
		for _, school := range user.Schools {
			schoolCounts[school.Name]++
		}
	}

	return &PieCharts{
		GraduationYears: toSlices(yearCounts),
		Schools:         toSlices(schoolCounts),
	}, nil
}

func toSlices(counts map[string]int) []PieSlice {
	slices := make([]PieSlice, 0, len(counts))
	for label, count := range counts {
		slices = append(slices, PieSlice{Label: label, Count: count})
	}
	sort.Slice(slices, func(i, j int) bool { return slices[i].Label < slices[j].Label })
	return slices
}
