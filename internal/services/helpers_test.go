package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/database/testutil"
	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/permissions"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithSeedData())
}

func mustChecker(t *testing.T, db *gorm.DB) *permissions.Checker {
	t.Helper()
	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)
	return checker
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-real-hash",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedSuperuser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := seedUser(t, db, username)
	require.NoError(t, db.Model(user).Update("is_superuser", true).Error)
	user.IsSuperuser = true
	return user
}

func mustClubService(t *testing.T, db *gorm.DB) *ClubService {
	t.Helper()
	svc, err := NewClubService(db, mustChecker(t, db), nil)
	require.NoError(t, err)
	return svc
}

func seedClub(t *testing.T, db *gorm.DB, svc *ClubService, ownerID, name string) *models.Club {
	t.Helper()
	club, err := svc.Create(context.Background(), ownerID, CreateClubInput{Name: name})
	require.NoError(t, err)
	return club
}
