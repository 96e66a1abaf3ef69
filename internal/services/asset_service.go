package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/models"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
)

// ErrAssetNotFound indicates the asset does not exist.
var ErrAssetNotFound = apperrors.New("ASSET_NOT_FOUND", "Asset not found", http.StatusNotFound)

// AssetService stores club file uploads on disk and tracks them in the
// database.
type AssetService struct {
	db      *gorm.DB
	baseDir string
}

// NewAssetService constructs an AssetService writing under baseDir.
func NewAssetService(db *gorm.DB, baseDir string) (*AssetService, error) {
	if db == nil {
		return nil, errors.New("asset service: db is required")
	}
	if baseDir == "" {
		baseDir = "uploads"
	}
	return &AssetService{db: db, baseDir: baseDir}, nil
}

// Save persists uploaded file content and records the asset.
func (s *AssetService) Save(ctx context.Context, clubID, creatorID, name string, content []byte) (*models.Asset, error) {
	ctx = ensureContext(ctx)

	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." {
		return nil, apperrors.NewBadRequest("file name is required")
	}

	dir := filepath.Join(s.baseDir, clubID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("asset service: create dir: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+"-"+name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("asset service: write file: %w", err)
	}

	asset := &models.Asset{
		ClubID:    clubID,
		CreatorID: &creatorID,
		Name:      name,
		FilePath:  path,
	}
	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("asset service: create asset: %w", err)
	}
	return asset, nil
}

// ListForClub returns the club's stored assets.
func (s *AssetService) ListForClub(ctx context.Context, clubID string) ([]models.Asset, error) {
	ctx = ensureContext(ctx)

	var assets []models.Asset
	err := s.db.WithContext(ctx).
		Where("club_id = ?", clubID).
		Order("created_at DESC").
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("asset service: list assets: %w", err)
	}
	return assets, nil
}

// Get loads one asset of a club.
func (s *AssetService) Get(ctx context.Context, clubID, assetID string) (*models.Asset, error) {
	ctx = ensureContext(ctx)

	var asset models.Asset
	err := s.db.WithContext(ctx).
		Where("id = ? AND club_id = ?", assetID, clubID).
		Take(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("asset service: load asset: %w", err)
	}
	return &asset, nil
}

// Delete removes an asset record and its file.
func (s *AssetService) Delete(ctx context.Context, clubID, assetID string) error {
	ctx = ensureContext(ctx)

	asset, err := s.Get(ctx, clubID, assetID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(asset).Error; err != nil {
		return fmt.Errorf("asset service: delete asset: %w", err)
	}
	if asset.FilePath != "" {
		_ = os.Remove(asset.FilePath)
	}
	return nil
}
