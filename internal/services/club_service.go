package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pennlabs/clubs/internal/filters"
	"github.com/pennlabs/clubs/internal/models"
	"github.com/pennlabs/clubs/internal/notifications"
	"github.com/pennlabs/clubs/internal/permissions"
	apperrors "github.com/pennlabs/clubs/pkg/errors"
)

var (
	// ErrClubNotFound indicates the requested club does not exist or is not visible.
	ErrClubNotFound = apperrors.New("CLUB_NOT_FOUND", "Club not found", http.StatusNotFound)
	// ErrClubCodeExists signals a duplicate club code.
	ErrClubCodeExists = apperrors.New("CLUB_CODE_EXISTS", "A club with that code already exists", http.StatusConflict)
)

// Fields whose modification sends an approved club back into review.
var sensitiveClubFields = map[string]struct{}{
	"name":        {},
	"description": {},
	"image_path":  {},
}

// CreateClubInput captures new club metadata. Association slices carry IDs.
type CreateClubInput struct {
	Code        string
	Name        string
	Subtitle    string
	Description string
	Email       string
	EmailPublic *bool
	Size        int

	Website   string
	Facebook  string
	Twitter   string
	Instagram string
	Linkedin  string
	Github    string
	Youtube   string
	Listserv  string

	HowToGetInvolved    string
	ApplicationRequired int
	AcceptingMembers    bool
	Founded             *time.Time

	Tags          []string
	Badges        []string
	TargetSchools []string
	TargetMajors  []string
	TargetYears   []string
	ParentOrgs    []string
}

// UpdateClubInput describes mutable club fields; nil leaves a field alone.
type UpdateClubInput struct {
	Name        *string
	Subtitle    *string
	Description *string
	Email       *string
	EmailPublic *bool
	Size        *int

	Website   *string
	Facebook  *string
	Twitter   *string
	Instagram *string
	Linkedin  *string
	Github    *string
	Youtube   *string
	Listserv  *string

	HowToGetInvolved    *string
	ApplicationRequired *int
	AcceptingMembers    *bool
	Active              *bool
	Founded             *time.Time
	ImagePath           *string

	Tags          []string
	Badges        []string
	TargetSchools []string
	TargetMajors  []string
	TargetYears   []string
	ParentOrgs    []string
}

// ClubService implements the club lifecycle: creation, editing, the approval
// state machine and ghost snapshots.
type ClubService struct {
	db       *gorm.DB
	checker  *permissions.Checker
	notifier *notifications.Dispatcher
}

// NewClubService constructs a ClubService instance.
func NewClubService(db *gorm.DB, checker *permissions.Checker, notifier *notifications.Dispatcher) (*ClubService, error) {
	if db == nil {
		return nil, errors.New("club service: db is required")
	}
	return &ClubService{db: db, checker: checker, notifier: notifier}, nil
}

// Create registers a new club. The club always starts unapproved no matter
// what the caller supplies, and the creator becomes its owner.
func (s *ClubService) Create(ctx context.Context, creatorID string, input CreateClubInput) (*models.Club, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("club name is required")
	}

	code := strings.TrimSpace(input.Code)
	if code == "" {
		code = slugify(name)
	} else {
		code = slugify(code)
	}
	if code == "" {
		return nil, apperrors.NewBadRequest("club code could not be derived from the name")
	}

	club := &models.Club{
		Code:                code,
		Name:                name,
		Subtitle:            strings.TrimSpace(input.Subtitle),
		Description:         input.Description,
		Email:               strings.TrimSpace(input.Email),
		EmailPublic:         true,
		Size:                input.Size,
		Website:             input.Website,
		Facebook:            input.Facebook,
		Twitter:             input.Twitter,
		Instagram:           input.Instagram,
		Linkedin:            input.Linkedin,
		Github:              input.Github,
		Youtube:             input.Youtube,
		Listserv:            input.Listserv,
		HowToGetInvolved:    input.HowToGetInvolved,
		ApplicationRequired: input.ApplicationRequired,
		AcceptingMembers:    input.AcceptingMembers,
		Founded:             input.Founded,
		Active:              true,
		Approved:            nil,
	}
	if input.EmailPublic != nil {
		club.EmailPublic = *input.EmailPublic
	}
	if club.Size == 0 {
		club.Size = models.SizeSmall
	}
	if club.ApplicationRequired == 0 {
		club.ApplicationRequired = models.ApplicationAll
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(club).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrClubCodeExists
			}
			return fmt.Errorf("club service: create club: %w", err)
		}

		if err := s.replaceAssociations(tx, club, input.Tags, input.Badges,
			input.TargetSchools, input.TargetMajors, input.TargetYears, input.ParentOrgs); err != nil {
			return err
		}

		membership := &models.Membership{
			ClubID: club.ID,
			UserID: creatorID,
			Role:   models.RoleOwner,
			Title:  "Founder",
			Active: true,
			Public: true,
		}
		if err := tx.Create(membership).Error; err != nil {
			return fmt.Errorf("club service: create owner membership: %w", err)
		}

		return s.writeSnapshot(tx, club)
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		var owner models.User
		if err := s.db.WithContext(ctx).First(&owner, "id = ?", creatorID).Error; err == nil {
			s.notifier.OwnerWelcome(ctx, club, &owner)
		}
		s.notifier.ClubRenewal(ctx, club)
	}

	return s.loadByCode(ctx, club.Code)
}

// Load returns the live club row without any visibility filtering. Intended
// for management paths that gate on club role instead.
func (s *ClubService) Load(ctx context.Context, code string) (*models.Club, error) {
	return s.loadByCode(ensureContext(ctx), code)
}

// GetByCode returns the club visible to the viewer. Members, superusers and
// holders of see_pending_clubs always get the live row; everyone else gets
// the latest approved snapshot when the club is ghosted, and a not-found
// error when the club is neither approved nor ghosted.
func (s *ClubService) GetByCode(ctx context.Context, code, viewerID string) (*models.Club, error) {
	ctx = ensureContext(ctx)

	club, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if club.Approved != nil && *club.Approved {
		return club, nil
	}

	privileged, err := s.canViewPending(ctx, viewerID, club.ID)
	if err != nil {
		return nil, err
	}
	if privileged {
		return club, nil
	}

	if club.Ghost {
		if snap, err := s.latestApprovedSnapshot(ctx, club.ID); err == nil && snap != nil {
			return snap, nil
		}
	}

	return nil, ErrClubNotFound
}

// List returns clubs visible to the viewer, narrowed by the request query.
// bypass requires see_pending_clubs and disables the visibility clause.
func (s *ClubService) List(ctx context.Context, viewerID string, query url.Values, bypass bool) ([]models.Club, error) {
	ctx = ensureContext(ctx)

	db := s.db.WithContext(ctx).Model(&models.Club{})

	seeAll := false
	if bypass && viewerID != "" {
		ok, err := s.checker.CanSeeAllClubs(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		seeAll = ok
	}

	if !seeAll {
		if viewerID != "" {
			db = db.Where(
				"clubs.approved = ? OR clubs.ghost = ? OR clubs.id IN (SELECT club_id FROM memberships WHERE user_id = ? AND active = ?)",
				true, true, viewerID, true,
			)
		} else {
			db = db.Where("clubs.approved = ? OR clubs.ghost = ?", true, true)
		}
	}

	db = filters.Clubs().Apply(db, query)

	var clubs []models.Club
	if err := db.
		Preload("Tags").Preload("Badges").
		Order("clubs.rank DESC, clubs.name ASC").
		Find(&clubs).Error; err != nil {
		return nil, fmt.Errorf("club service: list clubs: %w", err)
	}
	return clubs, nil
}

// Update edits club fields. Changing a sensitive field on an approved club
// sends it back into review and ghosts the live row so the public keeps
// seeing the approved version.
func (s *ClubService) Update(ctx context.Context, code string, input UpdateClubInput) (*models.Club, error) {
	ctx = ensureContext(ctx)

	club, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	setString := func(column string, value *string) {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}

	setString("name", input.Name)
	setString("subtitle", input.Subtitle)
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	setString("email", input.Email)
	if input.EmailPublic != nil {
		updates["email_public"] = *input.EmailPublic
	}
	if input.Size != nil {
		updates["size"] = *input.Size
	}
	setString("website", input.Website)
	setString("facebook", input.Facebook)
	setString("twitter", input.Twitter)
	setString("instagram", input.Instagram)
	setString("linkedin", input.Linkedin)
	setString("github", input.Github)
	setString("youtube", input.Youtube)
	setString("listserv", input.Listserv)
	if input.HowToGetInvolved != nil {
		updates["how_to_get_involved"] = *input.HowToGetInvolved
	}
	if input.ApplicationRequired != nil {
		updates["application_required"] = *input.ApplicationRequired
	}
	if input.AcceptingMembers != nil {
		updates["accepting_members"] = *input.AcceptingMembers
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if input.Founded != nil {
		updates["founded"] = *input.Founded
	}
	if input.ImagePath != nil {
		updates["image_path"] = *input.ImagePath
	}

	touchesSensitive := false
	for column := range updates {
		if _, ok := sensitiveClubFields[column]; ok {
			touchesSensitive = true
			break
		}
	}

	wasApproved := club.Approved != nil && *club.Approved
	if touchesSensitive && wasApproved {
		updates["approved"] = nil
		updates["approved_by_id"] = nil
		updates["approved_on"] = nil

		hasSnapshot, err := s.hasApprovedSnapshot(ctx, club.ID)
		if err != nil {
			return nil, err
		}
		if hasSnapshot {
			updates["ghost"] = true
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(club).Updates(updates).Error; err != nil {
				return fmt.Errorf("club service: update club: %w", err)
			}
		}

		if err := s.replaceAssociations(tx, club, input.Tags, input.Badges,
			input.TargetSchools, input.TargetMajors, input.TargetYears, input.ParentOrgs); err != nil {
			return err
		}

		if err := tx.First(club, "id = ?", club.ID).Error; err != nil {
			return fmt.Errorf("club service: reload club: %w", err)
		}
		return s.writeSnapshot(tx, club)
	})
	if err != nil {
		return nil, err
	}

	return s.loadByCode(ctx, club.Code)
}

// ApplyApproval records an approval decision. A nil value revokes any prior
// decision and clears the approver fields; true additionally clears the
// ghost flag and notifies the club's officers.
func (s *ClubService) ApplyApproval(ctx context.Context, code, reviewerID string, approved *bool, comment *string) (*models.Club, error) {
	ctx = ensureContext(ctx)

	club, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if comment != nil {
		updates["approved_comment"] = strings.TrimSpace(*comment)
	}

	if approved == nil {
		updates["approved"] = nil
		updates["approved_by_id"] = nil
		updates["approved_on"] = nil
	} else {
		now := time.Now()
		updates["approved"] = *approved
		updates["approved_by_id"] = reviewerID
		updates["approved_on"] = now
		if *approved {
			updates["ghost"] = false
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(club).Updates(updates).Error; err != nil {
			return fmt.Errorf("club service: record approval: %w", err)
		}
		if err := tx.First(club, "id = ?", club.ID).Error; err != nil {
			return fmt.Errorf("club service: reload club: %w", err)
		}
		return s.writeSnapshot(tx, club)
	})
	if err != nil {
		return nil, err
	}

	if approved != nil && s.notifier != nil {
		s.notifier.ClubApprovalStatus(ctx, club)
	}

	return club, nil
}

// SetFair toggles activities-fair registration. The first time a club opts
// in, the registration time is recorded and never overwritten.
func (s *ClubService) SetFair(ctx context.Context, code string, fair bool) (*models.Club, error) {
	ctx = ensureContext(ctx)

	club, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"fair": fair}
	if fair && !club.Fair && club.FairOn == nil {
		now := time.Now()
		updates["fair_on"] = now
	}

	if err := s.db.WithContext(ctx).Model(club).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("club service: set fair: %w", err)
	}
	if err := s.db.WithContext(ctx).First(club, "id = ?", club.ID).Error; err != nil {
		return nil, fmt.Errorf("club service: reload club: %w", err)
	}
	return club, nil
}

// Delete removes a club along with its uploaded asset files.
func (s *ClubService) Delete(ctx context.Context, code string) error {
	ctx = ensureContext(ctx)

	club, err := s.loadByCode(ctx, code)
	if err != nil {
		return err
	}

	var assets []models.Asset
	if err := s.db.WithContext(ctx).Where("club_id = ?", club.ID).Find(&assets).Error; err != nil {
		return fmt.Errorf("club service: list assets: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []interface{}{
			&models.Asset{}, &models.Event{}, &models.Membership{}, &models.MembershipInvite{},
			&models.MembershipRequest{}, &models.QuestionAnswer{}, &models.Testimonial{},
			&models.Advisor{}, &models.Favorite{}, &models.Subscribe{}, &models.ClubVisit{},
			&models.ClubSnapshot{},
		} {
			if err := tx.Where("club_id = ?", club.ID).Delete(table).Error; err != nil {
				return fmt.Errorf("club service: delete club children: %w", err)
			}
		}
		return tx.Delete(club).Error
	})
	if err != nil {
		return err
	}

	for _, asset := range assets {
		if asset.FilePath != "" {
			_ = os.Remove(asset.FilePath)
		}
	}
	return nil
}

// Children returns the clubs that list this club as a parent organisation.
func (s *ClubService) Children(ctx context.Context, code string) ([]models.Club, error) {
	ctx = ensureContext(ctx)

	club, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var children []models.Club
	err = s.db.WithContext(ctx).
		Joins("JOIN club_parent_orgs ON club_parent_orgs.child_id = clubs.id").
		Where("club_parent_orgs.parent_id = ?", club.ID).
		Order("clubs.name ASC").
		Find(&children).Error
	if err != nil {
		return nil, fmt.Errorf("club service: list children: %w", err)
	}
	return children, nil
}

// Parents returns the club's parent organisations.
func (s *ClubService) Parents(ctx context.Context, code string) ([]models.Club, error) {
	ctx = ensureContext(ctx)

	club, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var parents []models.Club
	err = s.db.WithContext(ctx).
		Joins("JOIN club_parent_orgs ON club_parent_orgs.parent_id = clubs.id").
		Where("club_parent_orgs.child_id = ?", club.ID).
		Order("clubs.name ASC").
		Find(&parents).Error
	if err != nil {
		return nil, fmt.Errorf("club service: list parents: %w", err)
	}
	return parents, nil
}

// Directory returns a lightweight roster of every approved club.
func (s *ClubService) Directory(ctx context.Context) ([]models.Club, error) {
	ctx = ensureContext(ctx)

	var clubs []models.Club
	err := s.db.WithContext(ctx).
		Select("id", "code", "name", "approved", "ghost").
		Where("approved = ? OR ghost = ?", true, true).
		Order("name ASC").
		Find(&clubs).Error
	if err != nil {
		return nil, fmt.Errorf("club service: directory: %w", err)
	}
	return clubs, nil
}

// StartRenewalCycle opens the yearly renewal window. Every active club is
// deactivated and its approval revoked; clubs that were approved before keep
// serving their last approved snapshot through the ghost flag. Officers of
// each affected club receive a renewal email.
func (s *ClubService) StartRenewalCycle(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	var clubs []models.Club
	if err := s.db.WithContext(ctx).Where("active = ?", true).Find(&clubs).Error; err != nil {
		return 0, fmt.Errorf("club service: load active clubs: %w", err)
	}

	var renewed int64
	for i := range clubs {
		club := &clubs[i]

		updates := map[string]interface{}{
			"active":         false,
			"approved":       nil,
			"approved_by_id": nil,
			"approved_on":    nil,
		}
		if club.Approved != nil && *club.Approved {
			updates["ghost"] = true
		}

		if err := s.db.WithContext(ctx).Model(club).Updates(updates).Error; err != nil {
			return renewed, fmt.Errorf("club service: renew club %s: %w", club.Code, err)
		}
		renewed++

		if s.notifier != nil {
			s.notifier.ClubRenewal(ctx, club)
		}
	}
	return renewed, nil
}

// RemindUnrenewed emails the officers of clubs that have not completed
// renewal yet.
func (s *ClubService) RemindUnrenewed(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	var clubs []models.Club
	if err := s.db.WithContext(ctx).Where("active = ?", false).Find(&clubs).Error; err != nil {
		return 0, fmt.Errorf("club service: load unrenewed clubs: %w", err)
	}

	for i := range clubs {
		if s.notifier != nil {
			s.notifier.ClubRenewalReminder(ctx, &clubs[i])
		}
	}
	return int64(len(clubs)), nil
}

func (s *ClubService) loadByCode(ctx context.Context, code string) (*models.Club, error) {
	var club models.Club
	err := s.db.WithContext(ctx).
		Preload("Tags").Preload("Badges").
		Preload("TargetSchools").Preload("TargetMajors").Preload("TargetYears").
		Where("code = ?", strings.TrimSpace(code)).
		Take(&club).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClubNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("club service: load club: %w", err)
	}
	return &club, nil
}

func (s *ClubService) canViewPending(ctx context.Context, viewerID, clubID string) (bool, error) {
	if viewerID == "" {
		return false, nil
	}

	if ok, err := s.checker.CanSeeAllClubs(ctx, viewerID); err != nil || ok {
		return ok, err
	}

	_, member, err := s.checker.MembershipRole(ctx, viewerID, clubID)
	return member, err
}

// writeSnapshot stores a point-in-time copy of the club row.
func (s *ClubService) writeSnapshot(tx *gorm.DB, club *models.Club) error {
	payload, err := json.Marshal(club)
	if err != nil {
		return fmt.Errorf("club service: marshal snapshot: %w", err)
	}

	approved := club.Approved != nil && *club.Approved
	snapshot := &models.ClubSnapshot{
		ClubID:     club.ID,
		Payload:    payload,
		Approved:   approved,
		ApprovedOn: club.ApprovedOn,
	}
	if err := tx.Create(snapshot).Error; err != nil {
		return fmt.Errorf("club service: write snapshot: %w", err)
	}
	return nil
}

func (s *ClubService) hasApprovedSnapshot(ctx context.Context, clubID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ClubSnapshot{}).
		Where("club_id = ? AND approved = ?", clubID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("club service: count snapshots: %w", err)
	}
	return count > 0, nil
}

// latestApprovedSnapshot rebuilds the club as it looked when last approved.
func (s *ClubService) latestApprovedSnapshot(ctx context.Context, clubID string) (*models.Club, error) {
	var snapshot models.ClubSnapshot
	err := s.db.WithContext(ctx).
		Where("club_id = ? AND approved = ?", clubID, true).
		Order("created_at DESC").
		Take(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("club service: load snapshot: %w", err)
	}

	var club models.Club
	if err := json.Unmarshal(snapshot.Payload, &club); err != nil {
		return nil, fmt.Errorf("club service: decode snapshot: %w", err)
	}
	return &club, nil
}

func (s *ClubService) replaceAssociations(tx *gorm.DB, club *models.Club,
	tags, badges, schools, majors, years, parents []string) error {

	replace := func(name string, model interface{}, ids []string) error {
		if ids == nil {
			return nil
		}
		if err := tx.Model(club).Association(name).Clear(); err != nil {
			return fmt.Errorf("club service: clear %s: %w", name, err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("id IN ?", ids).Find(model).Error; err != nil {
			return fmt.Errorf("club service: load %s: %w", name, err)
		}
		if err := tx.Model(club).Association(name).Append(model); err != nil {
			return fmt.Errorf("club service: append %s: %w", name, err)
		}
		return nil
	}

	var (
		tagRows    []models.Tag
		badgeRows  []models.Badge
		schoolRows []models.School
		majorRows  []models.Major
		yearRows   []models.Year
		parentRows []*models.Club
	)

	if err := replace("Tags", &tagRows, tags); err != nil {
		return err
	}
	if err := replace("Badges", &badgeRows, badges); err != nil {
		return err
	}
	if err := replace("TargetSchools", &schoolRows, schools); err != nil {
		return err
	}
	if err := replace("TargetMajors", &majorRows, majors); err != nil {
		return err
	}
	if err := replace("TargetYears", &yearRows, years); err != nil {
		return err
	}
	if err := replace("ParentOrgs", &parentRows, parents); err != nil {
		return err
	}
	return nil
}
