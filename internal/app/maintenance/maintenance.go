package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pennlabs/clubs/internal/cache"
	"github.com/pennlabs/clubs/internal/services"
	"github.com/pennlabs/clubs/pkg/logger"
)

const (
	defaultInviteTTLDays = 14
	defaultCacheSpec     = "@hourly"
	defaultInviteSpec    = "@daily"
)

// Maintainer coordinates background jobs: purging expired cache entries,
// expiring stale membership invitations, and driving the yearly club
// renewal cycle. The renewal jobs only run when a schedule is configured.
type Maintainer struct {
	store   *cache.DatabaseStore
	invites *services.InviteService
	clubs   *services.ClubService
	cron    *cron.Cron
	now     func() time.Time
	log     *zap.Logger

	inviteTTLDays int

	cacheSchedule    string
	inviteSchedule   string
	renewalSchedule  string
	reminderSchedule string
}

// Option customises the Maintainer.
type Option func(*Maintainer)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(m *Maintainer) {
		if c != nil {
			m.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(m *Maintainer) {
		if now != nil {
			m.now = now
		}
	}
}

// WithInviteTTLDays adjusts how long invitations stay claimable.
func WithInviteTTLDays(days int) Option {
	return func(m *Maintainer) {
		if days > 0 {
			m.inviteTTLDays = days
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache purging.
func WithCacheSchedule(spec string) Option {
	return func(m *Maintainer) {
		if spec != "" {
			m.cacheSchedule = spec
		}
	}
}

// WithInviteSchedule overrides the cron specification for invite expiry.
func WithInviteSchedule(spec string) Option {
	return func(m *Maintainer) {
		if spec != "" {
			m.inviteSchedule = spec
		}
	}
}

// WithRenewalSchedule enables the renewal kickoff job on the given spec.
func WithRenewalSchedule(spec string) Option {
	return func(m *Maintainer) {
		m.renewalSchedule = spec
	}
}

// WithReminderSchedule enables renewal reminder emails on the given spec.
func WithReminderSchedule(spec string) Option {
	return func(m *Maintainer) {
		m.reminderSchedule = spec
	}
}

// NewMaintainer constructs a Maintainer with sensible defaults. Any nil
// dependency results in the corresponding job being skipped.
func NewMaintainer(store *cache.DatabaseStore, invites *services.InviteService, clubs *services.ClubService, opts ...Option) *Maintainer {
	m := &Maintainer{
		store:          store,
		invites:        invites,
		clubs:          clubs,
		now:            time.Now,
		inviteTTLDays:  defaultInviteTTLDays,
		cacheSchedule:  defaultCacheSpec,
		inviteSchedule: defaultInviteSpec,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.cron == nil {
		m.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return m
}

// Start registers the jobs with the cron scheduler and launches it if at
// least one job is enabled.
func (m *Maintainer) Start() error {
	registered := false

	if m.store != nil {
		if _, err := m.cron.AddFunc(m.cacheSchedule, func() {
			if _, err := m.store.PurgeExpired(context.Background(), m.now()); err != nil {
				m.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		registered = true
	}

	if m.invites != nil {
		if _, err := m.cron.AddFunc(m.inviteSchedule, func() {
			cutoff := m.now().AddDate(0, 0, -m.inviteTTLDays)
			if _, err := m.invites.ExpireStale(context.Background(), cutoff); err != nil {
				m.log.Warn("invite expiry failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		registered = true
	}

	if m.clubs != nil && m.renewalSchedule != "" {
		if _, err := m.cron.AddFunc(m.renewalSchedule, func() {
			if _, err := m.clubs.StartRenewalCycle(context.Background()); err != nil {
				m.log.Warn("renewal kickoff failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		registered = true
	}

	if m.clubs != nil && m.reminderSchedule != "" {
		if _, err := m.cron.AddFunc(m.reminderSchedule, func() {
			if _, err := m.clubs.RemindUnrenewed(context.Background()); err != nil {
				m.log.Warn("renewal reminders failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		registered = true
	}

	if registered {
		m.cron.Start()
	}
	return nil
}

// Stop halts the scheduler, waiting for running jobs to complete.
func (m *Maintainer) Stop() context.Context {
	if m.cron == nil {
		return context.Background()
	}
	return m.cron.Stop()
}

// RunOnce executes the cache and invite jobs sequentially. Used in tests
// and during graceful shutdown. Renewal jobs are never part of RunOnce,
// they only fire on their explicit schedules.
func (m *Maintainer) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if m.store != nil {
		if _, err := m.store.PurgeExpired(ctx, m.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if m.invites != nil {
		cutoff := m.now().AddDate(0, 0, -m.inviteTTLDays)
		if _, err := m.invites.ExpireStale(ctx, cutoff); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
