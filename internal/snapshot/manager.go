package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"feather-planner/internal/domain"
	"feather-planner/internal/repository"
)

// Manager restores in-memory state at startup and saves it periodically and on shutdown.
type Manager interface {
	Restore(ctx context.Context) error
	Save(ctx context.Context) error
	Start(ctx context.Context) error
	Shutdown()
}

type Config struct {
	Interval time.Duration
	Logger   *logrus.Logger
}

type manager struct {
	cfg       Config
	store     repository.SnapshotRepository
	users     repository.UserRepository
	calendars repository.CalendarRepository

	saveMu sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(cfg Config, store repository.SnapshotRepository, users repository.UserRepository, calendars repository.CalendarRepository) Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:       cfg,
		store:     store,
		users:     users,
		calendars: calendars,
	}
}

func (m *manager) Restore(ctx context.Context) error {
	snap, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		m.cfg.Logger.Info("no snapshot found, starting empty")
		return nil
	}

	if err := m.users.Restore(ctx, snap.Users); err != nil {
		return err
	}
	if err := m.calendars.Restore(ctx, snap.Calendars); err != nil {
		return err
	}

	// a save can land between account and calendar creation
	hasCalendar := make(map[uint32]struct{}, len(snap.Calendars))
	for _, cal := range snap.Calendars {
		hasCalendar[cal.UserID] = struct{}{}
	}
	for _, user := range snap.Users {
		if _, ok := hasCalendar[user.ID]; ok {
			continue
		}
		if err := m.calendars.AddUser(ctx, user.ID); err != nil {
			return fmt.Errorf("create missing calendar for user %d: %w", user.ID, err)
		}
		m.cfg.Logger.Warnf("user %d had no calendar in snapshot, created an empty one", user.ID)
	}

	m.cfg.Logger.Infof("restored snapshot taken at %s (%d users)", snap.TakenAt.Format(time.RFC3339), len(snap.Users))
	return nil
}

// Save writes the current state. Users are read before calendars, so a
// registration racing with Save may leave a user without a calendar in the
// snapshot; Restore creates an empty one for such users.
func (m *manager) Save(ctx context.Context) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	users, err := m.users.Export(ctx)
	if err != nil {
		return fmt.Errorf("export users: %w", err)
	}
	calendars, err := m.calendars.Export(ctx)
	if err != nil {
		return fmt.Errorf("export calendars: %w", err)
	}

	snap := domain.Snapshot{
		TakenAt:   time.Now().UTC(),
		Users:     users,
		Calendars: calendars,
	}
	if err := m.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	m.cfg.Logger.Debugf("snapshot saved (%d users, %d calendars)", len(users), len(calendars))
	return nil
}

func (m *manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				if err := m.Save(m.ctx); err != nil {
					m.cfg.Logger.Warnf("periodic snapshot: %v", err)
				}
			}
		}
	}()

	m.cfg.Logger.Infof("snapshot manager started, interval: %s", m.cfg.Interval)
	return nil
}

func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Save(ctx); err != nil {
		m.cfg.Logger.Warnf("final snapshot: %v", err)
	}
	m.cfg.Logger.Info("snapshot manager stopped")
}
