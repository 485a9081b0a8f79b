package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"feather-planner/internal/domain"
	"feather-planner/internal/repository"
)

// Calendar holds one user's plans. Each calendar has its own lock so that
// different users never contend.
type Calendar struct {
	mu     sync.Mutex
	plans  map[uint32]string
	dates  map[string][]uint32
	logger logrus.FieldLogger
}

func newCalendar(logger logrus.FieldLogger) *Calendar {
	return &Calendar{
		plans:  make(map[uint32]string),
		dates:  make(map[string][]uint32),
		logger: logger,
	}
}

var _ repository.Calendar = (*Calendar)(nil)

func (c *Calendar) NewPlan(date, content string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newPlanLocked(date, content)
}

func (c *Calendar) newPlanLocked(date, content string) uint32 {
	id := randomID(func(id uint32) bool {
		_, ok := c.plans[id]
		return ok
	})
	c.plans[id] = content
	c.dates[date] = append(c.dates[date], id)

	c.logger.WithFields(logrus.Fields{"plan_id": id, "date": date}).Debug("plan created")
	return id
}

func (c *Calendar) CopyPlan(sourceID uint32, date string) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	content, ok := c.plans[sourceID]
	if !ok {
		return 0, fmt.Errorf("plan_id %d: %w", sourceID, domain.ErrPlanNotFound)
	}
	return c.newPlanLocked(date, content), nil
}

// DeletePlan removes the plan only. Dates still listing it are cleaned the
// next time they are read.
func (c *Calendar) DeletePlan(id uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.plans[id]; !ok {
		return fmt.Errorf("plan_id %d: %w", id, domain.ErrPlanNotFound)
	}
	delete(c.plans, id)

	c.logger.WithField("plan_id", id).Debug("plan deleted")
	return nil
}

func (c *Calendar) EditPlan(id uint32, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.plans[id]; !ok {
		return fmt.Errorf("plan_id %d: %w", id, domain.ErrPlanNotFound)
	}
	c.plans[id] = content
	return nil
}

func (c *Calendar) EditDate(date string, ids []uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		if _, ok := c.plans[id]; !ok {
			return fmt.Errorf("plan_id %d: %w", id, domain.ErrPlanNotFound)
		}
	}

	if len(ids) == 0 {
		delete(c.dates, date)
		return nil
	}
	c.dates[date] = append([]uint32(nil), ids...)
	return nil
}

func (c *Calendar) Plans(date string) ([]domain.Plan, []uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.dates[date]
	plans := make([]domain.Plan, 0, len(ids))
	var (
		stale []uint32
		kept  []uint32
	)
	for _, id := range ids {
		content, ok := c.plans[id]
		if !ok {
			stale = append(stale, id)
			continue
		}
		kept = append(kept, id)
		plans = append(plans, domain.Plan{ID: id, Content: content})
	}

	if len(stale) > 0 {
		if len(kept) == 0 {
			delete(c.dates, date)
		} else {
			c.dates[date] = kept
		}
		c.logger.WithFields(logrus.Fields{"date": date, "stale": stale}).Warn("pruned dangling plan references")
	}
	return plans, stale
}

func (c *Calendar) Dates() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	dates := make([]string, 0, len(c.dates))
	for date, ids := range c.dates {
		if len(ids) > 0 {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates
}

func (c *Calendar) Snapshot() domain.CalendarSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := domain.CalendarSnapshot{
		Plans: make([]domain.Plan, 0, len(c.plans)),
		Dates: make(map[string][]uint32, len(c.dates)),
	}
	for id, content := range c.plans {
		snap.Plans = append(snap.Plans, domain.Plan{ID: id, Content: content})
	}
	sort.Slice(snap.Plans, func(i, j int) bool { return snap.Plans[i].ID < snap.Plans[j].ID })
	for date, ids := range c.dates {
		snap.Dates[date] = append([]uint32(nil), ids...)
	}
	return snap
}

// CalendarRepository is the registry of calendars, one per user.
type CalendarRepository struct {
	mu        sync.RWMutex
	calendars map[uint32]*Calendar
	logger    logrus.FieldLogger
}

func NewCalendarRepository(logger logrus.FieldLogger) *CalendarRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return &CalendarRepository{
		calendars: make(map[uint32]*Calendar),
		logger:    logger,
	}
}

var _ repository.CalendarRepository = (*CalendarRepository)(nil)

func (r *CalendarRepository) AddUser(_ context.Context, userID uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.calendars[userID]; ok {
		return fmt.Errorf("user %d: %w", userID, domain.ErrCalendarExists)
	}
	r.calendars[userID] = newCalendar(r.logger.WithField("user_id", userID))
	return nil
}

func (r *CalendarRepository) Calendar(_ context.Context, userID uint32) (repository.Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cal, ok := r.calendars[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrCalendarNotFound)
	}
	return cal, nil
}

func (r *CalendarRepository) Export(_ context.Context) ([]domain.CalendarSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.CalendarSnapshot, 0, len(r.calendars))
	for userID, cal := range r.calendars {
		snap := cal.Snapshot()
		snap.UserID = userID
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Restore replaces every calendar. Date entries naming unknown plans are kept
// as they are; reads prune them like any other dangling reference.
func (r *CalendarRepository) Restore(_ context.Context, snapshots []domain.CalendarSnapshot) error {
	calendars := make(map[uint32]*Calendar, len(snapshots))
	for _, snap := range snapshots {
		if _, dup := calendars[snap.UserID]; dup {
			return fmt.Errorf("restore calendars: duplicate user %d", snap.UserID)
		}
		cal := newCalendar(r.logger.WithField("user_id", snap.UserID))
		for _, plan := range snap.Plans {
			cal.plans[plan.ID] = plan.Content
		}
		for date, ids := range snap.Dates {
			if len(ids) > 0 {
				cal.dates[date] = append([]uint32(nil), ids...)
			}
		}
		calendars[snap.UserID] = cal
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calendars = calendars

	r.logger.WithField("calendars", len(calendars)).Info("calendars restored")
	return nil
}
