package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"feather-planner/internal/domain"
	"feather-planner/internal/repository"
)

// StalePolicy decides what a read does when a date lists plans that were deleted.
type StalePolicy string

const (
	// StaleReport prunes the dangling ids and fails the read with
	// domain.ErrStaleReference. A retry sees the cleaned date.
	StaleReport StalePolicy = "report"
	// StalePrune prunes the dangling ids and returns the remaining plans.
	StalePrune StalePolicy = "prune"
)

// ParseStalePolicy validates a configured policy name. Empty selects StaleReport.
func ParseStalePolicy(name string) (StalePolicy, error) {
	switch StalePolicy(name) {
	case "", StaleReport:
		return StaleReport, nil
	case StalePrune:
		return StalePrune, nil
	default:
		return "", fmt.Errorf("unknown stale policy %q", name)
	}
}

// CalendarService exposes plan operations scoped to one user's calendar.
type CalendarService interface {
	AddUser(ctx context.Context, userID uint32) error
	// EnsureCalendar is AddUser without the error for an existing calendar.
	EnsureCalendar(ctx context.Context, userID uint32) error
	NewPlan(ctx context.Context, userID uint32, date, content string) (uint32, error)
	CopyPlan(ctx context.Context, userID, planID uint32, date string) (uint32, error)
	DeletePlan(ctx context.Context, userID, planID uint32) error
	EditPlan(ctx context.Context, userID, planID uint32, content string) error
	EditDate(ctx context.Context, userID uint32, date string, planIDs []uint32) error
	GetDate(ctx context.Context, userID uint32, date string) (*domain.DatePlans, error)
	GetDates(ctx context.Context, userID uint32, dates []string) ([]domain.DatePlans, error)
	// AllDates returns every non-empty date of the calendar, ascending. Dangling
	// plan references are pruned and logged whatever the stale policy.
	AllDates(ctx context.Context, userID uint32) ([]domain.DatePlans, error)
}

type calendarService struct {
	calendars repository.CalendarRepository
	policy    StalePolicy
	logger    logrus.FieldLogger
}

func NewCalendarService(calendars repository.CalendarRepository, policy StalePolicy, logger logrus.FieldLogger) CalendarService {
	if policy == "" {
		policy = StaleReport
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &calendarService{
		calendars: calendars,
		policy:    policy,
		logger:    logger,
	}
}

func (s *calendarService) AddUser(ctx context.Context, userID uint32) error {
	return s.calendars.AddUser(ctx, userID)
}

func (s *calendarService) EnsureCalendar(ctx context.Context, userID uint32) error {
	if err := s.calendars.AddUser(ctx, userID); err != nil && !errors.Is(err, domain.ErrCalendarExists) {
		return err
	}
	return nil
}

func (s *calendarService) NewPlan(ctx context.Context, userID uint32, date, content string) (uint32, error) {
	if err := domain.ValidateDate(date); err != nil {
		return 0, err
	}
	cal, err := s.calendars.Calendar(ctx, userID)
	if err != nil {
		return 0, err
	}
	return cal.NewPlan(date, content), nil
}

func (s *calendarService) CopyPlan(ctx context.Context, userID, planID uint32, date string) (uint32, error) {
	if err := domain.ValidateDate(date); err != nil {
		return 0, err
	}
	cal, err := s.calendars.Calendar(ctx, userID)
	if err != nil {
		return 0, err
	}
	return cal.CopyPlan(planID, date)
}

func (s *calendarService) DeletePlan(ctx context.Context, userID, planID uint32) error {
	cal, err := s.calendars.Calendar(ctx, userID)
	if err != nil {
		return err
	}
	return cal.DeletePlan(planID)
}

func (s *calendarService) EditPlan(ctx context.Context, userID, planID uint32, content string) error {
	cal, err := s.calendars.Calendar(ctx, userID)
	if err != nil {
		return err
	}
	return cal.EditPlan(planID, content)
}

func (s *calendarService) EditDate(ctx context.Context, userID uint32, date string, planIDs []uint32) error {
	if err := domain.ValidateDate(date); err != nil {
		return err
	}
	cal, err := s.calendars.Calendar(ctx, userID)
	if err != nil {
		return err
	}
	return cal.EditDate(date, planIDs)
}

func (s *calendarService) GetDate(ctx context.Context, userID uint32, date string) (*domain.DatePlans, error) {
	if err := domain.ValidateDate(date); err != nil {
		return nil, err
	}
	cal, err := s.calendars.Calendar(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.readDate(cal, userID, date)
}

func (s *calendarService) GetDates(ctx context.Context, userID uint32, dates []string) ([]domain.DatePlans, error) {
	for _, date := range dates {
		if err := domain.ValidateDate(date); err != nil {
			return nil, err
		}
	}
	cal, err := s.calendars.Calendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DatePlans, 0, len(dates))
	for _, date := range dates {
		day, err := s.readDate(cal, userID, date)
		if err != nil {
			return nil, err
		}
		out = append(out, *day)
	}
	return out, nil
}

func (s *calendarService) AllDates(ctx context.Context, userID uint32) ([]domain.DatePlans, error) {
	cal, err := s.calendars.Calendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	dates := cal.Dates()
	out := make([]domain.DatePlans, 0, len(dates))
	for _, date := range dates {
		plans, stale := cal.Plans(date)
		if len(stale) > 0 {
			s.logger.WithFields(logrus.Fields{"user_id": userID, "date": date, "stale": len(stale)}).Warn("dropped dangling plan references")
		}
		if len(plans) == 0 {
			continue
		}
		out = append(out, domain.DatePlans{Date: date, Plans: plans})
	}
	return out, nil
}

func (s *calendarService) readDate(cal repository.Calendar, userID uint32, date string) (*domain.DatePlans, error) {
	plans, stale := cal.Plans(date)
	if len(stale) > 0 && s.policy == StaleReport {
		return nil, fmt.Errorf("plan_id %d at %s: %w", stale[0], date, domain.ErrStaleReference)
	}
	if len(stale) > 0 {
		s.logger.WithFields(logrus.Fields{"user_id": userID, "date": date, "stale": len(stale)}).Warn("dropped dangling plan references")
	}
	return &domain.DatePlans{Date: date, Plans: plans}, nil
}
