package repository

import (
	"context"

	"feather-planner/internal/domain"
)

// Calendar is one user's plans and the date index over them.
type Calendar interface {
	NewPlan(date, content string) uint32
	CopyPlan(sourceID uint32, date string) (uint32, error)
	DeletePlan(id uint32) error
	EditPlan(id uint32, content string) error
	// EditDate replaces the ordered plan list of date. Nothing changes unless
	// every id names an existing plan.
	EditDate(date string, ids []uint32) error
	// Plans returns the plans filed under date in order. Identifiers that no
	// longer name a plan are removed from the date and returned as stale.
	Plans(date string) (plans []domain.Plan, stale []uint32)
	// Dates lists every date with at least one entry, ascending.
	Dates() []string
	Snapshot() domain.CalendarSnapshot
}

// CalendarRepository maps user IDs to calendars.
type CalendarRepository interface {
	AddUser(ctx context.Context, userID uint32) error
	Calendar(ctx context.Context, userID uint32) (Calendar, error)
	Export(ctx context.Context) ([]domain.CalendarSnapshot, error)
	Restore(ctx context.Context, calendars []domain.CalendarSnapshot) error
}
