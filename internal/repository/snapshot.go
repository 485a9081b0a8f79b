package repository

import (
	"context"

	"feather-planner/internal/domain"
)

// SnapshotRepository persists whole-state snapshots.
type SnapshotRepository interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, snapshot domain.Snapshot) error
	// Load returns the latest snapshot, or nil when none was saved yet.
	Load(ctx context.Context) (*domain.Snapshot, error)
}
