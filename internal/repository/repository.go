package repository

import (
	"context"
	"time"

	"resourcegraph/internal/domain"
)

// SnapshotInfo describes the stored resource snapshot
type SnapshotInfo struct {
	Source   string     `json:"source,omitempty"`
	Count    int        `json:"count"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// Repository persists the last resource snapshot so a restart can serve the
// graph before the snapshot file is read again
type Repository interface {
	LoadResources(ctx context.Context) ([]*domain.Resource, error)
	ReplaceResources(ctx context.Context, resources []*domain.Resource, source string) error
	SnapshotInfo(ctx context.Context) (SnapshotInfo, error)

	// Close releases resources
	Close() error
}
