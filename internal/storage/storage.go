// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"time"
)

// Storage is the durable seen-set: the record of item ids already
// published, partitioned by source.
type Storage interface {
	// IsNew reports whether the item has not been posted yet.
	// It never mutates state.
	IsNew(ctx context.Context, sourceID, itemID string) (bool, error)

	// MarkPosted records that an item has been published. Marking an
	// already-marked item is a no-op.
	MarkPosted(ctx context.Context, sourceID, itemID string, postedAt time.Time) error

	// Prune removes entries posted before olderThan and returns the
	// number removed. Safe only while sources cannot resurrect an id
	// older than the retention window.
	Prune(ctx context.Context, sourceID string, olderThan time.Time) (int64, error)

	Close() error
}
