package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Starts() StartStore
}

// StartStore manages the per-owner start records that anchor a day window.
// Records are append-only; the active record for an owner is the one with
// the greatest Created value.
type StartStore interface {
	Append(ctx context.Context, record StartRecord) error
	Latest(ctx context.Context, owner string) (*StartRecord, error)
	Subscribe(ctx context.Context, owner string) (Subscription, error)
}

// Subscription is a live feed of the latest start record for one owner.
//
// Updates carries at most one pending Snapshot: a newer snapshot replaces an
// unread older one, so a slow reader only ever sees the freshest value. The
// channel is closed once the subscription ends.
type Subscription interface {
	Updates() <-chan Snapshot
	Close() error
}

// Snapshot is one emission of a Subscription.
//
// A nil Record with a nil Err means the owner has no records yet. A non-nil
// Err means the source is unavailable.
type Snapshot struct {
	Record *StartRecord
	Err    error
}
