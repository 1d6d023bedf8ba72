package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goodtune/daygauge/internal/storage"
	"github.com/redis/go-redis/v9"
)

// errorRequeryInterval is how often a subscription re-reads the latest record
// after a failed read.
const errorRequeryInterval = time.Second

type startStore struct {
	client       *redis.Client
	appendScript *redis.Script
}

// Append stores a new start record and notifies subscribers of its owner
func (s *startStore) Append(ctx context.Context, record storage.StartRecord) error {
	if record.ID == "" || record.Owner == "" {
		return fmt.Errorf("start record requires id and owner")
	}

	keys := []string{recordKey(record.ID), ownerKey(record.Owner), changedChannel(record.Owner)}
	args := []interface{}{
		record.ID,
		record.Owner,
		record.Start.Format(time.RFC3339Nano),
		record.Created.Format(time.RFC3339Nano),
		createdScore(record.Created),
	}

	if err := s.appendScript.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("append start record: %w", err)
	}
	return nil
}

// Latest returns the owner's most recently created record
func (s *startStore) Latest(ctx context.Context, owner string) (*storage.StartRecord, error) {
	ids, err := s.client.ZRevRange(ctx, ownerKey(owner), 0, 0).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return nil, storage.ErrNotFound
	}

	data, err := s.client.HGetAll(ctx, recordKey(ids[0])).Result()
	if err != nil {
		return nil, err
	}

	return parseStartRecord(data)
}

// Subscribe follows the owner's latest record. The initial value is emitted
// once the subscription is confirmed, so no write can fall between the first
// query and the first notification.
func (s *startStore) Subscribe(ctx context.Context, owner string) (storage.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, changedChannel(owner))

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", owner, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		store:   s,
		owner:   owner,
		pubsub:  pubsub,
		updates: make(chan storage.Snapshot, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go sub.run(subCtx)

	return sub, nil
}

type subscription struct {
	store   *startStore
	owner   string
	pubsub  *redis.PubSub
	updates chan storage.Snapshot
	cancel  context.CancelFunc
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error

	// What the reader was last offered; owned by run.
	held   heldKind
	heldID string
}

type heldKind int

const (
	heldNothing heldKind = iota
	heldEmpty
	heldRecord
	heldError
)

// Updates returns the latest-value feed
func (sub *subscription) Updates() <-chan storage.Snapshot {
	return sub.updates
}

// Close ends the subscription and waits for its goroutine to exit
func (sub *subscription) Close() error {
	sub.closeOnce.Do(func() {
		sub.cancel()
		sub.closeErr = sub.pubsub.Close()
		<-sub.done
	})
	return sub.closeErr
}

func (sub *subscription) run(ctx context.Context) {
	defer close(sub.done)
	defer close(sub.updates)

	sub.emit(ctx)

	messages := sub.pubsub.Channel()
	for {
		// A failed read is repeated without waiting for the next write.
		var requery <-chan time.Time
		if sub.held == heldError {
			requery = time.After(errorRequeryInterval)
		}

		select {
		case <-ctx.Done():
			return
		case _, ok := <-messages:
			if !ok {
				return
			}
			sub.emit(ctx)
		case <-requery:
			sub.emit(ctx)
		}
	}
}

// emit queries the latest record and offers it to the reader unless the
// reader already holds the same outcome.
func (sub *subscription) emit(ctx context.Context) {
	record, err := sub.store.Latest(ctx, sub.owner)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if sub.held == heldEmpty {
			return
		}
		storage.Offer(sub.updates, storage.Snapshot{})
		sub.held, sub.heldID = heldEmpty, ""
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		storage.Offer(sub.updates, storage.Snapshot{Err: err})
		sub.held, sub.heldID = heldError, ""
	default:
		if sub.held == heldRecord && sub.heldID == record.ID {
			return
		}
		storage.Offer(sub.updates, storage.Snapshot{Record: record})
		sub.held, sub.heldID = heldRecord, record.ID
	}
}
