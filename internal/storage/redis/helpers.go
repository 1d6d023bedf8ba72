package redis

import (
	"fmt"
	"time"

	"github.com/goodtune/daygauge/internal/storage"
)

const keyPrefix = "daygauge"

// recordKey is the hash holding one start record.
func recordKey(id string) string {
	return fmt.Sprintf("%s:start:%s", keyPrefix, id)
}

// ownerKey is the sorted set of an owner's record IDs scored by creation time.
func ownerKey(owner string) string {
	return fmt.Sprintf("%s:starts:%s", keyPrefix, owner)
}

// changedChannel is published to whenever an owner gains a record.
func changedChannel(owner string) string {
	return fmt.Sprintf("%s:starts:%s:changed", keyPrefix, owner)
}

// createdScore orders records by creation time. Microseconds keep the score
// within float64's exact integer range.
func createdScore(created time.Time) float64 {
	return float64(created.UnixMicro())
}

// parseStartRecord converts a Redis hash to StartRecord
func parseStartRecord(data map[string]string) (*storage.StartRecord, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	start, err := time.Parse(time.RFC3339Nano, data["start"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse start: %w", err)
	}

	created, err := time.Parse(time.RFC3339Nano, data["created"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created: %w", err)
	}

	return &storage.StartRecord{
		ID:      data["id"],
		Owner:   data["owner"],
		Start:   start,
		Created: created,
	}, nil
}
