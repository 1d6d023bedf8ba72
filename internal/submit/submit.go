// Package submit validates user-entered start times and writes them to the
// store.
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/daygauge/internal/identity"
	"github.com/goodtune/daygauge/internal/metrics"
	"github.com/goodtune/daygauge/internal/storage"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// InputLayout is the datetime-local form of a start time.
const InputLayout = "2006-01-02T15:04"

// ErrInvalidInput is returned for an empty, unparseable or future start time.
var ErrInvalidInput = errors.New("invalid start time")

var inputLayouts = []string{
	InputLayout,
	"2006-01-02T15:04:05",
}

// Submitter writes new start records.
type Submitter struct {
	starts storage.StartStore
	clock  clockwork.Clock
	loc    *time.Location
	logger zerolog.Logger
}

// New creates a submitter. loc is the wall-clock location of candidates
// without an offset.
func New(starts storage.StartStore, clock clockwork.Clock, loc *time.Location, logger zerolog.Logger) *Submitter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Submitter{
		starts: starts,
		clock:  clock,
		loc:    loc,
		logger: logger.With().Str("component", "submit").Logger(),
	}
}

// Submit parses candidate and appends it as the owner's new start time.
// Invalid input never reaches the store. Store failures are returned wrapped
// and not retried.
func (s *Submitter) Submit(ctx context.Context, candidate, owner string) (*storage.StartRecord, error) {
	if owner == "" {
		metrics.StartWritesTotal.WithLabelValues("rejected").Inc()
		return nil, identity.ErrAuthRequired
	}

	now := s.clock.Now()
	start, err := s.Parse(candidate, now)
	if err != nil {
		metrics.StartWritesTotal.WithLabelValues("rejected").Inc()
		s.logger.Debug().Str("owner", owner).Str("candidate", candidate).Err(err).Msg("Rejected start time")
		return nil, err
	}

	record := storage.StartRecord{
		ID:      uuid.NewString(),
		Owner:   owner,
		Start:   start,
		Created: now,
	}

	if err := s.starts.Append(ctx, record); err != nil {
		metrics.StartWritesTotal.WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Str("owner", owner).Msg("Failed to store start time")
		return nil, fmt.Errorf("store start time: %w", err)
	}

	metrics.StartWritesTotal.WithLabelValues("accepted").Inc()
	s.logger.Info().
		Str("owner", owner).
		Str("id", record.ID).
		Time("start", start).
		Msg("Stored start time")

	return &record, nil
}

// Parse converts candidate to an instant no later than now.
func (s *Submitter) Parse(candidate string, now time.Time) (time.Time, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidInput)
	}

	start, err := s.parse(candidate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date and time", ErrInvalidInput, candidate)
	}

	if start.After(now) {
		return time.Time{}, fmt.Errorf("%w: %s is in the future", ErrInvalidInput, start.Format(InputLayout))
	}

	return start, nil
}

func (s *Submitter) parse(candidate string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, candidate); err == nil {
		return t, nil
	}

	var lastErr error
	for _, layout := range inputLayouts {
		t, err := time.ParseInLocation(layout, candidate, s.loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// DefaultCandidate is the prefilled input value: now, to the minute.
func DefaultCandidate(now time.Time) string {
	return now.Format(InputLayout)
}
