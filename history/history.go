// Package history maintains a local JSON file of dated rate snapshots
// used to plot a currency pair over time. History is a nice-to-have:
// reads never fail, they degrade to an empty series
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/robswierczek/kantor/internal/logging"
	"github.com/robswierczek/kantor/label"
	"github.com/robswierczek/kantor/provider"
)

// the stored series is normalized to USD regardless of what base the
// converter itself runs with
const historyBase = label.USD

const dateLayout = "2006-01-02"

// RangeSource is a date source that can serve a whole interval in one
// go. Backfill prefers it over day-by-day fetching when available
type RangeSource interface {
	FetchRange(ctx context.Context, start, end time.Time) ([]provider.Snapshot, error)
}

// NewStore return a history store backed by the JSON array file at path
func NewStore(path string) *Store {
	return &Store{path: path}
}

type Store struct {
	path string
}

// Append records a snapshot in the series. When the last stored entry
// carries the same date label it is overwritten in place, otherwise the
// snapshot is appended and the whole array is written back. Only the
// tail is deduplicated: appends arriving out of date order can leave
// duplicate dates earlier in the series
func (s *Store) Append(ctx context.Context, snap provider.Snapshot) error {
	series := s.Read(ctx)

	if n := len(series); n > 0 && series[n-1].Date == snap.Date {
		series[n-1] = snap
	} else {
		series = append(series, snap)
	}

	return s.write(series)
}

// Read returns the stored series ordered as written. A missing or
// corrupt file yields an empty series, never an error
func (s *Store) Read(ctx context.Context) []provider.Snapshot {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Printf("read rates history %s: %v", s.path, err)
		}
		return nil
	}

	var series []provider.Snapshot
	if err := json.Unmarshal(b, &series); err != nil {
		logging.FromContext(ctx).Printf("rates history %s is corrupt, starting empty: %v", s.path, err)
		return nil
	}

	for i := range series {
		series[i].Base = historyBase
	}

	return series
}

// Backfill synthesizes a series for the last days calendar days and
// persists it. A RangeSource is queried over a window of twice the
// requested length to approximate business days, merged by date and
// trimmed to the last days entries; a plain DateSource is queried once
// per day with failed days skipped. Backfill never fails: whatever was
// fetched is stored and returned
func (s *Store) Backfill(ctx context.Context, src provider.DateSource, days int) []provider.Snapshot {
	if days <= 0 {
		return nil
	}

	var series []provider.Snapshot
	if rs, ok := src.(RangeSource); ok {
		series = backfillRange(ctx, rs, days)
	} else {
		series = backfillDays(ctx, src, days)
	}

	if len(series) == 0 {
		return nil
	}

	if err := s.write(series); err != nil {
		logging.FromContext(ctx).Printf("save rates history %s: %v", s.path, err)
	}

	return series
}

func (s *Store) write(series []provider.Snapshot) error {
	b, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write history %s: %w", s.path, err)
	}

	return nil
}

func backfillDays(ctx context.Context, src provider.DateSource, days int) []provider.Snapshot {
	logger := logging.FromContext(ctx)
	today := time.Now().UTC()

	series := make([]provider.Snapshot, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)

		snap, err := src.FetchDate(ctx, day)
		if err != nil {
			// a single missing day is not worth aborting the series
			logger.Printf("backfill %s: %v", day.Format(dateLayout), err)
			continue
		}

		series = append(series, snap)
	}

	return series
}

func backfillRange(ctx context.Context, src RangeSource, days int) []provider.Snapshot {
	logger := logging.FromContext(ctx)
	today := time.Now().UTC()

	// sources skip non-business days, so a window of roughly twice the
	// requested length is fetched and trimmed afterwards
	snapshots, err := src.FetchRange(ctx, today.AddDate(0, 0, -days*2), today)
	if err != nil {
		logger.Printf("backfill range: %v", err)
		return nil
	}

	byDate := make(map[string]provider.Snapshot, len(snapshots))
	for _, snap := range snapshots {
		byDate[snap.Date] = snap
	}

	series := make([]provider.Snapshot, 0, len(byDate))
	for _, snap := range byDate {
		series = append(series, snap)
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Date < series[j].Date
	})

	if len(series) > days {
		series = series[len(series)-days:]
	}

	return series
}
