package kantor

import (
	"context"
	"errors"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/robswierczek/kantor/label"
	"github.com/robswierczek/kantor/provider"
)

func TestConvertAmount(t *testing.T) {
	t.Parallel()

	rates := provider.Table{
		label.USD:           1.0,
		label.EUR:           0.92,
		label.PLN:           4.05,
		label.Symbol("XXX"): 0,
	}

	testCases := []struct {
		name     string
		amount   float64
		from     label.Symbol
		to       label.Symbol
		expected float64
		err      error
	}{
		{
			name:     "test_usd_to_eur",
			amount:   100,
			from:     label.USD,
			to:       label.EUR,
			expected: 92,
		},
		{
			name:     "test_identity",
			amount:   123.45,
			from:     label.PLN,
			to:       label.PLN,
			expected: 123.45,
		},
		{
			name:   "test_missing_from",
			amount: 1,
			from:   label.Symbol("AAA"),
			to:     label.EUR,
			err:    ErrMissingRate,
		},
		{
			name:   "test_missing_to",
			amount: 1,
			from:   label.USD,
			to:     label.Symbol("AAA"),
			err:    ErrMissingRate,
		},
		{
			name:   "test_zero_rate",
			amount: 1,
			from:   label.Symbol("XXX"),
			to:     label.EUR,
			err:    ErrZeroRate,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			amount, err := ConvertAmount(tc.amount, tc.from, tc.to, rates)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected error %v, got %v", tc.err, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tc.expected, amount); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestConvertAmount_RoundTrip(t *testing.T) {
	t.Parallel()

	const tolerance = 1e-9

	rates := provider.Table{
		label.USD: 1.0,
		label.EUR: 0.92,
		label.PLN: 4.05,
		label.JPY: 147.31,
	}

	for from := range rates {
		for to := range rates {
			amount := 250.75

			there, err := ConvertAmount(amount, from, to, rates)
			if err != nil {
				t.Fatalf("convert %s -> %s: %v", from, to, err)
			}

			back, err := ConvertAmount(there, to, from, rates)
			if err != nil {
				t.Fatalf("convert %s -> %s: %v", to, from, err)
			}

			if math.Abs(back-amount) > tolerance {
				t.Errorf("round trip %s -> %s -> %s: got %v, want %v", from, to, from, back, amount)
			}
		}
	}
}

const rawCachedResponse = `{"base":"USD","date":"2024-01-01","rates":{"USD":1.0,"EUR":0.92,"PLN":4.05}}`

func newTestExchanger(t *testing.T, source provider.Source) (*exchanger, string) {
	t.Helper()

	dir := t.TempDir()
	e := New(
		http.DefaultClient,
		"test-key",
		WithSource(source),
		WithCacheFile(filepath.Join(dir, "cache.json")),
		WithHistoryFile(filepath.Join(dir, "history.json")),
	)

	return e, dir
}

func TestExchanger_FetchLatest_WriteThrough(t *testing.T) {
	t.Parallel()

	snap := provider.Snapshot{
		Date: "2024-01-02",
		Base: label.USD,
		Rates: provider.Table{
			label.USD: 1.0,
			label.EUR: 0.92,
		},
		Raw: []byte(`{"date":"2024-01-02","rates":{"USD":1.0,"EUR":0.92}}`),
	}

	ctrl := gomock.NewController(t)
	source := provider.NewMockSource(ctrl)
	source.EXPECT().FetchLatest(gomock.Any()).Return(snap, nil)

	e, dir := newTestExchanger(t, source)

	got, err := e.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(snap.Rates, got.Rates); diff != "" {
		t.Errorf("rates mismatch (-want, +got):\n%s", diff)
	}

	cached, err := os.ReadFile(filepath.Join(dir, "cache.json"))
	if err != nil {
		t.Fatalf("cache file not written: %v", err)
	}

	if diff := cmp.Diff(string(snap.Raw), string(cached)); diff != "" {
		t.Errorf("cache file mismatch (-want, +got):\n%s", diff)
	}

	series := e.History(context.Background())
	if len(series) != 1 || series[0].Date != snap.Date {
		t.Errorf("history not appended: %+v", series)
	}
}

func TestExchanger_FetchLatest_FallbackToCache(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := provider.NewMockSource(ctrl)
	source.EXPECT().FetchLatest(gomock.Any()).Return(provider.Snapshot{}, errors.New("connection refused"))

	e, dir := newTestExchanger(t, source)

	if err := os.WriteFile(filepath.Join(dir, "cache.json"), []byte(rawCachedResponse), 0o644); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	got, err := e.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("expected cached snapshot, got error: %v", err)
	}

	if diff := cmp.Diff("2024-01-01", got.Date); diff != "" {
		t.Errorf("date mismatch (-want, +got):\n%s", diff)
	}

	if diff := cmp.Diff(0.92, got.Rates[label.EUR]); diff != "" {
		t.Errorf("rate mismatch (-want, +got):\n%s", diff)
	}
}

func TestExchanger_FetchLatest_CombinedFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := provider.NewMockSource(ctrl)
	source.EXPECT().FetchLatest(gomock.Any()).Return(provider.Snapshot{}, errors.New("connection refused"))

	e, _ := newTestExchanger(t, source)

	_, err := e.FetchLatest(context.Background())
	if !errors.Is(err, ErrRatesUnavailable) {
		t.Fatalf("expected ErrRatesUnavailable, got %v", err)
	}

	msg := err.Error()
	if !strings.Contains(msg, "source:") || !strings.Contains(msg, "cache:") {
		t.Errorf("combined error must name both causes, got: %s", msg)
	}
}

func TestExchanger_Convert(t *testing.T) {
	t.Parallel()

	snap := provider.Snapshot{
		Date: "2024-01-01",
		Base: label.USD,
		Rates: provider.Table{
			label.USD: 1.0,
			label.EUR: 0.92,
		},
	}

	ctrl := gomock.NewController(t)
	source := provider.NewMockSource(ctrl)

	e, _ := newTestExchanger(t, source)

	resp, err := e.Convert(context.Background(), ConvOpt{
		From:  label.Symbol("usd"),
		To:    label.EUR,
		Value: 100,
		SnapshotFn: func(ctx context.Context) (provider.Snapshot, error) {
			return snap, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := ConversionResponse{
		Date:   "2024-01-01",
		Value:  100,
		From:   label.USD,
		To:     label.EUR,
		Rate:   0.92,
		Amount: 92,
	}

	if diff := cmp.Diff(expected, resp); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestExchanger_History_MissingFile(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := provider.NewMockSource(ctrl)

	e, _ := newTestExchanger(t, source)

	if series := e.History(context.Background()); len(series) != 0 {
		t.Errorf("expected empty history, got %d entries", len(series))
	}
}

func TestExchanger_EnsureHistory_Backfill(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := provider.NewMockSource(ctrl)
	historySource := provider.NewMockDateSource(ctrl)
	historySource.EXPECT().FetchDate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, day time.Time) (provider.Snapshot, error) {
			return provider.Snapshot{
				Date:  day.Format("2006-01-02"),
				Base:  label.USD,
				Rates: provider.Table{label.USD: 1.0},
			}, nil
		},
	).Times(3)

	dir := t.TempDir()
	e := New(
		http.DefaultClient,
		"test-key",
		WithSource(source),
		WithHistorySource(historySource),
		WithCacheFile(filepath.Join(dir, "cache.json")),
		WithHistoryFile(filepath.Join(dir, "history.json")),
	)

	series := e.EnsureHistory(context.Background(), 3)
	if len(series) == 0 {
		t.Fatal("expected backfilled history")
	}

	// a second call reads the persisted file without fetching
	if stored := e.EnsureHistory(context.Background(), 3); len(stored) != len(series) {
		t.Errorf("stored history length %d, want %d", len(stored), len(series))
	}
}
