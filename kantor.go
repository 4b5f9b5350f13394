// Package kantor converts amounts between currencies using exchange
// rates fetched from a public web API, with a local file cache for
// offline fallback and a local history file for charting a currency
// pair over time
package kantor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robswierczek/kantor/cache"
	"github.com/robswierczek/kantor/history"
	"github.com/robswierczek/kantor/internal/logging"
	"github.com/robswierczek/kantor/label"
	"github.com/robswierczek/kantor/provider"
	"github.com/robswierczek/kantor/provider/erapi"
	"github.com/robswierczek/kantor/provider/nbp"
	"github.com/sethvargo/go-retry"
)

var (
	// ErrRatesUnavailable means both the live source and the cache
	// failed; the error message names both underlying causes
	ErrRatesUnavailable = errors.New("exchange rates unavailable")
	// ErrMissingRate means a currency is absent from the rate table
	ErrMissingRate = errors.New("currency not present in rate table")
	// ErrZeroRate guards the division by the source currency rate
	ErrZeroRate = errors.New("source currency rate is zero")
)

const (
	DefaultRequestTimeout = 5 * time.Second
	DefaultRetryNum       = 0
	DefaultRetryDuration  = 5 * time.Second
)

const (
	DefaultCacheFile   = "exchange_rates_cache.json"
	DefaultHistoryFile = "exchange_rates_history.json"
)

type Exchanger interface {
	GetExchangeable() []label.Symbol
	FetchLatest(ctx context.Context) (provider.Snapshot, error)
	Convert(ctx context.Context, param ConvOpt) (ConversionResponse, error)
	History(ctx context.Context) []provider.Snapshot
	EnsureHistory(ctx context.Context, days int) []provider.Snapshot
}

type Option func(*exchanger)

type Options struct {
	Base           label.Symbol
	RetryNum       uint64
	RetryDuration  time.Duration
	RequestTimeout time.Duration
	CacheFile      string
	HistoryFile    string
}

// WithBase set the base currency rate tables are requested for
func WithBase(base label.Symbol) Option {
	return func(e *exchanger) {
		e.opts.Base = base
	}
}

// WithSource replace the default live rate source
func WithSource(source provider.Source) Option {
	return func(e *exchanger) {
		e.source = source
	}
}

// WithHistorySource replace the default source used for history backfill
func WithHistorySource(source provider.DateSource) Option {
	return func(e *exchanger) {
		e.historySource = source
	}
}

// WithCacheFile set the path of the offline fallback cache file
func WithCacheFile(path string) Option {
	return func(e *exchanger) {
		e.opts.CacheFile = path
	}
}

// WithHistoryFile set the path of the rate history file
func WithHistoryFile(path string) Option {
	return func(e *exchanger) {
		e.opts.HistoryFile = path
	}
}

// WithRetryNum set number of repeated requests for data retrieval errors
// from the source. The default is 0: each fetch is attempted exactly once
func WithRetryNum(n uint64) Option {
	return func(e *exchanger) {
		e.opts.RetryNum = n
	}
}

// WithRetryDuration max retry backoff
func WithRetryDuration(t time.Duration) Option {
	return func(e *exchanger) {
		e.opts.RetryDuration = t
	}
}

// WithRequestTimeout set a deadline for source requests
func WithRequestTimeout(t time.Duration) Option {
	return func(e *exchanger) {
		e.opts.RequestTimeout = t
	}
}

// New return exchanger backed by exchangerate-api.com for live rates
// and NBP tables A for history backfill
func New(client *http.Client, apiKey string, opts ...Option) *exchanger {
	e := &exchanger{
		opts: Options{
			Base:           label.USD,
			RetryNum:       DefaultRetryNum,
			RetryDuration:  DefaultRetryDuration,
			RequestTimeout: DefaultRequestTimeout,
			CacheFile:      DefaultCacheFile,
			HistoryFile:    DefaultHistoryFile,
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.source == nil {
		e.source = erapi.NewSource(client, apiKey, erapi.WithBase(e.opts.Base))
	}

	if e.historySource == nil {
		e.historySource = nbp.NewSource(client)
	}

	e.cache = cache.New(e.opts.CacheFile, func(b []byte) (provider.Snapshot, error) {
		return erapi.DecodeSnapshot(b, e.opts.Base)
	})
	e.history = history.NewStore(e.opts.HistoryFile)

	return e
}

var _ Exchanger = (*exchanger)(nil)

type exchanger struct {
	opts Options

	source        provider.Source
	historySource provider.DateSource
	cache         *cache.FileCache
	history       *history.Store
}

// FetchLatest obtains the current rate snapshot. A successful live
// fetch is written through to the cache and the history file; when the
// live source fails the last cached snapshot is served instead. Only
// when both fail does FetchLatest return an error, wrapping
// ErrRatesUnavailable and naming both causes
func (e *exchanger) FetchLatest(ctx context.Context) (provider.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.RequestTimeout)
	defer cancel()

	var snap provider.Snapshot

	b, _ := retry.NewConstant(e.opts.RetryDuration)
	b = retry.WithMaxRetries(e.opts.RetryNum, b)

	if err := retry.Do(ctx, b, func(ctx context.Context) error {
		s, err := e.source.FetchLatest(ctx)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("fetch latest: %w", err))
		}

		snap = s

		return nil
	}); err != nil {
		cached, cacheErr := e.cache.Load()
		if cacheErr != nil {
			var merr *multierror.Error
			merr = multierror.Append(merr, fmt.Errorf("source: %w", err))
			merr = multierror.Append(merr, fmt.Errorf("cache: %w", cacheErr))

			return provider.Snapshot{}, fmt.Errorf("%w: %v", ErrRatesUnavailable, merr)
		}

		return cached, nil
	}

	e.cache.Save(ctx, snap.Raw)

	// the stored series is USD-based; snapshots fetched with another
	// base would corrupt it
	if snap.Base == label.USD {
		if err := e.history.Append(ctx, snap); err != nil {
			logging.FromContext(ctx).Printf("append rates history: %v", err)
		}
	}

	return snap, nil
}

// ConvertAmount converts amount from one currency to another using the
// given rate table. With every rate expressed as units per one unit of
// a shared base currency the result does not depend on which currency
// that base is
func ConvertAmount(amount float64, from, to label.Symbol, rates provider.Table) (float64, error) {
	fromRate, ok := rates[from]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingRate, from)
	}

	toRate, ok := rates[to]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingRate, to)
	}

	if fromRate == 0 {
		return 0, fmt.Errorf("%w: %s", ErrZeroRate, from)
	}

	return amount * (toRate / fromRate), nil
}

type SnapshotFunc func(ctx context.Context) (provider.Snapshot, error)

type ConvOpt struct {
	From  label.Symbol
	To    label.Symbol
	Value float64

	// SnapshotFn overrides where the rate table comes from. When nil
	// every conversion re-fetches, which keeps the displayed rate fresh
	//
	//	latest, err := e.FetchLatest(ctx)
	//	...
	//	e.Convert(ctx, kantor.ConvOpt{
	//		From:  label.USD,
	//		To:    label.EUR,
	//		Value: 10,
	//		SnapshotFn: func(ctx context.Context) (provider.Snapshot, error) {
	//			return latest, nil
	//		},
	//	})
	SnapshotFn SnapshotFunc
}

type ConversionResponse struct {
	Date   string
	Value  float64
	From   label.Symbol
	To     label.Symbol
	Rate   float64
	Amount float64
}

func (r ConversionResponse) String() string {
	return fmt.Sprintf(
		"Value: %f, From: %s, To: %s, Rate: %f, Amount: %f",
		r.Value,
		r.From,
		r.To,
		r.Rate,
		r.Amount,
	)
}

// Convert returns an object with currency conversion data
func (e *exchanger) Convert(ctx context.Context, param ConvOpt) (ConversionResponse, error) {
	var resp ConversionResponse

	from := label.Normalize(param.From.String())
	to := label.Normalize(param.To.String())

	snapshotFn := param.SnapshotFn
	if snapshotFn == nil {
		snapshotFn = e.FetchLatest
	}

	snap, err := snapshotFn(ctx)
	if err != nil {
		return resp, err
	}

	amount, err := ConvertAmount(param.Value, from, to, snap.Rates)
	if err != nil {
		return resp, err
	}

	return ConversionResponse{
		Date:   snap.Date,
		Value:  param.Value,
		From:   from,
		To:     to,
		Rate:   snap.Rates[to] / snap.Rates[from],
		Amount: amount,
	}, nil
}

// History returns the stored rate series. It never fails: a missing or
// corrupt history file yields an empty series
func (e *exchanger) History(ctx context.Context) []provider.Snapshot {
	return e.history.Read(ctx)
}

// EnsureHistory returns the stored rate series, backfilling it from the
// history source when nothing is stored yet. It never fails, though it
// may perform network requests
func (e *exchanger) EnsureHistory(ctx context.Context, days int) []provider.Snapshot {
	if series := e.history.Read(ctx); len(series) > 0 {
		return series
	}

	return e.history.Backfill(ctx, e.historySource, days)
}

// GetExchangeable returns the currencies the live source can serve
func (e *exchanger) GetExchangeable() []label.Symbol {
	return e.source.GetExchangeable()
}
