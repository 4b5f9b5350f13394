package nbp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robswierczek/kantor/label"
	"github.com/robswierczek/kantor/provider"
	"github.com/robswierczek/kantor/provider/httputil"
)

const hostname = "api.nbp.pl"

const tablesRawPath = "/api/exchangerates/tables/a"

// NBP rejects range requests longer than 93 days; ranges are split
// into chunks of at most this many days
const maxRangeSpanDays = 90

const dateLayout = "2006-01-02"

var defaultBaseURL = url.URL{Scheme: "https", Host: hostname}

// table A covers these plus a few minors; the registry subset is what
// the rest of kantor can label
var exchangeableSymbols = []label.Symbol{
	label.USD, label.PLN, label.EUR, label.CHF, label.GBP, label.JPY, label.CZK, label.DKK,
	label.HUF, label.NOK, label.SEK, label.RON, label.AUD, label.CAD, label.CNY, label.NZD,
}

var (
	_ provider.Source     = (*source)(nil)
	_ provider.DateSource = (*source)(nil)
)

// NewSource return the NBP tables A rate source. NBP requires no API key
func NewSource(client *http.Client) *source {
	return &source{
		baseURL: defaultBaseURL,
		client:  httputil.NewHTTPClient(client),
	}
}

type source struct {
	baseURL url.URL
	client  httputil.SourceHTTPClient
}

func (s *source) GetExchangeable() []label.Symbol {
	return exchangeableSymbols
}

// FetchLatest obtains the most recently published table A snapshot
func (s *source) FetchLatest(ctx context.Context) (provider.Snapshot, error) {
	snapshots, err := s.fetch(ctx, tablesRawPath)
	if err != nil {
		return provider.Snapshot{}, err
	}

	if len(snapshots) == 0 {
		return provider.Snapshot{}, fmt.Errorf("%w: no usable tables", errDecodeTables)
	}

	return snapshots[len(snapshots)-1], nil
}

// FetchDate obtains the table A snapshot for a single calendar day.
// NBP publishes no tables on weekends and holidays; those days fail
func (s *source) FetchDate(ctx context.Context, day time.Time) (provider.Snapshot, error) {
	snapshots, err := s.fetch(ctx, path.Join(tablesRawPath, day.Format(dateLayout)))
	if err != nil {
		return provider.Snapshot{}, err
	}

	if len(snapshots) == 0 {
		return provider.Snapshot{}, fmt.Errorf("%w: no usable table for %s", errDecodeTables, day.Format(dateLayout))
	}

	return snapshots[0], nil
}

// FetchRange obtains all table A snapshots published between start and
// end inclusive, splitting the interval into chunks NBP accepts. Failed
// chunks are skipped; an error is returned only when no chunk yielded
// any snapshot
func (s *source) FetchRange(ctx context.Context, start, end time.Time) ([]provider.Snapshot, error) {
	var snapshots []provider.Snapshot
	var ferr *multierror.Error

	for _, r := range splitRange(start, end, maxRangeSpanDays) {
		rawPath := path.Join(tablesRawPath, r.start.Format(dateLayout), r.end.Format(dateLayout))

		chunk, err := s.fetch(ctx, rawPath)
		if err != nil {
			ferr = multierror.Append(ferr, fmt.Errorf("range %s..%s: %w", r.start.Format(dateLayout), r.end.Format(dateLayout), err))
			continue
		}

		snapshots = append(snapshots, chunk...)
	}

	if len(snapshots) == 0 {
		return nil, ferr.ErrorOrNil()
	}

	return snapshots, nil
}

func (s *source) fetch(ctx context.Context, rawPath string) ([]provider.Snapshot, error) {
	u := s.baseURL
	u.Path = rawPath

	query := u.Query()
	query.Set("format", "json")
	u.RawQuery = query.Encode()

	b, err := s.client.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetching: %w", err)
	}

	snapshots, err := decodeTables(b)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return snapshots, nil
}

type dateRange struct {
	start time.Time
	end   time.Time
}

// splitRange splits the closed interval [start, end] into consecutive
// non-overlapping subranges spanning at most maxSpanDays days each
func splitRange(start, end time.Time, maxSpanDays int) []dateRange {
	var ranges []dateRange

	step := maxSpanDays - 1
	for current := start; !current.After(end); {
		chunkEnd := current.AddDate(0, 0, step)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		ranges = append(ranges, dateRange{start: current, end: chunkEnd})
		current = chunkEnd.AddDate(0, 0, 1)
	}

	return ranges
}
