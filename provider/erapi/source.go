package erapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/robswierczek/kantor/label"
	"github.com/robswierczek/kantor/provider"
	"github.com/robswierczek/kantor/provider/httputil"
)

const hostname = "api.exchangerate-api.com"

const (
	latestRawPath = "/v4/latest"
	dailyRawPath  = "/v4"
)

const dateLayout = "2006-01-02"

var defaultBaseURL = url.URL{Scheme: "https", Host: hostname}

var exchangeableSymbols = []label.Symbol{
	label.USD, label.EUR, label.PLN, label.CHF, label.GBP, label.JPY, label.CZK, label.DKK,
	label.HUF, label.NOK, label.SEK, label.RON, label.AUD, label.CAD, label.CNY, label.NZD,
}

var (
	_ provider.Source     = (*source)(nil)
	_ provider.DateSource = (*source)(nil)
)

type Option func(*source)

// WithBase set the base currency the requested tables are normalized to
func WithBase(base label.Symbol) Option {
	return func(s *source) {
		s.base = base
	}
}

// NewSource return the exchangerate-api.com rate source
func NewSource(client *http.Client, apiKey string, opts ...Option) *source {
	s := &source{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		base:    label.USD,
		client:  httputil.NewHTTPClient(client),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type source struct {
	baseURL url.URL
	apiKey  string
	base    label.Symbol
	client  httputil.SourceHTTPClient
}

func (s *source) GetExchangeable() []label.Symbol {
	return exchangeableSymbols
}

// FetchLatest obtains the most recent rate snapshot for the base currency
func (s *source) FetchLatest(ctx context.Context) (provider.Snapshot, error) {
	return s.fetch(ctx, path.Join(latestRawPath, s.base.String()))
}

// FetchDate obtains the rate snapshot issued on the given calendar day
func (s *source) FetchDate(ctx context.Context, day time.Time) (provider.Snapshot, error) {
	return s.fetch(ctx, path.Join(dailyRawPath, day.Format(dateLayout), s.base.String()))
}

func (s *source) fetch(ctx context.Context, rawPath string) (provider.Snapshot, error) {
	u := s.baseURL
	u.Path = rawPath

	query := u.Query()
	query.Set("apiKey", s.apiKey)
	u.RawQuery = query.Encode()

	b, err := s.client.Get(ctx, u)
	if err != nil {
		return provider.Snapshot{}, fmt.Errorf("fetching: %w", err)
	}

	snap, err := DecodeSnapshot(b, s.base)
	if err != nil {
		return provider.Snapshot{}, fmt.Errorf("decode: %w", err)
	}

	return snap, nil
}
