package provider

import (
	"context"
	"time"

	"github.com/robswierczek/kantor/label"
)

// Table maps a currency symbol to its rate expressed as units of that
// currency per one unit of the base currency. Invariant: Table[base] == 1
type Table map[label.Symbol]float64

// Snapshot is a rate table together with the calendar day it was valid
// for and the base currency the table is normalized to. Snapshots are
// value records: they are rebuilt wholesale, never mutated in place
type Snapshot struct {
	// Date is an opaque calendar day label taken from the source
	Date string `json:"date"`

	Base  label.Symbol `json:"-"`
	Rates Table        `json:"rates"`

	// Raw is the verbatim response body the snapshot was decoded from.
	// Set only by live fetches; used for write-through caching
	Raw []byte `json:"-"`
}

// Source is an interface for getting rate data from external sources
//
//go:generate mockgen -source source.go -destination mock_source.go -package provider
type Source interface {
	// FetchLatest obtains the most recent rate snapshot
	FetchLatest(ctx context.Context) (Snapshot, error)

	// GetExchangeable declares to give a list of exchangeable currencies
	GetExchangeable() []label.Symbol
}

// DateSource is a source that can serve a snapshot for a specific
// calendar day. Used by history backfill
type DateSource interface {
	FetchDate(ctx context.Context, day time.Time) (Snapshot, error)
}
