package erapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/robswierczek/kantor/label"
	"github.com/robswierczek/kantor/provider"
)

const unknownDateLabel = "unknown date"

// ErrMalformed reports a response body that is not the expected
// rates object: invalid JSON, a missing rates field, or a rates
// field that is not an object
var ErrMalformed = errors.New("malformed exchange rates response")

// DecodeSnapshot extracts a rate snapshot from a raw response body.
// The body must be a JSON object with an object-valued "rates" field.
// The date label is taken from the "date" field, falling back to the
// "time_last_updated" timestamp coerced to a string, falling back to
// "unknown date". The same extraction applies to live responses and
// to cached copies of them
func DecodeSnapshot(b []byte, base label.Symbol) (provider.Snapshot, error) {
	var snap provider.Snapshot

	var body map[string]json.RawMessage
	if err := json.Unmarshal(b, &body); err != nil {
		return snap, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	rawRates, ok := body["rates"]
	if !ok {
		return snap, fmt.Errorf("%w: missing rates field", ErrMalformed)
	}

	var rates map[string]float64
	if err := json.Unmarshal(rawRates, &rates); err != nil {
		return snap, fmt.Errorf("%w: rates field is not an object: %v", ErrMalformed, err)
	}

	table := make(provider.Table, len(rates)+1)
	for code, rate := range rates {
		table[label.Normalize(code)] = rate
	}

	// the base currency trades 1:1 with itself; the live API includes
	// the entry, a hand-edited cache file might not
	if _, ok := table[base]; !ok {
		table[base] = 1
	}

	return provider.Snapshot{
		Date:  decodeDateLabel(body),
		Base:  base,
		Rates: table,
		Raw:   b,
	}, nil
}

func decodeDateLabel(body map[string]json.RawMessage) string {
	if raw, ok := body["date"]; ok {
		var date string
		if err := json.Unmarshal(raw, &date); err == nil && date != "" {
			return date
		}
	}

	if raw, ok := body["time_last_updated"]; ok {
		var ts int64
		if err := json.Unmarshal(raw, &ts); err == nil {
			return strconv.FormatInt(ts, 10)
		}
	}

	return unknownDateLabel
}
