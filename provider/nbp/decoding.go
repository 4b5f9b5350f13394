package nbp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robswierczek/kantor/label"
	"github.com/robswierczek/kantor/provider"
)

var errDecodeTables = errors.New("decoding of NBP tables failed")

type table struct {
	EffectiveDate string `json:"effectiveDate"`
	Rates         []struct {
		Code string  `json:"code"`
		Mid  float64 `json:"mid"`
	} `json:"rates"`
}

// decodeTables parses a tables A response into USD-based snapshots.
// NBP quotes every currency as PLN per one unit ("mid"); the snapshot
// convention is units per one USD, so each table is rebased through
// the USD quote:
//
//	rates[USD] = 1
//	rates[PLN] = mid(USD)
//	rates[X]   = mid(USD) / mid(X)
//
// Tables without a USD quote and malformed entries are skipped
func decodeTables(b []byte) ([]provider.Snapshot, error) {
	var tables []table
	if err := json.Unmarshal(b, &tables); err != nil {
		return nil, fmt.Errorf("%w: %v", errDecodeTables, err)
	}

	snapshots := make([]provider.Snapshot, 0, len(tables))
	for _, t := range tables {
		if t.EffectiveDate == "" {
			continue
		}

		plnPerUnit := make(map[label.Symbol]float64, len(t.Rates))
		for _, r := range t.Rates {
			if r.Code == "" || r.Mid <= 0 {
				continue
			}
			plnPerUnit[label.Normalize(r.Code)] = r.Mid
		}

		plnPerUSD, ok := plnPerUnit[label.USD]
		if !ok {
			continue
		}

		rates := make(provider.Table, len(plnPerUnit)+1)
		rates[label.USD] = 1
		rates[label.PLN] = plnPerUSD
		for code, mid := range plnPerUnit {
			if code == label.USD {
				continue
			}
			rates[code] = plnPerUSD / mid
		}

		snapshots = append(snapshots, provider.Snapshot{
			Date:  t.EffectiveDate,
			Base:  label.USD,
			Rates: rates,
		})
	}

	return snapshots, nil
}
