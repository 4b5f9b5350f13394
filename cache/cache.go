// Package cache persists the last successfully fetched raw rates
// response to a local file so the converter keeps working offline
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/robswierczek/kantor/internal/logging"
	"github.com/robswierczek/kantor/provider"
)

// ErrUnavailable reports that the cache file is missing, unreadable
// or does not decode to a rate snapshot
var ErrUnavailable = errors.New("rates cache unavailable")

// DecodeFunc turns a cached raw response body back into a snapshot.
// The cache stores responses verbatim, so decoding is owned by whoever
// produced them
type DecodeFunc func(b []byte) (provider.Snapshot, error)

// New return a file cache at path decoding entries with decode
func New(path string, decode DecodeFunc) *FileCache {
	return &FileCache{path: path, decode: decode}
}

type FileCache struct {
	path   string
	decode DecodeFunc
}

// Save overwrites the cache file with the raw response body. Write
// failures are logged and swallowed: losing the cache must never break
// a successful live fetch
func (c *FileCache) Save(ctx context.Context, raw []byte) {
	if len(raw) == 0 {
		return
	}

	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		logging.FromContext(ctx).Printf("save rates cache %s: %v", c.path, err)
	}
}

// Load reads the cache file and decodes the stored response
func (c *FileCache) Load() (provider.Snapshot, error) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return provider.Snapshot{}, fmt.Errorf("%w: read %s: %v", ErrUnavailable, c.path, err)
	}

	snap, err := c.decode(b)
	if err != nil {
		return provider.Snapshot{}, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, c.path, err)
	}

	return snap, nil
}
