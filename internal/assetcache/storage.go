package assetcache

import (
	"context"
	"fmt"
	"net/http"
)

// Generation identifies one versioned snapshot of cached assets.
type Generation struct {
	Prefix  string
	Version int
}

// Name is the storage name of the generation, e.g. "gainslog-v4".
func (g Generation) Name() string {
	return fmt.Sprintf("%s-v%d", g.Prefix, g.Version)
}

// Entry is one cached response.
type Entry struct {
	URL    string
	Status int
	Header http.Header
	Body   []byte
}

// Storage holds named cache generations.
type Storage interface {
	// Keys lists every generation name.
	Keys(ctx context.Context) ([]string, error)
	// Delete removes a generation and its entries, reporting whether it existed.
	Delete(ctx context.Context, name string) (bool, error)
	// Match returns the entry cached for url in the named generation, or nil.
	Match(ctx context.Context, name, url string) (*Entry, error)
	// Put stores entries in the named generation, creating it if needed.
	// Either every entry is stored or none is.
	Put(ctx context.Context, name string, entries ...Entry) error
	Close() error
}
