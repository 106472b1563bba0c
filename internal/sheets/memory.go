package sheets

import (
	"context"
	"sync"

	"github.com/hsugimura/eizocrawl/internal/filter"
)

// MemorySink keeps records in memory. It backs dry runs and tests.
type MemorySink struct {
	mu   sync.Mutex
	rows []filter.Record
	urls map[string]struct{}
}

// NewMemorySink builds an empty sink, optionally pre-seeded with URLs
// that should count as already persisted.
func NewMemorySink(seedURLs ...string) *MemorySink {
	urls := make(map[string]struct{}, len(seedURLs))
	for _, u := range seedURLs {
		urls[u] = struct{}{}
	}
	return &MemorySink{urls: urls}
}

func (m *MemorySink) ExistingURLs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.urls))
	for u := range m.urls {
		out = append(out, u)
	}
	return out, nil
}

func (m *MemorySink) Append(_ context.Context, records []filter.Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.rows = append(m.rows, r)
		m.urls[r.SourceURL] = struct{}{}
	}
	return len(records), nil
}

// Records returns a copy of everything appended so far.
func (m *MemorySink) Records() []filter.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]filter.Record, len(m.rows))
	copy(out, m.rows)
	return out
}
