package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemoryWindowSize bounds the number of tracked clients per window
const DefaultMemoryWindowSize = 10000

// Window is a sliding-window budget of Max requests per Interval
type Window struct {
	Name     string
	Max      int
	Interval time.Duration
	Mode     Mode
}

// Validate checks that the window can be evaluated
func (w Window) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("window name is required")
	}
	if w.Max <= 0 {
		return fmt.Errorf("window %s: max must be positive", w.Name)
	}
	if w.Interval <= 0 {
		return fmt.Errorf("window %s: interval must be positive", w.Name)
	}
	return nil
}

// WindowResult is the outcome of recording one hit
type WindowResult struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// WindowStore records hits against a window. A denied hit is not recorded.
type WindowStore interface {
	Hit(ctx context.Context, key string, w Window, now time.Time) (WindowResult, error)
}

type hitLog struct {
	hits []time.Time
}

// MemoryWindowStore keeps per-client hit logs in process memory
type MemoryWindowStore struct {
	mu      sync.Mutex
	size    int
	windows map[string]*expirable.LRU[string, *hitLog]
}

var _ WindowStore = (*MemoryWindowStore)(nil)

// NewMemoryWindowStore creates a store tracking at most size clients per window
func NewMemoryWindowStore(size int) *MemoryWindowStore {
	if size <= 0 {
		size = DefaultMemoryWindowSize
	}
	return &MemoryWindowStore{
		size:    size,
		windows: make(map[string]*expirable.LRU[string, *hitLog]),
	}
}

// Hit records a hit at now if the window still has budget
func (s *MemoryWindowStore) Hit(ctx context.Context, key string, w Window, now time.Time) (WindowResult, error) {
	if err := ctx.Err(); err != nil {
		return WindowResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cache := s.cacheFor(w)
	entry, ok := cache.Get(key)
	if !ok {
		entry = &hitLog{}
	}

	cutoff := now.Add(-w.Interval)
	kept := entry.hits[:0]
	for _, t := range entry.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	entry.hits = kept

	if len(entry.hits) >= w.Max {
		cache.Add(key, entry)
		return WindowResult{
			Allowed:   false,
			Remaining: 0,
			Reset:     entry.hits[0].Add(w.Interval),
		}, nil
	}

	entry.hits = append(entry.hits, now)
	cache.Add(key, entry)

	return WindowResult{
		Allowed:   true,
		Remaining: w.Max - len(entry.hits),
		Reset:     entry.hits[0].Add(w.Interval),
	}, nil
}

func (s *MemoryWindowStore) cacheFor(w Window) *expirable.LRU[string, *hitLog] {
	id := fmt.Sprintf("%s/%s", w.Name, w.Interval)
	cache, ok := s.windows[id]
	if !ok {
		cache = expirable.NewLRU[string, *hitLog](s.size, nil, w.Interval)
		s.windows[id] = cache
	}
	return cache
}
