package aggregate

import (
	"log/slog"
	"sort"
	"sync"
)

// Stores keeps one Store per account partition key. A server that serves
// many shoppers hands each of them their own view.
type Stores struct {
	mu     sync.Mutex
	stores map[string]*Store
	log    *slog.Logger
}

func NewStores(log *slog.Logger) *Stores {
	if log == nil {
		log = slog.Default()
	}
	return &Stores{
		stores: make(map[string]*Store),
		log:    log,
	}
}

// For returns the store of key, creating it on first use.
func (s *Stores) For(key string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stores[key]
	if !ok {
		st = NewStore(s.log.With(slog.String("partition", key)))
		s.stores[key] = st
	}
	return st
}

// Snapshot reads the store of key without creating it.
func (s *Stores) Snapshot(key string) []Entry {
	s.mu.Lock()
	st, ok := s.stores[key]
	s.mu.Unlock()

	if !ok {
		return []Entry{}
	}
	return st.Snapshot()
}

func (s *Stores) Keys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.stores))
	for k := range s.stores {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys
}
