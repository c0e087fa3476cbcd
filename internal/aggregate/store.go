// Package aggregate holds the title -> {quantity, price} view that cart
// summaries read, and the dispatch channel line items write it through. A
// Store is one account's view; Stores partitions them by account.
package aggregate

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

type Entry struct {
	Title    string
	Quantity int
	Price    decimal.Decimal
}

func (e Entry) LineTotal() decimal.Decimal {
	return e.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// SetQuantity is the single action the store accepts.
type SetQuantity struct {
	Title    string
	Quantity int
	Price    decimal.Decimal
}

type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry

	subMu  sync.Mutex
	subs   map[int]chan SetQuantity
	nextID int

	log *slog.Logger
}

func NewStore(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		entries: make(map[string]Entry),
		subs:    make(map[int]chan SetQuantity),
		log:     log,
	}
}

// Dispatch applies the action and then notifies subscribers.
func (s *Store) Dispatch(a SetQuantity) {
	s.Upsert(a.Title, a.Quantity, a.Price)
	s.publish(a)
}

// Upsert sets the entry for title. The last write wins; quantity is stored as
// given, negative values included.
func (s *Store) Upsert(title string, quantity int, price decimal.Decimal) {
	s.mu.Lock()
	s.entries[title] = Entry{Title: title, Quantity: quantity, Price: price}
	s.mu.Unlock()
}

// Delete retracts title and reports whether it was present.
func (s *Store) Delete(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[title]
	delete(s.entries, title)
	return ok
}

func (s *Store) Get(title string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[title]
	return e, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns every entry ordered by title.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// Subscribe returns a channel of dispatched actions. A subscriber that falls
// more than buffer actions behind misses the overflow. cancel closes the
// channel and is safe to call more than once.
func (s *Store) Subscribe(buffer int) (<-chan SetQuantity, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan SetQuantity, buffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publish(a SetQuantity) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- a:
		default:
			s.log.Warn("aggregate subscriber lagging, action dropped",
				slog.Int("subscriber", id), slog.String("title", a.Title))
		}
	}
}
