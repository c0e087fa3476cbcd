package app

import (
	"context"
	"sort"
	"strings"
	"sync"

	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
	"github.com/shopspring/decimal"
)

// LineView is a point-in-time read of one mounted line.
type LineView struct {
	ID       string
	Title    string
	Price    decimal.Decimal
	Quantity int
	State    State
}

type lineKey struct {
	owner   string
	product string
}

// Registry keeps the mounted line controllers of one process. Lines belong to
// the account that mounted them: two accounts showing the same product get
// two controllers, and one account never sees or steps another's line.
type Registry struct {
	deps       Deps
	aggregates func(owner identity.Identity) AggregateStore

	mu    sync.RWMutex
	lines map[lineKey]*Controller
}

type RegistryOption func(*Registry)

// WithOwnerAggregates gives each owner's lines the aggregate returned by fn
// instead of the shared Deps.Aggregate.
func WithOwnerAggregates(fn func(owner identity.Identity) AggregateStore) RegistryOption {
	return func(r *Registry) { r.aggregates = fn }
}

func NewRegistry(deps Deps, opts ...RegistryOption) *Registry {
	r := &Registry{
		deps:  deps.withDefaults(),
		lines: make(map[lineKey]*Controller),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func keyOf(owner identity.Identity, productID string) lineKey {
	return lineKey{owner: owner.PartitionKey(), product: strings.TrimSpace(productID)}
}

// Mount creates and mounts a controller for props on behalf of owner.
// Mounting an id the owner already has returns the existing controller
// unchanged.
func (r *Registry) Mount(ctx context.Context, owner identity.Identity, props Props) (*Controller, error) {
	key := keyOf(owner, props.ID)
	if key.product == "" {
		return nil, ErrMissingFields
	}

	r.mu.Lock()
	if c, ok := r.lines[key]; ok {
		r.mu.Unlock()
		return c, nil
	}
	deps := r.deps
	if r.aggregates != nil {
		deps.Aggregate = r.aggregates(owner)
	}
	c := NewController(props, deps)
	c.owner = key.owner
	r.lines[key] = c
	r.mu.Unlock()

	if err := c.Mount(ctx); err != nil {
		r.Drop(owner, key.product)
		return nil, err
	}
	return c, nil
}

func (r *Registry) Get(owner identity.Identity, productID string) (*Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.lines[keyOf(owner, productID)]
	if !ok {
		return nil, ErrLineNotFound
	}
	return c, nil
}

// Drop unmounts a line. Operations already running on it still complete.
func (r *Registry) Drop(owner identity.Identity, productID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyOf(owner, productID)
	if _, ok := r.lines[key]; !ok {
		return false
	}
	delete(r.lines, key)
	return true
}

// Lines lists owner's mounted lines ordered by product id.
func (r *Registry) Lines(owner identity.Identity) []LineView {
	pk := owner.PartitionKey()

	r.mu.RLock()
	out := make([]LineView, 0)
	for key, c := range r.lines {
		if key.owner == pk {
			out = append(out, View(c))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func View(c *Controller) LineView {
	p := c.Props()
	return LineView{
		ID:       p.ID,
		Title:    p.Title,
		Price:    p.Price,
		Quantity: c.Quantity(),
		State:    c.State(),
	}
}
