package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dwikikusuma/cartline/internal/aggregate"
	cart "github.com/dwikikusuma/cartline/internal/cart/domain"
	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
	"github.com/shopspring/decimal"
)

// Props are the values a line item is rendered with.
type Props struct {
	ID       string
	Title    string
	Price    decimal.Decimal
	Quantity int
}

func (p Props) complete() bool {
	return strings.TrimSpace(p.ID) != "" && strings.TrimSpace(p.Title) != "" && !p.Price.IsZero()
}

type State int

const (
	StateLoading State = iota
	StateReady
	StateUnseeded
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateUnseeded:
		return "unseeded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Mode selects how Decrease and Remove reconcile the three quantity layers.
//
// ModeFaithful keeps the storefront's observable behavior: a decrease at zero
// still dispatches -1, the local decrement is not undone when the write fails,
// and Remove leaves the aggregate entry and local counter untouched.
//
// ModeReconciled derives one next value from the locked state and uses it for
// persistence, local state and dispatch. Local state changes only after the
// write succeeded, and Remove retracts the aggregate entry.
type Mode int

const (
	ModeFaithful Mode = iota
	ModeReconciled
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "faithful":
		return ModeFaithful, nil
	case "reconciled":
		return ModeReconciled, nil
	default:
		return ModeFaithful, fmt.Errorf("unknown line mode %q", s)
	}
}

func (m Mode) String() string {
	if m == ModeReconciled {
		return "reconciled"
	}
	return "faithful"
}

type Deps struct {
	Identity  IdentityResolver
	Cart      CartStore
	Products  ProductLookup
	Aggregate AggregateStore
	Notifier  Notifier
	Locks     *LineLocks
	Mode      Mode
	Logger    *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Locks == nil {
		d.Locks = NewLineLocks()
	}
	if d.Notifier == nil {
		d.Notifier = LogNotifier{Log: d.Logger}
	}
	return d
}

// RemoveResult reports what a Remove did. Confirmed is set when the user was
// told the item is gone.
type RemoveResult struct {
	Removed   int
	Confirmed bool
	Retracted bool
}

// Controller owns one displayed cart line and keeps its local counter, the
// persisted unit entries and the aggregate entry moving together.
type Controller struct {
	deps  Deps
	props Props
	owner string
	log   *slog.Logger

	mu    sync.Mutex
	state State
	qty   int
}

func NewController(props Props, deps Deps) *Controller {
	deps = deps.withDefaults()
	props.ID = strings.TrimSpace(props.ID)
	return &Controller{
		deps:  deps,
		props: props,
		log:   deps.Logger.With(slog.String("line", props.ID)),
		state: StateLoading,
		qty:   props.Quantity,
	}
}

// Mount looks the product up and, when it exists and the props carry a title
// and price, seeds the aggregate with the initial quantity. Lookup failures
// leave the line unseeded rather than failing.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateLoading {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	state := StateUnseeded
	if c.props.ID != "" {
		if _, err := c.deps.Products.GetProduct(ctx, c.props.ID); err != nil {
			c.log.Warn("line product lookup failed", slog.Any("err", err))
		} else if c.props.complete() {
			state = StateReady
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLoading {
		return nil
	}
	c.state = state
	if state == StateReady {
		c.deps.Aggregate.Dispatch(aggregate.SetQuantity{
			Title:    c.props.Title,
			Quantity: c.qty,
			Price:    c.props.Price,
		})
	}
	c.log.Debug("line mounted", slog.String("state", state.String()), slog.Int("quantity", c.qty))
	return nil
}

// Increase appends one unit of the freshly looked-up product to the caller's
// cart and raises the line by one.
func (c *Controller) Increase(ctx context.Context) (int, error) {
	if err := c.requireReady(); err != nil {
		return c.Quantity(), err
	}

	id, err := c.resolve(ctx)
	if err != nil {
		return c.Quantity(), err
	}

	unlock := c.deps.Locks.Lock(id, c.props.ID)
	defer unlock()

	product, err := c.deps.Products.GetProduct(ctx, c.props.ID)
	if err != nil {
		return c.Quantity(), err
	}

	before := c.Quantity()
	if err := c.deps.Cart.AppendUnits(ctx, id, []cart.CartUnitEntry{unitFrom(c.props.ID, product)}); err != nil {
		c.log.Error("append unit failed", slog.String("identity", id.Email), slog.Any("err", err))
		return before, err
	}

	next := before + 1
	c.setQuantity(next)
	c.dispatch(next)
	c.log.Info("line increased", slog.String("identity", id.Email), slog.Int("quantity", next))
	return next, nil
}

func (c *Controller) Decrease(ctx context.Context) (int, error) {
	if !c.props.complete() {
		return c.Quantity(), ErrMissingFields
	}
	if err := c.requireReady(); err != nil {
		return c.Quantity(), err
	}

	id, err := c.resolve(ctx)
	if err != nil {
		return c.Quantity(), err
	}

	unlock := c.deps.Locks.Lock(id, c.props.ID)
	defer unlock()

	if c.deps.Mode == ModeReconciled {
		return c.decreaseReconciled(ctx, id)
	}
	return c.decreaseFaithful(ctx, id)
}

// decreaseFaithful lowers the local count only when a persisted unit is there
// to remove. The aggregate follows the pre-decrement value either way.
func (c *Controller) decreaseFaithful(ctx context.Context, id identity.Identity) (int, error) {
	before := c.Quantity()
	if before > 0 {
		n, err := c.deps.Cart.Count(ctx, id, c.props.ID)
		if err != nil {
			c.log.Error("count units failed", slog.String("identity", id.Email), slog.Any("err", err))
			return before, err
		}
		if n > 0 {
			c.setQuantity(before - 1)
			if _, err := c.deps.Cart.RemoveOneByID(ctx, id, c.props.ID); err != nil {
				c.log.Error("remove unit failed", slog.String("identity", id.Email), slog.Any("err", err))
				return c.Quantity(), err
			}
		} else {
			c.log.Warn("no persisted unit to remove", slog.String("identity", id.Email), slog.Int("local", before))
		}
	}

	c.dispatch(before - 1)
	c.log.Info("line decreased", slog.String("identity", id.Email), slog.Int("quantity", c.Quantity()))
	return c.Quantity(), nil
}

func (c *Controller) decreaseReconciled(ctx context.Context, id identity.Identity) (int, error) {
	before := c.Quantity()
	next := max(before-1, 0)
	if before > 0 {
		removed, err := c.deps.Cart.RemoveOneByID(ctx, id, c.props.ID)
		if err != nil {
			c.log.Error("remove unit failed", slog.String("identity", id.Email), slog.Any("err", err))
			return before, err
		}
		if !removed {
			c.log.Warn("no persisted unit to remove", slog.String("identity", id.Email), slog.Int("local", before))
		}
	}

	c.setQuantity(next)
	c.dispatch(next)
	c.log.Info("line decreased", slog.String("identity", id.Email), slog.Int("quantity", next))
	return next, nil
}

// Remove deletes every persisted unit of the line's product when the line
// shows a positive quantity.
func (c *Controller) Remove(ctx context.Context) (RemoveResult, error) {
	if c.props.ID == "" {
		return RemoveResult{}, ErrMissingFields
	}

	id, err := c.resolve(ctx)
	if err != nil {
		return RemoveResult{}, err
	}

	unlock := c.deps.Locks.Lock(id, c.props.ID)
	defer unlock()

	var res RemoveResult
	before := c.Quantity()
	if before > 0 {
		n, err := c.deps.Cart.RemoveAllByID(ctx, id, c.props.ID)
		if err != nil {
			c.log.Error("remove line failed", slog.String("identity", id.Email), slog.Any("err", err))
			return RemoveResult{}, err
		}
		res.Removed = n
		if n > 0 {
			res.Confirmed = true
			c.deps.Notifier.Notify(ctx, MessageItemRemoved)
		}
	}

	if c.deps.Mode == ModeReconciled {
		c.setQuantity(0)
		if c.props.Title != "" {
			res.Retracted = c.deps.Aggregate.Delete(c.props.Title)
		}
	}
	c.log.Info("line removed", slog.String("identity", id.Email), slog.Int("removed", res.Removed))
	return res, nil
}

func (c *Controller) Quantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.qty
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Props() Props {
	return c.props
}

// resolve asks for the current identity. A line mounted for one account
// refuses to act for another.
func (c *Controller) resolve(ctx context.Context) (identity.Identity, error) {
	id, err := c.deps.Identity.Resolve(ctx)
	if err != nil {
		return identity.Identity{}, err
	}
	if c.owner != "" && id.PartitionKey() != c.owner {
		c.log.Warn("line owner mismatch", slog.String("identity", id.Email))
		return identity.Identity{}, ErrOwnerChanged
	}
	return id, nil
}

func (c *Controller) requireReady() error {
	if s := c.State(); s != StateReady {
		return fmt.Errorf("%w: %s", ErrNotMounted, s)
	}
	return nil
}

func (c *Controller) setQuantity(n int) {
	c.mu.Lock()
	c.qty = n
	c.mu.Unlock()
}

func (c *Controller) dispatch(qty int) {
	c.deps.Aggregate.Dispatch(aggregate.SetQuantity{
		Title:    c.props.Title,
		Quantity: qty,
		Price:    c.props.Price,
	})
}

func unitFrom(lineID string, p Product) cart.CartUnitEntry {
	id := p.ID
	if id == "" {
		id = lineID
	}
	return cart.CartUnitEntry{
		ID:          id,
		Title:       p.Title,
		Price:       p.Price,
		Description: p.Description,
		Thumbnail:   p.Thumbnail,
		Tags:        p.Tags,
	}
}
