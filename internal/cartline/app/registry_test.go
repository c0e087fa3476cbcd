package app_test

import (
	"context"
	"testing"

	"github.com/dwikikusuma/cartline/internal/aggregate"
	cart "github.com/dwikikusuma/cartline/internal/cart/domain"
	"github.com/dwikikusuma/cartline/internal/cartline/app"
	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
	"github.com/dwikikusuma/cartline/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryMountIsIdempotent(t *testing.T) {
	h := newHarness(app.ModeFaithful)
	r := app.NewRegistry(h.deps)

	c1, err := r.Mount(context.Background(), shopper, widgetProps(2))
	require.NoError(t, err)
	c2, err := r.Mount(context.Background(), shopper, widgetProps(7))
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 2, c2.Quantity())
}

func TestRegistryGetDropLines(t *testing.T) {
	h := newHarness(app.ModeFaithful)
	h.products.m["p-gadget"] = app.Product{ID: "p-gadget", Title: "Gadget", Price: decimal.NewFromInt(3)}
	r := app.NewRegistry(h.deps)
	ctx := context.Background()

	_, err := r.Mount(ctx, shopper, widgetProps(1))
	require.NoError(t, err)
	_, err = r.Mount(ctx, shopper, app.Props{ID: "p-gadget", Title: "Gadget", Price: decimal.NewFromInt(3), Quantity: 4})
	require.NoError(t, err)
	_, err = r.Mount(ctx, shopper, app.Props{ID: "p-ghost", Title: "Ghost", Price: decimal.NewFromInt(1)})
	require.NoError(t, err)

	lines := r.Lines(shopper)
	require.Len(t, lines, 3)
	assert.Equal(t, "p-gadget", lines[0].ID)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, app.StateReady, lines[0].State)
	assert.Equal(t, "p-ghost", lines[1].ID)
	assert.Equal(t, app.StateUnseeded, lines[1].State)

	c, err := r.Get(shopper, "p-widget")
	require.NoError(t, err)
	_, err = c.Increase(ctx)
	require.NoError(t, err)

	assert.True(t, r.Drop(shopper, "p-widget"))
	assert.False(t, r.Drop(shopper, "p-widget"))
	_, err = r.Get(shopper, "p-widget")
	assert.ErrorIs(t, err, app.ErrLineNotFound)

	// a dropped controller still finishes work handed to it
	_, err = c.Increase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.units(t))
}

func TestRegistryMountRequiresID(t *testing.T) {
	r := app.NewRegistry(newHarness(app.ModeFaithful).deps)
	_, err := r.Mount(context.Background(), shopper, app.Props{Title: "Widget"})
	assert.ErrorIs(t, err, app.ErrMissingFields)
}

type ownerKey struct{}

func asOwner(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, ownerKey{}, id)
}

// ownerFromContext resolves whoever asOwner stored in ctx.
func ownerFromContext(ctx context.Context) (identity.Identity, error) {
	id, _ := ctx.Value(ownerKey{}).(identity.Identity)
	return id, nil
}

func TestRegistryLinesArePerOwner(t *testing.T) {
	h := newHarness(app.ModeFaithful)
	h.deps.Identity = resolverFunc(ownerFromContext)

	aggs := aggregate.NewStores(logger.Discard())
	r := app.NewRegistry(h.deps, app.WithOwnerAggregates(func(owner identity.Identity) app.AggregateStore {
		return aggs.For(owner.PartitionKey())
	}))

	alice := identity.Identity{Email: "alice@x.io"}
	bob := identity.Identity{Email: "bob@x.io"}
	aliceCtx := asOwner(context.Background(), alice)
	bobCtx := asOwner(context.Background(), bob)

	ca, err := r.Mount(aliceCtx, alice, widgetProps(0))
	require.NoError(t, err)
	cb, err := r.Mount(bobCtx, bob, widgetProps(5))
	require.NoError(t, err)
	assert.NotSame(t, ca, cb)

	for i := 0; i < 2; i++ {
		_, err = ca.Increase(aliceCtx)
		require.NoError(t, err)
	}
	_, err = cb.Decrease(bobCtx)
	require.NoError(t, err)

	assert.Equal(t, 2, ca.Quantity())
	assert.Equal(t, 5, cb.Quantity())

	n, err := h.cart.Count(context.Background(), alice, "p-widget")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = h.cart.Count(context.Background(), bob, "p-widget")
	require.NoError(t, err)
	assert.Zero(t, n)

	ea, ok := aggs.For(alice.PartitionKey()).Get("Widget")
	require.True(t, ok)
	assert.Equal(t, 2, ea.Quantity)
	eb, ok := aggs.For(bob.PartitionKey()).Get("Widget")
	require.True(t, ok)
	assert.Equal(t, 4, eb.Quantity)

	require.Len(t, r.Lines(alice), 1)
	assert.Equal(t, 2, r.Lines(alice)[0].Quantity)
	_, err = r.Get(identity.Identity{Email: "carol@x.io"}, "p-widget")
	assert.ErrorIs(t, err, app.ErrLineNotFound)

	// bob's session cannot drive alice's line
	_, err = ca.Increase(bobCtx)
	assert.ErrorIs(t, err, app.ErrOwnerChanged)
	assert.Equal(t, 2, ca.Quantity())
}

// gatedCart holds AppendUnits until release is closed.
type gatedCart struct {
	app.CartStore
	started chan struct{}
	release chan struct{}
}

func (g *gatedCart) AppendUnits(ctx context.Context, id identity.Identity, units []cart.CartUnitEntry) error {
	close(g.started)
	<-g.release
	return g.CartStore.AppendUnits(ctx, id, units)
}

func TestRegistryDropDuringIncrease(t *testing.T) {
	h := newHarness(app.ModeFaithful)
	gc := &gatedCart{CartStore: h.cart, started: make(chan struct{}), release: make(chan struct{})}
	h.deps.Cart = gc
	r := app.NewRegistry(h.deps)
	ctx := context.Background()

	c, err := r.Mount(ctx, shopper, widgetProps(0))
	require.NoError(t, err)

	type result struct {
		qty int
		err error
	}
	done := make(chan result, 1)
	go func() {
		q, err := c.Increase(ctx)
		done <- result{q, err}
	}()

	<-gc.started
	require.True(t, r.Drop(shopper, "p-widget"))
	close(gc.release)

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, 1, got.qty)

	// the in-flight unit is persisted and reflected in the aggregate
	assert.Equal(t, 1, h.units(t))
	assert.Equal(t, 1, h.aggregateQty(t))

	_, err = r.Get(shopper, "p-widget")
	assert.ErrorIs(t, err, app.ErrLineNotFound)

	// mounting again starts from the props, not from the dropped controller
	again, err := r.Mount(ctx, shopper, widgetProps(1))
	require.NoError(t, err)
	assert.NotSame(t, c, again)
	assert.Equal(t, 1, again.Quantity())
}
