package adapter

import (
	"context"
	"testing"

	cartapp "github.com/dwikikusuma/cartline/internal/cart/app"
	cart "github.com/dwikikusuma/cartline/internal/cart/domain"
	"github.com/dwikikusuma/cartline/internal/cart/infra/memory"
	catalogapp "github.com/dwikikusuma/cartline/internal/catalog/app"
	catalog "github.com/dwikikusuma/cartline/internal/catalog/domain"
	catalogmem "github.com/dwikikusuma/cartline/internal/catalog/infra/memory"
	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
	summaryapp "github.com/dwikikusuma/cartline/internal/summary/app"
	"github.com/dwikikusuma/cartline/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartStoreReaderFoldsUnits(t *testing.T) {
	ctx := context.Background()
	shopper := identity.Identity{Email: "shopper@x.io"}
	store := cartapp.NewStore(memory.NewKV(), cartapp.WithLogger(logger.Discard()))

	w := cart.CartUnitEntry{ID: "p-widget", Title: "Widget", Price: decimal.NewFromInt(10)}
	g := cart.CartUnitEntry{ID: "p-gadget", Title: "Gadget", Price: decimal.NewFromInt(3)}
	require.NoError(t, store.AppendUnits(ctx, shopper, []cart.CartUnitEntry{w, g, w, w}))

	items, err := NewCartStoreReader(store).GetCart(ctx, shopper)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p-widget", items[0].ProductID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "p-gadget", items[1].ProductID)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestCatalogServiceReader(t *testing.T) {
	ctx := context.Background()
	svc := catalogapp.NewService(catalogmem.NewProductRepo())
	_, err := svc.CreateProduct(ctx, catalog.Product{ID: "p-widget", Title: "Widget", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)

	r := NewCatalogServiceReader(svc)
	p, err := r.GetProduct(ctx, "p-widget")
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Title)

	_, err = r.GetProduct(ctx, "p-ghost")
	assert.ErrorIs(t, err, summaryapp.ErrProductNotFound)
}
