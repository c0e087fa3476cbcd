package app

import (
	"context"

	"github.com/dwikikusuma/cartline/internal/aggregate"
	cart "github.com/dwikikusuma/cartline/internal/cart/domain"
	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
	"github.com/shopspring/decimal"
)

type IdentityResolver interface {
	Resolve(ctx context.Context) (identity.Identity, error)
}

type CartStore interface {
	AppendUnits(ctx context.Context, id identity.Identity, units []cart.CartUnitEntry) error
	RemoveOneByID(ctx context.Context, id identity.Identity, productID string) (bool, error)
	RemoveAllByID(ctx context.Context, id identity.Identity, productID string) (int, error)
	Count(ctx context.Context, id identity.Identity, productID string) (int, error)
}

// Product is the detail record a line re-validates against.
type Product struct {
	ID          string
	Title       string
	Price       decimal.Decimal
	Description string
	Thumbnail   string
	Tags        []string
}

// ProductLookup returns ErrProductNotFound for unknown ids.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (Product, error)
}

type AggregateStore interface {
	Dispatch(a aggregate.SetQuantity)
	Delete(title string) bool
}

type Notifier interface {
	Notify(ctx context.Context, message string)
}
