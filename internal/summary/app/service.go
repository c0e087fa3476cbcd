package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dwikikusuma/cartline/internal/aggregate"
	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
	"github.com/dwikikusuma/cartline/internal/summary/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type CartReader interface {
	GetCart(ctx context.Context, id identity.Identity) ([]CartItem, error)
}

// CartItem is one product's unit count in a partition, with the title and
// price captured on its first unit.
type CartItem struct {
	ProductID string
	Title     string
	Price     decimal.Decimal
	Quantity  int
}

type CatalogReader interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
}

type Product struct {
	ID    string
	Title string
	Price decimal.Decimal
}

// AggregateReader reads the aggregate of one account partition.
type AggregateReader interface {
	Snapshot(partitionKey string) []aggregate.Entry
}

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrProductNotFound = errors.New("product not found")
)

type Service struct {
	Cart      CartReader
	Catalog   CatalogReader
	Aggregate AggregateReader

	maxConcurrent int
}

func NewService(cart CartReader, catalog CatalogReader, agg AggregateReader, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}

	return &Service{
		Cart:          cart,
		Catalog:       catalog,
		Aggregate:     agg,
		maxConcurrent: maxConcurrent,
	}
}

// FromAggregate quotes what id's mounted lines currently show. Entries at or
// below zero are left out.
func (s *Service) FromAggregate(id identity.Identity) domain.Quote {
	snap := s.Aggregate.Snapshot(id.PartitionKey())
	lines := make([]domain.QuoteLine, 0, len(snap))
	for _, e := range snap {
		if e.Quantity <= 0 {
			continue
		}
		lines = append(lines, domain.NewLine("", e.Title, e.Quantity, e.Price))
	}
	return domain.NewQuote(lines)
}

// FromCart quotes the persisted partition of id, pricing each product from
// the catalog. Products the catalog no longer knows keep the title and price
// stored on their units.
func (s *Service) FromCart(ctx context.Context, id identity.Identity) (domain.Quote, error) {
	items, err := s.Cart.GetCart(ctx, id)
	if err != nil {
		return domain.Quote{}, err
	}

	if len(items) == 0 {
		return domain.Quote{}, ErrEmptyCart
	}

	lines := make([]domain.QuoteLine, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for idx := range items {
		idx := idx
		g.Go(func() error {
			it := items[idx]
			if it.Quantity <= 0 {
				return fmt.Errorf("quantity must be greater than zero: %d", it.Quantity)
			}

			title, price := it.Title, it.Price
			product, err := s.Catalog.GetProduct(ctx, it.ProductID)
			switch {
			case err == nil:
				title, price = product.Title, product.Price
			case errors.Is(err, ErrProductNotFound):
			default:
				return fmt.Errorf("failed to get product %s: %w", it.ProductID, err)
			}

			lines[idx] = domain.NewLine(it.ProductID, title, it.Quantity, price)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.Quote{}, err
	}

	return domain.NewQuote(lines), nil
}
