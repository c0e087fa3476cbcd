package adapter

import (
	"context"
	"errors"

	catalogapp "github.com/dwikikusuma/cartline/internal/catalog/app"
	summaryapp "github.com/dwikikusuma/cartline/internal/summary/app"
)

type CatalogServiceReader struct {
	svc *catalogapp.Service
}

func NewCatalogServiceReader(svc *catalogapp.Service) *CatalogServiceReader {
	return &CatalogServiceReader{svc: svc}
}

func (r *CatalogServiceReader) GetProduct(ctx context.Context, productID string) (summaryapp.Product, error) {
	p, err := r.svc.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalogapp.ErrNotFound) {
			return summaryapp.Product{}, summaryapp.ErrProductNotFound
		}
		return summaryapp.Product{}, err
	}

	return summaryapp.Product{
		ID:    p.ID,
		Title: p.Title,
		Price: p.Price,
	}, nil
}
