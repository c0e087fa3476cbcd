package adapter

import (
	"context"
	"errors"

	catalogapp "github.com/dwikikusuma/cartline/internal/catalog/app"
	lineapp "github.com/dwikikusuma/cartline/internal/cartline/app"
)

type CatalogLookup struct {
	svc *catalogapp.Service
}

func NewCatalogLookup(svc *catalogapp.Service) *CatalogLookup {
	return &CatalogLookup{svc: svc}
}

func (l *CatalogLookup) GetProduct(ctx context.Context, id string) (lineapp.Product, error) {
	p, err := l.svc.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, catalogapp.ErrNotFound) || errors.Is(err, catalogapp.ErrInvalidInput) {
			return lineapp.Product{}, lineapp.ErrProductNotFound
		}
		return lineapp.Product{}, err
	}

	return lineapp.Product{
		ID:          p.ID,
		Title:       p.Title,
		Price:       p.Price,
		Description: p.Description,
		Thumbnail:   p.Thumbnail,
		Tags:        p.Tags,
	}, nil
}
