package adapter

import (
	"context"

	cartapp "github.com/dwikikusuma/cartline/internal/cart/app"
	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
	summaryapp "github.com/dwikikusuma/cartline/internal/summary/app"
)

type CartStoreReader struct {
	store *cartapp.Store
}

func NewCartStoreReader(store *cartapp.Store) *CartStoreReader {
	return &CartStoreReader{store: store}
}

// GetCart folds unit entries into one item per product, in first-seen order.
func (r *CartStoreReader) GetCart(ctx context.Context, id identity.Identity) ([]summaryapp.CartItem, error) {
	entries, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	items := make([]summaryapp.CartItem, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		if i, ok := index[e.ID]; ok {
			items[i].Quantity++
			continue
		}
		index[e.ID] = len(items)
		items = append(items, summaryapp.CartItem{
			ProductID: e.ID,
			Title:     e.Title,
			Price:     e.Price,
			Quantity:  1,
		})
	}
	return items, nil
}
