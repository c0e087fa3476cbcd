package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dwikikusuma/cartline/internal/catalog/app"
	"github.com/dwikikusuma/cartline/internal/catalog/domain"
	"github.com/google/uuid"
)

// ProductRepo keeps the catalog in process. Listing is ordered by id so the
// last id of a page works as the cursor.
type ProductRepo struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	now      func() time.Time
}

func NewProductRepo() *ProductRepo {
	return &ProductRepo{
		products: make(map[string]domain.Product),
		now:      time.Now,
	}
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := r.products[p.ID]; exists {
		return domain.Product{}, app.ErrInvalidInput
	}

	ts := r.now().UTC()
	p.CreatedAt = ts
	p.UpdatedAt = ts
	p.Tags = append([]string(nil), p.Tags...)

	r.products[p.ID] = p
	return p, nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, app.ErrNotFound
	}
	return p, nil
}

func (r *ProductRepo) List(ctx context.Context, query string, limit int, cursor string) ([]domain.Product, string, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	query = strings.ToLower(strings.TrimSpace(query))
	cursor = strings.TrimSpace(cursor)

	out := make([]domain.Product, 0, limit)
	var nextCursor string

	for _, id := range ids {
		if cursor != "" && id <= cursor {
			continue
		}
		p, err := r.Get(ctx, id)
		if err != nil {
			// removed between snapshot and read
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Description), query) {
			continue
		}
		out = append(out, p)
		nextCursor = p.ID
		if len(out) == limit {
			break
		}
	}

	if len(out) < limit {
		nextCursor = ""
	}

	return out, nextCursor, nil
}
