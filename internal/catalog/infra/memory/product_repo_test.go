package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/dwikikusuma/cartline/internal/catalog/app"
	"github.com/dwikikusuma/cartline/internal/catalog/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepoCreateGet(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo()

	created, err := repo.Create(ctx, domain.Product{Title: "Widget", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = uuid.Parse(created.ID)
	require.NoError(t, err, "generated id should be a uuid")
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Title)

	_, err = repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, app.ErrNotFound)

	_, err = repo.Create(ctx, domain.Product{ID: created.ID, Title: "dup"})
	assert.ErrorIs(t, err, app.ErrInvalidInput)
}

func TestProductRepoListPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepo()
	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, domain.Product{ID: fmt.Sprintf("p-%d", i), Title: fmt.Sprintf("Item %d", i)})
		require.NoError(t, err)
	}

	page, next, err := repo.List(ctx, "", 2, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "p-0", page[0].ID)
	assert.Equal(t, "p-1", next)

	page, next, err = repo.List(ctx, "", 2, next)
	require.NoError(t, err)
	assert.Equal(t, "p-2", page[0].ID)
	assert.Equal(t, "p-3", next)

	page, next, err = repo.List(ctx, "", 2, next)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Empty(t, next)

	page, _, err = repo.List(ctx, "item 3", 10, "")
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "p-3", page[0].ID)
}
