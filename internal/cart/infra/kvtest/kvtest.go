// Package kvtest holds the behaviour every cart KV backend must show.
package kvtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dwikikusuma/cartline/internal/cart/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Run exercises a fresh KV from newKV against the app.KV contract.
func Run(t *testing.T, newKV func(t *testing.T) app.KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("absent key", func(t *testing.T) {
		kv := newKV(t)
		v, ok, err := kv.Get(ctx, "cart_nobody")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("update creates then replaces", func(t *testing.T) {
		kv := newKV(t)
		require.NoError(t, kv.Update(ctx, "k", func(cur []byte, ok bool) ([]byte, error) {
			assert.False(t, ok)
			return []byte(`[1]`), nil
		}))
		require.NoError(t, kv.Update(ctx, "k", func(cur []byte, ok bool) ([]byte, error) {
			assert.True(t, ok)
			assert.Equal(t, `[1]`, string(cur))
			return []byte(`[1,2]`), nil
		}))
		v, ok, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[1,2]`, string(v))
	})

	t.Run("failed update writes nothing", func(t *testing.T) {
		kv := newKV(t)
		require.NoError(t, kv.Update(ctx, "k", func([]byte, bool) ([]byte, error) { return []byte(`keep`), nil }))

		boom := errors.New("boom")
		err := kv.Update(ctx, "k", func([]byte, bool) ([]byte, error) { return []byte(`lost`), boom })
		assert.ErrorIs(t, err, boom)

		v, _, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, `keep`, string(v))
	})

	t.Run("keys are isolated", func(t *testing.T) {
		kv := newKV(t)
		require.NoError(t, kv.Update(ctx, "cart_a", func([]byte, bool) ([]byte, error) { return []byte(`a`), nil }))
		_, ok, err := kv.Get(ctx, "cart_b")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent updates do not interleave", func(t *testing.T) {
		kv := newKV(t)
		const N = 25

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < N; i++ {
			g.Go(func() error {
				return kv.Update(gctx, "counter", func(cur []byte, ok bool) ([]byte, error) {
					n := 0
					if ok {
						if _, err := fmt.Sscanf(string(cur), "%d", &n); err != nil {
							return nil, err
						}
					}
					mu.Lock()
					defer mu.Unlock()
					return []byte(fmt.Sprintf("%d", n+1)), nil
				})
			})
		}
		require.NoError(t, g.Wait())

		v, _, err := kv.Get(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%d", N), string(v))
	})
}
