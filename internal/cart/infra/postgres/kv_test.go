package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/dwikikusuma/cartline/internal/cart/app"
	"github.com/dwikikusuma/cartline/internal/cart/infra/kvtest"
	"github.com/dwikikusuma/cartline/pkg/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// openTestKV connects to CARTLINE_TEST_POSTGRES_DSN or skips.
func openTestKV(t *testing.T) *KV {
	t.Helper()
	dsn := os.Getenv("CARTLINE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CARTLINE_TEST_POSTGRES_DSN not set")
	}
	db, err := postgres.OpenDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	kv := NewKV(db)
	require.NoError(t, kv.Migrate(context.Background()))
	return kv
}

type prefixed struct {
	*KV
	prefix string
}

func (p prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.KV.Get(ctx, p.prefix+key)
}

func (p prefixed) Update(ctx context.Context, key string, fn func([]byte, bool) ([]byte, error)) error {
	return p.KV.Update(ctx, p.prefix+key, fn)
}

func TestKVContract(t *testing.T) {
	kv := openTestKV(t)
	kvtest.Run(t, func(t *testing.T) app.KV {
		// a fresh key space per subtest keeps runs independent
		return prefixed{KV: kv, prefix: uuid.NewString() + ":"}
	})
}
