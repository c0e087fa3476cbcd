package app

import "context"

// KV is the durable backend under the cart store. Keys are partition keys;
// values are opaque to the backend.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Update runs fn on the current value and stores what it returns, as one
	// step no other Update on the same key can interleave with. When fn
	// returns an error nothing is written and that error is returned. fn must
	// not call back into the KV.
	Update(ctx context.Context, key string, fn func(cur []byte, ok bool) ([]byte, error)) error
}
