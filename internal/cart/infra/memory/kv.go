package memory

import (
	"context"
	"sync"
)

// KV is an in-process partition store. Values are copied on the way in and
// out so callers never share backing arrays with it.
type KV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	v, ok := k.data[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (k *KV) Update(ctx context.Context, key string, fn func(cur []byte, ok bool) ([]byte, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	cur, ok := k.data[key]
	next, err := fn(clone(cur), ok)
	if err != nil {
		return err
	}
	k.data[key] = clone(next)
	return nil
}

// Put stores raw bytes under key, bypassing any encoding.
func (k *KV) Put(key string, value []byte) {
	k.mu.Lock()
	k.data[key] = clone(value)
	k.mu.Unlock()
}

// Clear drops every partition.
func (k *KV) Clear() {
	k.mu.Lock()
	k.data = make(map[string][]byte)
	k.mu.Unlock()
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
