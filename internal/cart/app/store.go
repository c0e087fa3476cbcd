package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dwikikusuma/cartline/internal/cart/domain"
	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
)

var (
	ErrMalformedPartition = errors.New("malformed cart partition")
	ErrPersistence        = errors.New("cart persistence failed")
)

// ParseError reports stored partition data that is present but not a list of
// unit entries.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse cart partition %q: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrMalformedPartition }

type MalformedPolicy int

const (
	// FailFast returns a *ParseError for malformed partitions.
	FailFast MalformedPolicy = iota
	// TreatAsEmpty logs and reads malformed partitions as empty. The next
	// write replaces the bad value.
	TreatAsEmpty
)

func ParsePolicy(s string) (MalformedPolicy, error) {
	switch s {
	case "", "fail_fast":
		return FailFast, nil
	case "treat_as_empty":
		return TreatAsEmpty, nil
	}
	return FailFast, fmt.Errorf("unknown malformed policy %q", s)
}

// Store is the per-account persisted cart. Each account's units live in one
// partition keyed by Identity.PartitionKey; every mutation is a single atomic
// read-modify-write of that partition.
type Store struct {
	kv     KV
	policy MalformedPolicy
	log    *slog.Logger
}

type StoreOption func(*Store)

func WithPolicy(p MalformedPolicy) StoreOption {
	return func(s *Store) { s.policy = p }
}

func WithLogger(log *slog.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

func NewStore(kv KV, opts ...StoreOption) *Store {
	s := &Store{kv: kv, policy: FailFast, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Load(ctx context.Context, id identity.Identity) ([]domain.CartUnitEntry, error) {
	key := id.PartitionKey()
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrPersistence, key, err)
	}
	return s.decode(key, raw, ok)
}

// Save overwrites the partition with entries, whatever it held before.
func (s *Store) Save(ctx context.Context, id identity.Identity, entries []domain.CartUnitEntry) error {
	key := id.PartitionKey()
	payload, err := encode(entries)
	if err != nil {
		return err
	}
	err = s.kv.Update(ctx, key, func([]byte, bool) ([]byte, error) {
		return payload, nil
	})
	if err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrPersistence, key, err)
	}
	return nil
}

func (s *Store) AppendUnits(ctx context.Context, id identity.Identity, units []domain.CartUnitEntry) error {
	return s.mutate(ctx, id, func(entries []domain.CartUnitEntry) ([]domain.CartUnitEntry, error) {
		return append(entries, units...), nil
	})
}

// RemoveOneByID drops the first unit of productID. Removing from a partition
// that holds none is a no-op reported as false.
func (s *Store) RemoveOneByID(ctx context.Context, id identity.Identity, productID string) (bool, error) {
	var removed bool
	err := s.mutate(ctx, id, func(entries []domain.CartUnitEntry) ([]domain.CartUnitEntry, error) {
		var out []domain.CartUnitEntry
		out, removed = domain.RemoveFirst(entries, productID)
		return out, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// RemoveAllByID drops every unit of productID and returns how many there were.
func (s *Store) RemoveAllByID(ctx context.Context, id identity.Identity, productID string) (int, error) {
	var n int
	err := s.mutate(ctx, id, func(entries []domain.CartUnitEntry) ([]domain.CartUnitEntry, error) {
		var out []domain.CartUnitEntry
		out, n = domain.RemoveAll(entries, productID)
		return out, nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Count(ctx context.Context, id identity.Identity, productID string) (int, error) {
	entries, err := s.Load(ctx, id)
	if err != nil {
		return 0, err
	}
	return domain.Count(entries, productID), nil
}

func (s *Store) mutate(ctx context.Context, id identity.Identity, fn func([]domain.CartUnitEntry) ([]domain.CartUnitEntry, error)) error {
	key := id.PartitionKey()

	var fnErr error
	err := s.kv.Update(ctx, key, func(cur []byte, ok bool) ([]byte, error) {
		entries, err := s.decode(key, cur, ok)
		if err != nil {
			fnErr = err
			return nil, err
		}
		next, err := fn(entries)
		if err != nil {
			fnErr = err
			return nil, err
		}
		payload, err := encode(next)
		if err != nil {
			fnErr = err
			return nil, err
		}
		return payload, nil
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	return fmt.Errorf("%w: update %s: %w", ErrPersistence, key, err)
}

func (s *Store) decode(key string, raw []byte, ok bool) ([]domain.CartUnitEntry, error) {
	raw = bytes.TrimSpace(raw)
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []domain.CartUnitEntry{}, nil
	}

	var entries []domain.CartUnitEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		if s.policy == TreatAsEmpty {
			s.log.Warn("malformed cart partition read as empty",
				slog.String("key", key), slog.Any("err", err))
			return []domain.CartUnitEntry{}, nil
		}
		return nil, &ParseError{Key: key, Err: err}
	}
	if entries == nil {
		entries = []domain.CartUnitEntry{}
	}
	return entries, nil
}

func encode(entries []domain.CartUnitEntry) ([]byte, error) {
	if entries == nil {
		entries = []domain.CartUnitEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode cart partition: %w", err)
	}
	return b, nil
}
