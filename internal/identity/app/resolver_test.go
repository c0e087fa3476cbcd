package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dwikikusuma/cartline/internal/identity/domain"
	"github.com/dwikikusuma/cartline/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeChecker struct {
	mu    sync.Mutex
	email string
	err   error
	calls atomic.Int32
}

func (f *fakeChecker) CheckSession(ctx context.Context) (Session, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Session{}, f.err
	}
	return Session{Email: f.email}, nil
}

func (f *fakeChecker) set(email string) {
	f.mu.Lock()
	f.email = email
	f.mu.Unlock()
}

// gatedChecker holds every session check until release is closed, or until
// the check's own context ends.
type gatedChecker struct {
	email   string
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newGatedChecker(email string) *gatedChecker {
	return &gatedChecker{
		email:   email,
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (g *gatedChecker) CheckSession(ctx context.Context) (Session, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	select {
	case <-g.release:
		return Session{Email: g.email}, nil
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
}

type fakeVerifier struct {
	gotEmail string
	token    string
	err      error
}

func (f *fakeVerifier) VerifyPassword(ctx context.Context, email, password string) (string, error) {
	f.gotEmail = email
	return f.token, f.err
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the session email", func(t *testing.T) {
		r := NewResolver(&fakeChecker{email: " a@b.c "}, WithLogger(logger.Discard()))
		id, err := r.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Identity{Email: "a@b.c"}, id)
		assert.Equal(t, "cart_a@b.c", id.PartitionKey())
	})

	t.Run("checker failure -> unavailable", func(t *testing.T) {
		boom := errors.New("network down")
		r := NewResolver(&fakeChecker{err: boom}, WithLogger(logger.Discard()))
		_, err := r.Resolve(ctx)
		assert.ErrorIs(t, err, ErrIdentityUnavailable)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty email -> unavailable", func(t *testing.T) {
		r := NewResolver(&fakeChecker{email: "  "}, WithLogger(logger.Discard()))
		_, err := r.Resolve(ctx)
		assert.ErrorIs(t, err, ErrIdentityUnavailable)
	})

	t.Run("no caching between calls", func(t *testing.T) {
		checker := &fakeChecker{email: "first@x"}
		r := NewResolver(checker, WithLogger(logger.Discard()))

		id, err := r.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "first@x", id.Email)

		checker.set("second@x")
		id, err = r.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "second@x", id.Email)
		assert.EqualValues(t, 2, checker.calls.Load())
	})
}

func TestResolveCoalesced(t *testing.T) {
	checker := &fakeChecker{email: "shared@x"}
	r := NewResolver(checker,
		WithLogger(logger.Discard()),
		WithCoalescing(func(ctx context.Context) string { return "token-1" }),
	)

	const N = 20
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < N; i++ {
		g.Go(func() error {
			id, err := r.Resolve(ctx)
			if err != nil {
				return err
			}
			if id.Email != "shared@x" {
				return errors.New("unexpected identity " + id.Email)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	calls := checker.calls.Load()
	assert.GreaterOrEqual(t, calls, int32(1))
	assert.LessOrEqual(t, calls, int32(N))

	// once the shared call is over, the next Resolve checks again
	before := checker.calls.Load()
	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before+1, checker.calls.Load())
}

func TestResolveCoalescedOutlivesCanceledCaller(t *testing.T) {
	checker := newGatedChecker("shared@x")
	r := NewResolver(checker,
		WithLogger(logger.Discard()),
		WithCoalescing(func(ctx context.Context) string { return "token-1" }),
	)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(firstCtx)
		firstErr <- err
	}()
	<-checker.started

	type result struct {
		id  domain.Identity
		err error
	}
	second := make(chan result, 1)
	go func() {
		id, err := r.Resolve(context.Background())
		second <- result{id, err}
	}()
	// let the second caller join the check already in flight
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	err := <-firstErr
	assert.ErrorIs(t, err, ErrIdentityUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	close(checker.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "shared@x", got.id.Email)
	assert.EqualValues(t, 1, checker.calls.Load())
}

func TestResolveCoalescedCheckTimeout(t *testing.T) {
	checker := newGatedChecker("slow@x")
	r := NewResolver(checker,
		WithLogger(logger.Discard()),
		WithCoalescing(func(ctx context.Context) string { return "token-1" }),
		WithCheckTimeout(20*time.Millisecond),
	)

	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrIdentityUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReauthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("without verifier", func(t *testing.T) {
		r := NewResolver(&fakeChecker{email: "a@b"}, WithLogger(logger.Discard()))
		_, err := r.Reauthenticate(ctx, "pw")
		assert.ErrorIs(t, err, ErrNoVerifier)
	})

	t.Run("empty password", func(t *testing.T) {
		r := NewResolver(&fakeChecker{email: "a@b"}, WithPasswordVerifier(&fakeVerifier{}), WithLogger(logger.Discard()))
		_, err := r.Reauthenticate(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("verifies the resolved email", func(t *testing.T) {
		v := &fakeVerifier{token: "tok"}
		r := NewResolver(&fakeChecker{email: "a@b"}, WithPasswordVerifier(v), WithLogger(logger.Discard()))
		token, err := r.Reauthenticate(ctx, "pw")
		require.NoError(t, err)
		assert.Equal(t, "tok", token)
		assert.Equal(t, "a@b", v.gotEmail)
	})

	t.Run("rejected password", func(t *testing.T) {
		v := &fakeVerifier{err: ErrInvalidCredentials}
		r := NewResolver(&fakeChecker{email: "a@b"}, WithPasswordVerifier(v), WithLogger(logger.Discard()))
		_, err := r.Reauthenticate(ctx, "bad")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
