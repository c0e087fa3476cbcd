package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dwikikusuma/cartline/internal/identity/domain"
	"golang.org/x/sync/singleflight"
)

var (
	ErrIdentityUnavailable = errors.New("identity unavailable")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNoVerifier          = errors.New("password verification not configured")
)

// Resolver turns the current session into an Identity. Nothing is cached:
// every call asks the session checker again, so a session change between two
// calls is always observed.
type Resolver struct {
	checker  SessionChecker
	verifier PasswordVerifier
	keyFn    func(ctx context.Context) string
	group    singleflight.Group
	timeout  time.Duration
	log      *slog.Logger
}

const defaultCheckTimeout = 10 * time.Second

type ResolverOption func(*Resolver)

// WithCoalescing merges simultaneous Resolve calls that share the key
// returned by fn into a single session check. An empty key disables merging
// for that call. Results are never reused once the shared call returns.
//
// A merged check does not belong to any one caller: it runs on a context
// detached from the callers' cancellation, bounded by the check timeout, and
// each caller stops waiting when its own context ends.
func WithCoalescing(fn func(ctx context.Context) string) ResolverOption {
	return func(r *Resolver) { r.keyFn = fn }
}

func WithPasswordVerifier(v PasswordVerifier) ResolverOption {
	return func(r *Resolver) { r.verifier = v }
}

// WithCheckTimeout bounds a merged session check. It defaults to 10s.
func WithCheckTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.log = log }
}

func NewResolver(checker SessionChecker, opts ...ResolverOption) *Resolver {
	r := &Resolver{checker: checker, timeout: defaultCheckTimeout, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(ctx context.Context) (domain.Identity, error) {
	var key string
	if r.keyFn != nil {
		key = r.keyFn(ctx)
	}
	if key == "" {
		return r.check(ctx)
	}

	ch := r.group.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.check(cctx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.log.Debug("session check coalesced")
		}
		if res.Err != nil {
			return domain.Identity{}, res.Err
		}
		return res.Val.(domain.Identity), nil
	case <-ctx.Done():
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrIdentityUnavailable, ctx.Err())
	}
}

func (r *Resolver) check(ctx context.Context) (domain.Identity, error) {
	sess, err := r.checker.CheckSession(ctx)
	if err != nil {
		r.log.Warn("session check failed", slog.Any("err", err))
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
	}

	id := domain.Identity{Email: strings.TrimSpace(sess.Email)}
	if id.IsZero() {
		r.log.Warn("session has no email")
		return domain.Identity{}, fmt.Errorf("%w: session has no email", ErrIdentityUnavailable)
	}
	return id, nil
}

// Reauthenticate confirms the current account's password and returns the
// fresh access token issued for it.
func (r *Resolver) Reauthenticate(ctx context.Context, password string) (string, error) {
	if r.verifier == nil {
		return "", ErrNoVerifier
	}
	if password == "" {
		return "", ErrInvalidInput
	}

	id, err := r.Resolve(ctx)
	if err != nil {
		return "", err
	}

	token, err := r.verifier.VerifyPassword(ctx, id.Email, password)
	if err != nil {
		r.log.Info("password re-verification rejected", slog.String("identity", id.Email))
		return "", err
	}
	return token, nil
}
