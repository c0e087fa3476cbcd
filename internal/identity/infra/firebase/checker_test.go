package firebase

import (
	"context"
	"errors"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwikikusuma/cartline/internal/identity/app"
)

type fakeVerifier struct {
	claims map[string]interface{}
	err    error
	got    string
}

func (f *fakeVerifier) VerifySessionCookie(ctx context.Context, cookie string) (*fbauth.Token, error) {
	f.got = cookie
	if f.err != nil {
		return nil, f.err
	}
	return &fbauth.Token{UID: "uid-1", Claims: f.claims}, nil
}

func TestCheckSession(t *testing.T) {
	t.Run("missing cookie", func(t *testing.T) {
		c := &Checker{verifier: &fakeVerifier{}}
		_, err := c.CheckSession(context.Background())
		assert.ErrorIs(t, err, ErrNoCookie)
	})

	t.Run("claims carry the email", func(t *testing.T) {
		v := &fakeVerifier{claims: map[string]interface{}{"email": "fb@x.io", "name": "FB"}}
		c := &Checker{verifier: v}
		sess, err := c.CheckSession(WithCookie(context.Background(), "cookie-1"))
		require.NoError(t, err)
		assert.Equal(t, "cookie-1", v.got)
		assert.Equal(t, app.Session{Email: "fb@x.io", DisplayName: "FB"}, sess)
	})

	t.Run("revoked cookie", func(t *testing.T) {
		revoked := errors.New("session cookie revoked")
		c := &Checker{verifier: &fakeVerifier{err: revoked}}
		_, err := c.CheckSession(WithCookie(context.Background(), "cookie-1"))
		assert.ErrorIs(t, err, revoked)
	})

	t.Run("no email claim resolves to unavailable identity", func(t *testing.T) {
		c := &Checker{verifier: &fakeVerifier{claims: map[string]interface{}{"name": "anon"}}}
		r := app.NewResolver(c)
		_, err := r.Resolve(WithCookie(context.Background(), "cookie-1"))
		assert.ErrorIs(t, err, app.ErrIdentityUnavailable)
	})
}
