package firebase

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/dwikikusuma/cartline/internal/identity/app"
)

var ErrNoCookie = errors.New("no session cookie")

type cookieKey struct{}

// WithCookie attaches the raw "session" cookie value to ctx.
func WithCookie(ctx context.Context, cookie string) context.Context {
	return context.WithValue(ctx, cookieKey{}, cookie)
}

func CookieFromContext(ctx context.Context) string {
	c, _ := ctx.Value(cookieKey{}).(string)
	return c
}

type cookieVerifier interface {
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*fbauth.Token, error)
}

// Checker resolves sessions from Firebase session cookies.
type Checker struct {
	verifier cookieVerifier
}

// NewChecker builds a Firebase Admin client. An empty credentialsFile falls
// back to application default credentials.
func NewChecker(ctx context.Context, credentialsFile string) (*Checker, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	fb, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := fb.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &Checker{verifier: client}, nil
}

func (c *Checker) CheckSession(ctx context.Context) (app.Session, error) {
	cookie := CookieFromContext(ctx)
	if cookie == "" {
		return app.Session{}, ErrNoCookie
	}

	token, err := c.verifier.VerifySessionCookie(ctx, cookie)
	if err != nil {
		return app.Session{}, fmt.Errorf("verify session cookie: %w", err)
	}
	return sessionFromClaims(token.Claims), nil
}

func sessionFromClaims(claims map[string]interface{}) app.Session {
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return app.Session{Email: email, DisplayName: name}
}
