package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dwikikusuma/cartline/internal/identity/app"
)

var ErrNoToken = errors.New("no session token")

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx for CheckSession.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

type Config struct {
	BaseURL  string
	APIKey   string
	Username string
	Timeout  time.Duration
}

// Client talks to the storefront auth API. It implements both
// app.SessionChecker and app.PasswordVerifier.
type Client struct {
	baseURL  string
	apiKey   string
	username string
	http     *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		username: cfg.Username,
		http:     &http.Client{Timeout: timeout},
	}
}

type meResponse struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func (c *Client) CheckSession(ctx context.Context) (app.Session, error) {
	token := TokenFromContext(ctx)
	if token == "" {
		return app.Session{}, ErrNoToken
	}

	req, err := c.newRequest(ctx, "/auth/me", nil)
	if err != nil {
		return app.Session{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, status, err := c.do(req)
	if err != nil {
		return app.Session{}, err
	}
	if status != http.StatusOK {
		return app.Session{}, fmt.Errorf("auth/me: status %d: %s", status, messageOf(body))
	}

	var me meResponse
	if err := json.Unmarshal(body, &me); err != nil {
		return app.Session{}, fmt.Errorf("auth/me: decode: %w", err)
	}
	return app.Session{Email: me.Email, DisplayName: me.DisplayName}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

// VerifyPassword posts to /auth/login. The API answers a rejected login with a
// bare JSON string, which is surfaced as app.ErrInvalidCredentials.
func (c *Client) VerifyPassword(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, "/auth/login", payload)
	if err != nil {
		return "", err
	}

	body, status, err := c.do(req)
	if err != nil {
		return "", err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return "", fmt.Errorf("%w: %s", app.ErrInvalidCredentials, messageOf(trimmed))
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("auth/login: status %d: %s", status, messageOf(body))
	}

	var res loginResponse
	if err := json.Unmarshal(trimmed, &res); err != nil {
		return "", fmt.Errorf("auth/login: decode: %w", err)
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("%w: empty token", app.ErrInvalidCredentials)
	}
	return res.AccessToken, nil
}

func (c *Client) newRequest(ctx context.Context, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if c.username != "" {
		req.Header.Set("username", c.username)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func messageOf(body []byte) string {
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(body))
}
