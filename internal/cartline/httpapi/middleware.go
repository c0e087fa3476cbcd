package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dwikikusuma/cartline/internal/identity/infra/firebase"
	"github.com/dwikikusuma/cartline/internal/identity/infra/session"
	"github.com/go-chi/chi/v5/middleware"
)

const sessionCookie = "session"

// Credentials copies the bearer token and the session cookie into the request
// context, where the configured session checker picks up the one it needs.
func Credentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
			ctx = session.WithToken(ctx, strings.TrimSpace(token))
		}
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			ctx = firebase.WithCookie(ctx, c.Value)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("took", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
