package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	lineapp "github.com/dwikikusuma/cartline/internal/cartline/app"
	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
	summary "github.com/dwikikusuma/cartline/internal/summary/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

type Accounts interface {
	Resolve(ctx context.Context) (identity.Identity, error)
	Reauthenticate(ctx context.Context, password string) (string, error)
}

type Summaries interface {
	FromAggregate(id identity.Identity) summary.Quote
	FromCart(ctx context.Context, id identity.Identity) (summary.Quote, error)
}

type Handler struct {
	lines    *lineapp.Registry
	summary  Summaries
	accounts Accounts
	log      *slog.Logger
}

func NewHandler(lines *lineapp.Registry, summaries Summaries, accounts Accounts, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		lines:    lines,
		summary:  summaries,
		accounts: accounts,
		log:      log,
	}
}

// Router builds the HTTP surface for line items, summaries and account checks.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.log))
	r.Use(Credentials)

	r.Route("/lines", func(r chi.Router) {
		r.Post("/", h.mountLine)
		r.Get("/", h.listLines)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getLine)
			r.Post("/increase", h.increase)
			r.Post("/decrease", h.decrease)
			r.Delete("/", h.removeLine)
		})
	})

	r.Get("/summary", h.aggregateSummary)
	r.Get("/cart", h.cartSummary)
	r.Post("/account/verify-password", h.verifyPassword)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

type mountRequest struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type lineResponse struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	State    string          `json:"state"`
}

type quantityResponse struct {
	Quantity int `json:"quantity"`
}

type removeResponse struct {
	Removed   int  `json:"removed"`
	Confirmed bool `json:"confirmed"`
	Retracted bool `json:"retracted"`
}

type quoteLineResponse struct {
	ProductID string          `json:"product_id,omitempty"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type quoteResponse struct {
	Lines         []quoteLineResponse `json:"lines"`
	TotalQuantity int                 `json:"total_quantity"`
	Total         decimal.Decimal     `json:"total"`
}

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

type verifyPasswordResponse struct {
	Verified bool   `json:"verified"`
	Token    string `json:"token"`
}

// owner resolves the account a request acts for. Lines and the aggregate are
// looked up under it, so it runs before any registry access.
func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, err := h.accounts.Resolve(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return identity.Identity{}, false
	}
	return id, true
}

func (h *Handler) mountLine(w http.ResponseWriter, r *http.Request) {
	var req mountRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	c, err := h.lines.Mount(r.Context(), owner, lineapp.Props{
		ID:       req.ID,
		Title:    req.Title,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLineResponse(lineapp.View(c)))
}

func (h *Handler) listLines(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	views := h.lines.Lines(owner)
	out := make([]lineResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toLineResponse(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": out})
}

func (h *Handler) getLine(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	c, err := h.lines.Get(owner, chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineResponse(lineapp.View(c)))
}

func (h *Handler) increase(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*lineapp.Controller).Increase)
}

func (h *Handler) decrease(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*lineapp.Controller).Decrease)
}

func (h *Handler) step(w http.ResponseWriter, r *http.Request, op func(*lineapp.Controller, context.Context) (int, error)) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	c, err := h.lines.Get(owner, chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	qty, err := op(c, r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quantityResponse{Quantity: qty})
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	c, err := h.lines.Get(owner, id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	res, err := c.Remove(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.lines.Drop(owner, id)
	writeJSON(w, http.StatusOK, removeResponse{
		Removed:   res.Removed,
		Confirmed: res.Confirmed,
		Retracted: res.Retracted,
	})
}

func (h *Handler) aggregateSummary(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(h.summary.FromAggregate(owner)))
}

func (h *Handler) cartSummary(w http.ResponseWriter, r *http.Request) {
	id, err := h.accounts.Resolve(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	q, err := h.summary.FromCart(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

func (h *Handler) verifyPassword(w http.ResponseWriter, r *http.Request) {
	var req verifyPasswordRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}

	token, err := h.accounts.Reauthenticate(r.Context(), req.Password)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyPasswordResponse{Verified: true, Token: token})
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code, name, msg := httpStatusFromGRPC(mapErr(err))
	if code >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.String("code", name), slog.Any("err", err))
	}
	writeJSON(w, code, map[string]any{
		"error": map[string]string{"code": name, "message": msg},
	})
}

func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadRequest
		}
		return errors.Join(errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func toLineResponse(v lineapp.LineView) lineResponse {
	return lineResponse{
		ID:       v.ID,
		Title:    v.Title,
		Price:    v.Price,
		Quantity: v.Quantity,
		State:    v.State.String(),
	}
}

func toQuoteResponse(q summary.Quote) quoteResponse {
	lines := make([]quoteLineResponse, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, quoteLineResponse{
			ProductID: l.ProductID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		})
	}
	return quoteResponse{Lines: lines, TotalQuantity: q.TotalQuantity, Total: q.Total}
}
