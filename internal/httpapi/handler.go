// Package httpapi serves the small HTTP surface of goalbot: completing chat
// verification on behalf of an account, and a health check.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/edgard/goalbot/internal/database"
	"github.com/edgard/goalbot/internal/logger"
)

// Verifier completes a chat verification for a user.
type Verifier interface {
	Complete(ctx context.Context, userID int64, code string) (*database.ChatSession, error)
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps provides dependencies for the HTTP handlers.
type Deps struct {
	Logger   *slog.Logger
	APIToken string
	Verifier Verifier
	Store    Pinger
}

// Handler holds the route handlers.
type Handler struct {
	deps     Deps
	log      *slog.Logger
	validate *validator.Validate
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		deps:     deps,
		log:      log.With("component", "httpapi"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// NewRouter builds the chi router with middleware and all routes.
func NewRouter(deps Deps) http.Handler {
	h := NewHandler(deps)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(logger.Middleware(h.log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the health check and the bot routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Route("/bot", func(r chi.Router) {
		r.Use(h.requireToken)
		r.Post("/verify", h.Verify)
	})
}

// requireToken checks the Authorization: Bearer header against the API token.
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || h.deps.APIToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(h.deps.APIToken)) != 1 {
			Error(w, http.StatusUnauthorized, "invalid or missing API token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
