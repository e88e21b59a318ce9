package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/quickex/quickex-backend/internal/config"
	"github.com/quickex/quickex-backend/internal/handlers"
	"github.com/quickex/quickex-backend/internal/supabase"
)

// RequestIDHeader carries the per-request identifier in both directions.
const RequestIDHeader = "X-Request-Id"

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// New creates a fully-configured chi router with all routes, middleware,
// and handlers wired together. The store handle is passed through to the
// handlers that will need it.
func New(cfg *config.Config, store *supabase.Client) http.Handler {
	r := chi.NewRouter()

	// ── Middleware ───────────────────────────────────────────
	// CORS answers preflights itself, so it sits after the request ID and
	// logger to keep those requests traceable.
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(cors.Handler(corsOptions(cfg.AllowedOrigins)))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// ── Handlers ────────────────────────────────────────────
	healthH := handlers.NewHealthHandler()
	usernamesH := handlers.NewUsernamesHandler(store)

	// ── Routes ──────────────────────────────────────────────
	r.Route("/health", healthH.Routes)
	r.Route("/username", usernamesH.Routes)

	return r
}

// corsOptions reflects any origin with credentials when no allow-list is
// configured.
func corsOptions(allowed []string) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(allowed) == 0 {
		opts.AllowOriginFunc = func(r *http.Request, origin string) bool { return true }
	} else {
		opts.AllowedOrigins = allowed
	}
	return opts
}

// requestID reuses a caller-supplied X-Request-Id or assigns a fresh UUID,
// and echoes it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext extracts the request ID set by the requestID middleware.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyRequestID).(string)
	return v
}

// requestLogger logs each HTTP request with method, path, status code,
// duration, and request ID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Printf("%s %s %d %s %s",
			r.Method,
			r.URL.Path,
			status,
			time.Since(start).Round(time.Millisecond),
			RequestIDFromContext(r.Context()),
		)
	})
}
