package internal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/chipcliff/internal/chat"
	"github.com/kazz187/chipcliff/internal/config"
	"github.com/kazz187/chipcliff/internal/dispatch"
	"github.com/kazz187/chipcliff/internal/llm"
	"github.com/kazz187/chipcliff/pkg/cerr"
	"github.com/kazz187/chipcliff/pkg/clog"
)

type Server struct {
	server     *http.Server
	env        *config.Env
	taskServer *dispatch.Server
	chatServer *chat.Server
	gateway    *llm.Gateway
}

func NewServer(
	env *config.Env,
	taskServer *dispatch.Server,
	chatServer *chat.Server,
	gateway *llm.Gateway,
) *Server {
	return &Server{
		env:        env,
		taskServer: taskServer,
		chatServer: chatServer,
		gateway:    gateway,
	}
}

// ListenAndServe starts the HTTP server. The provided context is used as the
// base context for all incoming requests via http.Server.BaseContext, so
// cancelling it on shutdown also cancels long-running handler work.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		s.taskServer.Routes(r)
		s.chatServer.Routes(r)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{gateway: s.gateway})
	mux.Handle("/api/", r)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct {
	gateway *llm.Gateway
}

// ServeHTTP reports liveness plus operability: a process with no configured
// providers still serves tasks but cannot chat or enhance queries, so it is
// reported as degraded rather than ok.
func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !hc.gateway.Operational() {
		status = "degraded"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"providers": len(hc.gateway.Providers()),
	})
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	if s.env.APIKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip API key check for the health endpoint.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
