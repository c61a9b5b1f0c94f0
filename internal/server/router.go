package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crestbank/teller/internal/api"
	"github.com/crestbank/teller/internal/api/handlers"
	"github.com/crestbank/teller/internal/api/middleware"
)

type RouterConfig struct {
	ChatHandler *handlers.ChatHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/chat", cfg.ChatHandler.Chat)

	return r
}
