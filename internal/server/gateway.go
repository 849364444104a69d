package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"tcpchat/internal/configs"
	"tcpchat/internal/pkg/logx"
)

// Gateway builds the HTTP handler that lets WebSocket peers join the same chat as TCP
// peers. Each binary WebSocket message carries protocol frames; the connection is then
// served by the regular Handler.
//
//	GET /health  registry status as JSON
//	GET /ws      WebSocket upgrade
func Gateway(s *Server, cfg *configs.AppConfig) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range cfg.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if cfg.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(cfg.AllowedOrigins) > 0 {
		corsAllowedOrigins = cfg.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"users":  s.Registry().Len(),
		}); err != nil {
			logx.Error(err, "Failed to write health response")
		}
	})

	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		s.ServeConn(newWSConn(conn))
	})

	return r
}
