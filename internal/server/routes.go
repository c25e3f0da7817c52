package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/stefankoanton994-hub/dating-video-chat/internal/app"
	"github.com/stefankoanton994-hub/dating-video-chat/internal/metrics"
	"github.com/stefankoanton994-hub/dating-video-chat/internal/signaling"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024, // 64 KB
	WriteBufferSize: 64 * 1024, // 64 KB

	// Browsers do not send CORS preflights for websocket upgrades, so
	// the origin check lives here rather than in the CORS middleware.
	// Allow all; tighten via a reverse proxy when fronting the public
	// internet.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// healthCheckHandler reports process liveness.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

// ServeWs returns an http.HandlerFunc that upgrades the request and
// starts the connection's read and write pumps. Each upgraded
// connection gets a fresh connection id for its whole lifetime.
func ServeWs(log *slog.Logger, hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("websocket upgrade failed", "err", err)
			return
		}

		client := signaling.NewClient(hub, conn)
		hub.Connect(client)

		go client.WritePump()
		go client.ReadPump()
	}
}

// NewRouter wires up all HTTP routes and middleware.
func NewRouter(cfg app.Config, log *slog.Logger, hub *signaling.Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthCheckHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", ServeWs(log, hub))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllow,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(mux)
}
