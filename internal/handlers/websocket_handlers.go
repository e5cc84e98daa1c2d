package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type WebSocketHandler struct {
	logger *slog.Logger
	feed   *Feed
}

func NewWebSocketHandler(logger *slog.Logger, feed *Feed) *WebSocketHandler {
	return &WebSocketHandler{
		logger: logger,
		feed:   feed,
	}
}

func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/feed", h.HandleConnection)
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.feed.Upgrade(w, r)
	if err != nil {
		h.logger.Error("Error upgrading connection", "error", err)
		return
	}

	h.logger.Info("New admin feed connection", "remote", r.RemoteAddr)
	h.feed.Subscribe(conn)

	// Keep the connection open until the client goes away; the feed pushes,
	// the client never sends.
	for {
		if _, _, readErr := conn.ReadMessage(); readErr != nil {
			h.logger.Info("Admin feed connection closed", "remote", r.RemoteAddr, "error", readErr)
			h.feed.Unsubscribe(conn)
			conn.Close()
			break
		}
	}
}
