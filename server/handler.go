package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewHandler creates the HTTP handler with all routes.
func NewHandler(hub *Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// One-shot commands for clients that do not hold a socket. Room
	// commands are refused; apply_steps still reaches room members.
	mux.HandleFunc("POST /api/commands", func(w http.ResponseWriter, r *http.Request) {
		var cmd Command
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMsgSize)).Decode(&cmd); err != nil {
			http.Error(w, "invalid command", http.StatusBadRequest)
			return
		}
		resp := hub.Execute(r.Context(), nil, cmd)
		w.Header().Set("Content-Type", "application/json")
		if !resp.OK {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		w.Write(resp.Encode())
	})

	// WebSocket endpoint.
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade error", "error", err)
			return
		}
		client := newClient(hub, conn)
		go client.WritePump()
		go client.ReadPump()
	})

	return mux
}
