package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/evn/shiftbot/internal/middleware"
	"github.com/evn/shiftbot/internal/services/live"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler подписывает администратора на события смен его группы.
func WebSocketHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := middleware.GetPrincipalFromContext(r.Context())
		if !ok {
			http.Error(w, "invalid user", http.StatusUnauthorized)
			return
		}
		g, _ := middleware.GetGroupFromContext(r.Context())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("live: upgrade error: %v", err)
			return
		}

		client := live.NewClient(conn, g.ID, p.UserID)
		hub.Register(client)

		go hub.ReadPump(client)
		go hub.WritePump(client)
	}
}
