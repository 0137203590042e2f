package routes

import (
	"net/http"
	"time"
)

// tokenFromQuery читает JWT из ?token=, браузер не передаёт заголовки при
// открытии websocket.
func tokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}

// NewServer возвращает HTTP-сервер API с таймаутами. WriteTimeout не задан:
// websocket-соединения живут долго.
func NewServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
