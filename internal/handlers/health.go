package handlers

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/evn/shiftbot/internal/pkg/response"
)

// HealthHandler проверяет соединение с базой.
func HealthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			log.Printf("health: database ping failed: %v", err)
			response.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
