package handlers

import (
	"net/http"
	"time"

	"github.com/evn/shiftbot/internal/middleware"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/response"
)

// GetShiftHistoryHandler ищет смены по ?username= или по диапазону ?from=&to=
// (YYYY-MM-DD, включительно). Без параметров возвращает всю историю группы.
func GetShiftHistoryHandler(repo ShiftReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, _ := middleware.GetGroupFromContext(r.Context())
		q := r.URL.Query()

		if username := q.Get("username"); username != "" {
			shifts, err := repo.FindByUsername(r.Context(), g.ID, username)
			respondShifts(w, shifts, err)
			return
		}

		from, to := q.Get("from"), q.Get("to")
		if from == "" && to == "" {
			shifts, err := repo.FindAll(r.Context(), g.ID)
			respondShifts(w, shifts, err)
			return
		}
		if !validDate(from) || !validDate(to) || to < from {
			response.RespondWithError(w, http.StatusBadRequest, "Expected username or from/to dates in YYYY-MM-DD")
			return
		}
		shifts, err := repo.FindBetween(r.Context(), g.ID, from, to)
		respondShifts(w, shifts, err)
	}
}

func validDate(s string) bool {
	_, err := time.Parse(models.DateLayout, s)
	return err == nil
}
