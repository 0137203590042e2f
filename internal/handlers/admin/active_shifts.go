// Package admin — HTTP API администратора группы: просмотр и изменение смен, отчёты.
package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evn/shiftbot/config"
	"github.com/evn/shiftbot/internal/app"
	"github.com/evn/shiftbot/internal/middleware"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/response"
)

type ShiftHandler struct {
	app *app.App
}

func NewShiftHandler(a *app.App) *ShiftHandler {
	return &ShiftHandler{app: a}
}

func group(r *http.Request) config.GroupConfig {
	g, _ := middleware.GetGroupFromContext(r.Context())
	return g
}

func shiftID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "shiftID"), 10, 64)
	return id, err == nil && id > 0
}

// GetShiftsByDate возвращает смены группы за день (?date=YYYY-MM-DD,
// по умолчанию сегодня). ?status=active оставляет только активные.
func (h *ShiftHandler) GetShiftsByDate(w http.ResponseWriter, r *http.Request) {
	g := group(r)
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.app.Today(g)
	} else if _, err := time.Parse(models.DateLayout, date); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	var (
		shifts []models.Shift
		err    error
	)
	if r.URL.Query().Get("status") == string(models.StatusActive) {
		shifts, err = h.app.Repo.FindActiveByDate(r.Context(), g.ID, date)
	} else {
		shifts, err = h.app.Repo.FindByDate(r.Context(), g.ID, date)
	}
	if err != nil {
		response.RespondWithDomainError(w, err)
		return
	}
	if shifts == nil {
		shifts = []models.Shift{}
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"date":   date,
		"shifts": shifts,
	})
}

func (h *ShiftHandler) GetShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftID(r)
	if !ok {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid shift id")
		return
	}
	s, err := h.app.Repo.FindByID(r.Context(), group(r).ID, id)
	if err != nil {
		response.RespondWithDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, s)
}
