package admin

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/evn/shiftbot/internal/middleware"
	"github.com/evn/shiftbot/internal/pkg/response"
)

type scheduleRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// EditShift меняет плановое время смены. Отработанное время сбрасывается.
func (h *ShiftHandler) EditShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftID(r)
	if !ok {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid shift id")
		return
	}
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s, err := h.app.Shifts.EditSchedule(r.Context(), group(r).ID, id, req.Start, req.End)
	if err != nil {
		response.RespondWithDomainError(w, err)
		return
	}
	logAction(r, "edited", s)
	response.RespondWithJSON(w, http.StatusOK, s)
}

// DeleteShift физически удаляет смену. Доступно только при одной группе.
func (h *ShiftHandler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	if !h.app.AllowDelete() {
		response.RespondWithError(w, http.StatusForbidden, "Deleting shifts is disabled")
		return
	}
	id, ok := shiftID(r)
	if !ok {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid shift id")
		return
	}
	g := group(r)
	if err := h.app.Shifts.Delete(r.Context(), g.ID, id); err != nil {
		response.RespondWithDomainError(w, err)
		return
	}
	p, _ := middleware.GetPrincipalFromContext(r.Context())
	log.Printf("api: @%s deleted shift #%d in group %d", p.Username, id, g.ID)
	w.WriteHeader(http.StatusNoContent)
}
