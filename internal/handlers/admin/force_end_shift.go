package admin

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/evn/shiftbot/internal/middleware"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/response"
)

type completeRequest struct {
	// ActualEnd — фактическое окончание "HH:MM"; пусто — по плану.
	ActualEnd string `json:"actual_end"`
}

// CompleteShift завершает смену. Тело запроса необязательно.
func (h *ShiftHandler) CompleteShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftID(r)
	if !ok {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid shift id")
		return
	}
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	trigger := models.TriggerAdminConfirm
	if req.ActualEnd != "" {
		trigger = models.TriggerAdminActualTime
	}
	s, err := h.app.Shifts.Complete(r.Context(), group(r).ID, id, req.ActualEnd, trigger)
	if err != nil {
		response.RespondWithDomainError(w, err)
		return
	}
	logAction(r, "completed", s)
	response.RespondWithJSON(w, http.StatusOK, s)
}

func (h *ShiftHandler) CancelShift(w http.ResponseWriter, r *http.Request) {
	id, ok := shiftID(r)
	if !ok {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid shift id")
		return
	}
	s, err := h.app.Shifts.Cancel(r.Context(), group(r).ID, id, models.TriggerAdminConfirm)
	if err != nil {
		response.RespondWithDomainError(w, err)
		return
	}
	logAction(r, "canceled", s)
	response.RespondWithJSON(w, http.StatusOK, s)
}

func logAction(r *http.Request, action string, s *models.Shift) {
	p, _ := middleware.GetPrincipalFromContext(r.Context())
	log.Printf("api: @%s %s shift #%d in group %d", p.Username, action, s.ID, s.GroupID)
}
