package admin

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/response"
	"github.com/evn/shiftbot/internal/services/mirror"
)

type reportRow struct {
	UserID       int64             `json:"user_id"`
	Name         string            `json:"name"`
	Handle       string            `json:"handle"`
	Days         map[string]string `json:"days"`
	TotalMinutes int               `json:"total_minutes"`
}

type reportResponse struct {
	Period       string      `json:"period"`
	From         string      `json:"from"`
	To           string      `json:"to"`
	Rows         []reportRow `json:"rows"`
	TotalMinutes int         `json:"total_minutes"`
	Synced       bool        `json:"synced"`
}

// toResponse раскладывает ячейки отчёта по датам окна (YYYY-MM-DD).
func toResponse(r *mirror.Report) reportResponse {
	from, _ := time.Parse(models.DateLayout, r.From)
	out := reportResponse{
		Period:       r.Period.String(),
		From:         r.From,
		To:           r.To,
		Rows:         make([]reportRow, 0, len(r.Rows)),
		TotalMinutes: r.TotalMinutes(),
		Synced:       r.Synced,
	}
	for _, row := range r.Rows {
		rr := reportRow{UserID: row.UserID, Name: row.Name, Handle: row.Handle, Days: map[string]string{}, TotalMinutes: row.TotalMinutes}
		for i, cell := range row.Cells {
			if cell != "" {
				rr.Days[from.AddDate(0, 0, i).Format(models.DateLayout)] = cell
			}
		}
		out.Rows = append(out.Rows, rr)
	}
	return out
}

func period(w http.ResponseWriter, r *http.Request) (mirror.Period, bool) {
	p, err := mirror.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid period, expected week, prev, next or month")
		return 0, false
	}
	return p, true
}

// GetReport считает отчёт без записи в таблицу.
func (h *ShiftHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}
	g := group(r)
	rep, err := h.app.Mirror.BuildReport(r.Context(), g.ID, p, h.app.LocalNow(g))
	if err != nil {
		response.RespondWithDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, toResponse(rep))
}

// RebuildReport пересобирает лист отчёта в таблице.
func (h *ShiftHandler) RebuildReport(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}
	g := group(r)
	rep, err := h.app.Mirror.RebuildReport(r.Context(), g.ID, p, h.app.LocalNow(g))
	if err != nil {
		response.RespondWithDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, toResponse(rep))
}

func (h *ShiftHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}
	g := group(r)
	rep, err := h.app.Mirror.BuildReport(r.Context(), g.ID, p, h.app.LocalNow(g))
	if err != nil {
		response.RespondWithDomainError(w, err)
		return
	}
	data, err := mirror.ExportReportXLSX(rep)
	if err != nil {
		log.Printf("api: xlsx export for group %d failed: %v", g.ID, err)
		response.RespondWithError(w, http.StatusInternalServerError, "Failed to build xlsx")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%s_%s.xlsx"`, rep.From, rep.To))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
