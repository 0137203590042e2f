// Package handlers — общие HTTP-обработчики: сотрудники, история смен,
// лента событий и проверка состояния.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/evn/shiftbot/internal/middleware"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/response"
)

// ShiftReader — чтение смен группы.
type ShiftReader interface {
	FindByUser(ctx context.Context, groupID, userID int64) ([]models.Shift, error)
	FindByUsername(ctx context.Context, groupID int64, username string) ([]models.Shift, error)
	FindBetween(ctx context.Context, groupID int64, from, to string) ([]models.Shift, error)
	FindAll(ctx context.Context, groupID int64) ([]models.Shift, error)
	ListEmployees(ctx context.Context, groupID int64) ([]models.Employee, error)
}

func respondShifts(w http.ResponseWriter, shifts []models.Shift, err error) {
	if err != nil {
		response.RespondWithDomainError(w, err)
		return
	}
	if shifts == nil {
		shifts = []models.Shift{}
	}
	response.RespondWithJSON(w, http.StatusOK, shifts)
}

// GetUserShiftsHandler возвращает все смены сотрудника группы, новые первыми.
func GetUserShiftsHandler(repo ShiftReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid user id")
			return
		}
		g, _ := middleware.GetGroupFromContext(r.Context())
		shifts, err := repo.FindByUser(r.Context(), g.ID, userID)
		respondShifts(w, shifts, err)
	}
}
