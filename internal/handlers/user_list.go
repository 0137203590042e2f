package handlers

import (
	"net/http"

	"github.com/evn/shiftbot/internal/middleware"
	"github.com/evn/shiftbot/internal/pkg/response"
)

type Employee struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Handle   string `json:"handle"`
}

// ListEmployeesHandler возвращает сотрудников, когда-либо записывавшихся в группе.
func ListEmployeesHandler(repo ShiftReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, _ := middleware.GetGroupFromContext(r.Context())
		list, err := repo.ListEmployees(r.Context(), g.ID)
		if err != nil {
			response.RespondWithDomainError(w, err)
			return
		}

		employees := make([]Employee, 0, len(list))
		for _, e := range list {
			employees = append(employees, Employee{
				UserID:   e.UserID,
				Username: e.Username,
				FullName: e.FullName,
				Handle:   e.Handle(),
			})
		}
		response.RespondWithJSON(w, http.StatusOK, employees)
	}
}
