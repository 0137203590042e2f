// internal/pkg/response/utils.go
package response

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/evn/shiftbot/internal/models"
)

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("response: marshal error: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// RespondWithDomainError переводит ошибки домена в HTTP-статусы.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	var (
		parseErr   *models.ParseError
		validErr   *models.ValidationError
		overlapErr *models.OverlapError
	)
	switch {
	case errors.As(err, &parseErr), errors.As(err, &validErr):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &overlapErr):
		RespondWithJSON(w, http.StatusConflict, map[string]string{
			"error":       "shift overlaps existing shift",
			"conflicting": overlapErr.Interval(),
		})
	case errors.Is(err, models.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, "Shift not found")
	case errors.Is(err, models.ErrAlreadyClosed):
		RespondWithError(w, http.StatusConflict, "Shift already closed")
	case errors.Is(err, models.ErrAccessDenied):
		RespondWithError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, models.ErrUnknownGroup):
		RespondWithError(w, http.StatusNotFound, "Unknown group")
	default:
		log.Printf("response: internal error: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
