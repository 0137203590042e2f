package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/evn/shiftbot/config"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/response"
)

const groupContextKey contextKey = "group"

// GetGroupFromContext возвращает группу, проверенную RequireGroupAdmin.
func GetGroupFromContext(ctx context.Context) (config.GroupConfig, bool) {
	g, ok := ctx.Value(groupContextKey).(config.GroupConfig)
	return g, ok
}

// GroupAuthorizer — проверка прав администратора группы.
type GroupAuthorizer interface {
	RequireAdmin(groupID int64, handle string) (config.GroupConfig, error)
}

// RequireGroupAdmin пропускает запрос к /groups/{groupID}/... только
// администратору этой группы. Отказ не раскрывает, существует ли группа.
func RequireGroupAdmin(authz GroupAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipalFromContext(r.Context())
			if !ok {
				response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
			if err != nil {
				response.RespondWithError(w, http.StatusBadRequest, "Invalid group id")
				return
			}

			g, err := authz.RequireAdmin(groupID, p.Username)
			if err != nil {
				log.Printf("api: ⚠️ @%s denied access to group %d: %v", p.Username, groupID, err)
				response.RespondWithDomainError(w, models.ErrAccessDenied)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), groupContextKey, g)))
		})
	}
}
