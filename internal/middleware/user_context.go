package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/jwtauth/v5"

	"github.com/evn/shiftbot/internal/services/auth"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal — владелец токена API.
type Principal struct {
	UserID   int64
	Username string
}

// GetPrincipalFromContext возвращает владельца токена, положенного AddPrincipalToContext.
func GetPrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// AddPrincipalToContext извлекает user_id и username из JWT и кладёт в контекст.
func AddPrincipalToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, _ := jwtauth.FromContext(r.Context())
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}

			var p Principal
			switch v := claims["user_id"].(type) {
			case float64:
				p.UserID = int64(v)
			case string:
				if id, err := strconv.ParseInt(v, 10, 64); err == nil {
					p.UserID = id
				}
			}
			if name, ok := claims["username"].(string); ok {
				p.Username = auth.NormalizeHandle(name)
			}

			if p.UserID != 0 && p.Username != "" {
				r = r.WithContext(context.WithValue(r.Context(), principalContextKey, p))
			}
			next.ServeHTTP(w, r)
		})
	}
}
