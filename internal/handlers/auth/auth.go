// Package auth — вход администратора в HTTP API через виджет Telegram.
package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/evn/shiftbot/config"
	"github.com/evn/shiftbot/internal/models"
	"github.com/evn/shiftbot/internal/pkg/response"
	services "github.com/evn/shiftbot/internal/services/auth"
)

type AuthHandler struct {
	groups              *config.Groups
	jwtService          *services.JWTService
	telegramAuthService *services.TelegramAuthService
}

func NewAuthHandler(groups *config.Groups, jwtService *services.JWTService, tgService *services.TelegramAuthService) *AuthHandler {
	return &AuthHandler{
		groups:              groups,
		jwtService:          jwtService,
		telegramAuthService: tgService,
	}
}

type telegramAuthResponse struct {
	models.AuthResponse
	Groups []int64 `json:"groups"`
}

// TelegramAuthHandler выдаёт токен, если подпись виджета верна и пользователь
// администрирует хотя бы одну группу.
func (h *AuthHandler) TelegramAuthHandler(w http.ResponseWriter, r *http.Request) {
	var tgData models.TelegramAuthData
	if err := json.NewDecoder(r.Body).Decode(&tgData); err != nil {
		log.Printf("auth: failed to decode telegram auth body: %v", err)
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	validated, err := h.telegramAuthService.ValidateAndExtract(tgData.ToMap())
	if err != nil {
		log.Printf("auth: telegram auth validation failed: %v", err)
		response.RespondWithError(w, http.StatusUnauthorized, "Telegram auth failed: "+err.Error())
		return
	}

	tgID, err := strconv.ParseInt(validated["id"], 10, 64)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid Telegram ID format")
		return
	}
	username := services.NormalizeHandle(validated["username"])
	groups := h.groups.AdminGroups(services.IsAdmin, username)
	if username == "" || len(groups) == 0 {
		log.Printf("auth: ⚠️ telegram user %d (@%s) is not an admin of any group", tgID, username)
		response.RespondWithDomainError(w, models.ErrAccessDenied)
		return
	}

	token, err := h.jwtService.GenerateToken(tgID, username)
	if err != nil {
		log.Printf("auth: failed to generate token for %d: %v", tgID, err)
		response.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	ids := make([]int64, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	log.Printf("auth: ✅ token issued to @%s", username)
	response.RespondWithJSON(w, http.StatusOK, telegramAuthResponse{
		AuthResponse: models.AuthResponse{Token: token, UserID: tgID, Username: username},
		Groups:       ids,
	})
}
