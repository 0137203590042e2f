package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const loginMaxAge = 24 * time.Hour

// TelegramAuthService проверяет данные виджета входа через Telegram.
type TelegramAuthService struct {
	botToken string
	now      func() time.Time
}

func NewTelegramAuthService(botToken string) *TelegramAuthService {
	return &TelegramAuthService{botToken: botToken, now: time.Now}
}

// ValidateAndExtract проверяет обязательные поля, срок и подпись данных.
func (s *TelegramAuthService) ValidateAndExtract(data map[string]string) (map[string]string, error) {
	for _, field := range []string{"id", "auth_date", "hash"} {
		if data[field] == "" {
			return nil, fmt.Errorf("missing required field: %s", field)
		}
	}

	authDate, err := strconv.ParseInt(data["auth_date"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid auth_date format: %w", err)
	}
	if s.now().Sub(time.Unix(authDate, 0)) > loginMaxAge {
		return nil, fmt.Errorf("data expired (older than 24 hours)")
	}

	if !hmac.Equal([]byte(s.Sign(data)), []byte(data["hash"])) {
		return nil, fmt.Errorf("hash validation failed")
	}
	return data, nil
}

// Sign считает hash по правилам Telegram: непустые поля кроме hash,
// отсортированные и склеенные через \n, HMAC-SHA256 с ключом sha256(token).
func (s *TelegramAuthService) Sign(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k, v := range data {
		if k != "hash" && v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+data[k])
	}

	secretKey := sha256.Sum256([]byte(s.botToken))
	h := hmac.New(sha256.New, secretKey[:])
	h.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}
