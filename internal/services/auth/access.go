// Package auth — список администраторов групп, JWT для HTTP API и проверка
// подписи виджета входа Telegram.
package auth

import "strings"

// NormalizeHandle приводит @Username к виду "username".
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

// IsAdmin проверяет handle по статическому списку администраторов группы
// без учёта регистра и ведущего @.
func IsAdmin(handle string, allowlist []string) bool {
	h := NormalizeHandle(handle)
	if h == "" {
		return false
	}
	for _, a := range allowlist {
		if NormalizeHandle(a) == h {
			return true
		}
	}
	return false
}
