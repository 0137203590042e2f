package models

// TelegramAuthData — данные виджета входа через Telegram.
type TelegramAuthData struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  string `json:"auth_date"`
	Hash      string `json:"hash"`
}

// ToMap собирает поля в вид, пригодный для проверки подписи.
func (d TelegramAuthData) ToMap() map[string]string {
	return map[string]string{
		"id":         d.ID,
		"first_name": d.FirstName,
		"last_name":  d.LastName,
		"username":   d.Username,
		"photo_url":  d.PhotoURL,
		"auth_date":  d.AuthDate,
		"hash":       d.Hash,
	}
}

type AuthResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}
