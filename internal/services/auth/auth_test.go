package auth

import (
	"strconv"
	"testing"
	"time"
)

func TestIsAdmin(t *testing.T) {
	admins := []string{"@Boss", "manager"}
	cases := []struct {
		handle string
		want   bool
	}{
		{"boss", true},
		{"@BOSS", true},
		{" @manager ", true},
		{"Manager", true},
		{"worker", false},
		{"", false},
		{"@", false},
	}
	for _, tc := range cases {
		if got := IsAdmin(tc.handle, admins); got != tc.want {
			t.Errorf("IsAdmin(%q) = %v, want %v", tc.handle, got, tc.want)
		}
	}
	if IsAdmin("boss", nil) {
		t.Errorf("empty allow-list must deny everyone")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	s := NewJWTService("secret")
	token, err := s.GenerateToken(42, "@Boss")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := s.ParseToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims["user_id"] != "42" || claims["username"] != "boss" {
		t.Errorf("claims = %v", claims)
	}

	if _, err := NewJWTService("other").ParseToken(token); err == nil {
		t.Errorf("token signed with another key must be rejected")
	}

	expired := NewJWTService("secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * TokenTTL) }
	old, _ := expired.GenerateToken(42, "boss")
	if _, err := s.ParseToken(old); err == nil {
		t.Errorf("expired token must be rejected")
	}
}

func TestTelegramLogin(t *testing.T) {
	s := NewTelegramAuthService("123:abc")
	data := map[string]string{
		"id":         "42",
		"first_name": "Ivan",
		"username":   "ivan",
		"auth_date":  strconv.FormatInt(time.Now().Unix(), 10),
	}
	data["hash"] = s.Sign(data)

	if _, err := s.ValidateAndExtract(data); err != nil {
		t.Fatalf("valid data rejected: %v", err)
	}

	tampered := map[string]string{}
	for k, v := range data {
		tampered[k] = v
	}
	tampered["username"] = "boss"
	if _, err := s.ValidateAndExtract(tampered); err == nil {
		t.Errorf("tampered data accepted")
	}

	stale := map[string]string{"id": "42", "auth_date": strconv.FormatInt(time.Now().Add(-48*time.Hour).Unix(), 10)}
	stale["hash"] = s.Sign(stale)
	if _, err := s.ValidateAndExtract(stale); err == nil {
		t.Errorf("stale data accepted")
	}

	if _, err := s.ValidateAndExtract(map[string]string{"id": "42"}); err == nil {
		t.Errorf("missing hash accepted")
	}
}
