package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseGroups(t *testing.T) {
	data := []byte(`[
		{"id": -1001, "timezone": "Asia/Yekaterinburg", "admins": ["@boss"], "spreadsheet_id": "sheet-a"},
		{"id": -1002, "timezone": "Europe/Moscow", "admins": ["chief", "deputy"]}
	]`)
	g, err := ParseGroups(data, "default-sheet")
	if err != nil {
		t.Fatal(err)
	}
	if g.Len() != 2 {
		t.Fatalf("len = %d", g.Len())
	}
	a, ok := g.Lookup(-1001)
	if !ok || a.SpreadsheetID != "sheet-a" || a.Location.String() != "Asia/Yekaterinburg" {
		t.Errorf("group a = %+v", a)
	}
	b, _ := g.Lookup(-1002)
	if b.SpreadsheetID != "default-sheet" {
		t.Errorf("default spreadsheet not applied: %q", b.SpreadsheetID)
	}
	if _, ok := g.Lookup(42); ok {
		t.Errorf("unknown group found")
	}

	now := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	if d := a.Today(now).Format("2006-01-02"); d != "2024-06-02" {
		t.Errorf("UTC+5 date at 20:00 UTC = %s", d)
	}
}

func TestParseGroupsRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":        `[]`,
		"zero id":      `[{"id": 0, "timezone": "UTC", "admins": ["a"]}]`,
		"duplicate":    `[{"id": 1, "timezone": "UTC", "admins": ["a"]}, {"id": 1, "timezone": "UTC", "admins": ["b"]}]`,
		"bad timezone": `[{"id": 1, "timezone": "Mars/Olympus", "admins": ["a"]}]`,
		"no timezone":  `[{"id": 1, "admins": ["a"]}]`,
		"no admins":    `[{"id": 1, "timezone": "UTC", "admins": []}]`,
		"not json":     `{`,
	}
	for name, data := range cases {
		_, err := ParseGroups([]byte(data), "")
		var sce *StartupConfigError
		if !errors.As(err, &sce) {
			t.Errorf("%s: expected StartupConfigError, got %v", name, err)
		}
	}
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestNewConfigFromGroupsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "groups.json")
	os.WriteFile(path, []byte(`[{"id": -5, "timezone": "UTC", "admins": ["boss"]}]`), 0o600)

	setEnv(t, map[string]string{
		"TELEGRAM_BOT_TOKEN":  "token",
		"JWT_SECRET":          "secret",
		"GROUPS_FILE":         path,
		"MIRROR_TIMEOUT":      "3s",
		"CANCELED_FREES_SLOT": "true",
	})
	cfg, err := NewConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseDriver != "sqlite" || cfg.ServerPort != "6066" || cfg.AutoCompleteTime != "23:55" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.MirrorTimeout != 3*time.Second || !cfg.CanceledFreesSlot {
		t.Errorf("env not applied: timeout=%s freesSlot=%v", cfg.MirrorTimeout, cfg.CanceledFreesSlot)
	}
	if _, ok := cfg.Groups.Lookup(-5); !ok {
		t.Errorf("group -5 not loaded")
	}
}

func TestNewConfigSingleGroupFromEnv(t *testing.T) {
	setEnv(t, map[string]string{
		"TELEGRAM_BOT_TOKEN": "token",
		"JWT_SECRET":         "secret",
		"GROUPS_FILE":        filepath.Join(t.TempDir(), "missing.json"),
		"GROUP_ID":           "-77",
		"GROUP_TIMEZONE":     "Europe/Moscow",
		"GROUP_ADMINS":       "@boss, chief",
	})
	cfg, err := NewConfig()
	if err != nil {
		t.Fatal(err)
	}
	g, ok := cfg.Groups.Lookup(-77)
	if !ok || len(g.Admins) != 2 || g.Admins[1] != "chief" {
		t.Errorf("group = %+v", g)
	}
}

func TestNewConfigStartupErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "groups.json")
	os.WriteFile(path, []byte(`[{"id": -5, "timezone": "UTC", "admins": ["boss"]}]`), 0o600)

	setEnv(t, map[string]string{
		"TELEGRAM_BOT_TOKEN": "",
		"JWT_SECRET":         "",
		"GROUPS_FILE":        path,
		"ABSENCE_TIME":       "25:00",
		"DATABASE_DRIVER":    "mysql",
	})
	_, err := NewConfig()
	var sce *StartupConfigError
	if !errors.As(err, &sce) {
		t.Fatalf("expected StartupConfigError, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"TELEGRAM_BOT_TOKEN", "JWT_SECRET", "ABSENCE_TIME", "DATABASE_DRIVER"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}
