package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/evn/shiftbot/internal/pkg/timeutil"
)

// Config хранит все конфигурации приложения
type Config struct {
	TelegramBotToken string

	DatabaseDriver string
	DatabaseDSN    string

	// ServerPort — порт HTTP API. Пустое значение отключает API.
	ServerPort string
	JwtSecret  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PendingTTL    time.Duration

	GoogleCredentialsFile string
	SpreadsheetID         string
	MirrorTimeout         time.Duration

	AbsenceTime      string
	AutoCompleteTime string

	// CanceledFreesSlot — отменённая смена не мешает записаться на то же время.
	CanceledFreesSlot bool

	GroupsFile string
	Groups     *Groups
}

// StartupConfigError — конфигурация неполна или противоречива; бот не запускается.
type StartupConfigError struct {
	Problems []string
}

func (e *StartupConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// NewConfig читает .env (если есть), переменные окружения и файл групп.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: ⚠️ .env not loaded: %v", err)
	}

	cfg := &Config{
		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		DatabaseDriver:        getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:           getEnv("DATABASE_DSN", "./shifts.db"),
		ServerPort:            getEnv("SERVER_PORT", "6066"),
		JwtSecret:             getEnv("JWT_SECRET", ""),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		PendingTTL:            getEnvDuration("PENDING_TTL", 5*time.Minute),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		MirrorTimeout:         getEnvDuration("MIRROR_TIMEOUT", 10*time.Second),
		AbsenceTime:           getEnv("ABSENCE_TIME", "22:00"),
		AutoCompleteTime:      getEnv("AUTO_COMPLETE_TIME", "23:55"),
		CanceledFreesSlot:     getEnvBool("CANCELED_FREES_SLOT", false),
		GroupsFile:            getEnv("GROUPS_FILE", "groups.json"),
	}

	groups, err := loadGroups(cfg.GroupsFile, cfg.SpreadsheetID)
	if err != nil {
		return nil, err
	}
	cfg.Groups = groups

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadGroups читает файл групп; если файла нет, собирает одну группу из
// GROUP_ID, GROUP_TIMEZONE и GROUP_ADMINS.
func loadGroups(path, defaultSpreadsheet string) (*Groups, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return ParseGroups(data, defaultSpreadsheet)
	}
	if !os.IsNotExist(err) {
		return nil, &StartupConfigError{Problems: []string{fmt.Sprintf("read %s: %v", path, err)}}
	}

	rawID := getEnv("GROUP_ID", "")
	if rawID == "" {
		return nil, &StartupConfigError{Problems: []string{fmt.Sprintf("no groups configured: %s not found and GROUP_ID not set", path)}}
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, &StartupConfigError{Problems: []string{fmt.Sprintf("GROUP_ID: %v", err)}}
	}
	var admins []string
	for _, a := range strings.Split(getEnv("GROUP_ADMINS", ""), ",") {
		if a = strings.TrimSpace(a); a != "" {
			admins = append(admins, a)
		}
	}
	return NewGroups([]GroupConfig{{
		ID:            id,
		Timezone:      getEnv("GROUP_TIMEZONE", "Asia/Yekaterinburg"),
		Admins:        admins,
		SpreadsheetID: defaultSpreadsheet,
	}})
}

// Validate проверяет параметры, без которых запуск бессмыслен.
func (c *Config) Validate() error {
	var problems []string
	if c.TelegramBotToken == "" {
		problems = append(problems, "TELEGRAM_BOT_TOKEN is required")
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		problems = append(problems, fmt.Sprintf("DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}
	if c.ServerPort != "" && c.JwtSecret == "" {
		problems = append(problems, "JWT_SECRET is required when SERVER_PORT is set")
	}
	if !timeutil.IsValidTime(c.AbsenceTime) {
		problems = append(problems, fmt.Sprintf("ABSENCE_TIME %q is not HH:MM", c.AbsenceTime))
	}
	if !timeutil.IsValidTime(c.AutoCompleteTime) {
		problems = append(problems, fmt.Sprintf("AUTO_COMPLETE_TIME %q is not HH:MM", c.AutoCompleteTime))
	}
	if c.GoogleCredentialsFile != "" && c.Groups != nil {
		for _, g := range c.Groups.All() {
			if g.SpreadsheetID == "" {
				problems = append(problems, fmt.Sprintf("group %d: spreadsheet_id is required when GOOGLE_CREDENTIALS_FILE is set", g.ID))
			}
		}
	}
	if len(problems) > 0 {
		return &StartupConfigError{Problems: problems}
	}
	return nil
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("config: ⚠️ %s=%q is not a duration, using %s", key, value, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return fallback
}
