package db

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// InitDB инициализирует соединение с базой данных и создает таблицы.
// Любая ошибка здесь фатальна: без хранилища бот не обслуживает группы.
func InitDB(driver, dsn string) *sql.DB {
	db, err := Open(driver, dsn)
	if err != nil {
		log.Fatalf("Ошибка при открытии базы данных: %v", err)
	}
	log.Printf("База данных успешно инициализирована (%s)", driver)
	return db
}

// Open открывает базу, проверяет соединение и применяет схему.
func Open(driver, dsn string) (*sql.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// Одно соединение: встроенная база, запись сериализуется самим драйвером.
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err = Migrate(db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate создает таблицу смен и индексы, если их нет.
func Migrate(db *sql.DB, driver string) error {
	schema := sqliteSchema
	if driver == DriverPostgres {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Rebind заменяет плейсхолдеры ? на $1, $2... для postgres.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS shifts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	group_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL,
	photo_file_id TEXT NOT NULL DEFAULT '',
	shift_date TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	actual_end_time TEXT,
	worked_minutes INTEGER,
	zone TEXT NOT NULL,
	tag TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'canceled')),
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shifts_group_user_date ON shifts(group_id, user_id, shift_date);
CREATE INDEX IF NOT EXISTS idx_shifts_group_status ON shifts(group_id, status);
CREATE INDEX IF NOT EXISTS idx_shifts_group_date ON shifts(group_id, shift_date)
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS shifts (
	id BIGSERIAL PRIMARY KEY,
	group_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL,
	photo_file_id TEXT NOT NULL DEFAULT '',
	shift_date TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	actual_end_time TEXT,
	worked_minutes INTEGER,
	zone TEXT NOT NULL,
	tag TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'canceled')),
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shifts_group_user_date ON shifts(group_id, user_id, shift_date);
CREATE INDEX IF NOT EXISTS idx_shifts_group_status ON shifts(group_id, status);
CREATE INDEX IF NOT EXISTS idx_shifts_group_date ON shifts(group_id, shift_date)
`
