// Package mirror проецирует смены в Google-таблицу: табель по сменам,
// журнал исключений, отметки об отсутствии и сводный отчёт.
// Таблица не является источником истины и всегда пересобирается из базы.
package mirror

import "context"

// Mirror — удалённая таблица. Все вызовы сетевые и могут завершиться ошибкой.
type Mirror interface {
	// GetRows возвращает строки листа без заголовка.
	GetRows(ctx context.Context, sheet string) ([][]string, error)
	// UpsertRow обновляет строку, у которой первая колонка равна key, иначе дописывает новую.
	UpsertRow(ctx context.Context, sheet, key string, row []string) error
	AppendRow(ctx context.Context, sheet string, row []string) error
	// EnsureSheet создаёт лист с заголовком, если его нет.
	EnsureSheet(ctx context.Context, sheet string, headers []string) error
	// ReplaceRows заменяет всё содержимое листа под заголовком.
	ReplaceRows(ctx context.Context, sheet string, headers []string, rows [][]string) error
}

const (
	SheetTimesheet  = "Смены"
	SheetExceptions = "Исключения"
	SheetAbsence    = "Отсутствия"
	SheetReport     = "Отчёт"
)

// MirrorFailure — таблица недоступна. Никогда не откатывает изменения в базе.
type MirrorFailure struct {
	Op  string
	Err error
}

func (e *MirrorFailure) Error() string {
	return "mirror " + e.Op + ": " + e.Err.Error()
}

func (e *MirrorFailure) Unwrap() error {
	return e.Err
}
