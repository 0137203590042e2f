package mirror

import (
	"context"
	"sync"
)

// MemoryMirror хранит листы в памяти. Используется, когда доступ к Google
// Sheets не настроен, и в тестах.
type MemoryMirror struct {
	mu      sync.Mutex
	headers map[string][]string
	sheets  map[string][][]string
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{
		headers: make(map[string][]string),
		sheets:  make(map[string][][]string),
	}
}

func (m *MemoryMirror) GetRows(_ context.Context, sheet string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.sheets[sheet]
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (m *MemoryMirror) UpsertRow(_ context.Context, sheet, key string, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.sheets[sheet] {
		if len(r) > 0 && r[0] == key {
			m.sheets[sheet][i] = append([]string(nil), row...)
			return nil
		}
	}
	m.sheets[sheet] = append(m.sheets[sheet], append([]string(nil), row...))
	return nil
}

func (m *MemoryMirror) AppendRow(_ context.Context, sheet string, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[sheet] = append(m.sheets[sheet], append([]string(nil), row...))
	return nil
}

func (m *MemoryMirror) EnsureSheet(_ context.Context, sheet string, headers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.headers[sheet]; !ok {
		m.headers[sheet] = append([]string(nil), headers...)
	}
	return nil
}

func (m *MemoryMirror) ReplaceRows(_ context.Context, sheet string, headers []string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[sheet] = append([]string(nil), headers...)
	copied := make([][]string, len(rows))
	for i, r := range rows {
		copied[i] = append([]string(nil), r...)
	}
	m.sheets[sheet] = copied
	return nil
}

// Headers возвращает заголовок листа.
func (m *MemoryMirror) Headers(sheet string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.headers[sheet]...)
}
