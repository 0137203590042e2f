package mirror

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsClient — Mirror поверх Google Sheets API для одной таблицы.
type SheetsClient struct {
	srv           *sheets.Service
	spreadsheetID string

	mu    sync.Mutex
	known map[string]bool
}

// NewSheetsService создаёт клиент Sheets API по файлу сервисного аккаунта.
func NewSheetsService(ctx context.Context, credentialsFile string) (*sheets.Service, error) {
	srv, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

func NewSheetsClient(srv *sheets.Service, spreadsheetID string) *SheetsClient {
	return &SheetsClient{srv: srv, spreadsheetID: spreadsheetID, known: make(map[string]bool)}
}

func quote(sheet string) string {
	return "'" + sheet + "'"
}

func toValues(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func fromValues(values [][]interface{}) [][]string {
	out := make([][]string, 0, len(values))
	for _, row := range values {
		r := make([]string, len(row))
		for i, v := range row {
			r[i] = fmt.Sprint(v)
		}
		out = append(out, r)
	}
	return out
}

// allRows читает лист вместе с заголовком.
func (c *SheetsClient) allRows(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, quote(sheet)+"!A:Z").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve data from sheet %s: %w", sheet, err)
	}
	return fromValues(resp.Values), nil
}

func (c *SheetsClient) GetRows(ctx context.Context, sheet string) ([][]string, error) {
	rows, err := c.allRows(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}

func (c *SheetsClient) UpsertRow(ctx context.Context, sheet, key string, row []string) error {
	rows, err := c.allRows(ctx, sheet)
	if err != nil {
		return err
	}
	// Первая строка — заголовок, ключи ищем ниже.
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) > 0 && rows[i][0] == key {
			rng := fmt.Sprintf("%s!A%d", quote(sheet), i+1)
			_, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, rng, &sheets.ValueRange{
				Values: [][]interface{}{toValues(row)},
			}).ValueInputOption("RAW").Context(ctx).Do()
			if err != nil {
				return fmt.Errorf("update row %s in %s: %w", key, sheet, err)
			}
			return nil
		}
	}
	return c.AppendRow(ctx, sheet, row)
}

func (c *SheetsClient) AppendRow(ctx context.Context, sheet string, row []string) error {
	_, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, quote(sheet)+"!A1", &sheets.ValueRange{
		Values: [][]interface{}{toValues(row)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", sheet, err)
	}
	return nil
}

func (c *SheetsClient) EnsureSheet(ctx context.Context, sheet string, headers []string) error {
	c.mu.Lock()
	known := c.known[sheet]
	c.mu.Unlock()
	if known {
		return nil
	}

	ss, err := c.srv.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	exists := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == sheet {
			exists = true
			break
		}
	}

	if !exists {
		_, err = c.srv.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheet}},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add sheet %s: %w", sheet, err)
		}
	}

	rows, err := c.allRows(ctx, sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		if err := c.writeAt(ctx, sheet, 1, [][]string{headers}); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.known[sheet] = true
	c.mu.Unlock()
	return nil
}

func (c *SheetsClient) ReplaceRows(ctx context.Context, sheet string, headers []string, rows [][]string) error {
	if err := c.EnsureSheet(ctx, sheet, headers); err != nil {
		return err
	}
	_, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, quote(sheet), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheet %s: %w", sheet, err)
	}
	return c.writeAt(ctx, sheet, 1, append([][]string{headers}, rows...))
}

func (c *SheetsClient) writeAt(ctx context.Context, sheet string, line int, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = toValues(r)
	}
	rng := fmt.Sprintf("%s!A%d", quote(sheet), line)
	_, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}
	return nil
}
