package mirror

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportReportXLSX выгружает отчёт в xlsx: заголовок и колонка итогов залиты цветом.
func ExportReportXLSX(r *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetReport
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for col, h := range r.Headers {
		cellName, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cellName, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(r.Headers))
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, err
	}

	for i, row := range r.Values() {
		for col, v := range row {
			cellName, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cellName, v)
		}
	}
	if len(r.Rows) > 0 {
		from := fmt.Sprintf("%s2", lastCol)
		to := fmt.Sprintf("%s%d", lastCol, len(r.Rows)+1)
		if err := f.SetCellStyle(sheet, from, to, totalStyle); err != nil {
			return nil, err
		}
	}
	f.SetColWidth(sheet, "A", "A", 28)
	f.SetColWidth(sheet, "B", lastCol, 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
