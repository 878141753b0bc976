package quote

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportContentType is the MIME type of the generated workbook.
const ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const exportSheet = "Quotes"

// ExportXLSX renders quotes into a spreadsheet and returns the file bytes
// plus a download filename.
func ExportXLSX(quotes []Quote, generatedAt time.Time) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, "", fmt.Errorf("drop default sheet: %w", err)
	}

	header := []any{"Quote No", "Customer", "Status", "Total", "Created At"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, "", fmt.Errorf("write header: %w", err)
	}
	for i, q := range quotes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", fmt.Errorf("row coordinates: %w", err)
		}
		row := []any{q.QuoteNo, q.CustomerName, q.Status, q.TotalPrice, q.CreatedAt.UTC().Format(time.RFC3339)}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, "", fmt.Errorf("write row %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("serialize workbook: %w", err)
	}
	filename := fmt.Sprintf("quotes-%s.xlsx", generatedAt.UTC().Format("20060102-150405"))
	return buf.Bytes(), filename, nil
}
