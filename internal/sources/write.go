package sources

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/badgemerge/internal/sheet"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet the merged table is written to.
const SheetName = "Sheet1"

// WriteXLSX writes t as a single-sheet workbook. Null cells are left empty.
func WriteXLSX(w io.Writer, t *sheet.Table) error {
	f, err := buildWorkbook(t)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes t to path, creating parent directories as needed.
func SaveXLSX(path string, t *sheet.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := buildWorkbook(t)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

func buildWorkbook(t *sheet.Table) (*excelize.File, error) {
	f := excelize.NewFile()
	columns := t.Columns()

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}

	row := make([]any, len(columns))
	for i := 0; i < t.Len(); i++ {
		for j, c := range columns {
			cell := t.Get(i, c)
			if cell.Valid {
				row[j] = cell.String
			} else {
				row[j] = nil
			}
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, addr, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	return f, nil
}
