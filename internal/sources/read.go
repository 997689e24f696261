package sources

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/badgemerge/internal/sheet"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// UnreadableError wraps any failure to open or parse a source file.
type UnreadableError struct {
	Path string
	Err  error
}

func (e *UnreadableError) Error() string {
	return fmt.Sprintf("reading %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *UnreadableError) Unwrap() error { return e.Err }

// Read loads a source file into a table. The first row is the header.
// An empty file yields an empty table with no columns.
func Read(path string) (*sheet.Table, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path)
	case ".csv":
		var f *os.File
		if f, err = os.Open(path); err == nil {
			records, err = ReadCSV(f)
			f.Close()
		}
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, &UnreadableError{Path: path, Err: err}
	}
	return fromRecords(records), nil
}

// ReadReader loads an uploaded source. name is used only for its extension.
func ReadReader(name string, r io.Reader) (*sheet.Table, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		var f *excelize.File
		if f, err = excelize.OpenReader(r); err == nil {
			records, err = firstSheetRows(f)
			f.Close()
		}
	case ".csv":
		records, err = ReadCSV(r)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
	if err != nil {
		return nil, &UnreadableError{Path: name, Err: err}
	}
	return fromRecords(records), nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return firstSheetRows(f)
}

func firstSheetRows(f *excelize.File) ([][]string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}

// ReadCSV reads every record of a CSV export. A leading UTF-8 BOM is
// skipped and invalid UTF-8 in fields is replaced with '?'.
func ReadCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, field := range rec {
			rec[i] = strings.ToValidUTF8(field, "?")
		}
		records = append(records, rec)
	}
	return records, nil
}

// fromRecords builds a table from a header row and data rows. Blank header
// cells get a positional name and repeated names a ".N" suffix so no data
// is silently dropped. Empty and missing cells are null.
func fromRecords(records [][]string) *sheet.Table {
	if len(records) == 0 {
		return sheet.New()
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]int, len(header))
	for i, h := range records[0] {
		h = sheet.CleanHeader(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h]++
			h = fmt.Sprintf("%s.%d", h, n)
		} else {
			seen[h] = 1
		}
		header[i] = h
	}
	t := sheet.New(header...)

	for _, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		record := make(map[string]pgtype.Text, len(header))
		for i, h := range header {
			if i < len(rec) && rec[i] != "" {
				record[h] = sheet.Text(rec[i])
			}
		}
		t.AppendRecord(record)
	}
	return t
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
