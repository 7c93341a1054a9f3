package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// RowSource yields raw rows, header included. Next returns io.EOF after the
// last row.
type RowSource interface {
	Next() ([]string, error)
	Close() error
}

// CSVSource reads comma-delimited UTF-8 text. A leading BOM is dropped and
// invalid byte sequences become U+FFFD.
type CSVSource struct {
	r *csv.Reader
}

// NewCSVSource wraps r.
func NewCSVSource(r io.Reader) *CSVSource {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(decoded)
	cr.Comma = ','
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	return &CSVSource{r: cr}
}

func (s *CSVSource) Next() ([]string, error) {
	rec, err := s.r.Read()
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *CSVSource) Close() error { return nil }

// rawCells makes excelize return stored cell values rather than values with
// their number format applied ("1000.5", not "1,000.50").
var rawCells = excelize.Options{RawCellValue: true}

// XLSXSource reads the first sheet of a workbook.
type XLSXSource struct {
	file *excelize.File
	rows *excelize.Rows
}

// NewXLSXSource opens the workbook in r.
func NewXLSXSource(r io.Reader) (*XLSXSource, error) {
	f, err := excelize.OpenReader(r, rawCells)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheet := f.GetSheetName(0)
	if sheet == "" {
		_ = f.Close()
		return nil, errors.New("workbook has no sheet")
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return &XLSXSource{file: f, rows: rows}, nil
}

func (s *XLSXSource) Next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return s.rows.Columns(rawCells)
}

func (s *XLSXSource) Close() error {
	_ = s.rows.Close()
	return s.file.Close()
}

// NewSource picks the reader from the file name: ".xlsx" opens a workbook,
// anything else is read as CSV.
func NewSource(filename string, r io.Reader) (RowSource, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return NewXLSXSource(r)
	}
	return NewCSVSource(r), nil
}
