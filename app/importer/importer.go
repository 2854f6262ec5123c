// Package importer turns an uploaded product spreadsheet into drafts.
//
// The first row is a header and is skipped. Columns 1-4 map to code, name,
// name2 and size code. Rows that fail the draft precondition are skipped and
// counted. A file that cannot be read, or that holds no valid row, is
// rejected as a whole so an import never partially applies.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/letra-wholesale/order-sheet/models"
)

var (
	ErrMalformedFile     = errors.New("the file could not be read as a product spreadsheet")
	ErrNoValidRows       = errors.New("no valid product rows found: each row needs a code and name, or name and name2")
	ErrUnsupportedFormat = errors.New("unsupported file type: use .xlsx or .csv")
)

// Result is the outcome of parsing one file.
type Result struct {
	Drafts  []models.Draft
	Skipped int
}

// Parse picks the parser from the file extension.
func Parse(filename string, r io.Reader) (Result, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(r)
	case ".csv":
		return ParseCSV(r)
	}
	return Result{}, ErrUnsupportedFormat
}

// ParseXLSX reads the first worksheet of an Excel workbook.
func ParseXLSX(r io.Reader) (result Result, err error) {
	// excelize panics on some truncated archives
	defer func() {
		if rec := recover(); rec != nil {
			result, err = Result{}, errors.Wrap(ErrMalformedFile, fmt.Sprint(rec))
		}
	}()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, errors.Wrap(ErrMalformedFile, err.Error())
	}
	sheet := firstSheet(f)
	if sheet == "" {
		return Result{}, errors.Wrap(ErrMalformedFile, "workbook has no sheets")
	}
	return fromRows(f.GetRows(sheet))
}

// ParseCSV reads comma-separated rows. Rows may have any number of columns,
// but quoting must be well formed: a stray quote rejects the whole file.
func ParseCSV(r io.Reader) (Result, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return Result{}, errors.Wrap(ErrMalformedFile, err.Error())
	}
	return fromRows(rows)
}

func firstSheet(f *excelize.File) string {
	lowest := 0
	name := ""
	for idx, n := range f.GetSheetMap() {
		if name == "" || idx < lowest {
			lowest, name = idx, n
		}
	}
	return name
}

func fromRows(rows [][]string) (Result, error) {
	result := Result{Drafts: []models.Draft{}}
	if len(rows) <= 1 {
		return result, ErrNoValidRows
	}

	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		d := models.Draft{
			Code:     column(row, 0),
			Name:     column(row, 1),
			Name2:    column(row, 2),
			SizeCode: column(row, 3),
		}
		if d.Validate() != nil {
			result.Skipped++
			continue
		}
		result.Drafts = append(result.Drafts, d)
	}

	if len(result.Drafts) == 0 {
		return result, ErrNoValidRows
	}
	return result, nil
}

func column(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return normalizeCell(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var scientific = regexp.MustCompile(`^[+-]?\d+(\.\d+)?[eE][+-]?\d+$`)

// normalizeCell trims the cell and expands numbers stored in scientific
// notation, which is how long numeric codes such as JAN barcodes come back.
func normalizeCell(raw string) string {
	v := strings.TrimSpace(raw)
	if !scientific.MatchString(v) {
		return v
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return v
	}
	return d.String()
}
