package orders

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/letra-wholesale/order-sheet/models"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

// ParseFormat maps a request value to a format; empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", errors.Errorf("unsupported export format %q", s)
}

// Options controls rendering.
type Options struct {
	Title      string
	Format     Format
	SortBySize bool
	Sorter     SizeSorter
	Location   *time.Location
	Now        func() time.Time
}

// Document is a rendered order sheet.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Render validates the customer, optionally sorts by size and serialises the
// selection. Nothing is produced when validation fails.
func Render(items []models.SelectedProduct, info CustomerInfo, opts Options) (Document, error) {
	if err := info.Validate(); err != nil {
		return Document{}, err
	}
	if len(items) == 0 {
		return Document{}, ErrEmptySelection
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	current := now()
	if opts.Location != nil {
		current = current.In(opts.Location)
	}
	info = info.withDefaults(current)

	if opts.SortBySize {
		items = opts.Sorter.Sort(items)
	}

	switch opts.Format {
	case FormatCSV:
		body, err := renderCSV(items, info, opts.Title)
		if err != nil {
			return Document{}, err
		}
		return Document{Filename: Filename(info.Company, FormatCSV), ContentType: contentTypeCSV, Body: body}, nil
	case FormatXLSX, "":
		f, err := BuildWorkbook(items, info, opts.Title)
		if err != nil {
			return Document{}, err
		}
		buf, err := f.WriteToBuffer()
		if err != nil {
			return Document{}, errors.Wrap(err, "write workbook")
		}
		return Document{Filename: Filename(info.Company, FormatXLSX), ContentType: contentTypeXLSX, Body: buf.Bytes()}, nil
	}
	return Document{}, errors.Errorf("unsupported export format %q", opts.Format)
}

var filenameReplacer = strings.NewReplacer("/", "_", "\\", "_", "\"", "_", "\r", "", "\n", "")

// Filename returns 注文シート_<company>.<ext>, with path and quote characters replaced.
func Filename(company string, format Format) string {
	company = strings.TrimSpace(company)
	if company == "" {
		company = "御中"
	}
	return fmt.Sprintf("%s_%s.%s", SheetName, filenameReplacer.Replace(company), format)
}

type csvLine struct {
	Code     string `csv:"商品コード"`
	Name     string `csv:"商品名"`
	Name2    string `csv:"商品名２"`
	SizeCode string `csv:"サイズコード"`
	Quantity int    `csv:"数量"`
}

// renderCSV writes the same layout as the workbook: title, customer block,
// a blank line and the product table. A BOM lets spreadsheet apps detect UTF-8.
func renderCSV(items []models.SelectedProduct, info CustomerInfo, title string) ([]byte, error) {
	if title == "" {
		title = DefaultTitle
	}

	var buf bytes.Buffer
	buf.WriteString("\ufeff")

	w := csv.NewWriter(&buf)
	header := [][]string{{title}, {}, {infoHeading}}
	for _, field := range info.headerFields() {
		header = append(header, []string{field.label, field.value})
	}
	header = append(header, []string{})
	if err := w.WriteAll(header); err != nil {
		return nil, errors.Wrap(err, "write csv header block")
	}

	lines := make([]csvLine, len(items))
	for i, item := range items {
		lines[i] = csvLine{
			Code:     item.Code,
			Name:     item.Name,
			Name2:    item.Name2,
			SizeCode: item.SizeCode,
			Quantity: item.Quantity,
		}
	}
	if err := gocsv.Marshal(&lines, &buf); err != nil {
		return nil, errors.Wrap(err, "write csv table")
	}
	return buf.Bytes(), nil
}
