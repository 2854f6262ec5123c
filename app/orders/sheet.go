package orders

import (
	"fmt"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/pkg/errors"

	"github.com/letra-wholesale/order-sheet/models"
)

const (
	SheetName    = "注文シート"
	DefaultTitle = "Letra卸事業部 注文シート"

	infoHeading = "ご注文情報"

	titleRow      = 1
	infoTitleRow  = 3
	firstInfoRow  = 4
	tableHeadRow  = 11
	firstTableRow = 12
)

// TableHeader is the column order of the product table.
var TableHeader = []string{"商品コード", "商品名", "商品名２", "サイズコード", "数量"}

var tableColumns = []string{"A", "B", "C", "D", "E"}

var columnWidths = map[string]float64{
	"A": 25,
	"B": 30,
	"C": 20,
	"D": 15,
	"E": 10,
}

// tableRow returns the cells of one product row in column order.
func tableRow(item models.SelectedProduct) []interface{} {
	return []interface{}{item.Code, item.Name, item.Name2, item.SizeCode, item.Quantity}
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// BuildWorkbook lays out the order sheet: a title, the customer block at
// A4:B9 and the product table with its header on row 11.
func BuildWorkbook(items []models.SelectedProduct, info CustomerInfo, title string) (*excelize.File, error) {
	if title == "" {
		title = DefaultTitle
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetName)

	f.SetCellValue(SheetName, cell("A", titleRow), title)
	f.MergeCell(SheetName, cell("A", titleRow), cell("E", titleRow))
	f.SetCellValue(SheetName, cell("A", infoTitleRow), infoHeading)
	f.MergeCell(SheetName, cell("A", infoTitleRow), cell("E", infoTitleRow))

	for i, field := range info.headerFields() {
		row := firstInfoRow + i
		f.SetCellValue(SheetName, cell("A", row), field.label)
		f.SetCellValue(SheetName, cell("B", row), field.value)
	}

	for i, label := range TableHeader {
		f.SetCellValue(SheetName, cell(tableColumns[i], tableHeadRow), label)
	}
	for r, item := range items {
		row := firstTableRow + r
		for i, value := range tableRow(item) {
			f.SetCellValue(SheetName, cell(tableColumns[i], row), value)
		}
	}

	for col, width := range columnWidths {
		f.SetColWidth(SheetName, col, col, width)
	}

	titleStyle, err := f.NewStyle(`{"font":{"bold":true,"size":14}}`)
	if err != nil {
		return nil, errors.Wrap(err, "title style")
	}
	f.SetCellStyle(SheetName, cell("A", titleRow), cell("A", titleRow), titleStyle)

	headStyle, err := f.NewStyle(`{"font":{"bold":true},"fill":{"type":"pattern","color":["#E2E8F0"],"pattern":1}}`)
	if err != nil {
		return nil, errors.Wrap(err, "header style")
	}
	f.SetCellStyle(SheetName, cell("A", infoTitleRow), cell("A", infoTitleRow), headStyle)
	f.SetCellStyle(SheetName, cell("A", tableHeadRow), cell("E", tableHeadRow), headStyle)

	return f, nil
}
