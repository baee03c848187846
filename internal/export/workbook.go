// Package export renders supplies into an xlsx workbook.
package export

import (
	"fmt"
	"strconv"

	"github.com/fekuna/omnipos-supply-service/internal/httpx"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	FileName    = "supplies.xlsx"
	SheetName   = "補給品一覧"

	maxColumnWidth = 255
)

var Headers = []string{"ID", "補給品名", "数量", "単価", "カテゴリ", "登録日時", "更新日時"}

// Workbook renders supplies, in the order given, under a bold header row.
// Column widths are sized to the widest cell.
func Workbook(supplies []model.Supply) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	// Built-in format 2 is "0.00".
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("price style: %w", err)
	}

	widths := make([]int, len(Headers))
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
		widths[i] = displayWidth(h)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(Headers))
	if err := f.SetCellStyle(SheetName, "A1", last+"1", bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, s := range supplies {
		row := i + 2
		price := s.UnitPrice.StringFixed(2)
		created := s.CreatedAt.Local().Format(httpx.TimeLayout)
		updated := s.UpdatedAt.Local().Format(httpx.TimeLayout)

		cells := []any{s.ID, s.Name, s.Quantity, nil, s.Category, created, updated}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, start, &cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}

		priceCell, _ := excelize.CoordinatesToCellName(4, row)
		// A numeric literal is stored as an untyped number cell, digit for digit.
		if err := f.SetCellDefault(SheetName, priceCell, price); err != nil {
			return nil, fmt.Errorf("write price row %d: %w", row, err)
		}
		if err := f.SetCellStyle(SheetName, priceCell, priceCell, money); err != nil {
			return nil, fmt.Errorf("style price row %d: %w", row, err)
		}

		texts := []string{strconv.FormatInt(s.ID, 10), s.Name, strconv.FormatInt(s.Quantity, 10), price, s.Category, created, updated}
		for c, text := range texts {
			widths[c] = max(widths[c], displayWidth(text))
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, float64(min(w+2, maxColumnWidth))); err != nil {
			return nil, fmt.Errorf("column width %s: %w", col, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// displayWidth counts East Asian wide and fullwidth runes as two columns.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
