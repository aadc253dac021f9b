package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sales-dashboard/internal/models"
)

const (
	CSVFileName  = "datos_filtrados.csv"
	CSVMimeType  = "text/csv"
	XLSXFileName = "datos_filtrados.xlsx"
	XLSXMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var csvHeader = []string{"region", "product", "amount", "date"}

const (
	sheetSales    = "Sales"
	sheetRegions  = "Regions"
	sheetCrossTab = "CrossTab"
)

// ExportCSV encodes the view with a header row, one line per record.
// encoding/csv reads a quoted \r\n back as \n, so ParseCSV refuses categories
// containing line breaks and no loaded dataset can carry one.
func ExportCSV(view []models.Sale) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}

	for _, sale := range view {
		row := []string{
			sale.Region,
			sale.Product,
			strconv.FormatFloat(sale.Amount, 'f', -1, 64),
			sale.Date.Format(models.DateLayout),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseCSV reads records written by ExportCSV. Columns are located by header
// name, so column order in hand-edited files does not matter.
func ParseCSV(r io.Reader) ([]models.Sale, error) {
	return parseCSV(context.Background(), r)
}

func parseCSV(ctx context.Context, r io.Reader) ([]models.Sale, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvHeader {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	sales := make([]models.Sale, 0)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		sale, err := parseSale(record, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

func parseSale(record []string, idx map[string]int) (models.Sale, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(record[idx["amount"]]), 64)
	if err != nil {
		return models.Sale{}, fmt.Errorf("invalid amount: %w", err)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return models.Sale{}, fmt.Errorf("invalid amount %q: must be a positive number", record[idx["amount"]])
	}

	date, err := time.Parse(models.DateLayout, strings.TrimSpace(record[idx["date"]]))
	if err != nil {
		return models.Sale{}, fmt.Errorf("invalid date: %w", err)
	}

	region, product := record[idx["region"]], record[idx["product"]]
	if strings.ContainsAny(region, "\r\n") || strings.ContainsAny(product, "\r\n") {
		return models.Sale{}, fmt.Errorf("invalid category: line break in region or product")
	}

	return models.Sale{
		Region:  region,
		Product: product,
		Amount:  amount,
		Date:    date,
	}, nil
}

// ExportXLSX writes a workbook with the detail rows, the region rollup and
// the product×region cross-tab of the snapshot.
func ExportXLSX(w io.Writer, snap Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSales); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	for i, h := range csvHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetSales, cell, h)
	}
	for i, sale := range snap.View {
		row := i + 2
		f.SetCellValue(sheetSales, fmt.Sprintf("A%d", row), sale.Region)
		f.SetCellValue(sheetSales, fmt.Sprintf("B%d", row), sale.Product)
		f.SetCellValue(sheetSales, fmt.Sprintf("C%d", row), sale.Amount)
		f.SetCellValue(sheetSales, fmt.Sprintf("D%d", row), sale.Date.Format(models.DateLayout))
	}

	if _, err := f.NewSheet(sheetRegions); err != nil {
		return fmt.Errorf("xlsx: add sheet: %w", err)
	}
	f.SetCellValue(sheetRegions, "A1", "region")
	f.SetCellValue(sheetRegions, "B1", "amount")
	for i, rs := range snap.RegionSales {
		row := i + 2
		f.SetCellValue(sheetRegions, fmt.Sprintf("A%d", row), rs.Region)
		f.SetCellValue(sheetRegions, fmt.Sprintf("B%d", row), rs.Amount)
	}

	if _, err := f.NewSheet(sheetCrossTab); err != nil {
		return fmt.Errorf("xlsx: add sheet: %w", err)
	}
	f.SetCellValue(sheetCrossTab, "A1", "product")
	for j, region := range snap.CrossTab.Regions {
		cell, _ := excelize.CoordinatesToCellName(j+2, 1)
		f.SetCellValue(sheetCrossTab, cell, region)
	}
	for i, product := range snap.CrossTab.Products {
		row := i + 2
		f.SetCellValue(sheetCrossTab, fmt.Sprintf("A%d", row), product)
		for j, region := range snap.CrossTab.Regions {
			// absent combinations stay blank
			if v, ok := snap.CrossTab.Value(product, region); ok {
				cell, _ := excelize.CoordinatesToCellName(j+2, row)
				f.SetCellValue(sheetCrossTab, cell, v)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}
