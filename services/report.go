package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/anjiri1684/teacherin/models"
	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	reportSheet = "Transactions"
)

var reportHeaders = []string{"Transaction ID", "Date", "Student", "Teacher", "Booking", "Gateway", "Status", "Amount"}

type Report struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportTransactions renders the transactions matching q as CSV or XLSX.
func (s *AdminService) ExportTransactions(ctx context.Context, p Principal, q TransactionQuery, format string) (*Report, error) {
	if err := Authorize(p, ActAdmin); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, Validation("format must be csv or xlsx")
	}

	payments, err := s.exportRows(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(payments))
	for _, pay := range payments {
		rows = append(rows, reportRow(pay))
	}

	name := "transactions_" + time.Now().UTC().Format("20060102_150405")
	if format == FormatXLSX {
		body, err := renderXLSX(rows)
		if err != nil {
			return nil, err
		}
		return &Report{
			Filename:    name + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        body,
		}, nil
	}

	body, err := renderCSV(rows)
	if err != nil {
		return nil, err
	}
	return &Report{Filename: name + ".csv", ContentType: "text/csv", Body: body}, nil
}

func reportRow(p models.Payment) []string {
	return []string{
		p.GatewayRef,
		p.CreatedAt.UTC().Format("2006-01-02 15:04"),
		p.Booking.Student.FullName,
		p.Booking.Teacher.User.FullName,
		p.BookingID.String(),
		p.Gateway,
		p.Status,
		fmt.Sprintf("%.2f", p.Amount),
	}
}

func renderCSV(rows [][]string) ([]byte, error) {
	b := new(bytes.Buffer)
	w := csv.NewWriter(b)
	if err := w.Write(reportHeaders); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return b.Bytes(), nil
}

func renderXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for col, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(reportSheet, cell, h)
		_ = f.SetCellStyle(reportSheet, cell, cell, header)
	}
	amountCol := len(reportHeaders)
	for i, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if col+1 == amountCol {
				var amount float64
				if _, err := fmt.Sscanf(v, "%f", &amount); err == nil {
					_ = f.SetCellValue(reportSheet, cell, amount)
					continue
				}
			}
			_ = f.SetCellValue(reportSheet, cell, v)
		}
	}
	_ = f.SetColWidth(reportSheet, "A", "A", 36)
	_ = f.SetColWidth(reportSheet, "B", "G", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
