package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/patient-intake/internal/repository"
)

// Service is a tiny façade over the orders repository that produces XLSX
// bytes for exports.
type Service struct {
	ordersRepo repository.OrderRepository
	logger     *slog.Logger
}

func NewService(orders repository.OrderRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ordersRepo: orders, logger: logger}
}

// ExportOrdersXLSX returns an XLSX workbook (as bytes) for the given date
// window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all orders.
func (s *Service) ExportOrdersXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC); the upper bound is exclusive so the
	// "to" day is included in full.
	fromDate := time.Time{}
	if from != nil {
		fromDate = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	}
	toDate := time.Now().UTC().AddDate(0, 0, 1)
	if to != nil {
		toDate = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	}

	orders, err := s.ordersRepo.ListBetween(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Orders"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Order Number",
		"Patient First Name",
		"Patient Last Name",
		"Date of Birth",
		"Order Type",
		"Status",
		"Extraction Method",
		"Confidence",
		"Created At",
		"Notes",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, o := range orders {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, o.OrderNumber)
		write(2, deref(o.PatientFirstName))
		write(3, deref(o.PatientLastName))
		write(4, deref(o.PatientDateOfBirth))
		write(5, o.OrderType)
		write(6, string(o.Status))
		write(7, deref(o.ExtractionMethod))
		if o.ConfidenceScore != nil {
			write(8, *o.ConfidenceScore)
		} else {
			write(8, "")
		}
		write(9, o.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		write(10, truncate(deref(o.Notes), 140))

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 16) // order number
	_ = f.SetColWidth(sheet, "B", "C", 20) // names
	_ = f.SetColWidth(sheet, "D", "D", 14) // dob
	_ = f.SetColWidth(sheet, "E", "G", 20) // type/status/method
	_ = f.SetColWidth(sheet, "H", "H", 12) // confidence
	_ = f.SetColWidth(sheet, "I", "I", 20) // created
	_ = f.SetColWidth(sheet, "J", "J", 48) // notes

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(orders),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
