// Package export renders extraction results as an XLSX audit sheet for the
// human-review workflow. Presentation only; no score aggregation happens
// here.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/paperlens/docparse/internal/entity"
)

type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ResultsXLSX returns an XLSX workbook (as bytes) with one row per
// extracted field across the given results.
func (s *Service) ResultsXLSX(results []entity.ExtractionResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Extractions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Document ID",
		"Document Type",
		"Field",
		"Value",
		"LLM Confidence",
		"Validation Confidence",
		"Clarity Confidence",
		"Final Confidence",
		"Validation Status",
		"Requires Review",
		"Reasons",
		"Extracted At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range results {
		for _, field := range r.Fields {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, r.DocumentID.String())
			write(2, string(r.DocType))
			write(3, field.Name)
			write(4, fmt.Sprintf("%v", field.Value))
			write(5, field.LLMConfidence)
			write(6, field.ValidationConfidence)
			write(7, field.ClarityConfidence)
			write(8, field.FinalConfidence)
			write(9, string(field.ValidationStatus))
			write(10, r.RequiresReview)
			write(11, joinReasons(field.Reasons))
			write(12, r.ExtractedAt.Format(time.RFC3339))
			row++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 38) // doc id
	_ = f.SetColWidth(sheet, "B", "C", 20)
	_ = f.SetColWidth(sheet, "D", "D", 36) // value
	_ = f.SetColWidth(sheet, "E", "H", 12)
	_ = f.SetColWidth(sheet, "K", "K", 44) // reasons

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"results", len(results),
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}
