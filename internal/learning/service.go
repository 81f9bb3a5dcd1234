// Package learning implements the tool-backed few-shot loop: deciding when
// a gold example is worth fetching, retrieving one uniformly at random from
// the correction log, and rendering it as a worked-example prompt fragment.
// No ranking and no embeddings; retrieval is deliberately dumb.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/paperlens/docparse/constants"
	"github.com/paperlens/docparse/internal/entity"
	"github.com/paperlens/docparse/internal/repository"
)

// ExcerptLimit caps the OCR excerpt embedded in prompts and envelopes.
const ExcerptLimit = 500

type Service struct {
	corrections repository.CorrectionLog
	rng         *rand.Rand
	logger      *slog.Logger
}

// NewService wires the correction log. The rng may be seeded for tests;
// nil gets the global source.
func NewService(corrections repository.CorrectionLog, rng *rand.Rand, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Service{corrections: corrections, rng: rng, logger: logger}
}

// ShouldUse gates learning: nothing to gain above threshold, and nothing to
// retrieve without at least one gold correction for the type.
func (s *Service) ShouldUse(ctx context.Context, docType constants.DocumentType, confidence, threshold float64) bool {
	if confidence >= threshold {
		return false
	}
	n, err := s.corrections.CountGold(ctx, docType)
	if err != nil {
		s.logger.Warn("learning.count_gold failed", "doc_type", string(docType), "error", err)
		return false
	}
	return n > 0
}

// Retrieve picks one gold example uniformly at random, optionally filtered
// by keyword substring over the stored OCR text. Lookup failures and empty
// results both come back as (nil, nil): no example found.
func (s *Service) Retrieve(ctx context.Context, docType constants.DocumentType, keywords []string) (*entity.GoldExample, error) {
	rows, err := s.corrections.ListGold(ctx, docType)
	if err != nil {
		s.logger.Warn("learning.list_gold failed", "doc_type", string(docType), "error", err)
		return nil, nil
	}
	if len(keywords) > 0 {
		rows = filterByKeywords(rows, keywords)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	pick := rows[s.rng.Intn(len(rows))]
	s.logger.Info("learning.example.retrieved",
		"doc_type", string(docType), "candidates", len(rows), "field", pick.FieldName)

	return &entity.GoldExample{
		DocType:         pick.DocType,
		OCRExcerpt:      Truncate(pick.OCRText, ExcerptLimit),
		PriorExtraction: pick.PriorValue,
		CorrectedValue:  pick.CorrectedValue,
		FieldName:       pick.FieldName,
		CreatedAt:       pick.CreatedAt,
	}, nil
}

// RenderPrompt embeds a gold example as a worked example. The template is
// fixed; callers append it to the system prompt verbatim.
func (s *Service) RenderPrompt(ex *entity.GoldExample) string {
	var b strings.Builder
	b.WriteString("Here is a worked example from a previously corrected document of the same type.\n")
	b.WriteString("Document type: ")
	b.WriteString(string(ex.DocType))
	b.WriteString("\n")
	if ex.OCRExcerpt != "" {
		b.WriteString("OCR excerpt:\n")
		b.WriteString(ex.OCRExcerpt)
		b.WriteString("\n")
	}
	if ex.FieldName != "" {
		fmt.Fprintf(&b, "Corrected field %q: %s\n", ex.FieldName, string(ex.CorrectedValue))
	} else {
		b.WriteString("Corrected extraction: ")
		b.Write(ex.CorrectedValue)
		b.WriteString("\n")
	}
	b.WriteString("Apply the same conventions to the current document.")
	return b.String()
}

func filterByKeywords(rows []entity.Correction, keywords []string) []entity.Correction {
	var out []entity.Correction
	for _, row := range rows {
		text := strings.ToLower(row.OCRText)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// Truncate cuts s to at most n bytes on a rune boundary.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for len(cut) > 0 && !isRuneStart(s[len(cut)]) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
