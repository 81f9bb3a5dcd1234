// Package extract orchestrates per-field extraction: one strict-JSON LLM
// call against the type's schema, coercion, validation, confidence scoring,
// and best-effort OCR location search.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paperlens/docparse/constants"
	"github.com/paperlens/docparse/internal/coerce"
	"github.com/paperlens/docparse/internal/confidence"
	"github.com/paperlens/docparse/internal/entity"
	"github.com/paperlens/docparse/internal/learning"
	"github.com/paperlens/docparse/internal/llm"
	"github.com/paperlens/docparse/internal/ocr"
	"github.com/paperlens/docparse/internal/repository"
	"github.com/paperlens/docparse/internal/schema"
	"github.com/paperlens/docparse/internal/validation"
)

// learningGate is the fixed prior confidence the extraction path feeds the
// learning gate. It sits below the learning line on purpose: extraction has
// no pre-call confidence of its own, so a gold example is fetched whenever
// one exists.
const learningGate = 0.5

// Config holds behavior knobs for extraction.
type Config struct {
	TruncateChars int // OCR text budget per prompt; default 3000
}

type Service struct {
	client     llm.ChatClient
	schemas    *schema.Store
	validator  *validation.Service
	learning   *learning.Service
	thresholds repository.ThresholdStore
	cfg        Config
	logger     *slog.Logger
}

func NewService(
	client llm.ChatClient,
	schemas *schema.Store,
	validator *validation.Service,
	learningSvc *learning.Service,
	thresholds repository.ThresholdStore,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TruncateChars <= 0 {
		cfg.TruncateChars = 3000
	}
	return &Service{
		client:     client,
		schemas:    schemas,
		validator:  validator,
		learning:   learningSvc,
		thresholds: thresholds,
		cfg:        cfg,
		logger:     logger,
	}
}

// Extract runs the full per-field pipeline for one document. Pages are
// optional; without them no locations are attached.
func (s *Service) Extract(ctx context.Context, ocrText string, docType constants.DocumentType, docID uuid.UUID, pages []ocr.Page) (*entity.ExtractionResult, error) {
	start := time.Now()

	ds, ok := s.schemas.Get(docType)
	if !ok {
		return nil, fmt.Errorf("no schema for document type %q", docType)
	}
	threshold, err := s.thresholds.Get(ctx, docType)
	if err != nil {
		s.logger.Warn("extract.threshold_lookup failed", "doc_id", docID, "error", err)
		threshold = repository.DefaultThreshold
	}

	s.logger.Info("extract.start",
		"doc_id", docID, "doc_type", string(docType),
		"fields", len(ds.Fields), "text_len", len(ocrText), "pages", len(pages))

	// Worked example, when the correction log has one for this type.
	var exampleFragment string
	if s.learning != nil && s.learning.ShouldUse(ctx, docType, learningGate, confidence.LearningLine) {
		if ex, err := s.learning.Retrieve(ctx, docType, nil); err == nil && ex != nil {
			exampleFragment = s.learning.RenderPrompt(ex)
		}
	}

	raw, err := s.requestFields(ctx, ds, ocrText, exampleFragment)
	if err != nil {
		s.logger.Error("extract.llm_error", "doc_id", docID, "error", err)
		return nil, err
	}

	result := &entity.ExtractionResult{
		DocumentID:  docID,
		DocType:     docType,
		ExtractedAt: time.Now().UTC(),
	}

	var sumLLM, sumVal, sumClarity, sumFinal float64
	for _, def := range ds.Fields {
		field := s.buildField(def, raw[def.Name], ocrText, threshold, pages)
		result.Fields = append(result.Fields, field)
		sumLLM += field.LLMConfidence
		sumVal += field.ValidationConfidence
		sumClarity += field.ClarityConfidence
		sumFinal += field.FinalConfidence
	}

	n := float64(len(result.Fields))
	if n > 0 {
		// Document score is an arithmetic mean on purpose: one bad field
		// degrades the document instead of collapsing it.
		result.OverallConfidence = confidence.Clamp(sumFinal / n)
		result.Reasons = confidence.Reasons(confidence.Scores{
			LLM:        sumLLM / n,
			Validation: sumVal / n,
			Clarity:    sumClarity / n,
			Final:      result.OverallConfidence,
		}, threshold)
	}
	result.RequiresReview = result.OverallConfidence < threshold

	s.logger.Info("extract.ok",
		"doc_id", docID,
		"doc_type", string(docType),
		"overall", result.OverallConfidence,
		"requires_review", result.RequiresReview,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// ReExtract re-runs the whole algorithm from scratch under a new type. No
// special-casing: the previous result is simply discarded.
func (s *Service) ReExtract(ctx context.Context, docID uuid.UUID, newType constants.DocumentType, ocrText string, pages []ocr.Page) (*entity.ExtractionResult, error) {
	s.logger.Info("extract.rerun", "doc_id", docID, "new_type", string(newType))
	return s.Extract(ctx, ocrText, newType, docID, pages)
}

// Validate exposes the schema-level document check.
func (s *Service) Validate(ctx context.Context, docType constants.DocumentType, values map[string]any) (*validation.DocumentResult, error) {
	return s.validator.ValidateDocument(docType, values)
}

// GetThreshold resolves the per-type approval threshold.
func (s *Service) GetThreshold(ctx context.Context, docType constants.DocumentType) (float64, error) {
	return s.thresholds.Get(ctx, docType)
}

// SetThreshold updates the per-type approval threshold.
func (s *Service) SetThreshold(ctx context.Context, docType constants.DocumentType, value float64) error {
	return s.thresholds.Set(ctx, docType, value)
}

// requestFields performs the single strict-JSON extraction call. A reply
// that does not parse is fatal for the whole call.
func (s *Service) requestFields(ctx context.Context, ds *schema.DocSchema, ocrText, exampleFragment string) (map[string]any, error) {
	jsonSchema, _ := s.schemas.BuildJSONSchema(ds.DocType)

	reply, err := s.client.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: s.systemPrompt(ds, exampleFragment)},
			{Role: "user", Content: s.userPrompt(ocrText)},
			{Role: "system", Content: "JSON Schema:\n" + mustJSON(jsonSchema)},
		},
		JSONMode: true,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(reply.Content), &raw); err != nil {
		return nil, fmt.Errorf("parse extraction reply: %w", err)
	}
	return raw, nil
}

// buildField coerces, scores, validates, and locates one field.
func (s *Service) buildField(def schema.FieldDef, rawValue any, ocrText string, threshold float64, pages []ocr.Page) entity.Field {
	value := coerce.Value(rawValue, def)

	llmScore := shapeConfidence(value)
	vr := s.validator.ValidateField(def, value)
	clarity := fieldClarity(ocrText, def.Keywords)

	scores := confidence.Combine(llmScore, vr.Confidence, clarity)

	field := entity.Field{
		Name:                 def.Name,
		Value:                value,
		LLMConfidence:        scores.LLM,
		ValidationConfidence: scores.Validation,
		ClarityConfidence:    scores.Clarity,
		FinalConfidence:      scores.Final,
		ValidationStatus:     vr.Status,
		ValidationError:      vr.Error,
		Reasons:              confidence.Reasons(scores, threshold),
	}

	if len(pages) > 0 && value != nil {
		// best-effort; a miss leaves the location null
		field.Location = ocr.Locate(value, pages)
	}
	return field
}

// shapeConfidence estimates model confidence from the value shape alone.
// No raw token probability is available per field, so this stands in for
// the calculator's model-output path.
func shapeConfidence(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case string:
		switch {
		case v == "":
			return 0.1
		case len(v) < 2:
			return 0.3
		case len(v) < 5:
			return 0.6
		default:
			return 0.85
		}
	case float64:
		return 0.9
	case bool:
		return 0.95
	case []any:
		if len(v) == 0 {
			return 0.2
		}
		return 0.8
	default:
		return 0.7
	}
}

// fieldClarity buckets the field-keyword match ratio over the OCR text.
func fieldClarity(ocrText string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0.95
	}
	lower := strings.ToLower(ocrText)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(keywords))
	switch {
	case ratio == 0:
		return 0.3
	case ratio < 0.3:
		return 0.5
	case ratio < 0.6:
		return 0.7
	default:
		return 0.95
	}
}

func (s *Service) systemPrompt(ds *schema.DocSchema, exampleFragment string) string {
	parts := []string{
		"You are a document field extractor. Return ONLY a JSON object that matches the provided JSON Schema.",
		"The object must contain exactly these keys: " + strings.Join(ds.FieldNames(), ", ") + ".",
		"If a field is not present in the text, use null. Never invent values.",
		"Use ISO-8601 dates (YYYY-MM-DD) and plain numbers without currency symbols.",
	}
	if exampleFragment != "" {
		parts = append(parts, exampleFragment)
	}
	return strings.Join(parts, " ")
}

func (s *Service) userPrompt(ocrText string) string {
	var b strings.Builder
	b.WriteString("OCR text (first ~3k chars):\n")
	text := strings.TrimSpace(ocrText)
	if len(text) > s.cfg.TruncateChars {
		b.WriteString(learning.Truncate(text, s.cfg.TruncateChars))
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
