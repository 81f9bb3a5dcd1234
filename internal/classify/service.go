// Package classify predicts a document's type from OCR text. The flow is a
// small state machine: request (tool loop) -> parse/remap -> score -> one
// optional learning retry -> final review decision.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paperlens/docparse/constants"
	"github.com/paperlens/docparse/internal/confidence"
	"github.com/paperlens/docparse/internal/entity"
	"github.com/paperlens/docparse/internal/learning"
	"github.com/paperlens/docparse/internal/llm"
	"github.com/paperlens/docparse/internal/repository"
	"github.com/paperlens/docparse/internal/schema"
	"github.com/paperlens/docparse/internal/tools"
)

// RemapConfidenceCap bounds the model confidence when the predicted label
// only matched through the lexical remap table.
const RemapConfidenceCap = 0.6

// Config holds behavior knobs for classification.
type Config struct {
	TruncateChars int // OCR text budget per prompt; default 3000
}

type Service struct {
	client     llm.ChatClient
	registry   *tools.Registry
	learning   *learning.Service
	thresholds repository.ThresholdStore
	schemas    *schema.Store
	cfg        Config
	logger     *slog.Logger
}

func NewService(
	client llm.ChatClient,
	registry *tools.Registry,
	learningSvc *learning.Service,
	thresholds repository.ThresholdStore,
	schemas *schema.Store,
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
		registry:   registry,
		learning:   learningSvc,
		thresholds: thresholds,
		schemas:    schemas,
		cfg:        cfg,
		logger:     logger,
	}
}

// prediction is the exact JSON shape requested from the model.
type prediction struct {
	DocumentType string   `json:"document_type"`
	Confidence   *float64 `json:"confidence"`
	Evidence     []string `json:"evidence"`
}

type scoredPass struct {
	docType  constants.DocumentType
	scores   confidence.Scores
	evidence []string
}

// Classify runs the full type-prediction state machine for one document.
func (s *Service) Classify(ctx context.Context, ocrText string, docID uuid.UUID) (*entity.ClassificationResult, error) {
	start := time.Now()
	s.logger.Info("classify.start", "doc_id", docID, "text_len", len(ocrText))

	exec := s.registry.ForDocument(docID)
	req := llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: s.systemPrompt("")},
			{Role: "user", Content: s.userPrompt(ocrText)},
		},
		Tools:    s.registry.Defs(),
		JSONMode: true,
	}

	reply, _, toolUsed, err := llm.RunToolLoop(ctx, s.client, req, exec, s.logger)
	if err != nil {
		s.logger.Error("classify.llm_error", "doc_id", docID, "error", err)
		return nil, fmt.Errorf("classification request: %w", err)
	}

	pass, err := s.scorePass(reply.Content, ocrText)
	if err != nil {
		s.logger.Error("classify.parse_error", "doc_id", docID, "error", err)
		return nil, err
	}

	// At most one learning retry, gated on the fixed confidence line and on
	// the tool not having been used yet in this call.
	if pass.scores.Final < confidence.LearningLine && !toolUsed {
		if retry, ok := s.learningRetry(ctx, docID, ocrText, pass); ok {
			pass = retry
			toolUsed = true
		}
	}

	threshold, err := s.thresholds.Get(ctx, pass.docType)
	if err != nil {
		s.logger.Warn("classify.threshold_lookup failed", "doc_id", docID, "error", err)
		threshold = repository.DefaultThreshold
	}

	result := &entity.ClassificationResult{
		DocType:              pass.docType,
		LLMConfidence:        pass.scores.LLM,
		ValidationConfidence: pass.scores.Validation,
		ClarityConfidence:    pass.scores.Clarity,
		FinalConfidence:      pass.scores.Final,
		Threshold:            threshold,
		RequiresReview:       pass.scores.Final < threshold,
		Evidence:             pass.evidence,
		ToolUsed:             toolUsed,
		Reasons:              confidence.Reasons(pass.scores, threshold),
	}

	s.logger.Info("classify.ok",
		"doc_id", docID,
		"doc_type", string(result.DocType),
		"final", result.FinalConfidence,
		"requires_review", result.RequiresReview,
		"tool_used", result.ToolUsed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// scorePass parses a model reply and computes its confidence triple.
func (s *Service) scorePass(content, ocrText string) (scoredPass, error) {
	var pred prediction
	if err := json.Unmarshal([]byte(content), &pred); err != nil {
		return scoredPass{}, fmt.Errorf("parse classification reply: %w", err)
	}

	docType, exact := constants.ParseDocumentType(pred.DocumentType)
	remapped := false
	if !exact {
		docType, remapped = constants.RemapDocumentType(pred.DocumentType)
		if !remapped {
			return scoredPass{}, fmt.Errorf("unresolvable document type %q", pred.DocumentType)
		}
	}

	var signal any
	if pred.Confidence != nil {
		c := *pred.Confidence
		if remapped && c > RemapConfidenceCap {
			c = RemapConfidenceCap
		}
		signal = c
	} else if remapped {
		signal = RemapConfidenceCap
	}

	scores := confidence.ForClassification(signal, ocrText, s.schemas.TypeKeywords(docType))
	return scoredPass{docType: docType, scores: scores, evidence: pred.Evidence}, nil
}

// learningRetry fetches one gold example and re-prompts with it embedded.
// The retry is adopted only when its score strictly improves on the first
// pass; otherwise it is discarded.
func (s *Service) learningRetry(ctx context.Context, docID uuid.UUID, ocrText string, first scoredPass) (scoredPass, bool) {
	ex, err := s.learning.Retrieve(ctx, first.docType, nil)
	if err != nil || ex == nil {
		return scoredPass{}, false
	}
	s.logger.Info("classify.learning_retry", "doc_id", docID, "doc_type", string(first.docType))

	reply, err := s.client.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: s.systemPrompt(s.learning.RenderPrompt(ex))},
			{Role: "user", Content: s.userPrompt(ocrText)},
		},
		JSONMode: true,
	})
	if err != nil {
		s.logger.Warn("classify.retry_llm_error", "doc_id", docID, "error", err)
		return scoredPass{}, false
	}

	retry, err := s.scorePass(reply.Content, ocrText)
	if err != nil {
		s.logger.Warn("classify.retry_parse_error", "doc_id", docID, "error", err)
		return scoredPass{}, false
	}
	if retry.scores.Final > first.scores.Final {
		return retry, true
	}
	s.logger.Info("classify.retry_discarded",
		"doc_id", docID, "first", first.scores.Final, "retry", retry.scores.Final)
	return scoredPass{}, false
}

func (s *Service) systemPrompt(exampleFragment string) string {
	parts := []string{
		"You are a document classifier. Return ONLY a JSON object with keys " +
			`"document_type", "confidence", and "evidence".`,
		"document_type MUST be exactly one of: " + strings.Join(constants.AllDocumentTypes(), ", ") + ".",
		"confidence is a number between 0 and 1.",
		"evidence is a short list of phrases from the text that support the choice.",
		"If you are unsure, you may call the " + learning.RetrievalToolName +
			" tool to see a corrected example before answering.",
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
