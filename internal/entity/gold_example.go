package entity

import (
	"encoding/json"
	"time"

	"github.com/paperlens/docparse/constants"
)

// GoldExample is an immutable read snapshot of a human-approved correction,
// derived on demand from the correction log. It is never persisted separately.
type GoldExample struct {
	DocType         constants.DocumentType `json:"document_type"`
	OCRExcerpt      string                 `json:"ocr_excerpt"`
	PriorExtraction json.RawMessage        `json:"prior_extraction,omitempty"`
	CorrectedValue  json.RawMessage        `json:"corrected_value"`
	FieldName       string                 `json:"field,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}
