package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/paperlens/docparse/constants"
)

// Correction is one row of the externally owned correction log. The
// pipeline only ever reads these; writes happen in the human-review flow.
type Correction struct {
	DocumentID     uuid.UUID              `json:"doc_id"`
	DocType        constants.DocumentType `json:"type"`
	FieldName      string                 `json:"field,omitempty"`
	CorrectedValue json.RawMessage        `json:"corrected_value"`
	PriorValue     json.RawMessage        `json:"prior_value,omitempty"`
	OCRText        string                 `json:"ocr_text,omitempty"`
	IsGold         bool                   `json:"is_gold"`
	CreatedAt      time.Time              `json:"created_at"`
}
