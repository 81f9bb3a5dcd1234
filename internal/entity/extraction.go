package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/paperlens/docparse/constants"
)

// BoundingBox locates an OCR token in page-pixel coordinates.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// FieldLocation points at the OCR source of an extracted value.
type FieldLocation struct {
	Page int         `json:"page"`
	Box  BoundingBox `json:"bbox"`
}

// Field represents one extracted, coerced, and scored schema field.
type Field struct {
	Name                 string                     `json:"name"`
	Value                any                        `json:"value"`
	LLMConfidence        float64                    `json:"llm_confidence"`
	ValidationConfidence float64                    `json:"validation_confidence"`
	ClarityConfidence    float64                    `json:"clarity_confidence"`
	FinalConfidence      float64                    `json:"final_confidence"`
	Location             *FieldLocation             `json:"location,omitempty"`
	ValidationStatus     constants.ValidationStatus `json:"validation_status"`
	ValidationError      string                     `json:"validation_error,omitempty"`
	Reasons              []string                   `json:"reasons,omitempty"`

	// Written only by the human-review flow, never by the pipeline.
	Corrected bool `json:"corrected,omitempty"`
	Approved  bool `json:"approved,omitempty"`
}

// ExtractionResult is the full per-document extraction output.
// Fields always has exactly one entry per schema field, in schema order.
type ExtractionResult struct {
	DocumentID        uuid.UUID              `json:"document_id"`
	DocType           constants.DocumentType `json:"document_type"`
	Fields            []Field                `json:"fields"`
	OverallConfidence float64                `json:"overall_confidence"`
	RequiresReview    bool                   `json:"requires_review"`
	Reasons           []string               `json:"reasons,omitempty"`
	ExtractedAt       time.Time              `json:"extracted_at"`
}
