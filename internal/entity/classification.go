package entity

import (
	"github.com/paperlens/docparse/constants"
)

// ClassificationResult represents a type prediction for data transfer between layers.
type ClassificationResult struct {
	DocType              constants.DocumentType `json:"document_type"`
	LLMConfidence        float64                `json:"llm_confidence"`
	ValidationConfidence float64                `json:"validation_confidence"`
	ClarityConfidence    float64                `json:"clarity_confidence"`
	FinalConfidence      float64                `json:"final_confidence"`
	Threshold            float64                `json:"threshold"`
	RequiresReview       bool                   `json:"requires_review"`
	Evidence             []string               `json:"evidence,omitempty"`
	ToolUsed             bool                   `json:"tool_used"`
	Reasons              []string               `json:"reasons,omitempty"`
}
