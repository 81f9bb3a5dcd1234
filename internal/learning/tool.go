package learning

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paperlens/docparse/constants"
	"github.com/paperlens/docparse/internal/llm"
	"github.com/paperlens/docparse/internal/tools"
)

// RetrievalToolName is the single registered tool.
const RetrievalToolName = "retrieve_gold_example"

type retrievalArgs struct {
	DocType  string   `json:"doc_type"`
	Keywords []string `json:"keywords"`
}

// Envelope is the retrieval tool's wire contract. Key names are fixed; the
// tool description tells the model to expect exactly this shape.
type Envelope struct {
	Found               bool            `json:"found"`
	DocumentType        string          `json:"document_type,omitempty"`
	OCRTextExcerpt      string          `json:"ocr_text_excerpt,omitempty"`
	CorrectedExtraction json.RawMessage `json:"corrected_extraction,omitempty"`
	CorrectedField      string          `json:"corrected_field,omitempty"`
	Note                string          `json:"note,omitempty"`
	Message             string          `json:"message,omitempty"`
}

// NewRetrievalTool declares and implements gold-example retrieval.
func NewRetrievalTool(svc *Service) tools.Tool {
	return tools.Tool{
		Def: llm.ToolDef{
			Type: "function",
			Function: llm.FunctionDef{
				Name: RetrievalToolName,
				Description: "Retrieve one human-corrected gold example for a document type. " +
					"Returns a JSON object with keys: found, document_type, ocr_text_excerpt, " +
					"corrected_extraction, corrected_field, note. When nothing is found the " +
					"object carries found=false and a message or error key instead.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"doc_type": map[string]any{
							"type":        "string",
							"enum":        constants.AllDocumentTypes(),
							"description": "Document type to retrieve an example for.",
						},
						"keywords": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Optional keywords to narrow the example search.",
						},
					},
					"required": []string{"doc_type"},
				},
			},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args retrievalArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			docType, ok := constants.ParseDocumentType(args.DocType)
			if !ok {
				return nil, fmt.Errorf("unknown document type %q", args.DocType)
			}

			ex, err := svc.Retrieve(ctx, docType, args.Keywords)
			if err != nil {
				return nil, err
			}
			if ex == nil {
				return Envelope{
					Found:   false,
					Message: fmt.Sprintf("no gold examples available for %s", docType),
				}, nil
			}
			return Envelope{
				Found:               true,
				DocumentType:        string(ex.DocType),
				OCRTextExcerpt:      Truncate(ex.OCRExcerpt, ExcerptLimit),
				CorrectedExtraction: ex.CorrectedValue,
				CorrectedField:      ex.FieldName,
				Note:                "human-approved correction; treat as ground truth for formatting and field conventions",
			}, nil
		},
	}
}
