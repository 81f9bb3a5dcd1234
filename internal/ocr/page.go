// Package ocr holds the page/word shapes produced by the external OCR
// provider and the heuristic search that locates extracted values back in
// the source words. OCR itself runs elsewhere; this package only consumes
// already-recognized text.
package ocr

import "github.com/paperlens/docparse/internal/entity"

// Word is one recognized token with its bounding box.
type Word struct {
	Text       string             `json:"text"`
	Box        entity.BoundingBox `json:"bbox"`
	Confidence float64            `json:"confidence"` // 0..1
}

// Page is one recognized page: full text plus ordered words.
type Page struct {
	Number int    `json:"page"`
	Text   string `json:"text"`
	Words  []Word `json:"words"`
}

// JoinText concatenates page texts for prompt building.
func JoinText(pages []Page) string {
	var out string
	for i, p := range pages {
		if i > 0 {
			out += "\n"
		}
		out += p.Text
	}
	return out
}
