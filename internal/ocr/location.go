package ocr

import (
	"strconv"
	"strings"

	"github.com/paperlens/docparse/internal/entity"
)

// Location search is best-effort: it feeds an optional UI highlight and a
// miss is never an error. Matching runs over normalized text (lowercase,
// alphanumerics only), page by page, first match wins.

// Locate finds the OCR source of a value. Arrays search by their first
// element only; values that normalize to fewer than two characters are
// never searched.
func Locate(value any, pages []Page) *entity.FieldLocation {
	target := searchString(value)
	if target == "" {
		return nil
	}
	targetNorm := normalize(target)
	if len(targetNorm) < 2 {
		return nil
	}
	wordCount := len(strings.Fields(target))

	for _, page := range pages {
		if loc := locateInPage(target, targetNorm, wordCount, page); loc != nil {
			return loc
		}
	}
	return nil
}

func locateInPage(target, targetNorm string, wordCount int, page Page) *entity.FieldLocation {
	norms := make([]string, len(page.Words))
	for i, w := range page.Words {
		norms[i] = normalize(w.Text)
	}

	// normalized target with token boundaries kept, for spaced span matches
	targetSpaced := normalizeSpaced(target)

	// (a) exact single-word match
	for i, n := range norms {
		if n != "" && n == targetNorm {
			return &entity.FieldLocation{Page: page.Number, Box: page.Words[i].Box}
		}
	}

	// (b) multi-word span growth
	span := wordCount + 3
	if span < 10 {
		span = 10
	}
	if span > 20 {
		span = 20
	}
	containLen := 4
	if wordCount > 1 {
		containLen = 8
	}
	for start := range page.Words {
		var spaced, joined string
		for end := start; end < len(page.Words) && end-start < span; end++ {
			if norms[end] == "" {
				continue
			}
			if spaced != "" {
				spaced += " "
			}
			spaced += norms[end]
			joined += norms[end]

			if spaced == targetSpaced || joined == targetNorm {
				return &entity.FieldLocation{Page: page.Number, Box: unionBox(page.Words[start : end+1])}
			}
			if len(targetNorm) > containLen && strings.Contains(joined, targetNorm) {
				return &entity.FieldLocation{Page: page.Number, Box: unionBox(page.Words[start : end+1])}
			}
		}
	}

	// (c) page-wide substring fallback
	if len(targetNorm) > 6 {
		if loc := pageSubstring(targetNorm, norms, page); loc != nil {
			return loc
		}
	}
	return nil
}

// pageSubstring concatenates all page words and unions the boxes of words
// overlapping the matched byte range.
func pageSubstring(targetNorm string, norms []string, page Page) *entity.FieldLocation {
	var all strings.Builder
	starts := make([]int, len(norms))
	for i, n := range norms {
		starts[i] = all.Len()
		all.WriteString(n)
	}
	idx := strings.Index(all.String(), targetNorm)
	if idx < 0 {
		return nil
	}
	endIdx := idx + len(targetNorm)

	var matched []Word
	for i, w := range page.Words {
		wStart := starts[i]
		wEnd := wStart + len(norms[i])
		if wEnd > idx && wStart < endIdx && norms[i] != "" {
			matched = append(matched, w)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	return &entity.FieldLocation{Page: page.Number, Box: unionBox(matched)}
}

func unionBox(words []Word) entity.BoundingBox {
	var minX, minY, maxX, maxY float64
	first := true
	for _, w := range words {
		if normalize(w.Text) == "" {
			continue
		}
		x2, y2 := w.Box.X+w.Box.W, w.Box.Y+w.Box.H
		if first {
			minX, minY, maxX, maxY = w.Box.X, w.Box.Y, x2, y2
			first = false
			continue
		}
		if w.Box.X < minX {
			minX = w.Box.X
		}
		if w.Box.Y < minY {
			minY = w.Box.Y
		}
		if x2 > maxX {
			maxX = x2
		}
		if y2 > maxY {
			maxY = y2
		}
	}
	return entity.BoundingBox{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// searchString renders a field value as searchable text. Arrays contribute
// their first element; unsupported shapes are skipped.
func searchString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		if len(v) == 0 {
			return ""
		}
		return searchString(v[0])
	default:
		return ""
	}
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeSpaced(s string) string {
	fields := strings.Fields(s)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if n := normalize(f); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " ")
}
