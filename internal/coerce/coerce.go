// Package coerce normalizes raw LLM output strings to the kinds the schema
// declares. Dispatch is on the declared FieldKind only; no runtime shape
// inspection of the schema.
package coerce

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/paperlens/docparse/internal/schema"
)

var arraySeparators = []string{",", ";", "|", "\n"}

// currency symbols stripped before number parsing; letters are never
// stripped so garbage like "abc" stays unparseable.
const currencyRunes = "$€£¥₹₩₦¢"

// Value coerces a raw value to the field's declared kind. Unconvertible
// input yields nil, never an error.
func Value(raw any, def schema.FieldDef) any {
	if raw == nil {
		return nil
	}
	switch def.Kind {
	case schema.KindBoolean:
		return ToBoolean(raw)
	case schema.KindNumber:
		return ToNumber(raw)
	case schema.KindArray:
		return ToArray(raw)
	default:
		return toString(raw, def.Name)
	}
}

// ToBoolean accepts {true,yes,1} / {false,no,0} case-insensitive.
func ToBoolean(raw any) any {
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		if v == 1 {
			return true
		}
		if v == 0 {
			return false
		}
		return nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return nil
}

// ToArray passes arrays through, tries a JSON-array parse, then splits on
// the first separator present. A single non-empty token becomes a one
// element array; an empty string becomes an empty array.
func ToArray(raw any) any {
	switch v := raw.(type) {
	case []any:
		return v
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return []any{}
		}
		if strings.HasPrefix(s, "[") {
			var arr []any
			if err := json.Unmarshal([]byte(s), &arr); err == nil {
				return arr
			}
		}
		for _, sep := range arraySeparators {
			if strings.Contains(s, sep) {
				parts := strings.Split(s, sep)
				out := make([]any, 0, len(parts))
				for _, p := range parts {
					if t := strings.TrimSpace(p); t != "" {
						out = append(out, t)
					}
				}
				return out
			}
		}
		return []any{s}
	default:
		return []any{raw}
	}
}

// ToNumber parses locale-ambiguous numerics. Both separators present: the
// one occurring last is the decimal point. Only commas: decimal when the
// trailing group has at most two digits, thousands grouping otherwise.
// Multiple periods: all-thousands when every non-first group is exactly
// three digits, otherwise the last period is kept as the decimal point.
// Parentheses or a leading minus mean negative. Unparseable input is nil.
func ToNumber(raw any) any {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, ok := parseNumber(v); ok {
			return f
		}
		return nil
	default:
		return nil
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	// strip currency symbols and whitespace
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(currencyRunes, r) || r == ' ' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}

	s = normalizeSeparators(s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastPeriod := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastPeriod >= 0:
		// The separator occurring last is the decimal point; the other is
		// grouping and is stripped everywhere.
		if lastComma > lastPeriod {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
			// only the final comma was decimal; earlier commas were grouping
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
		return s

	case lastComma >= 0:
		trailing := s[lastComma+1:]
		if len(trailing) <= 2 {
			head := strings.ReplaceAll(s[:lastComma], ",", "")
			return head + "." + trailing
		}
		return strings.ReplaceAll(s, ",", "")

	case lastPeriod >= 0 && strings.Count(s, ".") >= 2:
		groups := strings.Split(s, ".")
		if allThousandsGroups(groups) {
			return strings.Join(groups, "")
		}
		last := groups[len(groups)-1]
		if len(last) >= 1 && len(last) <= 3 {
			return strings.Join(groups[:len(groups)-1], "") + "." + last
		}
		return strings.Join(groups, "")
	}
	return s
}

// allThousandsGroups reports whether a multi-period numeral is pure
// thousands grouping: first group 1-3 digits, every later group exactly 3.
func allThousandsGroups(groups []string) bool {
	if len(groups) < 2 {
		return false
	}
	if len(groups[0]) < 1 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

var dateFieldMarkers = []string{"date", "time", "start", "end", "due"}

// isDateField applies the name heuristic gating date normalization.
func isDateField(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range dateFieldMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"2006/01/02",
	"02.01.2006",
}

// toString normalizes string fields. Name-matched date fields get an ISO
// reformat attempt; on failure the original string is returned unchanged.
func toString(raw any, name string) any {
	s, ok := raw.(string)
	if !ok {
		switch v := raw.(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		default:
			return raw
		}
	}
	if !isDateField(name) {
		return s
	}
	return NormalizeDate(s)
}

// NormalizeDate reformats a recognizable calendar date to YYYY-MM-DD. ISO
// input passes through; unrecognized input is returned as-is.
func NormalizeDate(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	if _, err := time.Parse("2006-01-02", trimmed); err == nil {
		return trimmed
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
