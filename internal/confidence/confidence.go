// Package confidence combines the three per-prediction sub-scores (model,
// validation, document clarity) into the final score that drives the
// requires-review decision, and generates human-readable reasons when the
// result falls below threshold.
package confidence

import (
	"strings"
)

// Fixed cut points for reason generation and the learning retry gate.
const (
	// LearningLine is the confidence below which the classification path is
	// allowed its single learning retry.
	LearningLine = 0.7

	// DefaultLLMConfidence is used when the model reports no signal at all;
	// missing signal is moderate, not zero.
	DefaultLLMConfidence = 0.8

	// ValidationPassScore / ValidationFailScore; the fail score keeps a
	// nonzero floor so ranking between failed predictions survives.
	ValidationPassScore = 1.0
	ValidationFailScore = 0.3

	// FieldClarityPlaceholder is the fixed clarity used on the per-field
	// confidence path, where no type-level keyword signal applies.
	FieldClarityPlaceholder = 0.8
)

// Scores carries the three sub-scores plus their clamped product.
type Scores struct {
	LLM        float64
	Validation float64
	Clarity    float64
	Final      float64
}

// Clamp bounds v to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Combine clamps each factor and multiplies.
func Combine(llm, validation, clarity float64) Scores {
	s := Scores{
		LLM:        Clamp(llm),
		Validation: Clamp(validation),
		Clarity:    Clamp(clarity),
	}
	s.Final = Clamp(s.LLM * s.Validation * s.Clarity)
	return s
}

// LLMFromSignal normalizes the model's self-reported confidence. The signal
// may be a bare number or an object carrying a "confidence" member; anything
// else counts as absent.
func LLMFromSignal(signal any) float64 {
	switch v := signal.(type) {
	case float64:
		return Clamp(v)
	case float32:
		return Clamp(float64(v))
	case int:
		return Clamp(float64(v))
	case map[string]any:
		if c, ok := v["confidence"]; ok {
			return LLMFromSignal(c)
		}
	}
	return DefaultLLMConfidence
}

// ValidationScore maps a pass/fail flag to the validation sub-score.
func ValidationScore(passed bool) float64 {
	if passed {
		return ValidationPassScore
	}
	return ValidationFailScore
}

// ClarityFromKeywords buckets the keyword match ratio of text. Empty text is
// poor quality; an empty keyword list is no signal and stays neutral.
func ClarityFromKeywords(text string, keywords []string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0.4
	}
	if len(keywords) == 0 {
		return 1.0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(keywords))
	switch {
	case ratio >= 1.0:
		return 1.0
	case ratio >= 0.5:
		return 0.7
	default:
		return 0.4
	}
}

// Reasons explains a below-threshold score by checking each sub-score
// against its fixed cut point. Above threshold there is nothing to explain.
func Reasons(s Scores, threshold float64) []string {
	if s.Final >= threshold {
		return nil
	}
	var reasons []string
	if s.LLM < 0.7 {
		reasons = append(reasons, "model uncertainty")
	}
	if s.Validation < 1.0 {
		if s.Validation <= ValidationFailScore {
			reasons = append(reasons, "validation failed")
		} else {
			reasons = append(reasons, "partial validation issues")
		}
	}
	if s.Clarity < 0.7 {
		if s.Clarity <= 0.4 {
			reasons = append(reasons, "poor document quality")
		} else {
			reasons = append(reasons, "missing keywords")
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "confidence low due to combined factors")
	}
	return reasons
}

// ForClassification scores a type prediction: validation is fixed at pass
// (type membership was already enforced upstream) and clarity comes from the
// type's identifying keywords.
func ForClassification(llmSignal any, ocrText string, typeKeywords []string) Scores {
	return Combine(LLMFromSignal(llmSignal), ValidationPassScore, ClarityFromKeywords(ocrText, typeKeywords))
}

// ForField scores an extracted field from an externally computed validity
// flag. Clarity uses a fixed placeholder on this path.
func ForField(llm float64, passed bool) Scores {
	return Combine(llm, ValidationScore(passed), FieldClarityPlaceholder)
}
