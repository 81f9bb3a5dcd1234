// Package validation performs schema-level pass/fail checks on coerced
// field values and refines the validation confidence with per-field
// heuristics (dates, SSN/EIN, account and routing numbers, email, phone).
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/paperlens/docparse/constants"
	"github.com/paperlens/docparse/internal/schema"
)

var (
	reSSN           = regexp.MustCompile(`^\d{3}-?\d{2}-?\d{4}$`)
	reEIN           = regexp.MustCompile(`^\d{2}-?\d{7}$`)
	reMaskedAccount = regexp.MustCompile(`^\*{2,}\d{4}$`)
	reBareAccount   = regexp.MustCompile(`^\d{8,17}$`)
	reRouting       = regexp.MustCompile(`^\d{9}$`)
	reEmail         = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	rePhone         = regexp.MustCompile(`^\+?[\d\s().-]{7,20}$`)
)

// FieldResult is the outcome of validating one field.
type FieldResult struct {
	Name       string
	Status     constants.ValidationStatus
	Confidence float64
	Error      string
}

// DocumentResult aggregates per-field outcomes.
type DocumentResult struct {
	Valid  bool
	Fields []FieldResult
	Errors []string
}

// Service validates coerced values against the declared schemas.
// Read-only after construction; compiled schemas are cached per kind.
type Service struct {
	schemas  *schema.Store
	compiled map[schema.FieldKind]*jsonschema.Schema
	logger   *slog.Logger
}

func NewService(store *schema.Store, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	compiled := make(map[schema.FieldKind]*jsonschema.Schema, 4)
	for kind, m := range map[schema.FieldKind]map[string]any{
		schema.KindString:  {"type": "string"},
		schema.KindNumber:  {"type": "number"},
		schema.KindBoolean: {"type": "boolean"},
		schema.KindArray:   {"type": "array"},
	} {
		cs, err := compileSchema(m)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", kind, err)
		}
		compiled[kind] = cs
	}
	return &Service{schemas: store, compiled: compiled, logger: logger}, nil
}

func compileSchema(m map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("schema.json")
}

// ValidateField runs the kind check and, on pass, the name heuristic.
// Null values are skipped, not failed: there is nothing to check.
func (s *Service) ValidateField(def schema.FieldDef, value any) FieldResult {
	if value == nil {
		// Nothing to check; neutral confidence so the skipped field does
		// not masquerade as verified.
		return FieldResult{Name: def.Name, Status: constants.ValidationSkipped, Confidence: 0.5}
	}

	cs, ok := s.compiled[def.Kind]
	if !ok {
		cs = s.compiled[schema.KindString]
	}
	if err := cs.Validate(value); err != nil {
		return FieldResult{
			Name:       def.Name,
			Status:     constants.ValidationFailed,
			Confidence: 0.3,
			Error:      fmt.Sprintf("expected %s: %v", def.Kind, compactError(err)),
		}
	}

	return FieldResult{
		Name:       def.Name,
		Status:     constants.ValidationPassed,
		Confidence: heuristicConfidence(def, value),
	}
}

// ValidateDocument checks every schema field of the given type against the
// provided values. Missing fields validate as null (skipped).
func (s *Service) ValidateDocument(docType constants.DocumentType, values map[string]any) (*DocumentResult, error) {
	ds, ok := s.schemas.Get(docType)
	if !ok {
		return nil, fmt.Errorf("no schema for document type %q", docType)
	}

	result := &DocumentResult{Valid: true}
	for _, def := range ds.Fields {
		fr := s.ValidateField(def, values[def.Name])
		result.Fields = append(result.Fields, fr)
		if fr.Status == constants.ValidationFailed {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", fr.Name, fr.Error))
		}
	}
	if !result.Valid {
		s.logger.Debug("validation.document.failed",
			"doc_type", string(docType), "errors", len(result.Errors))
	}
	return result, nil
}

// heuristicConfidence refines a passing field's confidence from its name.
func heuristicConfidence(def schema.FieldDef, value any) float64 {
	name := strings.ToLower(def.Name)
	str, isStr := value.(string)
	str = strings.TrimSpace(str)

	switch {
	case containsAny(name, "date", "time", "start", "end", "due"):
		if isStr && isParseableDate(str) {
			return 1.0
		}
		return 0.5
	case containsAny(name, "ssn", "social"):
		if isStr && reSSN.MatchString(str) {
			return 1.0
		}
		return 0.5
	case containsAny(name, "ein"):
		if isStr && reEIN.MatchString(str) {
			return 1.0
		}
		return 0.5
	case containsAny(name, "routing", "aba"):
		if isStr && ValidRoutingNumber(str) {
			return 1.0
		}
		return 0.5
	case containsAny(name, "account"):
		if isStr && (reMaskedAccount.MatchString(str) || reBareAccount.MatchString(str)) {
			return 1.0
		}
		return 0.7
	case containsAny(name, "email"):
		if isStr && reEmail.MatchString(str) {
			return 1.0
		}
		return 0.5
	case containsAny(name, "phone", "tel"):
		if isStr && rePhone.MatchString(str) {
			return 1.0
		}
		return 0.5
	}

	switch def.Kind {
	case schema.KindString:
		return 0.8
	case schema.KindNumber, schema.KindBoolean:
		return 0.9
	default:
		return 0.5
	}
}

// ValidRoutingNumber runs the ABA mod-10 checksum: weights 3,7,1 repeating
// over nine digits.
func ValidRoutingNumber(s string) bool {
	if !reRouting.MatchString(s) {
		return false
	}
	weights := [9]int{3, 7, 1, 3, 7, 1, 3, 7, 1}
	sum := 0
	for i, r := range s {
		sum += int(r-'0') * weights[i]
	}
	return sum%10 == 0
}

func isParseableDate(s string) bool {
	for _, layout := range []string{"2006-01-02", "01/02/2006", "1/2/2006", "Jan 2, 2006", "02 Jan 2006"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func compactError(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "\n"); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
