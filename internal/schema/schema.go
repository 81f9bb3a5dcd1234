// Package schema holds the per-type field definitions the pipeline extracts
// against: ordered field lists with a declared kind and keyword hints used
// for clarity scoring. Kinds are authored explicitly; nothing is inferred
// from values at runtime.
package schema

import (
	"github.com/paperlens/docparse/constants"
)

// FieldKind tags the value shape a schema field expects.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindNumber  FieldKind = "number"
	KindBoolean FieldKind = "boolean"
	KindArray   FieldKind = "array"
)

// FieldDef describes one extractable field.
type FieldDef struct {
	Name     string
	Kind     FieldKind
	Keywords []string
}

// DocSchema is the ordered field list for one document type.
type DocSchema struct {
	DocType constants.DocumentType
	Fields  []FieldDef
	// Keywords identify the document type itself; used for classification
	// clarity scoring.
	Keywords []string
}

// FieldNames returns the field names in schema order.
func (s *DocSchema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field definition by name.
func (s *DocSchema) Field(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Store resolves document types to their schemas. Read-only after construction.
type Store struct {
	schemas map[constants.DocumentType]*DocSchema
}

// NewStore builds the store with the built-in schemas.
func NewStore() *Store {
	s := &Store{schemas: make(map[constants.DocumentType]*DocSchema)}
	for _, ds := range builtinSchemas() {
		s.schemas[ds.DocType] = ds
	}
	return s
}

// Get returns the schema for a document type, or false if none is defined.
func (s *Store) Get(docType constants.DocumentType) (*DocSchema, bool) {
	ds, ok := s.schemas[docType]
	return ds, ok
}

// TypeKeywords returns the identifying keywords for a document type.
// Empty for unknown types; callers treat that as neutral clarity.
func (s *Store) TypeKeywords(docType constants.DocumentType) []string {
	if ds, ok := s.schemas[docType]; ok {
		return ds.Keywords
	}
	return nil
}

// BuildJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic
// map for one document type. Every field is nullable so the model can emit
// null for values it cannot find; field kinds are otherwise strict.
func (s *Store) BuildJSONSchema(docType constants.DocumentType) (map[string]any, bool) {
	ds, ok := s.schemas[docType]
	if !ok {
		return nil, false
	}
	props := map[string]any{}
	required := make([]string, 0, len(ds.Fields))
	for _, f := range ds.Fields {
		props[f.Name] = kindProp(f.Kind)
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}, true
}

func kindProp(kind FieldKind) map[string]any {
	switch kind {
	case KindNumber:
		return map[string]any{"type": []string{"number", "null"}}
	case KindBoolean:
		return map[string]any{"type": []string{"boolean", "null"}}
	case KindArray:
		return map[string]any{"type": []string{"array", "null"}}
	default:
		return map[string]any{"type": []string{"string", "null"}}
	}
}

func builtinSchemas() []*DocSchema {
	return []*DocSchema{
		{
			DocType:  constants.Invoice,
			Keywords: []string{"invoice", "amount due", "bill to", "invoice number", "due date"},
			Fields: []FieldDef{
				{Name: "invoice_number", Kind: KindString, Keywords: []string{"invoice", "number", "no"}},
				{Name: "vendor_name", Kind: KindString, Keywords: []string{"from", "vendor", "seller"}},
				{Name: "invoice_date", Kind: KindString, Keywords: []string{"date", "issued"}},
				{Name: "due_date", Kind: KindString, Keywords: []string{"due", "payable"}},
				{Name: "subtotal", Kind: KindNumber, Keywords: []string{"subtotal"}},
				{Name: "tax", Kind: KindNumber, Keywords: []string{"tax", "vat", "gst"}},
				{Name: "total_amount", Kind: KindNumber, Keywords: []string{"total", "amount", "due"}},
				{Name: "line_items", Kind: KindArray, Keywords: []string{"description", "qty", "quantity"}},
			},
		},
		{
			DocType:  constants.Receipt,
			Keywords: []string{"receipt", "total", "change", "cash", "card"},
			Fields: []FieldDef{
				{Name: "merchant_name", Kind: KindString, Keywords: []string{"store", "merchant"}},
				{Name: "transaction_date", Kind: KindString, Keywords: []string{"date", "time"}},
				{Name: "subtotal", Kind: KindNumber, Keywords: []string{"subtotal"}},
				{Name: "tax", Kind: KindNumber, Keywords: []string{"tax"}},
				{Name: "total", Kind: KindNumber, Keywords: []string{"total", "amount"}},
				{Name: "payment_method", Kind: KindString, Keywords: []string{"cash", "card", "visa", "mastercard"}},
				{Name: "items", Kind: KindArray, Keywords: []string{"item", "qty"}},
			},
		},
		{
			DocType:  constants.BankStatement,
			Keywords: []string{"account", "balance", "statement", "bank", "transaction"},
			Fields: []FieldDef{
				{Name: "bank_name", Kind: KindString, Keywords: []string{"bank"}},
				{Name: "account_number", Kind: KindString, Keywords: []string{"account", "number"}},
				{Name: "routing_number", Kind: KindString, Keywords: []string{"routing", "aba"}},
				{Name: "statement_start_date", Kind: KindString, Keywords: []string{"period", "from", "start"}},
				{Name: "statement_end_date", Kind: KindString, Keywords: []string{"period", "to", "end"}},
				{Name: "opening_balance", Kind: KindNumber, Keywords: []string{"opening", "beginning", "balance"}},
				{Name: "closing_balance", Kind: KindNumber, Keywords: []string{"closing", "ending", "balance"}},
			},
		},
		{
			DocType:  constants.PayStub,
			Keywords: []string{"pay", "earnings", "gross", "net", "ytd", "employee"},
			Fields: []FieldDef{
				{Name: "employer_name", Kind: KindString, Keywords: []string{"employer", "company"}},
				{Name: "employee_name", Kind: KindString, Keywords: []string{"employee", "name"}},
				{Name: "pay_period_start", Kind: KindString, Keywords: []string{"period", "start", "from"}},
				{Name: "pay_period_end", Kind: KindString, Keywords: []string{"period", "end", "to"}},
				{Name: "gross_pay", Kind: KindNumber, Keywords: []string{"gross", "earnings"}},
				{Name: "net_pay", Kind: KindNumber, Keywords: []string{"net", "take home"}},
				{Name: "ytd_gross", Kind: KindNumber, Keywords: []string{"ytd", "year to date"}},
			},
		},
		{
			DocType:  constants.TaxForm,
			Keywords: []string{"tax", "irs", "form", "ein", "withheld", "wages"},
			Fields: []FieldDef{
				{Name: "form_type", Kind: KindString, Keywords: []string{"form", "w-2", "1099"}},
				{Name: "tax_year", Kind: KindString, Keywords: []string{"year"}},
				{Name: "employer_ein", Kind: KindString, Keywords: []string{"ein", "employer"}},
				{Name: "employee_ssn", Kind: KindString, Keywords: []string{"ssn", "social security"}},
				{Name: "wages", Kind: KindNumber, Keywords: []string{"wages", "compensation"}},
				{Name: "federal_tax_withheld", Kind: KindNumber, Keywords: []string{"federal", "withheld"}},
			},
		},
		{
			DocType:  constants.GovernmentID,
			Keywords: []string{"license", "identification", "id", "dob", "expires"},
			Fields: []FieldDef{
				{Name: "full_name", Kind: KindString, Keywords: []string{"name"}},
				{Name: "id_number", Kind: KindString, Keywords: []string{"number", "license", "id"}},
				{Name: "date_of_birth", Kind: KindString, Keywords: []string{"dob", "birth"}},
				{Name: "issue_date", Kind: KindString, Keywords: []string{"issued", "iss"}},
				{Name: "expiration_date", Kind: KindString, Keywords: []string{"expires", "exp"}},
				{Name: "address", Kind: KindString, Keywords: []string{"address"}},
			},
		},
		{
			DocType:  constants.Contract,
			Keywords: []string{"agreement", "party", "terms", "signature", "effective"},
			Fields: []FieldDef{
				{Name: "contract_title", Kind: KindString, Keywords: []string{"agreement", "contract"}},
				{Name: "parties", Kind: KindArray, Keywords: []string{"party", "between"}},
				{Name: "effective_date", Kind: KindString, Keywords: []string{"effective", "date"}},
				{Name: "termination_date", Kind: KindString, Keywords: []string{"termination", "expires", "end"}},
				{Name: "contract_value", Kind: KindNumber, Keywords: []string{"value", "amount", "consideration"}},
				{Name: "auto_renewal", Kind: KindBoolean, Keywords: []string{"renew", "renewal"}},
			},
		},
		{
			DocType:  constants.UtilityBill,
			Keywords: []string{"utility", "service", "usage", "billing", "kwh", "meter"},
			Fields: []FieldDef{
				{Name: "provider_name", Kind: KindString, Keywords: []string{"provider", "company"}},
				{Name: "account_number", Kind: KindString, Keywords: []string{"account", "number"}},
				{Name: "service_address", Kind: KindString, Keywords: []string{"service", "address"}},
				{Name: "billing_period_start", Kind: KindString, Keywords: []string{"period", "from", "start"}},
				{Name: "billing_period_end", Kind: KindString, Keywords: []string{"period", "to", "end"}},
				{Name: "amount_due", Kind: KindNumber, Keywords: []string{"amount", "due", "total"}},
				{Name: "due_date", Kind: KindString, Keywords: []string{"due", "date"}},
			},
		},
	}
}
