package constants

import (
	"strings"
)

// DocumentType is the closed set of document types the pipeline can emit.
type DocumentType string

const (
	Invoice       DocumentType = "Invoice"
	Receipt       DocumentType = "Receipt"
	BankStatement DocumentType = "Bank Statement"
	PayStub       DocumentType = "Pay Stub"
	TaxForm       DocumentType = "Tax Form"
	GovernmentID  DocumentType = "Government ID"
	Contract      DocumentType = "Contract"
	UtilityBill   DocumentType = "Utility Bill"
	Unknown       DocumentType = "Unknown"
)

var allDocumentTypes = []DocumentType{
	Invoice,
	Receipt,
	BankStatement,
	PayStub,
	TaxForm,
	GovernmentID,
	Contract,
	UtilityBill,
	Unknown,
}

// AllDocumentTypes returns the enum as strings, in stable order.
func AllDocumentTypes() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// ParseDocumentType matches input against the enum exactly (case-insensitive).
func ParseDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, dt := range allDocumentTypes {
		if normalized == strings.ToLower(string(dt)) {
			return dt, true
		}
	}
	return Unknown, false
}

// remapTable is the fixed lexical remap for common off-enum model answers.
// A hit here is a low-confidence normalization, not an exact parse; callers
// cap confidence when remapped.
var remapTable = map[string]DocumentType{
	"driver license":        GovernmentID,
	"driver's license":      GovernmentID,
	"drivers license":       GovernmentID,
	"passport":              GovernmentID,
	"id card":               GovernmentID,
	"national id":           GovernmentID,
	"bill":                  UtilityBill,
	"electricity bill":      UtilityBill,
	"phone bill":            UtilityBill,
	"statement":             BankStatement,
	"account statement":     BankStatement,
	"credit card statement": BankStatement,
	"paystub":               PayStub,
	"pay slip":              PayStub,
	"payslip":               PayStub,
	"wage statement":        PayStub,
	"w2":                    TaxForm,
	"w-2":                   TaxForm,
	"1099":                  TaxForm,
	"tax return":            TaxForm,
	"agreement":             Contract,
	"lease":                 Contract,
	"purchase order":        Invoice,
	"sales receipt":         Receipt,
}

// RemapDocumentType canonicalizes an off-enum label via the remap table.
func RemapDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if dt, ok := remapTable[normalized]; ok {
		return dt, true
	}
	return Unknown, false
}
