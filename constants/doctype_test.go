package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDocumentType(t *testing.T) {
	dt, ok := ParseDocumentType("Bank Statement")
	assert.True(t, ok)
	assert.Equal(t, BankStatement, dt)

	dt, ok = ParseDocumentType("  government id ")
	assert.True(t, ok)
	assert.Equal(t, GovernmentID, dt)

	_, ok = ParseDocumentType("Driver License")
	assert.False(t, ok)

	_, ok = ParseDocumentType("")
	assert.False(t, ok)
}

func TestRemapDocumentType(t *testing.T) {
	tests := map[string]DocumentType{
		"Driver License":        GovernmentID,
		"driver's license":      GovernmentID,
		"passport":              GovernmentID,
		"W-2":                   TaxForm,
		"payslip":               PayStub,
		"credit card statement": BankStatement,
		"lease":                 Contract,
		"purchase order":        Invoice,
	}
	for input, want := range tests {
		dt, ok := RemapDocumentType(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, dt, input)
	}

	_, ok := RemapDocumentType("mystery scroll")
	assert.False(t, ok)
}

func TestAllDocumentTypes(t *testing.T) {
	all := AllDocumentTypes()
	assert.Len(t, all, 9)
	assert.Equal(t, "Invoice", all[0])
	assert.Contains(t, all, "Unknown")
}
