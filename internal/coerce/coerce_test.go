package coerce

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paperlens/docparse/internal/schema"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{"mixed separators period last", "1,234.56", 1234.56},
		{"mixed separators comma last", "1.234,56", 1234.56},
		{"multiple periods ambiguous grouping", "5.3620.787", 53620.787},
		{"multiple periods pure thousands", "1.234.567", 1234567.0},
		{"parentheses negative with currency", "($1,234.56)", -1234.56},
		{"leading minus", "-42.5", -42.5},
		{"comma as decimal", "19,99", 19.99},
		{"comma as thousands", "1,234", 1234.0},
		{"currency symbol euro", "€12,50", 12.5},
		{"plain integer", "1200", 1200.0},
		{"whitespace padded", "  7.25 ", 7.25},
		{"empty string", "", nil},
		{"garbage", "abc", nil},
		{"currency only", "$", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToNumber(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.InDelta(t, tt.want.(float64), got.(float64), 1e-9)
		})
	}
}

func TestToNumberPassthrough(t *testing.T) {
	assert.Equal(t, 3.14, ToNumber(3.14))
	assert.Nil(t, ToNumber(true))
}

func TestToBoolean(t *testing.T) {
	assert.Equal(t, true, ToBoolean("Yes"))
	assert.Equal(t, true, ToBoolean("TRUE"))
	assert.Equal(t, true, ToBoolean("1"))
	assert.Equal(t, false, ToBoolean("no"))
	assert.Equal(t, false, ToBoolean("0"))
	assert.Equal(t, false, ToBoolean(false))
	assert.Nil(t, ToBoolean("maybe"))
	assert.Nil(t, ToBoolean(0.5))
}

func TestToArray(t *testing.T) {
	assert.Equal(t, []any{"red", "green", "blue"}, ToArray("red, green, blue"))
	assert.Equal(t, []any{"a", "b"}, ToArray("a|b"))
	assert.Equal(t, []any{"solo"}, ToArray("solo"))
	assert.Equal(t, []any{}, ToArray(""))
	assert.Equal(t, []any{"x", "y"}, ToArray([]any{"x", "y"}))

	// JSON array parse
	got := ToArray(`["one","two"]`)
	assert.Equal(t, []any{"one", "two"}, got)
}

func TestArraySeparatorPrecedence(t *testing.T) {
	// comma wins over semicolon because it is checked first
	assert.Equal(t, []any{"a", "b; c"}, ToArray("a, b; c"))
}

func TestDateNormalization(t *testing.T) {
	def := schema.FieldDef{Name: "invoice_date", Kind: schema.KindString}
	assert.Equal(t, "2024-03-15", Value("03/15/2024", def))
	assert.Equal(t, "2024-03-15", Value("2024-03-15", def))
	assert.Equal(t, "2024-03-15", Value("Mar 15, 2024", def))

	// unparseable dates come back unchanged
	assert.Equal(t, "next tuesday", Value("next tuesday", def))
}

func TestDateGateByFieldName(t *testing.T) {
	// non-date fields never get a date rewrite even if they look like one
	def := schema.FieldDef{Name: "merchant_name", Kind: schema.KindString}
	assert.Equal(t, "03/15/2024", Value("03/15/2024", def))
}

func TestValueDispatch(t *testing.T) {
	assert.Nil(t, Value(nil, schema.FieldDef{Name: "total", Kind: schema.KindNumber}))
	assert.Equal(t, 10.85, Value("$10.85", schema.FieldDef{Name: "total", Kind: schema.KindNumber}))
	assert.Equal(t, true, Value("yes", schema.FieldDef{Name: "auto_renewal", Kind: schema.KindBoolean}))
	assert.Equal(t, []any{"a", "b"}, Value("a,b", schema.FieldDef{Name: "items", Kind: schema.KindArray}))
}
