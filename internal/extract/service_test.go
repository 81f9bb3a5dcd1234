package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperlens/docparse/constants"
	"github.com/paperlens/docparse/internal/entity"
	"github.com/paperlens/docparse/internal/llm"
	"github.com/paperlens/docparse/internal/ocr"
	"github.com/paperlens/docparse/internal/schema"
	"github.com/paperlens/docparse/internal/validation"
)

const receiptText = "RECEIPT Merchant: Blue Bottle Coffee Date: 03/15/2024 " +
	"Subtotal 10.00 Tax 0.85 Total $10.85 Paid by VISA card item: coffee item: scone"

const receiptReply = `{
	"merchant_name": "Blue Bottle Coffee",
	"transaction_date": "03/15/2024",
	"subtotal": "10.00",
	"tax": "0.85",
	"total": "$10.85",
	"payment_method": null,
	"items": "coffee, scone"
}`

type scriptedClient struct {
	replies []llm.Message
	errs    []error
	calls   int
	last    llm.ChatRequest
}

func (c *scriptedClient) Chat(_ context.Context, req llm.ChatRequest) (llm.Message, error) {
	c.last = req
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return llm.Message{}, c.errs[i]
	}
	if i >= len(c.replies) {
		return llm.Message{}, errors.New("script exhausted")
	}
	return c.replies[i], nil
}

type memThresholds struct {
	values map[constants.DocumentType]float64
}

func (m *memThresholds) Get(_ context.Context, docType constants.DocumentType) (float64, error) {
	if v, ok := m.values[docType]; ok {
		return v, nil
	}
	return 0.7, nil
}

func (m *memThresholds) Set(_ context.Context, docType constants.DocumentType, value float64) error {
	if m.values == nil {
		m.values = map[constants.DocumentType]float64{}
	}
	m.values[docType] = value
	return nil
}

func newTestService(t *testing.T, client llm.ChatClient) *Service {
	t.Helper()
	store := schema.NewStore()
	validator, err := validation.NewService(store, nil)
	require.NoError(t, err)
	return NewService(client, store, validator, nil, &memThresholds{}, Config{}, nil)
}

func fieldByName(t *testing.T, res *entity.ExtractionResult, name string) entity.Field {
	t.Helper()
	for _, f := range res.Fields {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("field %q not in result", name)
	return entity.Field{}
}

func TestExtract(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{{Role: "assistant", Content: receiptReply}}}
	svc := newTestService(t, client)
	docID := uuid.New()

	res, err := svc.Extract(context.Background(), receiptText, constants.Receipt, docID, nil)
	require.NoError(t, err)
	assert.Equal(t, docID, res.DocumentID)
	assert.Equal(t, constants.Receipt, res.DocType)
	assert.False(t, res.ExtractedAt.IsZero())

	// one field per schema entry, in schema order
	ds, ok := schema.NewStore().Get(constants.Receipt)
	require.True(t, ok)
	require.Len(t, res.Fields, len(ds.Fields))
	for i, def := range ds.Fields {
		assert.Equal(t, def.Name, res.Fields[i].Name)
	}

	assert.Equal(t, "2024-03-15", fieldByName(t, res, "transaction_date").Value)
	assert.Equal(t, 10.85, fieldByName(t, res, "total").Value)
	assert.Equal(t, []any{"coffee", "scone"}, fieldByName(t, res, "items").Value)
}

func TestExtractMissingFieldScoresZero(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{{Role: "assistant", Content: receiptReply}}}
	svc := newTestService(t, client)

	res, err := svc.Extract(context.Background(), receiptText, constants.Receipt, uuid.New(), nil)
	require.NoError(t, err)

	f := fieldByName(t, res, "payment_method")
	assert.Nil(t, f.Value)
	assert.Equal(t, 0.0, f.LLMConfidence)
	assert.Equal(t, 0.0, f.FinalConfidence)
	assert.Equal(t, constants.ValidationSkipped, f.ValidationStatus)
	assert.NotEmpty(t, f.Reasons)
}

func TestExtractOverallIsMeanOfFields(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{{Role: "assistant", Content: receiptReply}}}
	svc := newTestService(t, client)

	res, err := svc.Extract(context.Background(), receiptText, constants.Receipt, uuid.New(), nil)
	require.NoError(t, err)

	var sum float64
	for _, f := range res.Fields {
		sum += f.FinalConfidence
	}
	assert.InDelta(t, sum/float64(len(res.Fields)), res.OverallConfidence, 1e-9)
	assert.Equal(t, res.OverallConfidence < 0.7, res.RequiresReview)
}

func TestExtractAttachesLocations(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{{Role: "assistant", Content: receiptReply}}}
	svc := newTestService(t, client)

	pages := []ocr.Page{{
		Number: 1,
		Words: []ocr.Word{
			{Text: "Total", Box: entity.BoundingBox{X: 10, Y: 200, W: 40, H: 12}},
			{Text: "$10.85", Box: entity.BoundingBox{X: 55, Y: 200, W: 50, H: 12}},
		},
	}}
	res, err := svc.Extract(context.Background(), receiptText, constants.Receipt, uuid.New(), pages)
	require.NoError(t, err)

	loc := fieldByName(t, res, "total").Location
	require.NotNil(t, loc)
	assert.Equal(t, 1, loc.Page)
	assert.Equal(t, entity.BoundingBox{X: 55, Y: 200, W: 50, H: 12}, loc.Box)

	// null value never gets a location
	assert.Nil(t, fieldByName(t, res, "payment_method").Location)
}

func TestExtractMalformedReply(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{{Role: "assistant", Content: "no json here"}}}
	svc := newTestService(t, client)

	_, err := svc.Extract(context.Background(), receiptText, constants.Receipt, uuid.New(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse extraction reply")
}

func TestExtractUnknownType(t *testing.T) {
	svc := newTestService(t, &scriptedClient{})
	_, err := svc.Extract(context.Background(), receiptText, constants.Unknown, uuid.New(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema")
}

func TestExtractEmbedsSchemaInPrompt(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{{Role: "assistant", Content: receiptReply}}}
	svc := newTestService(t, client)

	_, err := svc.Extract(context.Background(), receiptText, constants.Receipt, uuid.New(), nil)
	require.NoError(t, err)

	require.Len(t, client.last.Messages, 3)
	assert.True(t, client.last.JSONMode)
	assert.Contains(t, client.last.Messages[2].Content, "JSON Schema")
	assert.Contains(t, client.last.Messages[2].Content, "merchant_name")
}

func TestReExtract(t *testing.T) {
	invoiceReply := `{
		"invoice_number": "INV-42",
		"vendor_name": "Blue Bottle Coffee",
		"invoice_date": "2024-03-15",
		"due_date": null,
		"subtotal": 10.0,
		"tax": 0.85,
		"total_amount": 10.85,
		"line_items": ["coffee"]
	}`
	client := &scriptedClient{replies: []llm.Message{{Role: "assistant", Content: invoiceReply}}}
	svc := newTestService(t, client)

	res, err := svc.ReExtract(context.Background(), uuid.New(), constants.Invoice, receiptText, nil)
	require.NoError(t, err)
	assert.Equal(t, constants.Invoice, res.DocType)
	assert.Equal(t, "INV-42", fieldByName(t, res, "invoice_number").Value)
}

func TestThresholdPassthrough(t *testing.T) {
	svc := newTestService(t, &scriptedClient{})
	ctx := context.Background()

	v, err := svc.GetThreshold(ctx, constants.Receipt)
	require.NoError(t, err)
	assert.Equal(t, 0.7, v)

	require.NoError(t, svc.SetThreshold(ctx, constants.Receipt, 0.9))
	v, err = svc.GetThreshold(ctx, constants.Receipt)
	require.NoError(t, err)
	assert.Equal(t, 0.9, v)
}

func TestShapeConfidence(t *testing.T) {
	assert.Equal(t, 0.0, shapeConfidence(nil))
	assert.Equal(t, 0.1, shapeConfidence(""))
	assert.Equal(t, 0.3, shapeConfidence("a"))
	assert.Equal(t, 0.6, shapeConfidence("acme"))
	assert.Equal(t, 0.85, shapeConfidence("Blue Bottle"))
	assert.Equal(t, 0.9, shapeConfidence(10.85))
	assert.Equal(t, 0.95, shapeConfidence(true))
	assert.Equal(t, 0.2, shapeConfidence([]any{}))
	assert.Equal(t, 0.8, shapeConfidence([]any{"x"}))
}

func TestFieldClarity(t *testing.T) {
	text := "total amount due on receipt"
	assert.Equal(t, 0.95, fieldClarity(text, nil))
	assert.Equal(t, 0.95, fieldClarity(text, []string{"total", "amount"}))
	assert.Equal(t, 0.3, fieldClarity(text, []string{"routing", "aba"}))
	assert.Equal(t, 0.7, fieldClarity(text, []string{"total", "missing"}))
}
