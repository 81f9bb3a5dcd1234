package classify

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperlens/docparse/constants"
	"github.com/paperlens/docparse/internal/entity"
	"github.com/paperlens/docparse/internal/learning"
	"github.com/paperlens/docparse/internal/llm"
	"github.com/paperlens/docparse/internal/schema"
	"github.com/paperlens/docparse/internal/tools"
)

const bankText = "First National Bank. Statement period 03/01-03/31. Account 42, " +
	"opening balance $100.00, one transaction, closing balance $250.50."

const idText = "DRIVER LICENSE. DL No C1234567. DOB 01/01/1990. Expires 2030. " +
	"State identification id card."

type scriptedClient struct {
	replies []llm.Message
	errs    []error
	calls   int
}

func (c *scriptedClient) Chat(_ context.Context, _ llm.ChatRequest) (llm.Message, error) {
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

func answer(content string) llm.Message {
	return llm.Message{Role: "assistant", Content: content}
}

type fixedThresholds struct{ value float64 }

func (f fixedThresholds) Get(_ context.Context, _ constants.DocumentType) (float64, error) {
	return f.value, nil
}

func (f fixedThresholds) Set(_ context.Context, _ constants.DocumentType, _ float64) error {
	return nil
}

type goldLog struct {
	rows []entity.Correction
}

func (g *goldLog) ListGold(_ context.Context, docType constants.DocumentType) ([]entity.Correction, error) {
	var out []entity.Correction
	for _, r := range g.rows {
		if r.DocType == docType {
			out = append(out, r)
		}
	}
	return out, nil
}

func (g *goldLog) CountGold(ctx context.Context, docType constants.DocumentType) (int, error) {
	rows, _ := g.ListGold(ctx, docType)
	return len(rows), nil
}

func newTestService(client llm.ChatClient, gold *goldLog) *Service {
	if gold == nil {
		gold = &goldLog{}
	}
	learningSvc := learning.NewService(gold, rand.New(rand.NewSource(1)), nil)
	registry := tools.NewRegistry(nil, nil)
	return NewService(client, registry, learningSvc, fixedThresholds{0.7}, schema.NewStore(), Config{}, nil)
}

func TestClassifyHighConfidence(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{
		answer(`{"document_type":"Bank Statement","confidence":0.95,"evidence":["statement period","closing balance"]}`),
	}}
	svc := newTestService(client, nil)

	res, err := svc.Classify(context.Background(), bankText, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, constants.BankStatement, res.DocType)
	assert.InDelta(t, 0.95, res.LLMConfidence, 1e-9)
	assert.Equal(t, 1.0, res.ValidationConfidence)
	assert.Equal(t, 1.0, res.ClarityConfidence)
	assert.InDelta(t, 0.95, res.FinalConfidence, 1e-9)
	assert.False(t, res.RequiresReview)
	assert.False(t, res.ToolUsed)
	assert.Nil(t, res.Reasons)
	assert.Equal(t, []string{"statement period", "closing balance"}, res.Evidence)
}

func TestClassifyRemapCapsConfidence(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{
		answer(`{"document_type":"Driver License","confidence":0.9,"evidence":["DL No"]}`),
	}}
	svc := newTestService(client, nil)

	res, err := svc.Classify(context.Background(), idText, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, constants.GovernmentID, res.DocType)
	assert.LessOrEqual(t, res.LLMConfidence, RemapConfidenceCap)
	assert.True(t, res.RequiresReview)
	assert.NotEmpty(t, res.Reasons)
}

func TestClassifyMissingConfidenceDefaults(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{
		answer(`{"document_type":"Bank Statement","evidence":[]}`),
	}}
	svc := newTestService(client, nil)

	res, err := svc.Classify(context.Background(), bankText, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0.8, res.LLMConfidence)
}

func TestClassifyUnresolvableType(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{
		answer(`{"document_type":"Mystery Scroll","confidence":0.9}`),
	}}
	svc := newTestService(client, nil)

	_, err := svc.Classify(context.Background(), bankText, uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolvable")
}

func TestClassifyMalformedReply(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{answer("not json at all")}}
	svc := newTestService(client, nil)

	_, err := svc.Classify(context.Background(), bankText, uuid.New())
	require.Error(t, err)
}

func TestClassifyLearningRetryAdopted(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{
		answer(`{"document_type":"Bank Statement","confidence":0.3,"evidence":[]}`),
		answer(`{"document_type":"Bank Statement","confidence":0.95,"evidence":["statement period"]}`),
	}}
	gold := &goldLog{rows: []entity.Correction{{
		DocType:        constants.BankStatement,
		FieldName:      "closing_balance",
		CorrectedValue: json.RawMessage(`250.5`),
		OCRText:        "closing balance 250.50",
		IsGold:         true,
	}}}
	svc := newTestService(client, gold)

	res, err := svc.Classify(context.Background(), bankText, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.InDelta(t, 0.95, res.FinalConfidence, 1e-9)
	assert.True(t, res.ToolUsed)
	assert.False(t, res.RequiresReview)
}

func TestClassifyLearningRetryDiscarded(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{
		answer(`{"document_type":"Bank Statement","confidence":0.5,"evidence":[]}`),
		answer(`{"document_type":"Bank Statement","confidence":0.2,"evidence":[]}`),
	}}
	gold := &goldLog{rows: []entity.Correction{{
		DocType: constants.BankStatement,
		IsGold:  true,
		OCRText: "statement",
	}}}
	svc := newTestService(client, gold)

	res, err := svc.Classify(context.Background(), bankText, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.InDelta(t, 0.5, res.FinalConfidence, 1e-9)
	assert.False(t, res.ToolUsed)
	assert.True(t, res.RequiresReview)
}

func TestClassifyNoRetryWithoutGold(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{
		answer(`{"document_type":"Bank Statement","confidence":0.3,"evidence":[]}`),
	}}
	svc := newTestService(client, nil)

	res, err := svc.Classify(context.Background(), bankText, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
	assert.True(t, res.RequiresReview)
}

func TestClassifyToolUseSuppressesRetry(t *testing.T) {
	toolReply := llm.Message{
		Role: "assistant",
		ToolCalls: []llm.ToolCall{{
			ID:   "call_1",
			Type: "function",
			Function: llm.FunctionCall{
				Name:      learning.RetrievalToolName,
				Arguments: `{"doc_type":"Bank Statement"}`,
			},
		}},
	}
	client := &scriptedClient{replies: []llm.Message{
		toolReply,
		answer(`{"document_type":"Bank Statement","confidence":0.3,"evidence":[]}`),
	}}
	gold := &goldLog{rows: []entity.Correction{{
		DocType: constants.BankStatement,
		IsGold:  true,
		OCRText: "statement",
	}}}

	learningSvc := learning.NewService(gold, rand.New(rand.NewSource(1)), nil)
	registry := tools.NewRegistry(nil, nil)
	require.NoError(t, registry.Register(learning.NewRetrievalTool(learningSvc)))
	svc := NewService(client, registry, learningSvc, fixedThresholds{0.7}, schema.NewStore(), Config{}, nil)

	res, err := svc.Classify(context.Background(), bankText, uuid.New())
	require.NoError(t, err)
	// two chat turns for the tool loop, none for a learning retry
	assert.Equal(t, 2, client.calls)
	assert.True(t, res.ToolUsed)
	assert.True(t, res.RequiresReview)
}
