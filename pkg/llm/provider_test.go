package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		p, err := NewProvider("openai", "sk-test")
		require.NoError(t, err)
		assert.Equal(t, "openai", p.Name())
	})

	t.Run("anthropic", func(t *testing.T) {
		p, err := NewProvider("anthropic", "sk-ant-test")
		require.NoError(t, err)
		assert.Equal(t, "anthropic", p.Name())
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewProvider("cohere", "key")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported provider")
	})
}

func TestMockProviderScript(t *testing.T) {
	m := &MockProvider{
		Responses: []*Response{
			{Content: "first"},
			{Content: "second"},
		},
	}

	r1, err := m.Complete(context.Background(), Request{Model: "test"})
	require.NoError(t, err)
	assert.Equal(t, "first", r1.Content)

	r2, _ := m.Complete(context.Background(), Request{})
	assert.Equal(t, "second", r2.Content)

	// Script exhausted: last response repeats.
	r3, _ := m.Complete(context.Background(), Request{})
	assert.Equal(t, "second", r3.Content)

	assert.Equal(t, 3, m.Calls)
}

func TestMockProviderError(t *testing.T) {
	m := &MockProvider{Err: errors.New("boom")}
	_, err := m.Complete(context.Background(), Request{})
	assert.Error(t, err)
}

func TestMockProviderRecordsRequest(t *testing.T) {
	m := &MockProvider{Responses: []*Response{{Content: "ok"}}}
	_, _ = m.Complete(context.Background(), Request{Model: "gpt-test", ForceTool: "make_plan"})
	require.NotNil(t, m.LastRequest)
	assert.Equal(t, "make_plan", m.LastRequest.ForceTool)
}
