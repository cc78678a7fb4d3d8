package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAgentContextStructured(t *testing.T) {
	parsed := ParseAgentContext(`{"greeting":"Hi there!","content":"We fix pipes.","llmModel":"gpt-4o"}`)

	assert.Equal(t, ContextStructured, parsed.Kind)
	assert.Equal(t, "Hi there!", parsed.Greeting)
	assert.Equal(t, "We fix pipes.", parsed.Content)
	assert.Equal(t, "gpt-4o", parsed.LLMModel)
	assert.True(t, parsed.HasContent())
}

func TestParseAgentContextPartialFields(t *testing.T) {
	parsed := ParseAgentContext(`{"content":"We do 24/7 emergency service."}`)

	assert.Equal(t, ContextStructured, parsed.Kind)
	assert.Empty(t, parsed.Greeting)
	assert.Empty(t, parsed.LLMModel)
	assert.Equal(t, "We do 24/7 emergency service.", parsed.Content)
}

func TestParseAgentContextFreeform(t *testing.T) {
	doc := "Just a plain note typed by the owner, not JSON at all."
	parsed := ParseAgentContext(doc)

	assert.Equal(t, ContextFreeform, parsed.Kind)
	assert.Equal(t, doc, parsed.Content)
	assert.Empty(t, parsed.Greeting)
	assert.True(t, parsed.HasContent())
}

func TestParseAgentContextEmpty(t *testing.T) {
	for _, doc := range []string{"", "   ", "\n\t"} {
		parsed := ParseAgentContext(doc)
		assert.Equal(t, ContextFreeform, parsed.Kind)
		assert.False(t, parsed.HasContent())
	}
}

func TestParseAgentContextBlankContentHasNoContent(t *testing.T) {
	parsed := ParseAgentContext(`{"greeting":"Hello","content":"   "}`)

	assert.Equal(t, ContextStructured, parsed.Kind)
	assert.False(t, parsed.HasContent())
}
