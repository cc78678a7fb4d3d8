package domain

import (
	"encoding/json"
	"strings"
)

// ContextKind tags the two shapes an account context document can take.
type ContextKind int

const (
	// ContextStructured means the document parsed as a JSON object with the
	// optional greeting/content/llmModel fields.
	ContextStructured ContextKind = iota
	// ContextFreeform means the document did not parse; the whole text is
	// treated as content.
	ContextFreeform
)

// ParsedContext is the result of parsing an account context document. It is
// produced by a single fallible parse step and never re-parsed downstream.
type ParsedContext struct {
	Kind     ContextKind
	Greeting string
	Content  string
	LLMModel string
}

// structuredContext mirrors the JSON shape stored by the dashboard.
type structuredContext struct {
	Greeting string `json:"greeting"`
	Content  string `json:"content"`
	LLMModel string `json:"llmModel"`
}

// ParseAgentContext parses a loosely-typed context document. Legacy free-text
// input must still produce a usable prompt, so a failed parse degrades to a
// freeform variant carrying the whole document as content.
func ParseAgentContext(doc string) ParsedContext {
	trimmed := strings.TrimSpace(doc)
	if trimmed == "" {
		return ParsedContext{Kind: ContextFreeform}
	}

	var structured structuredContext
	if err := json.Unmarshal([]byte(trimmed), &structured); err != nil {
		return ParsedContext{Kind: ContextFreeform, Content: doc}
	}

	return ParsedContext{
		Kind:     ContextStructured,
		Greeting: structured.Greeting,
		Content:  structured.Content,
		LLMModel: structured.LLMModel,
	}
}

// HasContent reports whether the context carries non-blank content.
func (c ParsedContext) HasContent() bool {
	return strings.TrimSpace(c.Content) != ""
}
