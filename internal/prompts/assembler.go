package prompts

import (
	"context"
	"strings"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// TemplateResolver supplies the active template text for a name. A miss (or a
// store failure) means the built-in default is used; implementations signal
// both the same way by returning ok=false.
type TemplateResolver interface {
	ActiveTemplate(ctx context.Context, name string) (string, bool)
}

// TemplateSet is the resolved trio of templates consumed by assembly.
type TemplateSet struct {
	BasePrompt    string
	FirstMessage  string
	ContextHeader string
}

// DefaultTemplateSet returns the built-in templates.
func DefaultTemplateSet() TemplateSet {
	return TemplateSet{
		BasePrompt:    DefaultBasePrompt,
		FirstMessage:  DefaultFirstMessage,
		ContextHeader: DefaultContextHeader,
	}
}

// ResolveTemplateSet resolves the three named templates, preferring active
// database rows and falling back to the built-in default per template.
func ResolveTemplateSet(ctx context.Context, resolver TemplateResolver) TemplateSet {
	set := DefaultTemplateSet()
	if resolver == nil {
		return set
	}

	if text, ok := resolver.ActiveTemplate(ctx, domain.TemplateNameBasePrompt); ok {
		set.BasePrompt = text
	} else {
		logger.Base().Debug("no active base prompt template, using built-in default")
	}
	if text, ok := resolver.ActiveTemplate(ctx, domain.TemplateNameFirstMessage); ok {
		set.FirstMessage = text
	}
	if text, ok := resolver.ActiveTemplate(ctx, domain.TemplateNameContextHeader); ok {
		set.ContextHeader = text
	}
	return set
}

// AgentPrompt is the output of assembly: the system prompt for the remote
// agent and the first utterance it speaks.
type AgentPrompt struct {
	SystemPrompt string
	FirstMessage string
}

// Assemble builds the agent prompt from an account row, its parsed context
// document and a resolved template set. It is deterministic and free of side
// effects given its inputs.
func Assemble(account *domain.Account, parsed domain.ParsedContext, set TemplateSet) AgentPrompt {
	systemPrompt := substitute(set.BasePrompt, account)

	// Account content is appended verbatim under the context header. No
	// substitution is applied inside it.
	if parsed.HasContent() {
		var b strings.Builder
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
		b.WriteString(set.ContextHeader)
		b.WriteString("\n")
		b.WriteString(parsed.Content)
		systemPrompt = b.String()
	}

	// A custom greeting always wins over the first-message template.
	firstMessage := parsed.Greeting
	if firstMessage == "" {
		firstMessage = substitute(set.FirstMessage, account)
	}

	if systemPrompt == "" {
		// Should be unreachable given the built-in defaults, but an empty
		// system prompt upstream bricks the agent.
		logger.Base().Warn("assembled empty system prompt, substituting built-in default",
			zap.String("account_id", account.ID))
		systemPrompt = substitute(DefaultBasePrompt, account)
	}

	return AgentPrompt{SystemPrompt: systemPrompt, FirstMessage: firstMessage}
}

// substitute performs the literal, global placeholder replacement.
func substitute(template string, account *domain.Account) string {
	start := account.BusinessHoursStart
	if start == "" {
		start = DefaultBusinessHoursStart
	}
	end := account.BusinessHoursEnd
	if end == "" {
		end = DefaultBusinessHoursEnd
	}

	out := strings.ReplaceAll(template, PlaceholderOrgName, account.Name)
	out = strings.ReplaceAll(out, PlaceholderBusinessHoursStart, start)
	out = strings.ReplaceAll(out, PlaceholderBusinessHoursEnd, end)
	return out
}
