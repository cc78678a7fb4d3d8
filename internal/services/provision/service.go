package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/adapters/convai"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/prompts"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/repository"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// AgentPlatform is the slice of the speech-agent management API the
// provisioning flow needs.
type AgentPlatform interface {
	CreateAgent(ctx context.Context, req convai.CreateAgentRequest) (string, error)
	UpdateAgent(ctx context.Context, agentID string, req convai.UpdateAgentRequest) error
	RenameAgent(ctx context.Context, agentID, name string) error
	ImportPhoneNumber(ctx context.Context, req convai.ImportPhoneNumberRequest) (string, error)
	BindPhoneNumber(ctx context.Context, phoneNumberID, agentID string) error
}

// NumberOwnershipChecker pre-checks that a number actually belongs to the
// Twilio account before the platform import is attempted.
type NumberOwnershipChecker interface {
	IsEnabled() bool
	OwnsNumber(number string) (bool, error)
}

// Result reports what one provisioning run did. Warnings carry the
// secondary-step failures that did not abort the run.
type Result struct {
	AccountID     string   `json:"accountId"`
	RemoteAgentID string   `json:"remoteAgentId"`
	AgentCreated  bool     `json:"agentCreated"`
	PhoneImported bool     `json:"phoneImported"`
	PhoneBound    bool     `json:"phoneBound"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Service drives the agent provisioning workflow. Every run converges the
// account toward the fully-bound state: a remote agent configured from the
// current account data plus an imported, bound phone number. Runs are
// idempotent; already-completed steps are skipped.
type Service struct {
	accounts  repository.AccountRepository
	bindings  repository.AgentBindingRepository
	phones    repository.PhoneNumberRepository
	platform  AgentPlatform
	templates prompts.TemplateResolver
	creds     CredentialResolver
	verifier  NumberOwnershipChecker
}

// NewService wires a provisioning service.
func NewService(
	accounts repository.AccountRepository,
	bindings repository.AgentBindingRepository,
	phones repository.PhoneNumberRepository,
	platform AgentPlatform,
	templates prompts.TemplateResolver,
	creds CredentialResolver,
	verifier NumberOwnershipChecker,
) *Service {
	return &Service{
		accounts:  accounts,
		bindings:  bindings,
		phones:    phones,
		platform:  platform,
		templates: templates,
		creds:     creds,
		verifier:  verifier,
	}
}

// CreateOrUpdate provisions the account's agent, or pushes the current
// configuration to it if it already exists. When newContext is non-nil the
// stored context document is replaced first so the pushed prompt reflects
// it; a non-nil voiceID selects the synthesis voice. A stale stored agent id
// is healed by creating a replacement agent.
func (s *Service) CreateOrUpdate(ctx context.Context, accountID string, newContext, voiceID *string) (*Result, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	binding, err := s.bindings.GetOrCreate(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if newContext != nil && *newContext != binding.Context {
		if err := s.bindings.UpdateContext(ctx, accountID, *newContext); err != nil {
			return nil, err
		}
		binding.Context = *newContext
	}

	parsed := domain.ParseAgentContext(binding.Context)
	set := prompts.ResolveTemplateSet(ctx, s.templates)
	prompt := prompts.Assemble(account, parsed, set)

	result := &Result{AccountID: accountID}

	agentConfig := convai.ConversationConfig{
		Agent: convai.AgentConfig{
			Prompt: convai.PromptConfig{
				Prompt: prompt.SystemPrompt,
				LLM:    parsed.LLMModel,
			},
			FirstMessage: prompt.FirstMessage,
		},
	}
	if voiceID != nil && *voiceID != "" {
		agentConfig.TTS = &convai.TTSConfig{VoiceID: *voiceID}
	}

	switch {
	case binding.IsProvisioned():
		agentID := *binding.RemoteAgentID
		err := s.platform.UpdateAgent(ctx, agentID, convai.UpdateAgentRequest{
			Name:               account.Name,
			ConversationConfig: agentConfig,
		})
		if errors.Is(err, domain.ErrRemoteAgentMissing) {
			// The platform dropped our agent. Recreate and swap the id.
			logger.Base().Warn("stored remote agent is gone, recreating",
				zap.String("account_id", accountID),
				zap.String("stale_agent_id", agentID))
			newID, createErr := s.createAgent(ctx, account.Name, agentConfig)
			if createErr != nil {
				return nil, createErr
			}
			if replErr := s.bindings.ReplaceRemoteAgentID(ctx, accountID, agentID, newID); replErr != nil {
				return nil, replErr
			}
			result.RemoteAgentID = newID
			result.AgentCreated = true
		} else if err != nil {
			return nil, err
		} else {
			result.RemoteAgentID = agentID
		}

	default:
		agentID, err := s.createAgent(ctx, account.Name, agentConfig)
		if err != nil {
			return nil, err
		}
		if err := s.bindings.SetRemoteAgentID(ctx, accountID, agentID); err != nil {
			return nil, err
		}
		result.RemoteAgentID = agentID
		result.AgentCreated = true
	}

	// Phone import and binding never fail the run: the agent is usable for
	// testing without a number, and the next run retries.
	s.importNumber(ctx, account, result)

	logger.Base().Info("provisioning run complete",
		zap.String("account_id", accountID),
		zap.String("remote_agent_id", result.RemoteAgentID),
		zap.Bool("agent_created", result.AgentCreated),
		zap.Bool("phone_bound", result.PhoneBound),
		zap.Int("warnings", len(result.Warnings)))
	return result, nil
}

// Rename pushes a new display name to the account's remote agent. An
// unprovisioned account is a no-op success: there is nothing to rename and
// the name will be pushed on the next CreateOrUpdate.
func (s *Service) Rename(ctx context.Context, accountID, name string) error {
	binding, err := s.bindings.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Base().Info("rename skipped, account has no agent yet", zap.String("account_id", accountID))
			return nil
		}
		return err
	}
	if !binding.IsProvisioned() {
		logger.Base().Info("rename skipped, account has no agent yet", zap.String("account_id", accountID))
		return nil
	}

	if err := s.platform.RenameAgent(ctx, *binding.RemoteAgentID, name); err != nil {
		if errors.Is(err, domain.ErrRemoteAgentMissing) {
			logger.Base().Warn("rename skipped, remote agent is gone",
				zap.String("account_id", accountID),
				zap.String("remote_agent_id", *binding.RemoteAgentID))
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) createAgent(ctx context.Context, name string, cfg convai.ConversationConfig) (string, error) {
	return s.platform.CreateAgent(ctx, convai.CreateAgentRequest{
		Name:               name,
		ConversationConfig: cfg,
	})
}

// importNumber converges the account's phone number: import it into the
// platform if needed, then bind it to the agent. Failures are recorded as
// warnings on the result and never abort the run.
func (s *Service) importNumber(ctx context.Context, account *domain.Account, result *Result) {
	phone, err := s.phones.GetActiveByAccountID(ctx, account.ID)
	if err != nil {
		s.warn(result, account.ID, "failed to look up phone number", err)
		return
	}
	if phone == nil {
		logger.Base().Debug("account has no active phone number, skipping import",
			zap.String("account_id", account.ID))
		return
	}

	remotePhoneID := ""
	if phone.IsImported() {
		remotePhoneID = *phone.RemotePhoneID
	} else {
		creds, err := s.creds.Resolve(ctx, account)
		if err != nil {
			s.warn(result, account.ID, "failed to resolve Twilio credentials", err)
			return
		}

		if s.verifier != nil && s.verifier.IsEnabled() {
			owned, err := s.verifier.OwnsNumber(phone.Number)
			if err != nil {
				s.warn(result, account.ID, "phone ownership check failed", err)
				return
			}
			if !owned {
				s.warn(result, account.ID, "phone number is not owned by the Twilio account",
					fmt.Errorf("number %s not found on account", phone.Number))
				return
			}
		}

		remotePhoneID, err = s.platform.ImportPhoneNumber(ctx, convai.ImportPhoneNumberRequest{
			PhoneNumber: phone.Number,
			Label:       account.Name,
			Sid:         creds.AccountSID,
			Token:       creds.AuthToken,
			Provider:    "twilio",
		})
		if err != nil {
			s.warn(result, account.ID, "phone number import failed", err)
			return
		}
		if err := s.phones.SetRemotePhoneID(ctx, phone.ID, remotePhoneID); err != nil {
			s.warn(result, account.ID, "failed to persist remote phone id", err)
			return
		}
		result.PhoneImported = true
	}

	// Always re-bind: binding is idempotent upstream, and a healed agent id
	// needs the number pointed at the replacement.
	if err := s.platform.BindPhoneNumber(ctx, remotePhoneID, result.RemoteAgentID); err != nil {
		s.warn(result, account.ID, "failed to bind phone number to agent", err)
		return
	}
	result.PhoneBound = true
}

func (s *Service) warn(result *Result, accountID, msg string, err error) {
	logger.Base().Warn(msg, zap.String("account_id", accountID), zap.Error(err))
	result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", msg, err))
}
