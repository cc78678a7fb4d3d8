package provision

import (
	"context"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/config"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/twilio"
)

// CredentialResolver supplies the Twilio credentials used to import an
// account's phone number into the speech-agent platform. The implementation
// is picked once at startup based on the deployment mode; there is no
// call-time failover between sources.
type CredentialResolver interface {
	Resolve(ctx context.Context, account *domain.Account) (twilio.Credentials, error)
}

// EnvCredentialResolver returns the shared project credentials from the
// environment. Used in local and dev deployments where every account rides
// the same Twilio project.
type EnvCredentialResolver struct {
	creds twilio.Credentials
}

// NewEnvCredentialResolver creates a resolver around the shared credentials.
func NewEnvCredentialResolver(accountSID, authToken string) *EnvCredentialResolver {
	return &EnvCredentialResolver{creds: twilio.Credentials{AccountSID: accountSID, AuthToken: authToken}}
}

// Resolve returns the shared credentials regardless of account.
func (r *EnvCredentialResolver) Resolve(_ context.Context, _ *domain.Account) (twilio.Credentials, error) {
	if r.creds.IsZero() {
		return twilio.Credentials{}, domain.NewConfigurationError("TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN are not set")
	}
	return r.creds, nil
}

// AccountCredentialResolver returns the per-account Twilio subaccount
// credentials stored on the account row. Used in production deployments.
type AccountCredentialResolver struct{}

// NewAccountCredentialResolver creates a per-account resolver.
func NewAccountCredentialResolver() *AccountCredentialResolver {
	return &AccountCredentialResolver{}
}

// Resolve returns the subaccount credentials stored on the account.
func (r *AccountCredentialResolver) Resolve(_ context.Context, account *domain.Account) (twilio.Credentials, error) {
	creds := twilio.Credentials{
		AccountSID: account.TwilioSubaccountSID,
		AuthToken:  account.TwilioSubaccountToken,
	}
	if creds.IsZero() {
		return twilio.Credentials{}, domain.NewConfigurationError("account has no Twilio subaccount credentials")
	}
	return creds, nil
}

// NewCredentialResolver picks the resolver for the configured deployment mode.
func NewCredentialResolver(cfg *config.Config) CredentialResolver {
	if cfg.IsSharedTwilioDeployment() {
		logger.Base().Info("using shared environment Twilio credentials for phone import")
		return NewEnvCredentialResolver(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	}
	logger.Base().Info("using per-account Twilio subaccount credentials for phone import")
	return NewAccountCredentialResolver()
}
