package twilio

import (
	"fmt"

	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// Credentials holds a Twilio account SID / auth token pair.
type Credentials struct {
	AccountSID string
	AuthToken  string
}

// IsZero reports whether no credentials are present.
func (c Credentials) IsZero() bool {
	return c.AccountSID == "" || c.AuthToken == ""
}

// NumberVerifier checks phone-number ownership against the Twilio REST API
// before a number is handed to the speech-agent platform for import.
// If credentials are missing the verifier is disabled and every check passes.
type NumberVerifier struct {
	client  *twilio.RestClient
	enabled bool
}

// NewNumberVerifier creates a verifier for the given credentials.
// Empty credentials disable verification rather than erroring.
func NewNumberVerifier(creds Credentials) *NumberVerifier {
	if creds.IsZero() {
		logger.Base().Warn("Twilio credentials not provided, number verification disabled")
		return &NumberVerifier{enabled: false}
	}

	return &NumberVerifier{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: creds.AccountSID,
			Password: creds.AuthToken,
		}),
		enabled: true,
	}
}

// IsEnabled returns whether the verifier is enabled.
func (v *NumberVerifier) IsEnabled() bool {
	return v.enabled
}

// OwnsNumber reports whether the Twilio account behind the credentials owns
// the given E.164 number.
func (v *NumberVerifier) OwnsNumber(number string) (bool, error) {
	if !v.enabled {
		return true, nil
	}

	params := &api.ListIncomingPhoneNumberParams{}
	params.SetPhoneNumber(number)
	params.SetLimit(1)

	records, err := v.client.Api.ListIncomingPhoneNumber(params)
	if err != nil {
		return false, fmt.Errorf("failed to list incoming phone numbers: %w", err)
	}

	owned := len(records) > 0
	if !owned {
		logger.Base().Warn("phone number not found on Twilio account", zap.String("number", number))
	}
	return owned, nil
}
