package convai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiKeyHeader = "xi-api-key"

	// The platform throttles aggressively on burst traffic from a single key.
	defaultRequestsPerSecond = 5
	defaultBurst             = 10

	defaultRequestTimeout = 30 * time.Second
)

// Client talks to the ElevenLabs ConvAI management API. All methods return
// *domain.UpstreamError for non-2xx responses; agent update paths translate a
// 404 into domain.ErrRemoteAgentMissing so callers can self-heal.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a ConvAI client. It fails fast when no API key is
// configured rather than letting every call bounce upstream.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, domain.NewConfigurationError("CONVAI_API_KEY is not set")
	}
	if baseURL == "" {
		return nil, domain.NewConfigurationError("ConvAI base URL is not set")
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurst),
	}, nil
}

// GetSignedURL fetches a short-lived websocket URL for a conversation with
// the given agent.
func (c *Client) GetSignedURL(ctx context.Context, agentID string) (string, error) {
	endpoint := fmt.Sprintf("/v1/convai/conversation/get-signed-url?agent_id=%s", url.QueryEscape(agentID))

	var resp SignedURLResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}
	if resp.SignedURL == "" {
		return "", &domain.UpstreamError{Operation: "get signed url", Status: http.StatusOK, Body: "empty signed_url in response"}
	}
	return resp.SignedURL, nil
}

// CreateAgent provisions a new agent and returns its platform id.
func (c *Client) CreateAgent(ctx context.Context, req CreateAgentRequest) (string, error) {
	var resp CreateAgentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/convai/agents/create", req, &resp); err != nil {
		return "", err
	}
	if resp.AgentID == "" {
		return "", &domain.UpstreamError{Operation: "create agent", Status: http.StatusOK, Body: "empty agent_id in response"}
	}

	logger.Base().Info("created remote agent", zap.String("agent_id", resp.AgentID))
	return resp.AgentID, nil
}

// UpdateAgent pushes a full configuration update to an existing agent. A 404
// means the stored agent id is stale.
func (c *Client) UpdateAgent(ctx context.Context, agentID string, req UpdateAgentRequest) error {
	err := c.doJSON(ctx, http.MethodPatch, "/v1/convai/agents/"+url.PathEscape(agentID), req, nil)
	return translateAgentNotFound(err, agentID)
}

// RenameAgent updates only the agent's display name.
func (c *Client) RenameAgent(ctx context.Context, agentID, name string) error {
	err := c.doJSON(ctx, http.MethodPatch, "/v1/convai/agents/"+url.PathEscape(agentID), RenameAgentRequest{Name: name}, nil)
	return translateAgentNotFound(err, agentID)
}

// ImportPhoneNumber registers a Twilio number with the platform and returns
// the platform-assigned phone number id.
func (c *Client) ImportPhoneNumber(ctx context.Context, req ImportPhoneNumberRequest) (string, error) {
	if req.Provider == "" {
		req.Provider = "twilio"
	}

	var resp ImportPhoneNumberResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/convai/phone-numbers", req, &resp); err != nil {
		return "", err
	}
	if resp.PhoneNumberID == "" {
		return "", &domain.UpstreamError{Operation: "import phone number", Status: http.StatusOK, Body: "empty phone_number_id in response"}
	}

	logger.Base().Info("imported phone number", zap.String("phone_number_id", resp.PhoneNumberID))
	return resp.PhoneNumberID, nil
}

// BindPhoneNumber points an imported number at an agent. Re-binding the same
// pair is harmless, which keeps the provisioning flow idempotent.
func (c *Client) BindPhoneNumber(ctx context.Context, phoneNumberID, agentID string) error {
	return c.doJSON(ctx, http.MethodPatch, "/v1/convai/phone-numbers/"+url.PathEscape(phoneNumberID), BindPhoneNumberRequest{AgentID: agentID}, nil)
}

// doJSON executes one API request with rate limiting and decodes the
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s %s failed: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.UpstreamError{
			Operation: fmt.Sprintf("%s %s", method, endpoint),
			Status:    resp.StatusCode,
			Body:      string(respBody),
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
		}
	}
	return nil
}

// translateAgentNotFound maps a 404 on an agent endpoint to the sentinel the
// provisioning flow recovers from.
func translateAgentNotFound(err error, agentID string) error {
	if err == nil {
		return nil
	}
	if ue, ok := err.(*domain.UpstreamError); ok && ue.Status == http.StatusNotFound {
		logger.Base().Warn("remote agent id is stale", zap.String("agent_id", agentID))
		return fmt.Errorf("agent %s: %w", agentID, domain.ErrRemoteAgentMissing)
	}
	return err
}
