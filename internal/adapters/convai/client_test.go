package convai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "test-key")
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("https://api.example.com", "")
	assert.True(t, domain.IsConfigurationError(err))
}

func TestGetSignedURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/convai/conversation/get-signed-url", r.URL.Path)
		assert.Equal(t, "agent_42", r.URL.Query().Get("agent_id"))
		assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))

		json.NewEncoder(w).Encode(SignedURLResponse{SignedURL: "wss://example.com/convo?token=abc"})
	})

	url, err := client.GetSignedURL(context.Background(), "agent_42")
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/convo?token=abc", url)
}

func TestCreateAgent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/convai/agents/create", r.URL.Path)

		var req CreateAgentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ABC Plumbing", req.Name)
		assert.Equal(t, "be brief", req.ConversationConfig.Agent.Prompt.Prompt)

		json.NewEncoder(w).Encode(CreateAgentResponse{AgentID: "agent_abc"})
	})

	agentID, err := client.CreateAgent(context.Background(), CreateAgentRequest{
		Name: "ABC Plumbing",
		ConversationConfig: ConversationConfig{
			Agent: AgentConfig{Prompt: PromptConfig{Prompt: "be brief"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "agent_abc", agentID)
}

func TestUpdateAgentStaleIDReturnsRemoteAgentMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.UpdateAgent(context.Background(), "gone", UpdateAgentRequest{})
	assert.ErrorIs(t, err, domain.ErrRemoteAgentMissing)
}

func TestRenameAgentStaleIDReturnsRemoteAgentMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.RenameAgent(context.Background(), "gone", "New Name")
	assert.ErrorIs(t, err, domain.ErrRemoteAgentMissing)
}

func TestServerErrorsMapToUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := client.CreateAgent(context.Background(), CreateAgentRequest{Name: "x"})
	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusInternalServerError, upstream.Status)
	assert.Contains(t, upstream.Body, "boom")
}

func TestImportPhoneNumberDefaultsProvider(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/convai/phone-numbers", r.URL.Path)

		var req ImportPhoneNumberRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "twilio", req.Provider)
		assert.Equal(t, "+15551234567", req.PhoneNumber)

		json.NewEncoder(w).Encode(ImportPhoneNumberResponse{PhoneNumberID: "phone_1"})
	})

	phoneID, err := client.ImportPhoneNumber(context.Background(), ImportPhoneNumberRequest{
		PhoneNumber: "+15551234567",
		Label:       "ABC Plumbing",
		Sid:         "AC123",
		Token:       "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "phone_1", phoneID)
}

func TestBindPhoneNumber(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/v1/convai/phone-numbers/phone_1", r.URL.Path)

		var req BindPhoneNumberRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "agent_abc", req.AgentID)

		w.WriteHeader(http.StatusOK)
	})

	err := client.BindPhoneNumber(context.Background(), "phone_1", "agent_abc")
	require.NoError(t, err)
}
