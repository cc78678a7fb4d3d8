package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/services/provision"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvisionService struct {
	result *provision.Result
	err    error

	lastAccountID string
	lastContext   *string
	lastVoiceID   *string
	lastName      string
	renameCalls   int
}

func (f *fakeProvisionService) CreateOrUpdate(_ context.Context, accountID string, newContext, voiceID *string) (*provision.Result, error) {
	f.lastAccountID = accountID
	f.lastContext = newContext
	f.lastVoiceID = voiceID
	return f.result, f.err
}

func (f *fakeProvisionService) Rename(_ context.Context, accountID, name string) error {
	f.renameCalls++
	f.lastAccountID = accountID
	f.lastName = name
	return f.err
}

func newTestRouter(service ProvisionService) *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	NewAgentHandler(service).SetupAgentRoutes(api)
	return router
}

func TestCreateAgentReturns201(t *testing.T) {
	service := &fakeProvisionService{result: &provision.Result{
		AccountID:     "acct-1",
		RemoteAgentID: "agent_1",
		AgentCreated:  true,
	}}
	router := newTestRouter(service)

	req := httptest.NewRequest("POST", "/api/accounts/acct-1/agent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "acct-1", service.lastAccountID)

	var result provision.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "agent_1", result.RemoteAgentID)
}

func TestRepeatedCreateReturns200(t *testing.T) {
	service := &fakeProvisionService{result: &provision.Result{
		AccountID:     "acct-1",
		RemoteAgentID: "agent_1",
		AgentCreated:  false,
	}}
	router := newTestRouter(service)

	req := httptest.NewRequest("POST", "/api/accounts/acct-1/agent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateAgentPassesContext(t *testing.T) {
	service := &fakeProvisionService{result: &provision.Result{AccountID: "acct-1", RemoteAgentID: "agent_1"}}
	router := newTestRouter(service)

	body := bytes.NewBufferString(`{"context":"{\"content\":\"new info\"}"}`)
	req := httptest.NewRequest("PUT", "/api/accounts/acct-1/agent", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, service.lastContext)
	assert.JSONEq(t, `{"content":"new info"}`, *service.lastContext)
}

func TestUnknownAccountReturns404(t *testing.T) {
	service := &fakeProvisionService{err: fmt.Errorf("account acct-9: %w", domain.ErrNotFound)}
	router := newTestRouter(service)

	req := httptest.NewRequest("POST", "/api/accounts/acct-9/agent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpstreamFailureReturns502(t *testing.T) {
	service := &fakeProvisionService{err: &domain.UpstreamError{Operation: "create agent", Status: 500, Body: "boom"}}
	router := newTestRouter(service)

	req := httptest.NewRequest("POST", "/api/accounts/acct-1/agent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRenameAgent(t *testing.T) {
	service := &fakeProvisionService{}
	router := newTestRouter(service)

	body := bytes.NewBufferString(`{"name":"New Name"}`)
	req := httptest.NewRequest("PATCH", "/api/accounts/acct-1/agent/name", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, service.renameCalls)
	assert.Equal(t, "New Name", service.lastName)
}

func TestRenameRequiresName(t *testing.T) {
	service := &fakeProvisionService{}
	router := newTestRouter(service)

	body := bytes.NewBufferString(`{"name":"  "}`)
	req := httptest.NewRequest("PATCH", "/api/accounts/acct-1/agent/name", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, service.renameCalls)
}
