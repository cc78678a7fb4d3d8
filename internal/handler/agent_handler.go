package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/services/provision"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ProvisionService is the slice of the provisioning workflow the HTTP layer
// drives.
type ProvisionService interface {
	CreateOrUpdate(ctx context.Context, accountID string, newContext, voiceID *string) (*provision.Result, error)
	Rename(ctx context.Context, accountID, name string) error
}

// AgentHandler exposes the provisioning workflow over HTTP.
type AgentHandler struct {
	service ProvisionService
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(service ProvisionService) *AgentHandler {
	return &AgentHandler{service: service}
}

// SetupAgentRoutes registers the agent provisioning routes.
func (h *AgentHandler) SetupAgentRoutes(router *mux.Router) {
	router.HandleFunc("/accounts/{id}/agent", h.createAgent).Methods("POST")
	router.HandleFunc("/accounts/{id}/agent", h.updateAgent).Methods("PUT")
	router.HandleFunc("/accounts/{id}/agent/name", h.renameAgent).Methods("PATCH")
}

// provisionRequest is the optional body for create/update. When Context is
// present the stored context document is replaced before provisioning;
// VoiceID selects the synthesis voice.
type provisionRequest struct {
	Context *string `json:"context"`
	VoiceID *string `json:"voiceId"`
}

type renameRequest struct {
	Name string `json:"name"`
}

// createAgent handles POST /api/accounts/{id}/agent. Create and update share
// the same converging workflow, so a re-POST for an existing agent succeeds.
func (h *AgentHandler) createAgent(w http.ResponseWriter, r *http.Request) {
	h.provisionAgent(w, r, http.StatusCreated)
}

// updateAgent handles PUT /api/accounts/{id}/agent.
func (h *AgentHandler) updateAgent(w http.ResponseWriter, r *http.Request) {
	h.provisionAgent(w, r, http.StatusOK)
}

func (h *AgentHandler) provisionAgent(w http.ResponseWriter, r *http.Request, successStatus int) {
	accountID := mux.Vars(r)["id"]

	var req provisionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.service.CreateOrUpdate(r.Context(), accountID, req.Context, req.VoiceID)
	if err != nil {
		writeProvisionError(w, accountID, err)
		return
	}

	if !result.AgentCreated && successStatus == http.StatusCreated {
		successStatus = http.StatusOK
	}
	writeJSONResponse(w, successStatus, result)
}

// renameAgent handles PATCH /api/accounts/{id}/agent/name.
func (h *AgentHandler) renameAgent(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.service.Rename(r.Context(), accountID, req.Name); err != nil {
		writeProvisionError(w, accountID, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeProvisionError maps workflow errors onto HTTP statuses.
func writeProvisionError(w http.ResponseWriter, accountID string, err error) {
	logger.Base().Error("provisioning request failed",
		zap.String("account_id", accountID),
		zap.Error(err))

	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeErrorResponse(w, http.StatusNotFound, "account not found")
	case domain.IsConfigurationError(err):
		writeErrorResponse(w, http.StatusInternalServerError, "service is not configured for this operation")
	case errors.As(err, &upstream):
		writeErrorResponse(w, http.StatusBadGateway, "speech-agent platform rejected the request")
	default:
		writeErrorResponse(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Base().Error("failed to encode response", zap.Error(err))
	}
}

// writeErrorResponse writes a JSON error response
func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, map[string]string{"error": message})
}
