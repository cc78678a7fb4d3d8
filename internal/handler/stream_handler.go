package handler

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/config"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/repository"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/services/bridge"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/storage"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SignedURLProvider fetches the short-lived websocket URL for a conversation
// with a remote agent.
type SignedURLProvider interface {
	GetSignedURL(ctx context.Context, agentID string) (string, error)
}

// StreamHandler accepts telephony media-stream websockets and bridges them to
// the speech-agent platform.
type StreamHandler struct {
	signedURLs SignedURLProvider
	calls      repository.CallRepository
	registry   *bridge.SessionRegistry
	archive    *storage.AudioArchive

	upgrader websocket.Upgrader
	dialer   *websocket.Dialer

	maxConnections int64
	active         int64
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(signedURLs SignedURLProvider, calls repository.CallRepository, registry *bridge.SessionRegistry, archive *storage.AudioArchive, maxConnections int) *StreamHandler {
	return &StreamHandler{
		signedURLs: signedURLs,
		calls:      calls,
		registry:   registry,
		archive:    archive,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Telephony providers connect server-to-server with no Origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.DefaultConnectionTimeout,
		},
		maxConnections: int64(maxConnections),
	}
}

// SetupStreamRoutes registers the media stream route.
func (h *StreamHandler) SetupStreamRoutes(router *mux.Router) {
	router.HandleFunc("/stream/{agentId}/{callId}", h.handleStream).Methods("GET")
}

// ActiveConnections returns the number of live bridges on this instance.
func (h *StreamHandler) ActiveConnections() int64 {
	return atomic.LoadInt64(&h.active)
}

// handleStream bridges one telephony call to its speech agent. The remote
// agent session is dialed lazily, once the telephony start event arrives.
func (h *StreamHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	agentID := vars["agentId"]
	callID := vars["callId"]

	if agentID == "" || callID == "" {
		http.Error(w, "agent id and call id are required", http.StatusBadRequest)
		return
	}

	if h.maxConnections > 0 && atomic.LoadInt64(&h.active) >= h.maxConnections {
		logger.Base().Warn("rejecting call, connection limit reached",
			zap.String("call_id", callID),
			zap.Int64("max_connections", h.maxConnections))
		http.Error(w, "too many concurrent calls", http.StatusServiceUnavailable)
		return
	}

	if _, err := h.calls.GetOrCreate(r.Context(), callID, agentID); err != nil {
		logger.Base().Error("failed to record call", zap.String("call_id", callID), zap.Error(err))
		http.Error(w, "failed to record call", http.StatusInternalServerError)
		return
	}

	telephonyConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade writes its own error response.
		logger.Base().Error("failed to upgrade telephony connection",
			zap.String("call_id", callID),
			zap.Error(err))
		h.failCall(callID)
		return
	}

	connect := bridge.AgentConnectorFunc(func(ctx context.Context) (bridge.Socket, error) {
		signedURL, err := h.signedURLs.GetSignedURL(ctx, agentID)
		if err != nil {
			return nil, err
		}
		agentConn, _, err := h.dialer.DialContext(ctx, signedURL, nil)
		if err != nil {
			return nil, err
		}
		return agentConn, nil
	})

	atomic.AddInt64(&h.active, 1)
	defer atomic.AddInt64(&h.active, -1)

	// nil recorder means archiving is off for this deployment.
	var archiver bridge.AudioArchiver
	if recorder := h.archive.NewCallRecorder(context.Background(), callID); recorder != nil {
		archiver = recorder
	}

	logger.Base().Info("bridging call",
		zap.String("call_id", callID),
		zap.String("agent_id", agentID))

	b := bridge.New(telephonyConn, connect, h.calls, h.registry, archiver, callID, agentID)
	b.Run(r.Context())
}

// failCall marks a call failed before any bridging happened.
func (h *StreamHandler) failCall(callID string) {
	if err := h.calls.MarkEnded(context.Background(), callID, domain.CallStatusFailed); err != nil {
		logger.Base().Warn("failed to mark call failed", zap.String("call_id", callID), zap.Error(err))
	}
}
