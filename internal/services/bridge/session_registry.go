package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/redis"
	"go.uber.org/zap"
)

// sessionTTL bounds how long a live-call entry survives without a refresh.
// A crashed pod's entries expire instead of leaking.
const sessionTTL = 4 * time.Hour

// SessionInfo is the registry entry for one live call.
type SessionInfo struct {
	CallID     string    `json:"call_id"`
	AgentID    string    `json:"agent_id"`
	InstanceID string    `json:"instance_id"`
	StartedAt  time.Time `json:"started_at"`
}

// SessionRegistry tracks live calls in redis so operators and sibling pods
// can see which instance holds which call. Registry failures are logged and
// swallowed; the bridge never depends on it.
type SessionRegistry struct {
	redis      redis.RedisServiceInterface
	instanceID string
}

// NewSessionRegistry creates a registry bound to this service instance.
func NewSessionRegistry(svc redis.RedisServiceInterface, instanceID string) *SessionRegistry {
	return &SessionRegistry{redis: svc, instanceID: instanceID}
}

// Register records a live call.
func (r *SessionRegistry) Register(ctx context.Context, callID, agentID string) {
	if r == nil || r.redis == nil {
		return
	}

	info := SessionInfo{
		CallID:     callID,
		AgentID:    agentID,
		InstanceID: r.instanceID,
		StartedAt:  time.Now().UTC(),
	}
	payload, err := json.Marshal(info)
	if err != nil {
		logger.Base().Warn("failed to marshal session info", zap.Error(err))
		return
	}

	key := r.redis.GenerateKey(redis.LIVE_CALL_SESSION, callID)
	if err := r.redis.SetValue(ctx, key, string(payload), sessionTTL); err != nil {
		logger.Base().Warn("failed to register live call session",
			zap.String("call_id", callID), zap.Error(err))
	}
}

// Unregister removes a live call entry.
func (r *SessionRegistry) Unregister(ctx context.Context, callID string) {
	if r == nil || r.redis == nil {
		return
	}

	key := r.redis.GenerateKey(redis.LIVE_CALL_SESSION, callID)
	if err := r.redis.DelValue(ctx, key); err != nil {
		logger.Base().Warn("failed to unregister live call session",
			zap.String("call_id", callID), zap.Error(err))
	}
}

// Lookup returns the registry entry for a call, or nil when none exists.
func (r *SessionRegistry) Lookup(ctx context.Context, callID string) (*SessionInfo, error) {
	if r == nil || r.redis == nil {
		return nil, nil
	}

	key := r.redis.GenerateKey(redis.LIVE_CALL_SESSION, callID)
	value, err := r.redis.GetValue(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var info SessionInfo
	if err := json.Unmarshal([]byte(value), &info); err != nil {
		return nil, err
	}
	return &info, nil
}
