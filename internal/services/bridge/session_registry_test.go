package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/RingDeskAI/ringdesk-voice-service/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) GenerateKey(keyType redis.KeyType, identifier string) string {
	return string(keyType) + ":" + identifier
}

func (f *fakeRedis) GetValue(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.ErrKeyNotExist
	}
	return value, nil
}

func (f *fakeRedis) SetValue(_ context.Context, key string, value string, _ time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeRedis) DelValue(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func TestSessionRegistryLifecycle(t *testing.T) {
	store := newFakeRedis()
	registry := NewSessionRegistry(store, "pod-7")
	ctx := context.Background()

	registry.Register(ctx, "CA123", "agent_1")

	info, err := registry.Lookup(ctx, "CA123")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "CA123", info.CallID)
	assert.Equal(t, "agent_1", info.AgentID)
	assert.Equal(t, "pod-7", info.InstanceID)
	assert.False(t, info.StartedAt.IsZero())

	registry.Unregister(ctx, "CA123")

	info, err = registry.Lookup(ctx, "CA123")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestNilRegistryIsSafe(t *testing.T) {
	var registry *SessionRegistry
	ctx := context.Background()

	registry.Register(ctx, "CA123", "agent_1")
	registry.Unregister(ctx, "CA123")

	info, err := registry.Lookup(ctx, "CA123")
	require.NoError(t, err)
	assert.Nil(t, info)
}
