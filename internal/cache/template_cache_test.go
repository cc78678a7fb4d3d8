package cache

import (
	"context"
	"testing"
	"time"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateCacheUpdateAndResolve(t *testing.T) {
	cache := NewTemplateCache()
	defer cache.Shutdown()

	templates := []*domain.PromptTemplate{
		{Name: domain.TemplateNameBasePrompt, Template: "base v2", Version: 2, IsActive: true},
		{Name: domain.TemplateNameFirstMessage, Template: "hello", Version: 1, IsActive: true},
	}
	require.NoError(t, cache.UpdateTemplatesAsync(templates))

	require.Eventually(t, func() bool { return cache.Count() == 2 }, time.Second, 10*time.Millisecond)

	text, ok := cache.ActiveTemplate(context.Background(), domain.TemplateNameBasePrompt)
	require.True(t, ok)
	assert.Equal(t, "base v2", text)

	_, ok = cache.ActiveTemplate(context.Background(), domain.TemplateNameContextHeader)
	assert.False(t, ok)
}

func TestTemplateCacheKeepsNewestVersion(t *testing.T) {
	cache := NewTemplateCache()
	defer cache.Shutdown()

	templates := []*domain.PromptTemplate{
		{Name: domain.TemplateNameBasePrompt, Template: "v3", Version: 3, IsActive: true},
		{Name: domain.TemplateNameBasePrompt, Template: "v1", Version: 1, IsActive: true},
	}
	require.NoError(t, cache.UpdateTemplatesAsync(templates))

	require.Eventually(t, func() bool { return cache.Count() == 1 }, time.Second, 10*time.Millisecond)

	text, ok := cache.ActiveTemplate(context.Background(), domain.TemplateNameBasePrompt)
	require.True(t, ok)
	assert.Equal(t, "v3", text)
}

func TestTemplateCacheReplacesOnUpdate(t *testing.T) {
	cache := NewTemplateCache()
	defer cache.Shutdown()

	require.NoError(t, cache.UpdateTemplatesAsync([]*domain.PromptTemplate{
		{Name: domain.TemplateNameBasePrompt, Template: "old", Version: 1, IsActive: true},
		{Name: domain.TemplateNameFirstMessage, Template: "hi", Version: 1, IsActive: true},
	}))
	require.Eventually(t, func() bool { return cache.Count() == 2 }, time.Second, 10*time.Millisecond)

	// A later batch fully replaces the previous one; deactivated rows vanish.
	require.NoError(t, cache.UpdateTemplatesAsync([]*domain.PromptTemplate{
		{Name: domain.TemplateNameBasePrompt, Template: "new", Version: 2, IsActive: true},
	}))
	require.Eventually(t, func() bool { return cache.Count() == 1 }, time.Second, 10*time.Millisecond)

	text, ok := cache.ActiveTemplate(context.Background(), domain.TemplateNameBasePrompt)
	require.True(t, ok)
	assert.Equal(t, "new", text)

	_, ok = cache.ActiveTemplate(context.Background(), domain.TemplateNameFirstMessage)
	assert.False(t, ok)
}

func TestTemplateCacheGetTemplateReturnsCopy(t *testing.T) {
	cache := NewTemplateCache()
	defer cache.Shutdown()

	require.NoError(t, cache.UpdateTemplatesAsync([]*domain.PromptTemplate{
		{Name: domain.TemplateNameBasePrompt, Template: "original", Version: 1, IsActive: true},
	}))
	require.Eventually(t, func() bool { return cache.Count() == 1 }, time.Second, 10*time.Millisecond)

	first, ok := cache.GetTemplate(domain.TemplateNameBasePrompt)
	require.True(t, ok)
	first.Template = "mutated"

	second, ok := cache.GetTemplate(domain.TemplateNameBasePrompt)
	require.True(t, ok)
	assert.Equal(t, "original", second.Template)
}

func TestTemplateCacheRejectsUpdatesAfterShutdown(t *testing.T) {
	cache := NewTemplateCache()
	cache.Shutdown()

	err := cache.UpdateTemplatesAsync([]*domain.PromptTemplate{
		{Name: domain.TemplateNameBasePrompt, Template: "x", Version: 1, IsActive: true},
	})
	assert.Error(t, err)
}
