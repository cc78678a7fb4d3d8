package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/repository"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// TemplateCache provides thread-safe access to the active prompt templates
// with a database-backed refresh loop. Prompt assembly reads through it so
// the hot path stays off the database; a cold or failed cache simply means
// the built-in defaults are used.
type TemplateCache struct {
	templates  map[string]*domain.PromptTemplate // name -> newest active template
	mutex      sync.RWMutex
	updateChan chan []*domain.PromptTemplate
	ctx        context.Context
	cancel     context.CancelFunc
	isStarted  bool
	startMutex sync.Mutex
}

// NewTemplateCache creates an empty template cache and starts its async
// update processor.
func NewTemplateCache() *TemplateCache {
	ctx, cancel := context.WithCancel(context.Background())

	cache := &TemplateCache{
		templates:  make(map[string]*domain.PromptTemplate),
		updateChan: make(chan []*domain.PromptTemplate, 16),
		ctx:        ctx,
		cancel:     cancel,
	}

	cache.startAsyncProcessor()

	logger.Base().Info("template cache initialized (empty, waiting for database load)")
	return cache
}

// ActiveTemplate returns the active template text for a name. It implements
// prompts.TemplateResolver; a miss returns ok=false so callers fall back to
// the built-in default.
func (c *TemplateCache) ActiveTemplate(_ context.Context, name string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	template, exists := c.templates[name]
	if !exists || !template.IsActive {
		return "", false
	}
	return template.Template, true
}

// GetTemplate returns a deep copy of the cached template for a name.
func (c *TemplateCache) GetTemplate(name string) (*domain.PromptTemplate, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	template, exists := c.templates[name]
	if !exists {
		return nil, false
	}
	return c.copyTemplate(template), true
}

// Count returns the number of cached templates.
func (c *TemplateCache) Count() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.templates)
}

// UpdateTemplatesAsync performs an asynchronous bulk replacement with all
// provided templates. This is the single method for external systems to
// update the cache.
func (c *TemplateCache) UpdateTemplatesAsync(templates []*domain.PromptTemplate) error {
	if templates == nil {
		templates = make([]*domain.PromptTemplate, 0)
	}

	select {
	case <-c.ctx.Done():
		return context.Canceled
	default:
	}

	select {
	case c.updateChan <- templates:
		return nil
	case <-c.ctx.Done():
		return context.Canceled
	default:
		return errUpdateQueueFull
	}
}

var errUpdateQueueFull = errors.New("template cache update queue is full")

// LoadFromRepository reads all active templates and queues a cache refresh.
func (c *TemplateCache) LoadFromRepository(ctx context.Context, repo repository.PromptTemplateRepository) error {
	templates, err := repo.ListActive(ctx)
	if err != nil {
		return err
	}
	return c.UpdateTemplatesAsync(templates)
}

// StartPeriodicSync refreshes the cache from the database on an interval
// until ctx is cancelled.
func (c *TemplateCache) StartPeriodicSync(ctx context.Context, repo repository.PromptTemplateRepository, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				if err := c.LoadFromRepository(ctx, repo); err != nil {
					logger.Base().Warn("template cache sync failed", zap.Error(err))
				}
			}
		}
	}()
}

// startAsyncProcessor starts the background goroutine to process updates
func (c *TemplateCache) startAsyncProcessor() {
	c.startMutex.Lock()
	defer c.startMutex.Unlock()

	if c.isStarted {
		return
	}
	c.isStarted = true

	go func() {
		for {
			select {
			case <-c.ctx.Done():
				return
			case templates := <-c.updateChan:
				c.processUpdate(templates)
			}
		}
	}()
}

// processUpdate handles the actual replacement logic
func (c *TemplateCache) processUpdate(templates []*domain.PromptTemplate) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	oldCount := len(c.templates)
	newTemplates := make(map[string]*domain.PromptTemplate)

	for _, template := range templates {
		if template == nil || template.Name == "" {
			logger.Base().Warn("skipping invalid template in update batch")
			continue
		}
		// Rows arrive ordered by version; keep the newest per name.
		if existing, ok := newTemplates[template.Name]; ok && existing.Version >= template.Version {
			continue
		}
		newTemplates[template.Name] = c.copyTemplate(template)
	}

	c.templates = newTemplates

	logger.Base().Info("template cache refreshed",
		zap.Int("old_count", oldCount),
		zap.Int("new_count", len(c.templates)))
}

// copyTemplate creates a deep copy to prevent external modifications.
func (c *TemplateCache) copyTemplate(original *domain.PromptTemplate) *domain.PromptTemplate {
	if original == nil {
		return nil
	}

	var copied domain.PromptTemplate
	if err := copier.CopyWithOption(&copied, original, copier.Option{DeepCopy: true}); err != nil {
		logger.Base().Warn("failed to copy prompt template", zap.Error(err))
		return original
	}
	return &copied
}

// Shutdown stops the async processor.
func (c *TemplateCache) Shutdown() {
	c.cancel()
}
