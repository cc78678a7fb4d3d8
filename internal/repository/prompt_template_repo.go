package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"gorm.io/gorm"
)

// PromptTemplateRepository defines the interface for prompt template lookups
type PromptTemplateRepository interface {
	// GetActiveByName returns the newest active template with the given
	// name, or nil when none is active. Callers fall back to built-ins.
	GetActiveByName(ctx context.Context, name string) (*domain.PromptTemplate, error)
	ListActive(ctx context.Context) ([]*domain.PromptTemplate, error)
}

// GormPromptTemplateRepository implements PromptTemplateRepository using GORM
type GormPromptTemplateRepository struct {
	db *gorm.DB
}

// NewGormPromptTemplateRepository creates a new GORM prompt template repository
func NewGormPromptTemplateRepository(db *gorm.DB) *GormPromptTemplateRepository {
	return &GormPromptTemplateRepository{db: db}
}

// GetActiveByName retrieves the active template for a name
func (r *GormPromptTemplateRepository) GetActiveByName(ctx context.Context, name string) (*domain.PromptTemplate, error) {
	var template domain.PromptTemplate
	err := r.db.WithContext(ctx).
		Where("name = ? AND is_active = ?", name, true).
		Order("version DESC").
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get prompt template: %w", err)
	}

	return &template, nil
}

// ListActive retrieves all active templates
func (r *GormPromptTemplateRepository) ListActive(ctx context.Context) ([]*domain.PromptTemplate, error) {
	var templates []*domain.PromptTemplate
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC, version DESC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt templates: %w", err)
	}

	return templates, nil
}
