package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AgentBindingRepository defines the interface for agent binding operations
type AgentBindingRepository interface {
	GetByAccountID(ctx context.Context, accountID string) (*domain.AgentBinding, error)
	GetOrCreate(ctx context.Context, accountID string) (*domain.AgentBinding, error)
	// SetRemoteAgentID persists the remote agent id. The id is write-once:
	// a binding that already has one is left untouched.
	SetRemoteAgentID(ctx context.Context, accountID, remoteAgentID string) error
	// ReplaceRemoteAgentID swaps a known-stale remote agent id for a fresh
	// one. The old id is matched so concurrent healers cannot clobber each
	// other's replacement.
	ReplaceRemoteAgentID(ctx context.Context, accountID, oldRemoteAgentID, newRemoteAgentID string) error
	UpdateContext(ctx context.Context, accountID, context string) error
}

// GormAgentBindingRepository implements AgentBindingRepository using GORM
type GormAgentBindingRepository struct {
	db *gorm.DB
}

// NewGormAgentBindingRepository creates a new GORM agent binding repository
func NewGormAgentBindingRepository(db *gorm.DB) *GormAgentBindingRepository {
	return &GormAgentBindingRepository{db: db}
}

// GetByAccountID retrieves the binding for an account
func (r *GormAgentBindingRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.AgentBinding, error) {
	var binding domain.AgentBinding
	if err := r.db.WithContext(ctx).First(&binding, "account_id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("agent binding for account %s: %w", accountID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get agent binding: %w", err)
	}

	return &binding, nil
}

// GetOrCreate retrieves the binding for an account, creating an empty one if
// it does not exist yet. Bindings are created lazily on first provisioning.
func (r *GormAgentBindingRepository) GetOrCreate(ctx context.Context, accountID string) (*domain.AgentBinding, error) {
	binding := &domain.AgentBinding{ID: uuid.New().String(), AccountID: accountID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "account_id"}}, DoNothing: true}).
		Create(binding).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create agent binding: %w", err)
	}

	// Re-read so concurrent creators all observe the same row.
	return r.GetByAccountID(ctx, accountID)
}

// SetRemoteAgentID persists the remote agent id if none is stored yet
func (r *GormAgentBindingRepository) SetRemoteAgentID(ctx context.Context, accountID, remoteAgentID string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.AgentBinding{}).
		Where("account_id = ? AND (remote_agent_id IS NULL OR remote_agent_id = '')", accountID).
		Update("remote_agent_id", remoteAgentID)
	if result.Error != nil {
		return fmt.Errorf("failed to set remote agent id: %w", result.Error)
	}
	return nil
}

// ReplaceRemoteAgentID swaps a stale remote agent id for a fresh one
func (r *GormAgentBindingRepository) ReplaceRemoteAgentID(ctx context.Context, accountID, oldRemoteAgentID, newRemoteAgentID string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.AgentBinding{}).
		Where("account_id = ? AND remote_agent_id = ?", accountID, oldRemoteAgentID).
		Update("remote_agent_id", newRemoteAgentID)
	if result.Error != nil {
		return fmt.Errorf("failed to replace remote agent id: %w", result.Error)
	}
	return nil
}

// UpdateContext replaces the stored context document
func (r *GormAgentBindingRepository) UpdateContext(ctx context.Context, accountID, context string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.AgentBinding{}).
		Where("account_id = ?", accountID).
		Update("context", context)
	if result.Error != nil {
		return fmt.Errorf("failed to update context: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("agent binding for account %s: %w", accountID, domain.ErrNotFound)
	}
	return nil
}
