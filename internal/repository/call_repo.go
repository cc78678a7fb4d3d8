package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CallRepository defines the interface for call session records
type CallRepository interface {
	GetOrCreate(ctx context.Context, externalCallID, remoteAgentID string) (*domain.Call, error)
	// MarkActive sets the call status to active and stamps the start time.
	MarkActive(ctx context.Context, externalCallID string) error
	// MarkEnded sets the final status and stamps the end time.
	MarkEnded(ctx context.Context, externalCallID, status string) error
}

// GormCallRepository implements CallRepository using GORM
type GormCallRepository struct {
	db *gorm.DB
}

// NewGormCallRepository creates a new GORM call repository
func NewGormCallRepository(db *gorm.DB) *GormCallRepository {
	return &GormCallRepository{db: db}
}

// GetOrCreate retrieves the call record for a telephony call id, creating a
// pending one if it does not exist yet
func (r *GormCallRepository) GetOrCreate(ctx context.Context, externalCallID, remoteAgentID string) (*domain.Call, error) {
	call := &domain.Call{
		ID:             uuid.New().String(),
		ExternalCallID: externalCallID,
		RemoteAgentID:  remoteAgentID,
		Status:         domain.CallStatusPending,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_call_id"}}, DoNothing: true}).
		Create(call).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create call record: %w", err)
	}

	var stored domain.Call
	if err := r.db.WithContext(ctx).First(&stored, "external_call_id = ?", externalCallID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("call %s: %w", externalCallID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get call record: %w", err)
	}

	return &stored, nil
}

// MarkActive sets the call status to active
func (r *GormCallRepository) MarkActive(ctx context.Context, externalCallID string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Call{}).
		Where("external_call_id = ?", externalCallID).
		Updates(map[string]interface{}{
			"status":     domain.CallStatusActive,
			"started_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark call active: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("call %s: %w", externalCallID, domain.ErrNotFound)
	}
	return nil
}

// MarkEnded sets the final status of a call
func (r *GormCallRepository) MarkEnded(ctx context.Context, externalCallID, status string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Call{}).
		Where("external_call_id = ?", externalCallID).
		Updates(map[string]interface{}{
			"status":   status,
			"ended_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark call ended: %w", result.Error)
	}
	return nil
}
