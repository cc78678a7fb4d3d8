package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"gorm.io/gorm"
)

// PhoneNumberRepository defines the interface for phone number operations
type PhoneNumberRepository interface {
	// GetActiveByAccountID returns the account's active number, or nil when
	// the account has none. Absence is not an error for provisioning.
	GetActiveByAccountID(ctx context.Context, accountID string) (*domain.PhoneNumber, error)
	// SetRemotePhoneID persists the remote phone id. Write-once: a number
	// that already carries one is left untouched.
	SetRemotePhoneID(ctx context.Context, id, remotePhoneID string) error
}

// GormPhoneNumberRepository implements PhoneNumberRepository using GORM
type GormPhoneNumberRepository struct {
	db *gorm.DB
}

// NewGormPhoneNumberRepository creates a new GORM phone number repository
func NewGormPhoneNumberRepository(db *gorm.DB) *GormPhoneNumberRepository {
	return &GormPhoneNumberRepository{db: db}
}

// GetActiveByAccountID retrieves the active phone number for an account
func (r *GormPhoneNumberRepository) GetActiveByAccountID(ctx context.Context, accountID string) (*domain.PhoneNumber, error) {
	var number domain.PhoneNumber
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND is_active = ?", accountID, true).
		Order("created_at ASC").
		First(&number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get phone number: %w", err)
	}

	return &number, nil
}

// SetRemotePhoneID persists the remote phone id if none is stored yet
func (r *GormPhoneNumberRepository) SetRemotePhoneID(ctx context.Context, id, remotePhoneID string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.PhoneNumber{}).
		Where("id = ? AND (remote_phone_id IS NULL OR remote_phone_id = '')", id).
		Update("remote_phone_id", remotePhoneID)
	if result.Error != nil {
		return fmt.Errorf("failed to set remote phone id: %w", result.Error)
	}
	return nil
}
