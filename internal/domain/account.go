package domain

import (
	"time"
)

// Account represents a tenant of the receptionist platform
type Account struct {
	ID                 string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name               string     `json:"name" gorm:"type:varchar(255);not null"`
	Timezone           string     `json:"timezone" gorm:"type:varchar(64)"`
	BusinessHoursStart string     `json:"business_hours_start" gorm:"type:varchar(32)"`
	BusinessHoursEnd   string     `json:"business_hours_end" gorm:"type:varchar(32)"`
	EmergencyKeywords  StringList `json:"emergency_keywords" gorm:"type:jsonb"`

	// Per-account Twilio subaccount credentials used for phone-number import
	// in production deployments. Shared env credentials are preferred in
	// local/dev deployments.
	TwilioSubaccountSID   string `json:"twilio_subaccount_sid" gorm:"type:varchar(255)"`
	TwilioSubaccountToken string `json:"-" gorm:"type:varchar(255)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Account
func (Account) TableName() string {
	return "accounts"
}
