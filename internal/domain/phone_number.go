package domain

import (
	"time"
)

// PhoneNumber is a per-account telephony number. RemotePhoneID references the
// speech-agent platform's number registry and is set exactly once on first
// successful import; reprovisioning must detect it and only rebind the agent.
type PhoneNumber struct {
	ID            string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AccountID     string    `json:"account_id" gorm:"type:uuid;not null;index"`
	Number        string    `json:"number" gorm:"type:varchar(32);not null"`
	RemotePhoneID *string   `json:"remote_phone_id" gorm:"type:varchar(255)"`
	IsActive      bool      `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for PhoneNumber
func (PhoneNumber) TableName() string {
	return "phone_numbers"
}

// IsImported reports whether the number is already known to the speech-agent
// platform.
func (p *PhoneNumber) IsImported() bool {
	return p.RemotePhoneID != nil && *p.RemotePhoneID != ""
}
