package domain

import (
	"time"
)

// Call tracks one telephony call leg handled by the bridge. It exists mostly
// for its status field; the relay itself keeps no other persistent state.
type Call struct {
	ID             string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ExternalCallID string    `json:"external_call_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	RemoteAgentID  string    `json:"remote_agent_id" gorm:"type:varchar(255);not null;index"`
	Status         string    `json:"status" gorm:"type:varchar(32);default:'pending'"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Call
func (Call) TableName() string {
	return "calls"
}
