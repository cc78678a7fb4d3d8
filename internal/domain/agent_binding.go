package domain

import (
	"time"
)

// AgentBinding links an Account to its remote speech-agent resource.
// Exactly one binding exists per account; it is created lazily on the first
// provisioning request. RemoteAgentID is write-once: rename and update reuse
// it, never replace it.
type AgentBinding struct {
	ID            string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AccountID     string    `json:"account_id" gorm:"type:uuid;not null;uniqueIndex"`
	Account       Account   `json:"-" gorm:"foreignKey:AccountID"`
	RemoteAgentID *string   `json:"remote_agent_id" gorm:"type:varchar(255)"`
	Context       string    `json:"context" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for AgentBinding
func (AgentBinding) TableName() string {
	return "agent_bindings"
}

// IsProvisioned reports whether the binding already has a remote agent.
func (b *AgentBinding) IsProvisioned() bool {
	return b.RemoteAgentID != nil && *b.RemoteAgentID != ""
}
