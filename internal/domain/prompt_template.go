package domain

import (
	"time"
)

// Well-known prompt template names resolved during assembly.
const (
	TemplateNameBasePrompt    = "base_prompt"
	TemplateNameFirstMessage  = "first_message"
	TemplateNameContextHeader = "context_header"
)

// PromptTemplate is a named, versioned text blob. Inactive templates are
// excluded from resolution and the hardcoded default is used instead.
type PromptTemplate struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"type:varchar(128);not null;index"`
	Template  string    `json:"template" gorm:"type:text;not null"`
	Version   int       `json:"version" gorm:"default:1"`
	IsActive  bool      `json:"is_active" gorm:"default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for PromptTemplate
func (PromptTemplate) TableName() string {
	return "prompt_templates"
}
