package convai

// PromptConfig carries the system prompt and model selection for an agent.
type PromptConfig struct {
	Prompt string `json:"prompt"`
	LLM    string `json:"llm,omitempty"`
}

// AgentConfig is the agent-level section of the conversation config.
type AgentConfig struct {
	Prompt       PromptConfig `json:"prompt"`
	FirstMessage string       `json:"first_message,omitempty"`
	Language     string       `json:"language,omitempty"`
}

// TTSConfig selects the synthesis voice for an agent.
type TTSConfig struct {
	VoiceID string `json:"voice_id,omitempty"`
}

// ConversationConfig is the platform's nested agent configuration document.
type ConversationConfig struct {
	Agent AgentConfig `json:"agent"`
	TTS   *TTSConfig  `json:"tts,omitempty"`
}

// CreateAgentRequest is the payload for agent creation.
type CreateAgentRequest struct {
	Name               string             `json:"name"`
	ConversationConfig ConversationConfig `json:"conversation_config"`
}

// CreateAgentResponse carries the platform-assigned agent id.
type CreateAgentResponse struct {
	AgentID string `json:"agent_id"`
}

// UpdateAgentRequest is the payload for a full agent configuration update.
type UpdateAgentRequest struct {
	Name               string             `json:"name,omitempty"`
	ConversationConfig ConversationConfig `json:"conversation_config"`
}

// RenameAgentRequest updates only the display name of an agent.
type RenameAgentRequest struct {
	Name string `json:"name"`
}

// ImportPhoneNumberRequest registers a telephony number with the platform so
// inbound calls reach it. Provider is always twilio for this service.
type ImportPhoneNumberRequest struct {
	PhoneNumber string `json:"phone_number"`
	Label       string `json:"label"`
	Sid         string `json:"sid"`
	Token       string `json:"token"`
	Provider    string `json:"provider"`
}

// ImportPhoneNumberResponse carries the platform-assigned phone number id.
type ImportPhoneNumberResponse struct {
	PhoneNumberID string `json:"phone_number_id"`
}

// BindPhoneNumberRequest points an imported number at an agent.
type BindPhoneNumberRequest struct {
	AgentID string `json:"agent_id"`
}

// SignedURLResponse carries the short-lived websocket URL for a conversation.
type SignedURLResponse struct {
	SignedURL string `json:"signed_url"`
}
