package bridge

import "encoding/json"

// Telephony-side events (Twilio Media Streams wire format).
const (
	TelephonyEventConnected = "connected"
	TelephonyEventStart     = "start"
	TelephonyEventMedia     = "media"
	TelephonyEventStop      = "stop"
	TelephonyEventClear     = "clear"
)

// Speech-agent-side event types.
const (
	AgentEventAudio        = "audio"
	AgentEventInterruption = "interruption"
	AgentEventPing         = "ping"
	AgentEventPong         = "pong"
)

// TelephonyMessage is one inbound frame from the telephony websocket. Only
// the fields the bridge consumes are decoded.
type TelephonyMessage struct {
	Event     string          `json:"event"`
	StreamSid string          `json:"streamSid,omitempty"`
	Start     *TelephonyStart `json:"start,omitempty"`
	Media     *TelephonyMedia `json:"media,omitempty"`
}

// TelephonyStart carries the stream metadata from the start event.
type TelephonyStart struct {
	StreamSid  string `json:"streamSid"`
	AccountSid string `json:"accountSid"`
	CallSid    string `json:"callSid"`
}

// TelephonyMedia carries one base64 audio chunk from the caller.
type TelephonyMedia struct {
	Payload string `json:"payload"`
}

// telephonyMediaOut is the outbound media frame to the telephony side.
type telephonyMediaOut struct {
	Event     string         `json:"event"`
	StreamSid string         `json:"streamSid"`
	Media     TelephonyMedia `json:"media"`
}

// telephonyClearOut tells the telephony side to flush buffered audio after a
// caller interruption.
type telephonyClearOut struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
}

// EncodeTelephonyMedia builds an outbound media frame tagged with the stream id.
func EncodeTelephonyMedia(streamSid, payload string) ([]byte, error) {
	return json.Marshal(telephonyMediaOut{
		Event:     TelephonyEventMedia,
		StreamSid: streamSid,
		Media:     TelephonyMedia{Payload: payload},
	})
}

// EncodeTelephonyClear builds an outbound clear frame.
func EncodeTelephonyClear(streamSid string) ([]byte, error) {
	return json.Marshal(telephonyClearOut{
		Event:     TelephonyEventClear,
		StreamSid: streamSid,
	})
}

// AgentEvent is one inbound frame from the speech-agent websocket. Audio
// payloads arrive in one of two shapes depending on the platform's event
// version; AudioPayload handles both.
type AgentEvent struct {
	Type       string           `json:"type"`
	Audio      *agentAudio      `json:"audio,omitempty"`
	AudioEvent *agentAudioEvent `json:"audio_event,omitempty"`
	PingEvent  *agentPingEvent  `json:"ping_event,omitempty"`
}

type agentAudio struct {
	Chunk string `json:"chunk"`
}

type agentAudioEvent struct {
	AudioBase64 string `json:"audio_base_64"`
}

type agentPingEvent struct {
	EventID int `json:"event_id"`
}

// AudioPayload extracts the base64 audio chunk from whichever field carries it.
func (e *AgentEvent) AudioPayload() (string, bool) {
	if e.Audio != nil && e.Audio.Chunk != "" {
		return e.Audio.Chunk, true
	}
	if e.AudioEvent != nil && e.AudioEvent.AudioBase64 != "" {
		return e.AudioEvent.AudioBase64, true
	}
	return "", false
}

// userAudioChunkOut is the outbound caller-audio frame to the speech agent.
type userAudioChunkOut struct {
	UserAudioChunk string `json:"user_audio_chunk"`
}

// agentPongOut answers a platform ping with the same event id.
type agentPongOut struct {
	Type    string `json:"type"`
	EventID int    `json:"event_id"`
}

// EncodeUserAudioChunk builds the outbound caller-audio frame.
func EncodeUserAudioChunk(payload string) ([]byte, error) {
	return json.Marshal(userAudioChunkOut{UserAudioChunk: payload})
}

// EncodePong builds the pong answer for a ping event id.
func EncodePong(eventID int) ([]byte, error) {
	return json.Marshal(agentPongOut{Type: AgentEventPong, EventID: eventID})
}
