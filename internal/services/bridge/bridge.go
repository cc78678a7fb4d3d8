package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/RingDeskAI/ringdesk-voice-service/internal/repository"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Socket is the subset of a websocket connection the bridge uses. It is
// satisfied by *websocket.Conn and by test doubles.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// AgentConnector opens the speech-agent leg of a bridge. The connection is
// established only once the telephony start event arrives.
type AgentConnector interface {
	Connect(ctx context.Context) (Socket, error)
}

// AgentConnectorFunc adapts a function to the AgentConnector interface.
type AgentConnectorFunc func(ctx context.Context) (Socket, error)

// Connect implements AgentConnector.
func (f AgentConnectorFunc) Connect(ctx context.Context) (Socket, error) { return f(ctx) }

// AudioArchiver receives the decoded caller audio relayed through a bridge.
type AudioArchiver interface {
	Append(chunk []byte) error
	Close(ctx context.Context) error
}

// bridge connection states
type state int

const (
	stateAwaitingStart state = iota
	stateBridging
	stateClosing
)

// Bridge relays audio between one telephony stream and one speech-agent
// conversation, translating between the two wire formats. All socket writes
// happen on the single Run goroutine; the reader goroutines only feed frames
// into channels.
type Bridge struct {
	telephony Socket
	connect   AgentConnector
	agent     Socket // nil until the telephony start event

	calls    repository.CallRepository
	registry *SessionRegistry
	archiver AudioArchiver

	callID  string
	agentID string

	state     state
	streamSid string
	endStatus string

	agentFrames chan inboundFrame

	// done is closed by shutdown so reader goroutines blocked on a
	// channel send can exit. Closing the socket only interrupts a
	// pending ReadMessage.
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a bridge over an accepted telephony socket. The speech-agent
// socket is dialed through connect when the stream starts. registry and
// archiver may be nil.
func New(telephony Socket, connect AgentConnector, calls repository.CallRepository, registry *SessionRegistry, archiver AudioArchiver, callID, agentID string) *Bridge {
	return &Bridge{
		telephony: telephony,
		connect:   connect,
		calls:     calls,
		registry:  registry,
		archiver:  archiver,
		callID:    callID,
		agentID:   agentID,
		state:     stateAwaitingStart,
		endStatus: domain.CallStatusCompleted,
		done:      make(chan struct{}),
	}
}

type inboundFrame struct {
	data []byte
}

// Run relays frames until either side disconnects or ctx is cancelled. It
// always closes both sockets before returning.
func (b *Bridge) Run(ctx context.Context) {
	telephonyFrames := make(chan inboundFrame, 32)
	go b.readLoop(b.telephony, telephonyFrames, "telephony")

	defer b.shutdown()

	for {
		// b.agentFrames is nil until the agent leg is connected; a nil
		// channel never fires in select.
		select {
		case <-ctx.Done():
			logger.Base().Info("bridge context cancelled", zap.String("call_id", b.callID))
			return

		case frame, ok := <-telephonyFrames:
			if !ok {
				logger.Base().Info("telephony side disconnected", zap.String("call_id", b.callID))
				return
			}
			if done := b.handleTelephonyFrame(ctx, frame.data); done {
				return
			}

		case frame, ok := <-b.agentFrames:
			if !ok {
				logger.Base().Info("agent side disconnected", zap.String("call_id", b.callID))
				return
			}
			b.handleAgentFrame(frame.data)
		}
	}
}

// readLoop pumps frames from one socket into a channel until the socket
// errors. Closing the channel is the disconnect signal for the actor loop.
func (b *Bridge) readLoop(sock Socket, frames chan<- inboundFrame, side string) {
	defer close(frames)
	for {
		msgType, data, err := sock.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Base().Debug("socket read ended",
					zap.String("call_id", b.callID),
					zap.String("side", side),
					zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		select {
		case frames <- inboundFrame{data: data}:
		case <-b.done:
			return
		}
	}
}

// handleTelephonyFrame processes one frame from the caller side. It returns
// true when the stream is over.
func (b *Bridge) handleTelephonyFrame(ctx context.Context, data []byte) bool {
	var msg TelephonyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Base().Warn("unparseable telephony frame", zap.String("call_id", b.callID), zap.Error(err))
		return false
	}

	switch msg.Event {
	case TelephonyEventConnected:
		logger.Base().Debug("telephony stream connected", zap.String("call_id", b.callID))

	case TelephonyEventStart:
		if b.state != stateAwaitingStart {
			logger.Base().Warn("ignoring duplicate start event", zap.String("call_id", b.callID))
			return false
		}
		if msg.Start == nil || msg.Start.StreamSid == "" {
			logger.Base().Warn("start event without stream id", zap.String("call_id", b.callID))
			return false
		}
		return b.openAgentLeg(ctx, msg.Start.StreamSid)

	case TelephonyEventMedia:
		if b.state != stateBridging {
			// Media can race the start event. Frames before the agent leg
			// is open are dropped, not queued.
			logger.Base().Debug("dropping media frame before stream start", zap.String("call_id", b.callID))
			return false
		}
		if msg.Media == nil || msg.Media.Payload == "" {
			return false
		}

		out, err := EncodeUserAudioChunk(msg.Media.Payload)
		if err != nil {
			logger.Base().Warn("failed to encode caller audio", zap.String("call_id", b.callID), zap.Error(err))
			return false
		}
		if err := b.agent.WriteMessage(websocket.TextMessage, out); err != nil {
			logger.Base().Warn("failed to forward caller audio", zap.String("call_id", b.callID), zap.Error(err))
			return true
		}
		b.archiveCallerAudio(msg.Media.Payload)

	case TelephonyEventStop:
		logger.Base().Info("telephony stream stopped", zap.String("call_id", b.callID))
		return true

	default:
		logger.Base().Debug("ignoring telephony event",
			zap.String("call_id", b.callID),
			zap.String("event", msg.Event))
	}
	return false
}

// openAgentLeg dials the speech-agent session in response to the start
// event. A failed dial ends the call as failed; there is no retry.
func (b *Bridge) openAgentLeg(ctx context.Context, streamSid string) (done bool) {
	agent, err := b.connect.Connect(ctx)
	if err != nil {
		logger.Base().Error("failed to connect to speech agent",
			zap.String("call_id", b.callID),
			zap.String("agent_id", b.agentID),
			zap.Error(err))
		b.endStatus = domain.CallStatusFailed
		return true
	}

	b.agent = agent
	b.streamSid = streamSid
	b.state = stateBridging

	b.agentFrames = make(chan inboundFrame, 32)
	go b.readLoop(b.agent, b.agentFrames, "agent")

	if err := b.calls.MarkActive(ctx, b.callID); err != nil {
		logger.Base().Warn("failed to mark call active", zap.String("call_id", b.callID), zap.Error(err))
	}
	b.registry.Register(ctx, b.callID, b.agentID)

	logger.Base().Info("bridging started",
		zap.String("call_id", b.callID),
		zap.String("stream_sid", b.streamSid),
		zap.String("agent_id", b.agentID))
	return false
}

// handleAgentFrame processes one frame from the speech-agent side.
func (b *Bridge) handleAgentFrame(data []byte) {
	var event AgentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Base().Warn("unparseable agent frame", zap.String("call_id", b.callID), zap.Error(err))
		return
	}

	switch event.Type {
	case AgentEventAudio:
		payload, ok := event.AudioPayload()
		if !ok {
			return
		}
		out, err := EncodeTelephonyMedia(b.streamSid, payload)
		if err != nil {
			logger.Base().Warn("failed to encode agent audio", zap.String("call_id", b.callID), zap.Error(err))
			return
		}
		if err := b.telephony.WriteMessage(websocket.TextMessage, out); err != nil {
			logger.Base().Warn("failed to forward agent audio", zap.String("call_id", b.callID), zap.Error(err))
		}

	case AgentEventInterruption:
		out, err := EncodeTelephonyClear(b.streamSid)
		if err != nil {
			return
		}
		if err := b.telephony.WriteMessage(websocket.TextMessage, out); err != nil {
			logger.Base().Warn("failed to send clear on interruption", zap.String("call_id", b.callID), zap.Error(err))
		}

	case AgentEventPing:
		// Keepalive is answered on the agent connection, echoing the
		// platform's event id.
		if event.PingEvent == nil {
			return
		}
		out, err := EncodePong(event.PingEvent.EventID)
		if err != nil {
			return
		}
		if err := b.agent.WriteMessage(websocket.TextMessage, out); err != nil {
			logger.Base().Warn("failed to answer ping", zap.String("call_id", b.callID), zap.Error(err))
		}

	default:
		logger.Base().Debug("ignoring agent event",
			zap.String("call_id", b.callID),
			zap.String("type", event.Type))
	}
}

// archiveCallerAudio feeds a caller chunk into the archive when enabled.
func (b *Bridge) archiveCallerAudio(payload string) {
	if b.archiver == nil {
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		logger.Base().Debug("skipping unarchivable audio chunk", zap.String("call_id", b.callID), zap.Error(err))
		return
	}
	if err := b.archiver.Append(decoded); err != nil {
		logger.Base().Warn("audio archive append failed", zap.String("call_id", b.callID), zap.Error(err))
	}
}

// shutdown closes both sockets, finalizes the archive and records the
// terminal call status. Whichever side ends the call, the other side is
// closed the same way.
func (b *Bridge) shutdown() {
	b.closeOnce.Do(func() {
		b.state = stateClosing
		close(b.done)

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = b.telephony.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = b.telephony.Close()
		if b.agent != nil {
			_ = b.agent.WriteMessage(websocket.CloseMessage, closeMsg)
			_ = b.agent.Close()
		}

		// Cleanup must run even when the caller's context is already gone.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if b.archiver != nil {
			if err := b.archiver.Close(cleanupCtx); err != nil {
				logger.Base().Warn("failed to finalize audio archive", zap.String("call_id", b.callID), zap.Error(err))
			}
		}

		b.registry.Unregister(cleanupCtx, b.callID)

		if err := b.calls.MarkEnded(cleanupCtx, b.callID, b.endStatus); err != nil {
			logger.Base().Warn("failed to mark call ended", zap.String("call_id", b.callID), zap.Error(err))
		}

		logger.Base().Info("bridge closed",
			zap.String("call_id", b.callID),
			zap.String("status", b.endStatus))
	})
}
