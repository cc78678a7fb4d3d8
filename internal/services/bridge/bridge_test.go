package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RingDeskAI/ringdesk-voice-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSocket feeds canned frames to the bridge and records everything
// written back.
type fakeSocket struct {
	in chan []byte

	mu      sync.Mutex
	written []writtenFrame
	closed  bool
}

type writtenFrame struct {
	messageType int
	data        []byte
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{in: make(chan []byte, 16)}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	data, ok := <-s.in
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return websocket.TextMessage, data, nil
}

func (s *fakeSocket) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, writtenFrame{messageType: messageType, data: data})
	return nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// textFrames returns the decoded text frames written to the socket.
func (s *fakeSocket) textFrames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var frames [][]byte
	for _, f := range s.written {
		if f.messageType == websocket.TextMessage {
			frames = append(frames, f.data)
		}
	}
	return frames
}

func (s *fakeSocket) wroteCloseFrame() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.written {
		if f.messageType == websocket.CloseMessage {
			return true
		}
	}
	return false
}

// fakeCalls records status transitions.
type fakeCalls struct {
	mu          sync.Mutex
	active      bool
	endedStatus string
}

func (f *fakeCalls) GetOrCreate(_ context.Context, externalCallID, remoteAgentID string) (*domain.Call, error) {
	return &domain.Call{ExternalCallID: externalCallID, RemoteAgentID: remoteAgentID, Status: domain.CallStatusPending}, nil
}

func (f *fakeCalls) MarkActive(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = true
	return nil
}

func (f *fakeCalls) MarkEnded(_ context.Context, _ string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endedStatus = status
	return nil
}

func (f *fakeCalls) isActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeCalls) ended() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endedStatus
}

type fixture struct {
	telephony *fakeSocket
	agent     *fakeSocket
	calls     *fakeCalls
	done      chan struct{}

	mu      sync.Mutex
	dials   int
	dialErr error
}

func (f *fixture) connect(_ context.Context) (Socket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials++
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	return f.agent, nil
}

func (f *fixture) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func startBridge(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		telephony: newFakeSocket(),
		agent:     newFakeSocket(),
		calls:     &fakeCalls{},
		done:      make(chan struct{}),
	}

	b := New(f.telephony, AgentConnectorFunc(f.connect), f.calls, nil, nil, "CA123", "agent_1")
	go func() {
		b.Run(context.Background())
		close(f.done)
	}()
	return f
}

func (f *fixture) sendStart(t *testing.T) {
	t.Helper()
	f.telephony.in <- []byte(`{"event":"start","start":{"streamSid":"MZ456","callSid":"CA123"}}`)
	require.Eventually(t, f.calls.isActive, time.Second, 5*time.Millisecond)
}

func (f *fixture) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not shut down")
	}
}

func TestMediaBeforeStartIsDropped(t *testing.T) {
	f := startBridge(t)

	f.telephony.in <- []byte(`{"event":"media","media":{"payload":"AAAA"}}`)
	f.telephony.in <- []byte(`{"event":"stop"}`)
	f.waitDone(t)

	assert.Zero(t, f.dialCount())
	assert.Empty(t, f.agent.textFrames())
}

func TestCallerAudioIsForwarded(t *testing.T) {
	f := startBridge(t)

	f.sendStart(t)
	f.telephony.in <- []byte(`{"event":"media","media":{"payload":"c29tZWF1ZGlv"}}`)
	f.telephony.in <- []byte(`{"event":"stop"}`)
	f.waitDone(t)

	frames := f.agent.textFrames()
	require.Len(t, frames, 1)

	var out map[string]string
	require.NoError(t, json.Unmarshal(frames[0], &out))
	assert.Equal(t, "c29tZWF1ZGlv", out["user_audio_chunk"])

	assert.Equal(t, domain.CallStatusCompleted, f.calls.ended())
}

func TestAgentAudioIsForwardedInBothShapes(t *testing.T) {
	f := startBridge(t)

	f.sendStart(t)
	f.agent.in <- []byte(`{"type":"audio","audio":{"chunk":"Y2h1bmsx"}}`)
	f.agent.in <- []byte(`{"type":"audio","audio_event":{"audio_base_64":"Y2h1bmsy"}}`)
	close(f.agent.in)
	f.waitDone(t)

	frames := f.telephony.textFrames()
	require.Len(t, frames, 2)

	for i, wantPayload := range []string{"Y2h1bmsx", "Y2h1bmsy"} {
		var out telephonyMediaOut
		require.NoError(t, json.Unmarshal(frames[i], &out))
		assert.Equal(t, TelephonyEventMedia, out.Event)
		assert.Equal(t, "MZ456", out.StreamSid)
		assert.Equal(t, wantPayload, out.Media.Payload)
	}
}

func TestInterruptionSendsClear(t *testing.T) {
	f := startBridge(t)

	f.sendStart(t)
	f.agent.in <- []byte(`{"type":"interruption"}`)
	close(f.agent.in)
	f.waitDone(t)

	frames := f.telephony.textFrames()
	require.Len(t, frames, 1)

	var out telephonyClearOut
	require.NoError(t, json.Unmarshal(frames[0], &out))
	assert.Equal(t, TelephonyEventClear, out.Event)
	assert.Equal(t, "MZ456", out.StreamSid)
}

func TestPingAnsweredWithMatchingEventID(t *testing.T) {
	f := startBridge(t)

	f.sendStart(t)
	f.agent.in <- []byte(`{"type":"ping","ping_event":{"event_id":42}}`)
	close(f.agent.in)
	f.waitDone(t)

	frames := f.agent.textFrames()
	require.Len(t, frames, 1)

	var out agentPongOut
	require.NoError(t, json.Unmarshal(frames[0], &out))
	assert.Equal(t, AgentEventPong, out.Type)
	assert.Equal(t, 42, out.EventID)
}

func TestReaderExitsWhenBlockedSendIsShutDown(t *testing.T) {
	f := &fixture{
		telephony: newFakeSocket(),
		agent:     newFakeSocket(),
		calls:     &fakeCalls{},
	}
	b := New(f.telephony, AgentConnectorFunc(f.connect), f.calls, nil, nil, "CA123", "agent_1")

	for i := 0; i < 4; i++ {
		f.agent.in <- []byte(`{"type":"ping","ping_event":{"event_id":1}}`)
	}

	frames := make(chan inboundFrame)
	exited := make(chan struct{})
	go func() {
		b.readLoop(f.agent, frames, "agent")
		close(exited)
	}()

	// Take one frame so the reader is blocked sending the next one,
	// then shut down without draining.
	<-frames
	b.shutdown()

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("reader goroutine did not exit after shutdown")
	}
}

func TestDuplicateStartIsIgnored(t *testing.T) {
	f := startBridge(t)

	f.sendStart(t)
	f.telephony.in <- []byte(`{"event":"start","start":{"streamSid":"MZ999","callSid":"CA123"}}`)
	f.telephony.in <- []byte(`{"event":"media","media":{"payload":"c29tZWF1ZGlv"}}`)
	f.telephony.in <- []byte(`{"event":"stop"}`)
	f.waitDone(t)

	// The second start neither re-dials nor tears the bridge down; media
	// after it still reaches the original agent socket.
	assert.Equal(t, 1, f.dialCount())

	frames := f.agent.textFrames()
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0]), "user_audio_chunk")
}

func TestAgentDialFailureEndsCallAsFailed(t *testing.T) {
	f := startBridge(t)
	f.mu.Lock()
	f.dialErr = errors.New("agent unreachable")
	f.mu.Unlock()

	f.telephony.in <- []byte(`{"event":"start","start":{"streamSid":"MZ456","callSid":"CA123"}}`)
	f.waitDone(t)

	assert.Equal(t, 1, f.dialCount())
	assert.True(t, f.telephony.isClosed())
	assert.False(t, f.calls.isActive())
	assert.Equal(t, domain.CallStatusFailed, f.calls.ended())
}

func TestTelephonyDisconnectClosesAgentSide(t *testing.T) {
	f := startBridge(t)

	f.sendStart(t)
	close(f.telephony.in)
	f.waitDone(t)

	assert.True(t, f.agent.isClosed())
	assert.True(t, f.telephony.isClosed())
	assert.True(t, f.agent.wroteCloseFrame())
	assert.Equal(t, domain.CallStatusCompleted, f.calls.ended())
}

func TestAgentDisconnectClosesTelephonySide(t *testing.T) {
	f := startBridge(t)

	f.sendStart(t)
	close(f.agent.in)
	f.waitDone(t)

	assert.True(t, f.telephony.isClosed())
	assert.True(t, f.agent.isClosed())
	assert.True(t, f.telephony.wroteCloseFrame())
	assert.Equal(t, domain.CallStatusCompleted, f.calls.ended())
}

func TestUnknownEventsAreIgnored(t *testing.T) {
	f := startBridge(t)

	f.sendStart(t)
	f.telephony.in <- []byte(`{"event":"mark","streamSid":"MZ456"}`)
	f.agent.in <- []byte(`{"type":"agent_response","agent_response_event":{"agent_response":"hello"}}`)
	f.telephony.in <- []byte(`{"event":"stop"}`)
	f.waitDone(t)

	assert.Empty(t, f.telephony.textFrames())
	assert.Empty(t, f.agent.textFrames())
}
