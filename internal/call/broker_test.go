package call

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/events"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/ws"
)

// fakeSender records everything sent per login and pretends the listed
// logins hold live call sessions.
type fakeSender struct {
	online map[string]bool
	frames map[string][]map[string]any
}

func newFakeSender(online ...string) *fakeSender {
	f := &fakeSender{online: make(map[string]bool), frames: make(map[string][]map[string]any)}
	for _, login := range online {
		f.online[login] = true
	}
	return f
}

func (f *fakeSender) Send(login string, purpose ws.Purpose, data []byte) bool {
	if purpose != ws.PurposeCall || !f.online[login] {
		return false
	}
	var frame map[string]any
	_ = json.Unmarshal(data, &frame)
	f.frames[login] = append(f.frames[login], frame)
	return true
}

func (f *fakeSender) Connected(login string, purpose ws.Purpose) bool {
	return purpose == ws.PurposeCall && f.online[login]
}

func (f *fakeSender) last(t *testing.T, login string) map[string]any {
	t.Helper()
	require.NotEmpty(t, f.frames[login])
	return f.frames[login][len(f.frames[login])-1]
}

func newTestBroker(online ...string) (*Broker, *fakeSender) {
	sender := newFakeSender(online...)
	return NewBroker(sender, zerolog.Nop()), sender
}

func offer(caller, target string) events.CallOffer {
	return events.CallOffer{
		Caller:    caller,
		Target:    target,
		Offer:     json.RawMessage(`{"sdp":"v=0"}`),
		WithVideo: true,
	}
}

func TestOfferRingsTarget(t *testing.T) {
	b, sender := newTestBroker("alice", "bob")

	b.Handle("alice", offer("alice", "bob"))

	frame := sender.last(t, "bob")
	assert.Equal(t, "call_offer", frame["type"])
	assert.Equal(t, "alice", frame["caller"])
	assert.Equal(t, true, frame["withVideo"])
	assert.True(t, b.InCall("alice"))
	assert.True(t, b.InCall("bob"))
}

func TestOfferToAbsentTargetDroppedSilently(t *testing.T) {
	b, sender := newTestBroker("alice")

	b.Handle("alice", offer("alice", "bob"))

	// No error back to the caller; their client times out on its own.
	assert.Empty(t, sender.frames["alice"])
	assert.Empty(t, sender.frames["bob"])
	assert.False(t, b.InCall("alice"))
}

func TestOfferToBusyTargetRejected(t *testing.T) {
	b, sender := newTestBroker("alice", "bob", "carol")

	b.Handle("alice", offer("alice", "bob"))
	b.Handle("carol", offer("carol", "alice"))

	frame := sender.last(t, "carol")
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, events.CodeTargetBusy, frame["code"])
	assert.False(t, b.InCall("carol"))

	// The existing call is untouched.
	assert.True(t, b.InCall("alice"))
	assert.True(t, b.InCall("bob"))
}

func TestBusyCallerCannotOfferAgain(t *testing.T) {
	b, sender := newTestBroker("alice", "bob", "carol")

	b.Handle("alice", offer("alice", "bob"))
	b.Handle("alice", offer("alice", "carol"))

	frame := sender.last(t, "alice")
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, events.CodeTargetBusy, frame["code"])
	assert.Empty(t, sender.frames["carol"])
}

func TestAnswerConnects(t *testing.T) {
	b, sender := newTestBroker("alice", "bob")

	b.Handle("alice", offer("alice", "bob"))
	b.Handle("bob", events.CallAnswer{Target: "alice", Answer: json.RawMessage(`{"sdp":"answer"}`)})

	frame := sender.last(t, "alice")
	assert.Equal(t, "call_answer", frame["type"])
	assert.JSONEq(t, `{"sdp":"answer"}`, mustJSON(t, frame["answer"]))
}

func TestOnlyTargetMayAnswer(t *testing.T) {
	b, sender := newTestBroker("alice", "bob")

	b.Handle("alice", offer("alice", "bob"))
	before := len(sender.frames["bob"])

	// The caller answering their own offer is ignored.
	b.Handle("alice", events.CallAnswer{Answer: json.RawMessage(`"x"`)})
	assert.Len(t, sender.frames["bob"], before)
}

func TestRejectReturnsPairToIdle(t *testing.T) {
	b, sender := newTestBroker("alice", "bob")

	b.Handle("alice", offer("alice", "bob"))
	b.Handle("bob", events.CallReject{Target: "alice"})

	frame := sender.last(t, "alice")
	assert.Equal(t, "call_reject", frame["type"])
	assert.False(t, b.InCall("alice"))
	assert.False(t, b.InCall("bob"))

	// State is reusable, not poisoned: a fresh offer between the same two
	// logins is accepted.
	b.Handle("alice", offer("alice", "bob"))
	frame = sender.last(t, "bob")
	assert.Equal(t, "call_offer", frame["type"])
	assert.True(t, b.InCall("bob"))
}

func TestCandidatesRelayBothWaysWhenConnected(t *testing.T) {
	b, sender := newTestBroker("alice", "bob")

	b.Handle("alice", offer("alice", "bob"))

	// Candidates before the answer are dropped.
	b.Handle("alice", events.ICECandidate{Candidate: json.RawMessage(`{"c":0}`)})
	assert.Len(t, sender.frames["bob"], 1) // just the offer

	b.Handle("bob", events.CallAnswer{Answer: json.RawMessage(`"a"`)})

	b.Handle("alice", events.ICECandidate{Candidate: json.RawMessage(`{"c":1}`)})
	b.Handle("bob", events.ICECandidate{Candidate: json.RawMessage(`{"c":2}`)})

	bobFrame := sender.last(t, "bob")
	assert.Equal(t, "ice_candidate", bobFrame["type"])
	assert.JSONEq(t, `{"c":1}`, mustJSON(t, bobFrame["candidate"]))

	aliceFrame := sender.last(t, "alice")
	assert.Equal(t, "ice_candidate", aliceFrame["type"])
	assert.JSONEq(t, `{"c":2}`, mustJSON(t, aliceFrame["candidate"]))
}

func TestEndNotifiesPeerAndClears(t *testing.T) {
	b, sender := newTestBroker("alice", "bob")

	b.Handle("alice", offer("alice", "bob"))
	b.Handle("bob", events.CallAnswer{Answer: json.RawMessage(`"a"`)})

	// Either party may end; here the target hangs up.
	b.Handle("bob", events.CallEnd{Target: "alice"})

	frame := sender.last(t, "alice")
	assert.Equal(t, "call_end", frame["type"])
	assert.False(t, b.InCall("alice"))
	assert.False(t, b.InCall("bob"))
}

func TestDisconnectTearsDownCall(t *testing.T) {
	b, sender := newTestBroker("alice", "bob")

	b.Handle("alice", offer("alice", "bob"))
	b.Disconnected("alice")

	frame := sender.last(t, "bob")
	assert.Equal(t, "call_end", frame["type"])
	assert.False(t, b.InCall("bob"))
}

func TestSelfOfferIgnored(t *testing.T) {
	b, sender := newTestBroker("alice")

	b.Handle("alice", offer("alice", "alice"))
	assert.Empty(t, sender.frames["alice"])
	assert.False(t, b.InCall("alice"))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
