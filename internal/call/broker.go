// Package call brokers audio/video call signaling between two logins. The
// broker never looks inside SDP or ICE payloads; it relays opaque bytes
// between the two live sessions and tracks just enough state to enforce
// the call lifecycle and the one-active-call-per-login rule.
package call

import (
	"github.com/rs/zerolog"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/events"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/ws"
)

// State of a call session. A pair with no session is idle.
type State int

const (
	StateRinging State = iota
	StateConnected
)

// Sender delivers signaling frames to live sessions. Satisfied by
// *ws.Registry.
type Sender interface {
	Send(login string, purpose ws.Purpose, data []byte) bool
	Connected(login string, purpose ws.Purpose) bool
}

type callSession struct {
	caller    string
	target    string
	withVideo bool
	state     State
}

func (s *callSession) peerOf(login string) string {
	if login == s.caller {
		return s.target
	}
	return s.caller
}

// Broker is the call state machine. It is driven exclusively by the message
// router's event loop, so its session table needs no locking.
type Broker struct {
	sender Sender
	// Both participant logins key the same session, which is what makes
	// the busy check O(1).
	sessions map[string]*callSession
	log      zerolog.Logger
}

func NewBroker(sender Sender, log zerolog.Logger) *Broker {
	return &Broker{
		sender:   sender,
		sessions: make(map[string]*callSession),
		log:      log,
	}
}

// Handle processes one call signaling event from the given login.
func (b *Broker) Handle(from string, ev events.Event) {
	switch ev := ev.(type) {
	case events.CallOffer:
		b.handleOffer(from, ev)
	case events.CallAnswer:
		b.handleAnswer(from, ev)
	case events.CallReject:
		b.handleReject(from)
	case events.ICECandidate:
		b.handleCandidate(from, ev)
	case events.CallEnd:
		b.handleEnd(from)
	}
}

func (b *Broker) handleOffer(from string, ev events.CallOffer) {
	if ev.Target == "" || ev.Target == from {
		return
	}

	// A login may participate in at most one active call. The caller is
	// told; a busy target's existing call is left untouched.
	if b.sessions[from] != nil || b.sessions[ev.Target] != nil {
		b.signal(from, events.Marshal(events.NewError(events.CodeTargetBusy, "participant already in a call")))
		return
	}

	frame := events.Marshal(events.OfferFrame{
		Type:      "call_offer",
		Caller:    from,
		Target:    ev.Target,
		Offer:     ev.Offer,
		WithVideo: ev.WithVideo,
	})
	if !b.signal(ev.Target, frame) {
		// Target unavailable: the offer is dropped silently and the
		// caller's client times out on its own.
		b.log.Debug().Str("caller", from).Str("target", ev.Target).Msg("call offer dropped, target unavailable")
		return
	}

	sess := &callSession{caller: from, target: ev.Target, withVideo: ev.WithVideo, state: StateRinging}
	b.sessions[from] = sess
	b.sessions[ev.Target] = sess
}

func (b *Broker) handleAnswer(from string, ev events.CallAnswer) {
	sess := b.sessions[from]
	if sess == nil || sess.state != StateRinging || sess.target != from {
		return
	}
	sess.state = StateConnected
	b.signal(sess.caller, events.Marshal(events.AnswerFrame{
		Type:   "call_answer",
		Target: from,
		Answer: ev.Answer,
	}))
}

func (b *Broker) handleReject(from string) {
	sess := b.sessions[from]
	if sess == nil || sess.state != StateRinging {
		return
	}
	b.clear(sess)
	b.signal(sess.peerOf(from), events.Marshal(events.HangupFrame{Type: "call_reject", Target: from}))
}

func (b *Broker) handleCandidate(from string, ev events.ICECandidate) {
	sess := b.sessions[from]
	if sess == nil || sess.state != StateConnected {
		return
	}
	b.signal(sess.peerOf(from), events.Marshal(events.CandidateFrame{
		Type:      "ice_candidate",
		Target:    from,
		Candidate: ev.Candidate,
	}))
}

func (b *Broker) handleEnd(from string) {
	sess := b.sessions[from]
	if sess == nil {
		return
	}
	b.clear(sess)
	b.signal(sess.peerOf(from), events.Marshal(events.HangupFrame{Type: "call_end", Target: from}))
}

// Disconnected tears down the login's call, if any, and notifies the peer.
// Called when either transport of the pair goes away.
func (b *Broker) Disconnected(login string) {
	sess := b.sessions[login]
	if sess == nil {
		return
	}
	b.clear(sess)
	b.signal(sess.peerOf(login), events.Marshal(events.HangupFrame{Type: "call_end", Target: login}))
}

// InCall reports whether login currently participates in a non-idle call.
func (b *Broker) InCall(login string) bool {
	return b.sessions[login] != nil
}

func (b *Broker) clear(sess *callSession) {
	delete(b.sessions, sess.caller)
	delete(b.sessions, sess.target)
}

// signal delivers to the login's call-signaling session, falling back to
// its chat session for clients that multiplex everything over one socket.
func (b *Broker) signal(login string, data []byte) bool {
	if b.sender.Send(login, ws.PurposeCall, data) {
		return true
	}
	return b.sender.Send(login, ws.PurposeChat, data)
}
