// Package router owns the inbound event loop. Every frame from every
// connection funnels into one goroutine that runs each event to completion,
// which gives the router and the call broker mutual exclusion on their
// state without locks. Blocking work (persistence, key lookups, crypto)
// happens inline on the loop; only per-slot registry updates are visible to
// other goroutines.
package router

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/call"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/crypto"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/events"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/models"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/store"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/ws"
)

const defaultQueueSize = 256

type itemKind int

const (
	itemFrame itemKind = iota
	itemSessionUp
	itemSessionDown
)

type item struct {
	kind    itemKind
	login   string
	purpose ws.Purpose
	data    []byte
}

type Router struct {
	store    store.Store
	registry *ws.Registry
	broker   *call.Broker
	inbound  chan item
	log      zerolog.Logger
}

func New(st store.Store, registry *ws.Registry, broker *call.Broker, queueSize int, log zerolog.Logger) *Router {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Router{
		store:    st,
		registry: registry,
		broker:   broker,
		inbound:  make(chan item, queueSize),
		log:      log,
	}
}

// Run drains the inbound queue until Stop is called. Meant to be run as a
// single goroutine; all router and broker state is touched only from here.
func (r *Router) Run() {
	for it := range r.inbound {
		switch it.kind {
		case itemFrame:
			r.handleFrame(it.login, it.purpose, it.data)
		case itemSessionUp:
			r.handleSessionUp(it.login, it.purpose)
		case itemSessionDown:
			r.handleSessionDown(it.login, it.purpose)
		}
	}
}

// Stop closes the inbound queue, letting Run return once drained. No
// submissions may follow.
func (r *Router) Stop() {
	close(r.inbound)
}

// SubmitFrame implements ws.EventSink. Blocks while the queue is full,
// which backpressures the submitting connection's read pump.
func (r *Router) SubmitFrame(login string, purpose ws.Purpose, data []byte) {
	r.inbound <- item{kind: itemFrame, login: login, purpose: purpose, data: data}
}

// SessionUp implements ws.EventSink.
func (r *Router) SessionUp(login string, purpose ws.Purpose) {
	r.inbound <- item{kind: itemSessionUp, login: login, purpose: purpose}
}

// SessionDown implements ws.EventSink.
func (r *Router) SessionDown(login string, purpose ws.Purpose) {
	r.inbound <- item{kind: itemSessionDown, login: login, purpose: purpose}
}

func (r *Router) handleFrame(login string, purpose ws.Purpose, data []byte) {
	ev, err := events.Decode(data)
	if err != nil {
		// Malformed frames are dropped; the connection stays open.
		r.log.Warn().Err(err).Str("login", login).Msg("dropping inbound frame")
		return
	}

	switch ev := ev.(type) {
	case events.ChatMessage:
		r.handleChatMessage(login, purpose, ev)
	case events.Typing:
		r.handleTyping(login, ev)
	case events.ReadReceipt:
		r.handleReadReceipt(login, ev)
	case events.CallOffer, events.CallAnswer, events.CallReject, events.ICECandidate, events.CallEnd:
		r.broker.Handle(login, ev)
	}
}

func (r *Router) handleChatMessage(login string, purpose ws.Purpose, ev events.ChatMessage) {
	if ev.To == "" || ev.To == login {
		r.log.Warn().Str("login", login).Msg("dropping message with bad recipient")
		return
	}

	recipient, err := r.store.GetUserByLogin(ev.To)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.sendError(login, purpose, events.CodeUnknownRecipient, "recipient does not exist")
			return
		}
		r.log.Error().Err(err).Str("to", ev.To).Msg("recipient lookup failed")
		r.sendError(login, purpose, events.CodePersistenceFailure, "recipient lookup failed")
		return
	}

	msg := &models.Message{
		ID:        ev.MessageID,
		FromLogin: login,
		ToLogin:   ev.To,
		Content:   ev.Content,
		Kind:      messageKind(ev),
		FileName:  ev.FileName,
		FileType:  ev.FileType,
		FileSize:  ev.FileSize,
		Timestamp: time.Now().UTC(),
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	// The recipient copy is wrapped to their public key. A missing key or
	// a failed encryption degrades to an unencrypted row rather than
	// losing the message.
	if recipient.PublicKey == "" {
		r.log.Warn().Str("to", ev.To).Str("message_id", msg.ID).Msg("recipient has no public key, storing message unencrypted")
	} else {
		env, err := crypto.EncryptForRecipient([]byte(ev.Content), recipient.PublicKey)
		if err != nil {
			r.log.Warn().Err(err).Str("to", ev.To).Str("message_id", msg.ID).Msg("encryption failed, storing message unencrypted")
		} else {
			msg.Ciphertext = env.Ciphertext
			msg.WrappedKey = env.WrappedKey
			msg.IV = env.IV
		}
	}

	if err := r.store.SaveMessage(msg); err != nil {
		r.log.Error().Err(err).Str("message_id", msg.ID).Msg("message persistence failed")
		r.sendError(login, purpose, events.CodePersistenceFailure, "message could not be stored")
		return
	}

	// Both directions of the contact edge pick up the new timestamp.
	if err := r.store.UpsertContact(login, ev.To, msg.Timestamp); err != nil {
		r.log.Warn().Err(err).Msg("contact upsert failed")
	}
	if err := r.store.UpsertContact(ev.To, login, msg.Timestamp); err != nil {
		r.log.Warn().Err(err).Msg("contact upsert failed")
	}

	// Sender sees their plaintext back; the recipient, if connected, gets
	// the ciphertext triple. An offline recipient finds the message in
	// history on their next fetch.
	r.registry.Send(login, ws.PurposeChat, events.Marshal(events.NewSenderEcho(msg)))
	r.registry.Send(ev.To, ws.PurposeChat, events.Marshal(events.NewRecipientCopy(msg)))
}

func messageKind(ev events.ChatMessage) models.MessageKind {
	switch {
	case ev.IsFile:
		return models.KindFile
	case ev.IsAudio:
		return models.KindAudio
	default:
		return models.KindText
	}
}

// handleTyping relays the indicator when the target is connected and
// silently drops it otherwise. Never persisted.
func (r *Router) handleTyping(login string, ev events.Typing) {
	if ev.To == "" {
		return
	}
	r.registry.Send(ev.To, ws.PurposeChat, events.Marshal(events.NewTyping(login)))
}

// handleReadReceipt flips is_read at most once per message; only the
// false-to-true transition notifies the stored sender. The store rejects
// receipts from anyone but the message's recipient, so a login cannot mark
// another conversation read or aim notifications at arbitrary users.
func (r *Router) handleReadReceipt(login string, ev events.ReadReceipt) {
	if ev.MessageID == "" {
		return
	}
	fromLogin, changed, err := r.store.MarkRead(ev.MessageID, login)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.log.Error().Err(err).Str("message_id", ev.MessageID).Msg("read receipt persistence failed")
		}
		return
	}
	if changed {
		r.registry.Send(fromLogin, ws.PurposeChat, events.Marshal(events.NewRead(ev.MessageID, login)))
	}
}

func (r *Router) handleSessionUp(login string, purpose ws.Purpose) {
	if purpose == ws.PurposeChat {
		r.broadcastPresence()
	}
}

func (r *Router) handleSessionDown(login string, purpose ws.Purpose) {
	// A superseded transport closing after its replacement attached must
	// not touch the live session's state; only the loss of the slot itself
	// counts as a disconnect.
	if r.registry.Connected(login, purpose) {
		return
	}
	// Losing either transport ends an active call: the call socket always,
	// the chat socket only when it was carrying the signaling.
	if purpose == ws.PurposeCall || !r.registry.Connected(login, ws.PurposeCall) {
		r.broker.Disconnected(login)
	}
	if purpose == ws.PurposeChat {
		r.broadcastPresence()
	}
}

func (r *Router) broadcastPresence() {
	r.registry.BroadcastChat(events.Marshal(events.NewPresence(r.registry.Presence())))
}

func (r *Router) sendError(login string, purpose ws.Purpose, code, message string) {
	r.registry.Send(login, purpose, events.Marshal(events.NewError(code, message)))
}
