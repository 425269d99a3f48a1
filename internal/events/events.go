// Package events defines the wire protocol between clients and the server.
//
// Every frame is a JSON object discriminated on its "type" field. Inbound
// frames decode into the closed Event sum type so that dispatch over event
// kinds is an exhaustive type switch rather than string comparison spread
// across the codebase.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEvent marks frames that cannot be parsed or carry an unknown
// type. Callers log and drop these; the connection stays open.
var ErrMalformedEvent = errors.New("malformed event")

// Event is the closed set of inbound frame kinds. Only types in this
// package implement it.
type Event interface {
	isEvent()
}

// ChatMessage is a text, audio or file send ("message" and "file" frames).
// The sender is never taken from the frame; the router uses the
// authenticated login of the submitting connection.
type ChatMessage struct {
	MessageID string
	To        string
	Content   string
	IsAudio   bool
	IsFile    bool
	FileName  string
	FileType  string
	FileSize  int64
}

// Typing is an ephemeral typing indicator. Never persisted.
type Typing struct {
	To string
}

// ReadReceipt marks a message as read. The sender to notify comes from the
// stored message, never from the frame.
type ReadReceipt struct {
	MessageID string
}

// CallOffer opens a call toward Target. Offer is opaque SDP.
type CallOffer struct {
	Caller    string
	Target    string
	Offer     json.RawMessage
	WithVideo bool
}

// CallAnswer accepts a ringing call. Answer is opaque SDP.
type CallAnswer struct {
	Target string
	Answer json.RawMessage
}

// ICECandidate relays one candidate to the opposite party of an
// established call. Opaque to the server.
type ICECandidate struct {
	Target    string
	Candidate json.RawMessage
}

// CallEnd hangs up an active call.
type CallEnd struct {
	Target string
}

// CallReject declines a ringing call.
type CallReject struct {
	Target string
}

func (ChatMessage) isEvent()  {}
func (Typing) isEvent()       {}
func (ReadReceipt) isEvent()  {}
func (CallOffer) isEvent()    {}
func (CallAnswer) isEvent()   {}
func (ICECandidate) isEvent() {}
func (CallEnd) isEvent()      {}
func (CallReject) isEvent()   {}

// envelope is the superset of inbound frame fields.
type envelope struct {
	Type      string          `json:"type"`
	MessageID string          `json:"message_id"`
	ToLogin   string          `json:"to_login"`
	Content   string          `json:"content"`
	IsAudio   bool            `json:"is_audio"`
	FileName  string          `json:"file_name"`
	FileType  string          `json:"file_type"`
	FileSize  int64           `json:"file_size"`
	Caller    string          `json:"caller"`
	Target    string          `json:"target"`
	Offer     json.RawMessage `json:"offer"`
	Answer    json.RawMessage `json:"answer"`
	Candidate json.RawMessage `json:"candidate"`
	WithVideo bool            `json:"withVideo"`
}

// Decode parses one inbound frame into the Event sum type.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch env.Type {
	case "message":
		return ChatMessage{
			MessageID: env.MessageID,
			To:        env.ToLogin,
			Content:   env.Content,
			IsAudio:   env.IsAudio,
		}, nil
	case "file":
		return ChatMessage{
			MessageID: env.MessageID,
			To:        env.ToLogin,
			Content:   env.Content,
			IsFile:    true,
			FileName:  env.FileName,
			FileType:  env.FileType,
			FileSize:  env.FileSize,
		}, nil
	case "typing":
		return Typing{To: env.ToLogin}, nil
	case "read":
		return ReadReceipt{MessageID: env.MessageID}, nil
	case "call_offer":
		return CallOffer{Caller: env.Caller, Target: env.Target, Offer: env.Offer, WithVideo: env.WithVideo}, nil
	case "call_answer":
		return CallAnswer{Target: env.Target, Answer: env.Answer}, nil
	case "ice_candidate":
		return ICECandidate{Target: env.Target, Candidate: env.Candidate}, nil
	case "call_end":
		return CallEnd{Target: env.Target}, nil
	case "call_reject":
		return CallReject{Target: env.Target}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, env.Type)
	}
}
