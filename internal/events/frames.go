package events

import (
	"encoding/json"
	"time"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/models"
)

// Error codes carried by ErrorFrame.
const (
	CodeTargetBusy         = "target_busy"
	CodeUnknownRecipient   = "unknown_recipient"
	CodePersistenceFailure = "persistence_failure"
)

// MessageFrame is an outbound chat message. The sender's echo carries the
// plaintext in Content; the recipient's copy carries the ciphertext triple
// instead, with Content empty.
type MessageFrame struct {
	Type       string    `json:"type"`
	MessageID  string    `json:"message_id"`
	FromLogin  string    `json:"from_login"`
	ToLogin    string    `json:"to_login"`
	Content    string    `json:"content,omitempty"`
	Encrypted  string    `json:"encrypted_content,omitempty"`
	WrappedKey string    `json:"wrapped_key,omitempty"`
	IV         string    `json:"iv,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	IsAudio    bool      `json:"is_audio,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	FileType   string    `json:"file_type,omitempty"`
	FileSize   int64     `json:"file_size,omitempty"`
}

// NewSenderEcho builds the plaintext copy of msg delivered back to its
// sender.
func NewSenderEcho(msg *models.Message) MessageFrame {
	f := newMessageFrame(msg)
	f.Content = msg.Content
	return f
}

// NewRecipientCopy builds the encrypted copy of msg delivered to its
// recipient. For a degraded message (no ciphertext triple) the plaintext is
// sent as-is.
func NewRecipientCopy(msg *models.Message) MessageFrame {
	f := newMessageFrame(msg)
	if msg.Ciphertext == "" {
		f.Content = msg.Content
		return f
	}
	f.Encrypted = msg.Ciphertext
	f.WrappedKey = msg.WrappedKey
	f.IV = msg.IV
	return f
}

func newMessageFrame(msg *models.Message) MessageFrame {
	typ := "message"
	if msg.Kind == models.KindFile {
		typ = "file"
	}
	return MessageFrame{
		Type:      typ,
		MessageID: msg.ID,
		FromLogin: msg.FromLogin,
		ToLogin:   msg.ToLogin,
		Timestamp: msg.Timestamp,
		IsAudio:   msg.Kind == models.KindAudio,
		FileName:  msg.FileName,
		FileType:  msg.FileType,
		FileSize:  msg.FileSize,
	}
}

// TypingFrame notifies a recipient that FromLogin is typing.
type TypingFrame struct {
	Type      string `json:"type"`
	FromLogin string `json:"from_login"`
}

// ReadFrame notifies the original sender that their message was read.
type ReadFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	FromLogin string `json:"from_login"`
}

// PresenceFrame carries the current online set to every chat session.
type PresenceFrame struct {
	Type   string   `json:"type"`
	Online []string `json:"online"`
}

// ErrorFrame is a structured error reported back to the originating
// transport.
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// OfferFrame relays a call offer to its target.
type OfferFrame struct {
	Type      string          `json:"type"`
	Caller    string          `json:"caller"`
	Target    string          `json:"target"`
	Offer     json.RawMessage `json:"offer"`
	WithVideo bool            `json:"withVideo"`
}

// AnswerFrame relays a call answer back to the caller.
type AnswerFrame struct {
	Type   string          `json:"type"`
	Target string          `json:"target"`
	Answer json.RawMessage `json:"answer"`
}

// CandidateFrame relays one ICE candidate to the opposite party.
type CandidateFrame struct {
	Type      string          `json:"type"`
	Target    string          `json:"target"`
	Candidate json.RawMessage `json:"candidate"`
}

// HangupFrame tells the opposite party the call was ended or rejected.
// Type is "call_end" or "call_reject".
type HangupFrame struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// Marshal serializes an outbound frame. Frames are built from known types,
// so marshalling cannot fail.
func Marshal(frame any) []byte {
	data, _ := json.Marshal(frame)
	return data
}

func NewTyping(from string) TypingFrame {
	return TypingFrame{Type: "typing", FromLogin: from}
}

func NewRead(messageID, reader string) ReadFrame {
	return ReadFrame{Type: "read", MessageID: messageID, FromLogin: reader}
}

func NewPresence(online []string) PresenceFrame {
	return PresenceFrame{Type: "presence", Online: online}
}

func NewError(code, message string) ErrorFrame {
	return ErrorFrame{Type: "error", Code: code, Message: message}
}
