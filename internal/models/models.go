package models

import "time"

type User struct {
	ID           int    `json:"id"`
	Login        string `json:"login"`
	Email        string `json:"email"`
	Nickname     string `json:"nickname"`
	PasswordHash string `json:"-"`
	PublicKey    string `json:"public_key"`
	PrivateKey   string `json:"-"`
	Level        int    `json:"level"`
	IsBanned     bool   `json:"-"`
}

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindAudio MessageKind = "audio"
	KindFile  MessageKind = "file"
)

// Message is one chat message. Content is the sender's own plaintext copy;
// the Ciphertext/WrappedKey/IV triple is bound to the recipient's public key
// and is empty when the recipient had no key at send time.
type Message struct {
	ID         string      `json:"message_id"`
	FromLogin  string      `json:"from_login"`
	ToLogin    string      `json:"to_login"`
	Content    string      `json:"content"`
	Ciphertext string      `json:"-"`
	WrappedKey string      `json:"-"`
	IV         string      `json:"-"`
	Kind       MessageKind `json:"kind"`
	FileName   string      `json:"file_name,omitempty"`
	FileType   string      `json:"file_type,omitempty"`
	FileSize   int64       `json:"file_size,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	IsRead     bool        `json:"is_read"`
}

// Contact is one direction of a contact relationship. A full friendship is
// two rows, one per owner.
type Contact struct {
	Login         string    `json:"login"`
	Nickname      string    `json:"nickname"`
	Online        bool      `json:"online"`
	LastMessageAt time.Time `json:"last_message_at"`
}
