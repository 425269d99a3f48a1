package store

import (
	"errors"
	"time"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/models"
)

var (
	// ErrDuplicate is returned when a unique constraint (login, email,
	// message id) is violated.
	ErrDuplicate = errors.New("duplicate record")

	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("record not found")
)

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByLogin(login string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	SearchUsers(query string) ([]models.User, error)
	UpdateNickname(login, nickname string) error
	SetBanned(login string, banned bool) error

	// Message operations
	SaveMessage(msg *models.Message) error
	Conversation(loginA, loginB string) ([]models.Message, error)
	// MarkRead flips is_read for the given message, but only when reader is
	// its recipient, and returns the stored sender login plus whether the
	// flag actually transitioned. Marking an already-read message is a
	// no-op, not an error; an unknown message or a reader who is not the
	// recipient is ErrNotFound.
	MarkRead(messageID, reader string) (fromLogin string, changed bool, err error)

	// Contact operations
	UpsertContact(owner, contact string, lastMessageAt time.Time) error
	ListContacts(owner string) ([]models.Contact, error)
	RemoveContact(owner, contact string) error
}
