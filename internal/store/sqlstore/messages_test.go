package sqlstore

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/models"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/store"
)

func newMessage(id, from, to, content string) *models.Message {
	return &models.Message{
		ID:         id,
		FromLogin:  from,
		ToLogin:    to,
		Content:    content,
		Ciphertext: "ct-" + id,
		WrappedKey: "wk-" + id,
		IV:         "iv-" + id,
		Kind:       models.KindText,
		Timestamp:  time.Now().UTC(),
	}
}

func TestSaveAndLoadConversation(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveMessage(newMessage("m1", "alice", "bob", "hello")))
	require.NoError(t, s.SaveMessage(newMessage("m2", "bob", "alice", "hi")))
	require.NoError(t, s.SaveMessage(newMessage("m3", "alice", "carol", "other pair")))

	msgs, err := s.Conversation("alice", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	// Send order is preserved regardless of direction.
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "ct-m1", msgs[0].Ciphertext)
	assert.Equal(t, "wk-m1", msgs[0].WrappedKey)
	assert.Equal(t, "iv-m1", msgs[0].IV)
	assert.False(t, msgs[0].IsRead)

	// Symmetric lookup returns the same rows.
	reverse, err := s.Conversation("bob", "alice")
	require.NoError(t, err)
	require.Len(t, reverse, 2)
	assert.Equal(t, "m1", reverse[0].ID)
}

func TestSaveMessageDuplicateID(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveMessage(newMessage("m1", "alice", "bob", "hello")))
	err := s.SaveMessage(newMessage("m1", "alice", "bob", "again"))
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestSaveFileMessage(t *testing.T) {
	s := newTestStore(t)
	msg := newMessage("f1", "alice", "bob", "base64data")
	msg.Kind = models.KindFile
	msg.FileName = "photo.png"
	msg.FileType = "image/png"
	msg.FileSize = 2048
	require.NoError(t, s.SaveMessage(msg))

	msgs, err := s.Conversation("alice", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.KindFile, msgs[0].Kind)
	assert.Equal(t, "photo.png", msgs[0].FileName)
	assert.Equal(t, int64(2048), msgs[0].FileSize)
}

func TestMarkReadIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveMessage(newMessage("m1", "alice", "bob", "hello")))

	fromLogin, changed, err := s.MarkRead("m1", "bob")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "alice", fromLogin)

	// Second mark is a no-op, not an error.
	_, changed, err = s.MarkRead("m1", "bob")
	require.NoError(t, err)
	assert.False(t, changed)

	msgs, err := s.Conversation("alice", "bob")
	require.NoError(t, err)
	assert.True(t, msgs[0].IsRead)
}

func TestMarkReadUnknownMessage(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.MarkRead("ghost", "bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMarkReadRejectsNonRecipient(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveMessage(newMessage("m1", "alice", "bob", "hello")))

	// Neither the sender nor a third party may flip the flag.
	_, _, err := s.MarkRead("m1", "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, _, err = s.MarkRead("m1", "carol")
	assert.ErrorIs(t, err, store.ErrNotFound)

	msgs, err := s.Conversation("alice", "bob")
	require.NoError(t, err)
	assert.False(t, msgs[0].IsRead)
}

func TestSaveMessageDBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &SQLStore{db: db, driverName: "sqlite3"}
	mock.ExpectExec("INSERT INTO messages").WillReturnError(fmt.Errorf("disk full"))

	err = s.SaveMessage(newMessage("m1", "alice", "bob", "hello"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}
