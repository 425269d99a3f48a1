package identity

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/store/sqlstore"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	require.NoError(t, err)
	return NewService(st, bcrypt.MinCost, zerolog.Nop())
}

func TestRegister(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.Register("alice", "s3cret", "alice@example.com", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Login)
	assert.Equal(t, "Alice", user.Nickname)
	assert.NotEmpty(t, user.PublicKey)
	assert.NotEmpty(t, user.PrivateKey)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	// The stored key pair survives the round trip through the store.
	stored, err := svc.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, user.PublicKey, stored.PublicKey)
	assert.Equal(t, user.PrivateKey, stored.PrivateKey)
}

func TestRegisterDefaultsNickname(t *testing.T) {
	svc := newTestService(t)
	user, err := svc.Register("bob", "pw", "bob@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Nickname)
}

func TestRegisterDuplicate(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register("alice", "pw", "alice@example.com", "")
	require.NoError(t, err)

	_, err = svc.Register("alice", "pw", "other@example.com", "")
	assert.ErrorIs(t, err, ErrDuplicateIdentity)

	_, err = svc.Register("other", "pw", "alice@example.com", "")
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register("alice", "s3cret", "alice@example.com", "")
	require.NoError(t, err)

	user, err := svc.Authenticate("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Login)

	_, err = svc.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailure)

	_, err = svc.Authenticate("ghost", "s3cret")
	assert.ErrorIs(t, err, ErrAuthenticationFailure)
}

func TestAuthenticateBanned(t *testing.T) {
	st, err := sqlstore.New("sqlite3", ":memory:")
	require.NoError(t, err)
	svc := NewService(st, bcrypt.MinCost, zerolog.Nop())

	_, err = svc.Register("alice", "s3cret", "alice@example.com", "")
	require.NoError(t, err)
	require.NoError(t, st.SetBanned("alice", true))

	_, err = svc.Authenticate("alice", "s3cret")
	assert.ErrorIs(t, err, ErrAuthenticationFailure)
}

func TestPublicKey(t *testing.T) {
	svc := newTestService(t)
	user, err := svc.Register("alice", "pw", "alice@example.com", "")
	require.NoError(t, err)

	key, err := svc.PublicKey("alice")
	require.NoError(t, err)
	assert.Equal(t, user.PublicKey, key)

	_, err = svc.PublicKey("ghost")
	assert.Error(t, err)
}
