// Package identity owns user records and their asymmetric key pairs.
// Passwords only ever exist here as bcrypt hashes; the key pair is
// generated once at registration and never rotated.
package identity

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/crypto"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/models"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/store"
)

var (
	// ErrDuplicateIdentity is returned when the login or email is taken.
	ErrDuplicateIdentity = errors.New("login or email already exists")

	// ErrAuthenticationFailure is returned for a wrong password, an
	// unknown login, or a banned account. Deliberately indistinguishable.
	ErrAuthenticationFailure = errors.New("authentication failure")
)

type Service struct {
	store      store.Store
	bcryptCost int
	log        zerolog.Logger
}

func NewService(s store.Store, bcryptCost int, log zerolog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{store: s, bcryptCost: bcryptCost, log: log}
}

// Register creates a user with a hashed password and a fresh key pair.
func (s *Service) Register(login, password, email, nickname string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	publicKey, privateKey, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}

	if nickname == "" {
		nickname = login
	}
	user := &models.User{
		Login:        login,
		Email:        email,
		Nickname:     nickname,
		PasswordHash: string(hash),
		PublicKey:    publicKey,
		PrivateKey:   privateKey,
	}

	if err := s.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("login", login).Msg("user registered")
	return user, nil
}

// Authenticate verifies login and password and rejects banned accounts.
func (s *Service) Authenticate(login, password string) (*models.User, error) {
	user, err := s.store.GetUserByLogin(login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAuthenticationFailure
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.IsBanned {
		return nil, ErrAuthenticationFailure
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrAuthenticationFailure
	}
	return user, nil
}

// Lookup returns the user for login, or store.ErrNotFound.
func (s *Service) Lookup(login string) (*models.User, error) {
	return s.store.GetUserByLogin(login)
}

// PublicKey returns login's public key; empty when the user exists but has
// no key on record.
func (s *Service) PublicKey(login string) (string, error) {
	user, err := s.store.GetUserByLogin(login)
	if err != nil {
		return "", err
	}
	return user.PublicKey, nil
}
