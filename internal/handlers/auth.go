package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/auth"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/email"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/identity"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/store"
)

type AuthHandler struct {
	Identity    *identity.Service
	Store       store.Store
	TokenConfig auth.TokenConfig
	Email       *email.Sender
	Log         zerolog.Logger
}

type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	type SignupRequest struct {
		Login    string `json:"login"`
		Password string `json:"password"`
		Email    string `json:"email"`
		Nickname string `json:"nickname"`
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" || req.Email == "" {
		http.Error(w, "login, password and email are required", http.StatusBadRequest)
		return
	}

	user, err := h.Identity.Register(req.Login, req.Password, req.Email, req.Nickname)
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateIdentity) {
			http.Error(w, "Login or email already exists", http.StatusConflict)
			return
		}
		h.Log.Error().Err(err).Msg("signup failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if h.Email != nil {
		go func() {
			if err := h.Email.SendWelcomeEmail(user.Email, user.Nickname); err != nil {
				h.Log.Warn().Err(err).Str("login", user.Login).Msg("welcome email failed")
			}
		}()
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Identity.Authenticate(creds.Login, creds.Password)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.CreateToken(user.Login, h.TokenConfig)
	if err != nil {
		h.Log.Error().Err(err).Msg("token issue failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		json.NewEncoder(w).Encode([]any{})
		return
	}

	users, err := h.Store.SearchUsers(query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(users)
}
