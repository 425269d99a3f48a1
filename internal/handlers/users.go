package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/middleware"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/store"
)

// moderatorLevel is the minimum account level that may ban other users.
const moderatorLevel = 1

type UserHandler struct {
	Store store.Store
	Log   zerolog.Logger
}

// UpdateProfile changes the authenticated user's nickname.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.LoginFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Nickname string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Nickname == "" {
		http.Error(w, "nickname is required", http.StatusBadRequest)
		return
	}

	if err := h.Store.UpdateNickname(owner, req.Nickname); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetBan flips another account's ban flag. The caller must hold at least
// moderator level; a banned account fails login and websocket attach.
func (h *UserHandler) SetBan(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.LoginFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	callerUser, err := h.Store.GetUserByLogin(caller)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if callerUser.Level < moderatorLevel {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	target := mux.Vars(r)["login"]
	if target == caller {
		http.Error(w, "cannot ban yourself", http.StatusBadRequest)
		return
	}

	var req struct {
		Banned bool `json:"banned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.SetBanned(target, req.Banned); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.Log.Info().Str("moderator", caller).Str("target", target).Bool("banned", req.Banned).Msg("ban flag changed")
	w.WriteHeader(http.StatusNoContent)
}
