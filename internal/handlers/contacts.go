package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/middleware"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/store"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/ws"
)

type ContactHandler struct {
	Store    store.Store
	Registry *ws.Registry
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.LoginFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	contacts, err := h.Store.ListContacts(owner)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for i := range contacts {
		contacts[i].Online = h.Registry.Connected(contacts[i].Login, ws.PurposeChat)
	}

	json.NewEncoder(w).Encode(contacts)
}

func (h *ContactHandler) Add(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.LoginFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Login == owner {
		http.Error(w, "invalid contact login", http.StatusBadRequest)
		return
	}

	if _, err := h.Store.GetUserByLogin(req.Login); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.Store.UpsertContact(owner, req.Login, time.Now().UTC()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *ContactHandler) Remove(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.LoginFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	contact := mux.Vars(r)["login"]
	if err := h.Store.RemoveContact(owner, contact); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
