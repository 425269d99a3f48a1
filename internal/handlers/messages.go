package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/crypto"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/middleware"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/store"
)

// UndecryptablePlaceholder replaces content the viewer's key cannot open.
const UndecryptablePlaceholder = "[message cannot be decrypted]"

type MessageHandler struct {
	Store store.Store
	Log   zerolog.Logger
}

// History returns the conversation between the viewer and the peer in the
// URL, oldest first. The viewer's own messages come back as stored
// plaintext; messages addressed to the viewer are opened with their private
// key, degrading to a placeholder when that fails.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.LoginFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	peer := mux.Vars(r)["login"]

	viewerUser, err := h.Store.GetUserByLogin(viewer)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	messages, err := h.Store.Conversation(viewer, peer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for i := range messages {
		msg := &messages[i]
		if msg.FromLogin == viewer || msg.Ciphertext == "" {
			// Sender plaintext copy, or a degraded row stored in the
			// clear. Either way Content is already readable.
			continue
		}
		plaintext, err := crypto.DecryptAsRecipient(&crypto.Envelope{
			Ciphertext: msg.Ciphertext,
			WrappedKey: msg.WrappedKey,
			IV:         msg.IV,
		}, viewerUser.PrivateKey)
		if err != nil {
			h.Log.Warn().Err(err).Str("message_id", msg.ID).Msg("history decrypt failed")
			msg.Content = UndecryptablePlaceholder
			continue
		}
		msg.Content = string(plaintext)
	}

	json.NewEncoder(w).Encode(messages)
}
