package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/auth"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/call"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/config"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/email"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/handlers"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/identity"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/middleware"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/router"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/store/sqlstore"
	"github.com/MoonWalkCM/secure-chat-app-sub000/internal/ws"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	st, err := sqlstore.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store initialization failed")
	}

	tokenCfg := auth.TokenConfig{
		Secret: cfg.JWTSecret,
		Expiry: cfg.TokenExpiry,
		Issuer: "secure-chat-app",
	}

	ident := identity.NewService(st, cfg.BcryptCost, log)
	registry := ws.NewRegistry()
	broker := call.NewBroker(registry, log)
	rt := router.New(st, registry, broker, cfg.InboundQueueSize, log)
	go rt.Run()

	mailer := email.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)

	authHandler := &handlers.AuthHandler{Identity: ident, Store: st, TokenConfig: tokenCfg, Email: mailer, Log: log}
	messageHandler := &handlers.MessageHandler{Store: st, Log: log}
	contactHandler := &handlers.ContactHandler{Store: st, Registry: registry}
	userHandler := &handlers.UserHandler{Store: st, Log: log}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(log))

	// API Endpoints
	r.HandleFunc("/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/login", authHandler.Login).Methods("POST")

	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.RequireAuth(tokenCfg))
	protected.HandleFunc("/users/search", authHandler.SearchUsers).Methods("GET")
	protected.HandleFunc("/contacts", contactHandler.List).Methods("GET")
	protected.HandleFunc("/contacts", contactHandler.Add).Methods("POST")
	protected.HandleFunc("/contacts/{login}", contactHandler.Remove).Methods("DELETE")
	protected.HandleFunc("/messages/{login}", messageHandler.History).Methods("GET")
	protected.HandleFunc("/profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/admin/users/{login}/ban", userHandler.SetBan).Methods("POST")

	// WebSocket Endpoint
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.VerifyToken(r.URL.Query().Get("token"), tokenCfg)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// A banned account cannot attach even with a still-valid token.
		user, err := ident.Lookup(claims.Login)
		if err != nil || user.IsBanned {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		purpose := ws.PurposeChat
		if r.URL.Query().Get("purpose") == string(ws.PurposeCall) {
			purpose = ws.PurposeCall
		}

		ws.ServeWs(registry, rt, w, r, claims.Login, purpose, log)
	})

	log.Info().Str("addr", cfg.Addr).Msg("starting server")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func loggingMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info().Str("method", r.Method).Str("path", r.URL.Path).Dur("took", time.Since(start)).Msg("request")
		})
	}
}
