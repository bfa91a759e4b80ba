// Package devserver is an in-memory implementation of the chat backend's
// REST API, for local development and end-to-end tests of the client.
package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"client_go/internal/api"
	"client_go/internal/config"
	"client_go/internal/security"

	_ "client_go/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter constructs the HTTP router and wires routes and middleware.
func NewRouter(cfg *config.ServerConfig, st *State, tokens *security.TokenService, hasher *security.PasswordHasher) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", api.IdempotencyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handleRegister(st, hasher))
		r.Post("/login", handleLogin(st, tokens, hasher))
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(tokens, st))

		r.Get("/friends", handleListFriends(st))
		r.Post("/friends/add", handleAddFriend(st))

		r.Get("/requests", handleListRequests(st))
		r.Post("/requests/accept", handleAnswerRequest(st, true))
		r.Post("/requests/reject", handleAnswerRequest(st, false))

		r.Get("/messages", handleListDirectMessages(st))
		r.With(Idempotent(st)).Post("/messages/send", handleSendDirectMessage(st))

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", handleListGroups(st))
			r.Post("/create", handleCreateGroup(st))
			r.Get("/{groupID}", handleGetGroup(st))
			r.Get("/{groupID}/members", handleListMembers(st))
			r.Post("/{groupID}/add-member", handleAddMember(st))
			r.Get("/{groupID}/messages", handleListGroupMessages(st))
			r.With(Idempotent(st)).Post("/{groupID}/send", handleSendGroupMessage(st))
		})
	})

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeStateError maps State errors onto HTTP statuses.
func writeStateError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errUserNotFound), errors.Is(err, errGroupNotFound), errors.Is(err, errRequestMissing):
		status = http.StatusNotFound
	case errors.Is(err, errUserExists), errors.Is(err, errAlreadyFriends),
		errors.Is(err, errRequestExists), errors.Is(err, errAlreadyMember):
		status = http.StatusConflict
	case errors.Is(err, errSelfRequest):
		status = http.StatusBadRequest
	case errors.Is(err, errNotFriends):
		status = http.StatusForbidden
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
