package handler

import (
	"net/http"

	"github.com/freeeve/iron-alliance/api/internal/auth"
	"github.com/freeeve/iron-alliance/api/internal/middleware"
)

// Routes holds everything the HTTP API is built from.
type Routes struct {
	Auth  *AuthHandler
	Users *UserHandler
	Games *GameHandler
	Play  *PlayHandler
	WS    *WSHandler

	JWT *auth.JWTManager
	// Limiter bounds state-changing requests per user. Nil disables it.
	Limiter       *middleware.Limiter
	AllowedOrigin string
}

// Handler builds the router with its middleware stack.
func (rt Routes) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth (public)
	mux.HandleFunc("GET /auth/google/login", rt.Auth.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", rt.Auth.GoogleCallback)
	mux.HandleFunc("POST /auth/refresh", rt.Auth.RefreshToken)
	mux.HandleFunc("GET /auth/dev", rt.Auth.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /users/me", rt.Users.GetMe)
	api.HandleFunc("PATCH /users/me", rt.Users.UpdateMe)
	api.HandleFunc("GET /users/{id}", rt.Users.GetUser)

	api.HandleFunc("POST /games", rt.Games.CreateGame)
	api.HandleFunc("GET /games", rt.Games.ListGames)
	api.HandleFunc("GET /games/{id}", rt.Games.GetGame)
	api.HandleFunc("DELETE /games/{id}", rt.Games.DeleteGame)
	api.HandleFunc("POST /games/{id}/join", rt.Games.JoinGame)
	api.HandleFunc("POST /games/{id}/start", rt.Games.StartGame)
	api.HandleFunc("POST /saves/{id}/load", rt.Games.LoadSave)

	api.HandleFunc("GET /games/{id}/state", rt.Play.State)
	api.HandleFunc("GET /games/{id}/legal", rt.Play.Legal)
	api.HandleFunc("POST /games/{id}/actions", rt.Play.Submit)
	api.HandleFunc("POST /games/{id}/undo", rt.Play.Undo)
	api.HandleFunc("POST /games/{id}/reset-phase", rt.Play.ResetPhase)
	api.HandleFunc("POST /games/{id}/saves", rt.Play.Save)
	api.HandleFunc("GET /games/{id}/saves", rt.Play.ListSaves)
	api.HandleFunc("GET /games/{id}/verify", rt.Play.Verify)

	api.HandleFunc("GET /ws", rt.WS.ServeWS)

	protected := []func(http.Handler) http.Handler{auth.Middleware(rt.JWT)}
	if rt.Limiter != nil {
		protected = append(protected, middleware.RateLimit(rt.Limiter, func(r *http.Request) string {
			return auth.UserIDFromContext(r.Context())
		}))
	}
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", middleware.Chain(api, protected...)))

	origin := rt.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return middleware.Chain(mux, middleware.Logger, middleware.CORS(origin), middleware.JSON)
}
