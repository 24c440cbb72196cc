package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/matchpointhq/matchpoint-server/handlers"
	"github.com/matchpointhq/matchpoint-server/middleware"
	"github.com/matchpointhq/matchpoint-server/models"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Player     *handlers.PlayerHandler
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
	Scoring    *handlers.ScoringHandler
	WebSocket  *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, auth *middleware.Authenticator) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	// Live scoring feed.
	// TODO: authenticate the upgrade request with the same bearer token
	// as the REST API.
	router.Get("/ws", h.WebSocket.ServeWs)

	canManage := auth.RequireRole(models.RoleAdmin, models.RoleOrganizer)
	canScore := auth.RequireRole(models.RoleAdmin, models.RoleOrganizer, models.RoleScorer)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.GetByID)
		r.Get("/{tournamentID}/matches", h.Tournament.ListMatches)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(canManage)

			r.Post("/", h.Tournament.Create)
			r.Put("/{tournamentID}", h.Tournament.Update)
			r.Delete("/{tournamentID}", h.Tournament.Delete)
		})
	})

	router.Route("/players", func(r chi.Router) {
		r.Get("/", h.Player.List)
		r.Get("/{playerID}", h.Player.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(canManage)

			r.Post("/", h.Player.Create)
			r.Put("/{playerID}", h.Player.Update)
			r.Delete("/{playerID}", h.Player.Delete)
			r.Post("/{playerID}/avatar", h.Player.UploadAvatar)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/", h.Match.List)
		r.Get("/{matchID}", h.Match.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(canManage)

			r.Post("/", h.Match.Create)
			r.Put("/{matchID}", h.Match.Update)
			r.Delete("/{matchID}", h.Match.Delete)
		})
	})

	router.Route("/scoring", func(r chi.Router) {
		r.Get("/{matchID}", h.Scoring.GetScore)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(canScore)

			r.Post("/{matchID}/initialize", h.Scoring.Initialize)
			r.Post("/{matchID}/score", h.Scoring.ScorePoint)
			r.Post("/{matchID}/undo", h.Scoring.UndoPoint)
		})
	})

	return router
}
