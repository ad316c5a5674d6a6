package routes

import (
	"github.com/Toradamon1223/AutomaticMatchingSystem-sub000/handlers"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	tournamentHandler *handlers.TournamentHandler,
	pairingHandler *handlers.PairingHandler,
	standingsHandler *handlers.StandingsHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/", tournamentHandler.GetTournament)
		r.Post("/reset", tournamentHandler.ResetTournament)
		r.Post("/bracket", tournamentHandler.GenerateBracket)
		r.Post("/entrants/{entrantID}/drop", tournamentHandler.DropEntrant)

		r.Route("/rounds/{round}", func(r chi.Router) {
			r.Post("/pairings", pairingHandler.GeneratePairings)
			r.Post("/rematch", pairingHandler.RegeneratePairings)
			r.Post("/activate", pairingHandler.ActivateRound)
		})

		r.Get("/standings", standingsHandler.ListStandings)
		r.Post("/standings/recompute", standingsHandler.RecomputeStandings)

		r.Get("/matches", matchHandler.ListMatches)
		r.Post("/matches/{matchID}/result", matchHandler.RecordResult)

		r.Get("/live", webSocketHandler.ServeWs)
	})
}
