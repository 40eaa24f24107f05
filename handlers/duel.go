package handlers

import (
	"game-duel-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupDuelRoutes wires the pairing, round and session endpoints. The player
// token middleware runs globally, so every handler sees the anonymous token.
func SetupDuelRoutes(app *fiber.App,
	matchmaking *services.MatchmakingService,
	rounds *services.RoundService,
	sessions *services.SessionService,
) {
	app.Post("/match", matchmaking.Match)
	app.Post("/choose", rounds.Choose)
	app.Get("/session", sessions.Get)
	app.Post("/session/abandon", sessions.AbandonHandler)
}
