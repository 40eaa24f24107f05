package handlers

import (
	"game-duel-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPlayerRoutes(app *fiber.App, players *services.PlayerService) {
	app.Post("/player", players.SubmitNickname)
	app.Get("/player", players.CurrentPlayer)
}

func SetupRankingRoutes(app *fiber.App, rankings *services.RankingService) {
	app.Get("/games/:slug/rankings", rankings.GetRankings)
}
