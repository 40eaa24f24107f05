package services

import (
	"errors"
	"log"

	"game-duel-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type RankingService struct {
	DB *gorm.DB
}

func NewRankingService(db *gorm.DB) *RankingService {
	return &RankingService{DB: db}
}

// TopRankings returns the best-streak table for a game, highest first;
// earlier achievement breaks ties.
func (s *RankingService) TopRankings(gameID string, limit int) ([]models.RankingEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var entries []models.RankingEntry
	err := s.DB.Where("game_id = ?", gameID).
		Order("streak DESC, achieved_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// GetRankings handles GET /games/:slug/rankings.
func (s *RankingService) GetRankings(c *fiber.Ctx) error {
	var game models.Game
	if err := s.DB.Where("slug = ?", slug.Make(c.Params("slug"))).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "game not found"})
		}
		log.Printf("DB Error fetching game: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	entries, err := s.TopRankings(game.ID, c.QueryInt("limit"))
	if err != nil {
		log.Printf("DB Error fetching rankings for game %s: %v", game.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(fiber.Map{
		"game":     game,
		"rankings": entries,
	})
}
