package services

import (
	"errors"
	"log"
	"strings"

	"game-duel-system/middleware"
	"game-duel-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlayerService struct {
	DB *gorm.DB
}

func NewPlayerService(db *gorm.DB) *PlayerService {
	return &PlayerService{DB: db}
}

// FindByToken resolves the player bound to an anonymous session token.
func (s *PlayerService) FindByToken(token string) (*models.Player, error) {
	if token == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var player models.Player
	if err := s.DB.Where("token = ?", token).First(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

// UpsertNickname creates the player record on first nickname submission and
// renames it on subsequent ones.
func (s *PlayerService) UpsertNickname(token, nickname string) (*models.Player, error) {
	var player models.Player
	err := s.DB.Where("token = ?", token).First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		player = models.Player{
			ID:       uuid.NewString(),
			Token:    token,
			Nickname: nickname,
		}
		if err := s.DB.Create(&player).Error; err != nil {
			return nil, err
		}
		return &player, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.DB.Model(&player).Update("nickname", nickname).Error; err != nil {
		return nil, err
	}
	player.Nickname = nickname
	return &player, nil
}

// SubmitNickname handles POST /player.
func (s *PlayerService) SubmitNickname(c *fiber.Ctx) error {
	var req struct {
		Nickname string `json:"nickname"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}

	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nickname is required"})
	}
	if len(nickname) > 24 {
		nickname = nickname[:24]
	}

	token := middleware.PlayerToken(c)
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no player token"})
	}

	player, err := s.UpsertNickname(token, nickname)
	if err != nil {
		log.Printf("DB Error upserting player: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save player"})
	}

	return c.JSON(fiber.Map{"player": player})
}

// CurrentPlayer handles GET /player.
func (s *PlayerService) CurrentPlayer(c *fiber.Ctx) error {
	player, err := s.FindByToken(middleware.PlayerToken(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no player"})
		}
		log.Printf("DB Error fetching player: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(fiber.Map{"player": player})
}
