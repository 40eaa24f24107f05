package services

import (
	"errors"
	"log"

	"game-duel-system/middleware"
	"game-duel-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SessionService struct {
	DB       *gorm.DB
	Notifier *RelayNotifier
}

func NewSessionService(db *gorm.DB, notifier *RelayNotifier) *SessionService {
	return &SessionService{DB: db, Notifier: notifier}
}

// Find returns the session, restricted to its participants.
func (s *SessionService) Find(player *models.Player, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	if err := s.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.SlotOf(player.ID) == "" {
		return nil, ErrNotParticipant
	}
	return &session, nil
}

// Abandon cancels a session the caller participates in. Cancelling an already
// terminal session is a no-op, not an error: clients fire this blindly from
// recovery paths and page teardown. The peer gets a session_end push so it
// unblocks without waiting for its own timeouts.
func (s *SessionService) Abandon(player *models.Player, sessionID string) (*models.GameSession, error) {
	session, err := s.Find(player, sessionID)
	if err != nil {
		return nil, err
	}

	if session.IsTerminal() {
		return session, nil
	}

	res := s.DB.Model(&models.GameSession{}).
		Where("id = ? AND status IN ?", sessionID,
			[]string{models.SessionWaiting, models.SessionPlaying}).
		Update("status", models.SessionCancelled)
	if res.Error != nil {
		return nil, res.Error
	}

	if err := s.DB.First(session, "id = ?", sessionID).Error; err != nil {
		return nil, err
	}

	if res.RowsAffected > 0 && session.Status == models.SessionCancelled {
		s.Notifier.SessionEnd(session)
	}

	return session, nil
}

// Get handles GET /session?sessionId=.
func (s *SessionService) Get(c *fiber.Ctx) error {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sessionId is required"})
	}

	player, err := s.currentPlayer(c)
	if err != nil {
		return s.playerError(c, err)
	}

	session, err := s.Find(player, sessionID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	case errors.Is(err, ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not a participant"})
	case err != nil:
		log.Printf("DB Error fetching session %s: %v", sessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(fiber.Map{"session": session.Public()})
}

// AbandonHandler handles POST /session/abandon.
func (s *SessionService) AbandonHandler(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sessionId is required"})
	}

	player, err := s.currentPlayer(c)
	if err != nil {
		return s.playerError(c, err)
	}

	_, err = s.Abandon(player, req.SessionID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	case errors.Is(err, ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not a participant"})
	case err != nil:
		log.Printf("abandon failed for session %s: %v", req.SessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to abandon session"})
	}

	return c.JSON(fiber.Map{"cancelled": true})
}

func (s *SessionService) currentPlayer(c *fiber.Ctx) (*models.Player, error) {
	var player models.Player
	if err := s.DB.Where("token = ?", middleware.PlayerToken(c)).First(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *SessionService) playerError(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no player"})
	}
	log.Printf("DB Error fetching player: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
}
