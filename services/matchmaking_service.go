package services

import (
	"errors"
	"log"

	"game-duel-system/middleware"
	"game-duel-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// MatchmakingService pairs a requesting player with a waiting session, or
// parks them in a fresh one. All cross-request coordination goes through
// conditional updates on the session row — the handlers themselves hold no
// shared state.
type MatchmakingService struct {
	DB        *gorm.DB
	Notifier  *RelayNotifier
	RelayHost string // public relay address handed to clients; empty disables realtime
}

func NewMatchmakingService(db *gorm.DB, notifier *RelayNotifier, relayHost string) *MatchmakingService {
	return &MatchmakingService{DB: db, Notifier: notifier, RelayHost: relayHost}
}

// RequestMatch runs the full pairing protocol:
//  1. cancel the requester's own stale active sessions for this game
//  2. claim another player's oldest waiting session via compare-and-swap
//  3. on claim failure or no candidate, insert a new waiting session
//  4. re-check for a waiting session created concurrently; claim it and
//     cancel our own insert if the claim lands
func (s *MatchmakingService) RequestMatch(player *models.Player, game *models.Game) (*models.GameSession, error) {
	if err := s.cancelOwnActive(player.ID, game.ID); err != nil {
		return nil, err
	}

	if claimed, err := s.claimWaiting(player, game, ""); err != nil {
		return nil, err
	} else if claimed != nil {
		return claimed, nil
	}

	created := &models.GameSession{
		ID:            uuid.NewString(),
		GameID:        game.ID,
		Player1ID:     player.ID,
		Player1Name:   player.Nickname,
		Status:        models.SessionWaiting,
		CurrentStreak: latestWinStreak(s.DB, player.ID, game.ID),
	}
	if err := s.DB.Create(created).Error; err != nil {
		return nil, err
	}

	// Anti-race double-check: another requester may have inserted their own
	// waiting session in the window before ours existed, with neither of us
	// seeing the other's. Re-query excluding the row we just created.
	if claimed, err := s.claimWaiting(player, game, created.ID); err != nil {
		return nil, err
	} else if claimed != nil {
		if err := s.DB.Model(&models.GameSession{}).
			Where("id = ? AND status = ?", created.ID, models.SessionWaiting).
			Update("status", models.SessionCancelled).Error; err != nil {
			log.Printf("matchmaking: failed to cancel superseded session %s: %v", created.ID, err)
		}
		return claimed, nil
	}

	return created, nil
}

// claimWaiting looks for another player's oldest waiting session and tries to
// take slot 2 with a status-guarded update. Losing the guard to a concurrent
// claimer is not an error; the caller falls through to inserting its own
// session. excludeID skips the caller's own just-created row.
func (s *MatchmakingService) claimWaiting(player *models.Player, game *models.Game, excludeID string) (*models.GameSession, error) {
	query := s.DB.
		Where("game_id = ? AND status = ? AND player1_id <> ? AND player2_id IS NULL",
			game.ID, models.SessionWaiting, player.ID).
		Order("created_at ASC")
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var candidate models.GameSession
	err := query.First(&candidate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// The guard on status is the compare-and-swap: if another requester
	// already flipped the row to playing, zero rows are affected.
	res := s.DB.Model(&models.GameSession{}).
		Where("id = ? AND status = ?", candidate.ID, models.SessionWaiting).
		Updates(map[string]interface{}{
			"player2_id":     player.ID,
			"player2_name":   player.Nickname,
			"status":         models.SessionPlaying,
			"player1_choice": nil,
			"player2_choice": nil,
			"result_winner":  nil,
			"winner_id":      nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var session models.GameSession
	if err := s.DB.First(&session, "id = ?", candidate.ID).Error; err != nil {
		return nil, err
	}

	// The waiting peer relies on this push to escape its own waiting state;
	// send it before returning so the poll fallback is a backstop, not the
	// primary path.
	s.Notifier.SessionUpdate(&session)

	return &session, nil
}

// cancelOwnActive clears the requester's zombie sessions. Each cancelled
// session gets a session_end push: a peer still connected to one of them
// unblocks right away instead of waiting out its own timeouts.
func (s *MatchmakingService) cancelOwnActive(playerID, gameID string) error {
	var active []models.GameSession
	err := s.DB.
		Where("game_id = ? AND (player1_id = ? OR player2_id = ?) AND status IN ?",
			gameID, playerID, playerID,
			[]string{models.SessionWaiting, models.SessionPlaying}).
		Find(&active).Error
	if err != nil {
		return err
	}

	for i := range active {
		res := s.DB.Model(&models.GameSession{}).
			Where("id = ? AND status IN ?", active[i].ID,
				[]string{models.SessionWaiting, models.SessionPlaying}).
			Update("status", models.SessionCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			continue // resolved or reaped since the query
		}
		active[i].Status = models.SessionCancelled
		s.Notifier.SessionEnd(&active[i])
	}
	return nil
}

// Match handles POST /match.
func (s *MatchmakingService) Match(c *fiber.Ctx) error {
	var req struct {
		GameSlug string `json:"gameSlug"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}

	var player models.Player
	if err := s.DB.Where("token = ?", middleware.PlayerToken(c)).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no player"})
		}
		log.Printf("DB Error fetching player: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	var game models.Game
	if err := s.DB.Where("slug = ? AND active = ?", slug.Make(req.GameSlug), true).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "game not found"})
		}
		log.Printf("DB Error fetching game: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	session, err := s.RequestMatch(&player, &game)
	if err != nil {
		log.Printf("matchmaking failed for player %s: %v", player.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "matchmaking failed"})
	}

	return c.JSON(fiber.Map{
		"session":   session.Public(),
		"relayHost": s.RelayHost,
	})
}
