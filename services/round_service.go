package services

import (
	"errors"
	"log"
	"time"

	"game-duel-system/middleware"
	"game-duel-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotPlaying      = errors.New("session is not in play")
	ErrNotParticipant  = errors.New("player is not a participant")
	ErrInvalidChoice   = errors.New("invalid choice")
)

// RoundService records choices and resolves the round exactly once. The
// resolution is gated by a status-guarded update, so a duplicate submission
// always lands on the conflict path instead of resolving twice.
type RoundService struct {
	DB       *gorm.DB
	Notifier *RelayNotifier
}

func NewRoundService(db *gorm.DB, notifier *RelayNotifier) *RoundService {
	return &RoundService{DB: db, Notifier: notifier}
}

// SubmitChoice writes the caller's choice and resolves the round once both
// are in. The bool result flags a duplicate submission: the returned session
// is then the current row, handed back so the caller can resynchronize.
func (s *RoundService) SubmitChoice(player *models.Player, sessionID, choice string) (*models.GameSession, bool, error) {
	if !models.ValidChoice(choice) {
		return nil, false, ErrInvalidChoice
	}

	var session models.GameSession
	if err := s.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrSessionNotFound
		}
		return nil, false, err
	}

	slot := session.SlotOf(player.ID)
	if slot == "" {
		return nil, false, ErrNotParticipant
	}

	if session.ChoiceOf(slot) != nil {
		// Double click or retry after a timeout; the round may even have
		// resolved in the meantime. Hand back the current truth so the
		// caller resynchronizes instead of erroring blindly.
		return &session, true, nil
	}

	if session.Status != models.SessionPlaying {
		return nil, false, ErrNotPlaying
	}

	column := "player1_choice"
	if slot == models.WinnerPlayer2 {
		column = "player2_choice"
	}

	// A slot's choice is written at most once; the IS NULL guard makes the
	// first concurrent writer win and routes everyone else to the duplicate
	// path.
	res := s.DB.Model(&models.GameSession{}).
		Where("id = ? AND status = ? AND "+column+" IS NULL", sessionID, models.SessionPlaying).
		Update(column, choice)
	if res.Error != nil {
		return nil, false, res.Error
	}

	if err := s.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, false, err
	}
	if res.RowsAffected == 0 {
		return &session, true, nil
	}

	if !session.BothChosen() {
		s.Notifier.SessionUpdate(&session)
		return &session, false, nil
	}

	final, err := s.resolve(&session)
	if err != nil {
		return nil, false, err
	}
	return final, false, nil
}

// resolve computes the outcome and marks the session finished. The
// playing → finished flip is the idempotence gate: whichever submission loses
// that race just reloads the already-final row.
func (s *RoundService) resolve(session *models.GameSession) (*models.GameSession, error) {
	winnerSlot := models.ResolveRound(*session.Player1Choice, *session.Player2Choice)

	var winnerID *string
	streak := 0
	switch winnerSlot {
	case models.WinnerPlayer1:
		winnerID = &session.Player1ID
		streak = session.CurrentStreak + 1
	case models.WinnerPlayer2:
		winnerID = session.Player2ID
		// Slot 2 does not carry a streak on the session row; rebuild it from
		// that player's own latest win instead.
		streak = latestWinStreak(s.DB, *session.Player2ID, session.GameID) + 1
	}

	res := s.DB.Model(&models.GameSession{}).
		Where("id = ? AND status = ?", session.ID, models.SessionPlaying).
		Updates(map[string]interface{}{
			"status":         models.SessionFinished,
			"result_winner":  winnerSlot,
			"winner_id":      winnerID,
			"current_streak": streak,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	var final models.GameSession
	if err := s.DB.First(&final, "id = ?", session.ID).Error; err != nil {
		return nil, err
	}

	if res.RowsAffected == 0 {
		// Lost the resolution race; the other submission already finished the
		// round and did the bookkeeping.
		return &final, nil
	}

	if winnerID != nil {
		winnerName := final.Player1Name
		if winnerSlot == models.WinnerPlayer2 {
			winnerName = final.Player2Name
		}
		if err := s.recordWin(final.GameID, *winnerID, winnerName, streak); err != nil {
			log.Printf("round: failed to record win for %s: %v", *winnerID, err)
		}
	}

	s.Notifier.SessionEnd(&final)
	return &final, nil
}

// recordWin upserts the winner's ranking entry, only ever raising the stored
// best streak, then refreshes the game's champion summary from the top row.
func (s *RoundService) recordWin(gameID, playerID, playerName string, streak int) error {
	var entry models.RankingEntry
	err := s.DB.Where("game_id = ? AND player_id = ?", gameID, playerID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = models.RankingEntry{
			ID:         uuid.NewString(),
			GameID:     gameID,
			PlayerID:   playerID,
			PlayerName: playerName,
			Streak:     streak,
			AchievedAt: time.Now(),
		}
		if err := s.DB.Create(&entry).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	} else if streak > entry.Streak {
		// Guarded on the stored value so a concurrent higher write is never
		// clobbered; the best streak is monotone per (game, player).
		if err := s.DB.Model(&models.RankingEntry{}).
			Where("id = ? AND streak < ?", entry.ID, streak).
			Updates(map[string]interface{}{
				"streak":      streak,
				"player_name": playerName,
				"achieved_at": time.Now(),
			}).Error; err != nil {
			return err
		}
	}

	return s.refreshChampion(gameID)
}

func (s *RoundService) refreshChampion(gameID string) error {
	var top models.RankingEntry
	err := s.DB.Where("game_id = ?", gameID).
		Order("streak DESC, achieved_at ASC").
		First(&top).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return s.DB.Model(&models.Game{}).
		Where("id = ?", gameID).
		Updates(map[string]interface{}{
			"champion_name":   top.PlayerName,
			"champion_streak": top.Streak,
		}).Error
}

// Choose handles POST /choose.
func (s *RoundService) Choose(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"sessionId"`
		Choice    string `json:"choice"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sessionId is required"})
	}

	var player models.Player
	if err := s.DB.Where("token = ?", middleware.PlayerToken(c)).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no player"})
		}
		log.Printf("DB Error fetching player: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	session, duplicate, err := s.SubmitChoice(&player, req.SessionID, req.Choice)
	switch {
	case errors.Is(err, ErrInvalidChoice):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid choice"})
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrNotPlaying):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session is not in play"})
	case errors.Is(err, ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not a participant"})
	case err != nil:
		log.Printf("choose failed for session %s: %v", req.SessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to submit choice"})
	}

	if duplicate {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "choice already submitted",
			"session": session.Public(),
		})
	}

	return c.JSON(fiber.Map{"session": session.Public()})
}
