package services

import (
	"errors"

	"game-duel-system/models"

	"gorm.io/gorm"
)

// latestWinStreak reconstructs a player's carried streak: the streak stored
// on their most recent finished round of the game, counted only if they won
// it. A loss or draw in between resets the carry to 0, per the rule that a
// streak survives only across consecutive wins.
func latestWinStreak(db *gorm.DB, playerID, gameID string) int {
	var last models.GameSession
	err := db.
		Where("game_id = ? AND status = ? AND (player1_id = ? OR player2_id = ?)",
			gameID, models.SessionFinished, playerID, playerID).
		Order("updated_at DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0
	}
	if err != nil {
		return 0
	}
	if last.WinnerID != nil && *last.WinnerID == playerID {
		return last.CurrentStreak
	}
	return 0
}
