package models

import "time"

// RankingEntry holds one player's best win streak for one game.
// At most one row per (game, player); the streak never decreases.
type RankingEntry struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	GameID     string    `json:"game_id" gorm:"uniqueIndex:idx_rankings_game_player;not null"`
	PlayerID   string    `json:"player_id" gorm:"uniqueIndex:idx_rankings_game_player;not null"`
	PlayerName string    `json:"player_name"`
	Streak     int       `json:"streak" gorm:"index"`
	AchievedAt time.Time `json:"achieved_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
