package models

import "time"

const (
	SessionWaiting   = "waiting"
	SessionPlaying   = "playing"
	SessionFinished  = "finished"
	SessionCancelled = "cancelled"
)

// GameSession is the unit of pairing: one round between two players.
// Status only ever moves forward along waiting → playing → finished|cancelled.
type GameSession struct {
	ID     string `json:"id" gorm:"primaryKey"`
	GameID string `json:"game_id" gorm:"index;not null"`

	Player1ID   string `json:"player1_id" gorm:"index;not null"`
	Player1Name string `json:"player1_name"`

	// Slot 2 is filled at most once, atomically with the waiting → playing flip.
	Player2ID   *string `json:"player2_id,omitempty" gorm:"index"`
	Player2Name string  `json:"player2_name,omitempty"`

	Status string `json:"status" gorm:"index;not null;default:'waiting'"`

	// CurrentStreak carries slot1's prior win streak into the round, and the
	// winner's resulting streak once the round is finished.
	CurrentStreak int `json:"current_streak"`

	Player1Choice *string `json:"player1_choice,omitempty"`
	Player2Choice *string `json:"player2_choice,omitempty"`

	// ResultWinner is set exactly once when the round resolves: player1,
	// player2 or draw. Immutable afterwards.
	ResultWinner *string `json:"result_winner,omitempty"`
	WinnerID     *string `json:"winner_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *GameSession) IsActive() bool {
	return s.Status == SessionWaiting || s.Status == SessionPlaying
}

func (s *GameSession) IsTerminal() bool {
	return s.Status == SessionFinished || s.Status == SessionCancelled
}

func (s *GameSession) HasResult() bool {
	return s.ResultWinner != nil && *s.ResultWinner != ""
}

// SlotOf returns which slot the player occupies, or "" for non-participants.
func (s *GameSession) SlotOf(playerID string) string {
	if playerID == "" {
		return ""
	}
	if s.Player1ID == playerID {
		return WinnerPlayer1
	}
	if s.Player2ID != nil && *s.Player2ID == playerID {
		return WinnerPlayer2
	}
	return ""
}

// ChoiceOf returns the recorded choice for a slot, or nil if none yet.
func (s *GameSession) ChoiceOf(slot string) *string {
	switch slot {
	case WinnerPlayer1:
		return s.Player1Choice
	case WinnerPlayer2:
		return s.Player2Choice
	}
	return nil
}

func (s *GameSession) BothChosen() bool {
	return s.Player1Choice != nil && s.Player2Choice != nil
}

// Public returns a copy safe to hand to either participant. While the round
// is still in play the submitted choices are blanked, so an intermediate
// broadcast never leaks the peer's choice before both are in.
func (s *GameSession) Public() *GameSession {
	out := *s
	if out.Status == SessionPlaying && !out.HasResult() {
		out.Player1Choice = nil
		out.Player2Choice = nil
	}
	return &out
}
