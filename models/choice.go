package models

const (
	ChoiceRock     = "rock"
	ChoicePaper    = "paper"
	ChoiceScissors = "scissors"
)

// Winner values for a resolved round.
const (
	WinnerPlayer1 = "player1"
	WinnerPlayer2 = "player2"
	WinnerDraw    = "draw"
)

// beats maps each choice to the choice it defeats.
var beats = map[string]string{
	ChoiceRock:     ChoiceScissors,
	ChoiceScissors: ChoicePaper,
	ChoicePaper:    ChoiceRock,
}

func ValidChoice(c string) bool {
	_, ok := beats[c]
	return ok
}

// ResolveRound compares the two choices and returns the winning slot,
// or WinnerDraw for identical choices. Both inputs must be valid choices.
func ResolveRound(player1Choice, player2Choice string) string {
	if player1Choice == player2Choice {
		return WinnerDraw
	}
	if beats[player1Choice] == player2Choice {
		return WinnerPlayer1
	}
	return WinnerPlayer2
}
