package models

import "testing"

func TestResolveRound(t *testing.T) {
	tests := []struct {
		player1 string
		player2 string
		want    string
	}{
		{ChoiceRock, ChoiceRock, WinnerDraw},
		{ChoiceRock, ChoicePaper, WinnerPlayer2},
		{ChoiceRock, ChoiceScissors, WinnerPlayer1},
		{ChoicePaper, ChoiceRock, WinnerPlayer1},
		{ChoicePaper, ChoicePaper, WinnerDraw},
		{ChoicePaper, ChoiceScissors, WinnerPlayer2},
		{ChoiceScissors, ChoiceRock, WinnerPlayer2},
		{ChoiceScissors, ChoicePaper, WinnerPlayer1},
		{ChoiceScissors, ChoiceScissors, WinnerDraw},
	}

	for _, tt := range tests {
		t.Run(tt.player1+"_vs_"+tt.player2, func(t *testing.T) {
			if got := ResolveRound(tt.player1, tt.player2); got != tt.want {
				t.Errorf("ResolveRound(%q, %q) = %q, want %q", tt.player1, tt.player2, got, tt.want)
			}
		})
	}
}

func TestValidChoice(t *testing.T) {
	for _, c := range []string{ChoiceRock, ChoicePaper, ChoiceScissors} {
		if !ValidChoice(c) {
			t.Errorf("ValidChoice(%q) = false, want true", c)
		}
	}
	for _, c := range []string{"", "lizard", "ROCK", "spock"} {
		if ValidChoice(c) {
			t.Errorf("ValidChoice(%q) = true, want false", c)
		}
	}
}
