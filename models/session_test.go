package models

import "testing"

func strptr(s string) *string { return &s }

func TestSlotOf(t *testing.T) {
	p2 := "p2"
	session := &GameSession{Player1ID: "p1", Player2ID: &p2}

	if got := session.SlotOf("p1"); got != WinnerPlayer1 {
		t.Errorf("SlotOf(p1) = %q, want %q", got, WinnerPlayer1)
	}
	if got := session.SlotOf("p2"); got != WinnerPlayer2 {
		t.Errorf("SlotOf(p2) = %q, want %q", got, WinnerPlayer2)
	}
	if got := session.SlotOf("stranger"); got != "" {
		t.Errorf("SlotOf(stranger) = %q, want empty", got)
	}
	if got := session.SlotOf(""); got != "" {
		t.Errorf("SlotOf(\"\") = %q, want empty", got)
	}

	noOpponent := &GameSession{Player1ID: "p1"}
	if got := noOpponent.SlotOf("p2"); got != "" {
		t.Errorf("SlotOf on waiting session = %q, want empty", got)
	}
}

func TestPublicRedactsChoicesWhileInPlay(t *testing.T) {
	session := &GameSession{
		ID:            "s1",
		Status:        SessionPlaying,
		Player1Choice: strptr(ChoiceRock),
	}

	pub := session.Public()
	if pub.Player1Choice != nil || pub.Player2Choice != nil {
		t.Fatal("playing session leaked a choice through Public()")
	}
	// the original row is untouched
	if session.Player1Choice == nil {
		t.Fatal("Public() mutated the source session")
	}
}

func TestPublicKeepsChoicesOnceFinished(t *testing.T) {
	session := &GameSession{
		ID:            "s1",
		Status:        SessionFinished,
		Player1Choice: strptr(ChoiceRock),
		Player2Choice: strptr(ChoiceScissors),
		ResultWinner:  strptr(WinnerPlayer1),
	}

	pub := session.Public()
	if pub.Player1Choice == nil || pub.Player2Choice == nil {
		t.Fatal("finished session should expose both choices")
	}
}

func TestStatusHelpers(t *testing.T) {
	tests := []struct {
		status   string
		active   bool
		terminal bool
	}{
		{SessionWaiting, true, false},
		{SessionPlaying, true, false},
		{SessionFinished, false, true},
		{SessionCancelled, false, true},
	}

	for _, tt := range tests {
		s := &GameSession{Status: tt.status}
		if s.IsActive() != tt.active {
			t.Errorf("IsActive(%s) = %v, want %v", tt.status, s.IsActive(), tt.active)
		}
		if s.IsTerminal() != tt.terminal {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, s.IsTerminal(), tt.terminal)
		}
	}
}

func TestRelayMessageValid(t *testing.T) {
	session := &GameSession{ID: "s1"}

	tests := []struct {
		name string
		msg  RelayMessage
		want bool
	}{
		{"update with session", RelayMessage{Type: MessageSessionUpdate, Session: session}, true},
		{"end with session", RelayMessage{Type: MessageSessionEnd, Session: session}, true},
		{"update without session", RelayMessage{Type: MessageSessionUpdate}, false},
		{"end with blank id", RelayMessage{Type: MessageSessionEnd, Session: &GameSession{}}, false},
		{"player_left with id", RelayMessage{Type: MessagePlayerLeft, PlayerID: "p1"}, true},
		{"player_left without id", RelayMessage{Type: MessagePlayerLeft}, false},
		{"join with id", RelayMessage{Type: MessageJoin, PlayerID: "p1"}, true},
		{"unknown type", RelayMessage{Type: "resync", PlayerID: "p1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
