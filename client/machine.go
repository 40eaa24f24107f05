package client

import (
	"context"
	"sync"
	"time"

	"game-duel-system/models"

	"github.com/jonboulle/clockwork"
)

// State is the client's UI-facing state.
type State string

const (
	StateNickname State = "nickname" // collecting the display name
	StateMatching State = "matching" // requesting or waiting for a pairing
	StateChoosing State = "choosing" // paired, this player has not chosen
	StateWaiting  State = "waiting"  // chosen, waiting on the peer
	StateResult   State = "result"   // round resolved
)

// Config wires the machine to its collaborators. Timeout fields fall back to
// the package defaults when zero; tests shrink them instead of faking time
// inside the loop.
type Config struct {
	API      *API
	GameSlug string
	Clock    clockwork.Clock
	Dial     Dialer
	OnChange func(Snapshot)

	MatchingTimeout       time.Duration // re-issue the match request when no session arrives
	RelayConnectTimeout   time.Duration // abandon if the room never opens
	OpponentChoiceTimeout time.Duration // abandon if the peer never chooses
	GlobalStuckTimeout    time.Duration // last-resort backstop over choosing/waiting
	DrawAdvanceDelay      time.Duration // how long a draw result is shown
	OpponentLeftDelay     time.Duration // how long the player_left notice is shown
	WaitingPollInterval   time.Duration
	MaxWaitingPolls       int
}

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Dial == nil {
		c.Dial = dialRoom
	}
	if c.MatchingTimeout == 0 {
		c.MatchingTimeout = 8 * time.Second
	}
	if c.RelayConnectTimeout == 0 {
		c.RelayConnectTimeout = 5 * time.Second
	}
	if c.OpponentChoiceTimeout == 0 {
		c.OpponentChoiceTimeout = 30 * time.Second
	}
	if c.GlobalStuckTimeout == 0 {
		// Strictly larger than every other timeout: it only fires when all
		// of them somehow failed to make progress.
		c.GlobalStuckTimeout = 60 * time.Second
	}
	if c.DrawAdvanceDelay == 0 {
		c.DrawAdvanceDelay = 3 * time.Second
	}
	if c.OpponentLeftDelay == 0 {
		c.OpponentLeftDelay = 2 * time.Second
	}
	if c.WaitingPollInterval == 0 {
		c.WaitingPollInterval = 2 * time.Second
	}
	if c.MaxWaitingPolls == 0 {
		c.MaxWaitingPolls = 5
	}
	return c
}

// Snapshot is the machine's externally visible state at one instant.
type Snapshot struct {
	State        State
	Player       *models.Player
	Session      *models.GameSession
	MyChoice     string
	OpponentLeft bool
	Notice       string
}

// Machine reconciles UI state against server truth from four sources, most
// authoritative first: relay push, this client's own API responses, fallback
// polls, timeout-triggered recovery. All transitions run on a single event
// loop; asynchronous callbacks re-enter through the loop stamped with the
// generation current when they were scheduled, and are dropped if a newer
// match attempt has started since.
type Machine struct {
	cfg   Config
	clock clockwork.Clock

	ctx    context.Context
	cancel context.CancelFunc
	events chan func()
	done   chan struct{}

	// Owned by the event loop.
	state        State
	player       *models.Player
	session      *models.GameSession
	relayHost    string
	myChoice     string
	opponentLeft bool
	notice       string
	gen          int
	polls        int
	conn         roomConn
	connOpen     bool
	connStarted  bool

	mu   sync.Mutex
	snap Snapshot
}

func NewMachine(cfg Config) *Machine {
	cfg = cfg.withDefaults()
	return &Machine{
		cfg:    cfg,
		clock:  cfg.Clock,
		events: make(chan func(), 64),
		done:   make(chan struct{}),
		state:  StateNickname,
		snap:   Snapshot{State: StateNickname},
	}
}

// Start launches the event loop. The machine stays in the nickname state
// until SubmitNickname is called.
func (m *Machine) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	go m.run()
}

// Close tears the machine down, firing a detached best-effort abandon for
// any still-active session — the page-unload path.
func (m *Machine) Close() {
	m.post(func() {
		if m.session != nil && m.session.IsActive() {
			m.cfg.API.AbandonDetached(m.session.ID)
		}
		m.closeConn()
		m.cancel()
	})
	<-m.done
}

// Snapshot returns the last published state, safe from any goroutine.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// SubmitNickname registers the display name and starts matchmaking.
func (m *Machine) SubmitNickname(nickname string) {
	m.post(func() {
		if m.state != StateNickname {
			return
		}
		gen := m.gen
		go func() {
			player, err := m.cfg.API.SetNickname(m.ctx, nickname)
			m.post(func() {
				if m.gen != gen || m.state != StateNickname {
					return
				}
				if err != nil {
					m.notice = "could not save nickname, try again"
					m.changed()
					return
				}
				m.player = player
				m.requestMatch()
			})
		}()
	})
}

// Choose submits this player's choice for the current round.
func (m *Machine) Choose(choice string) {
	m.post(func() {
		if m.state != StateChoosing || m.session == nil || !models.ValidChoice(choice) {
			return
		}
		m.myChoice = choice
		m.state = StateWaiting
		m.changed()

		gen := m.gen
		m.after(m.cfg.OpponentChoiceTimeout, gen, func() {
			if m.state == StateWaiting {
				m.abandonAndRematch()
			}
		})
		if m.relayHost == "" {
			// No realtime at all: the result can only arrive by polling.
			m.after(m.cfg.WaitingPollInterval, gen, m.pollForResult)
		}

		sessionID := m.session.ID
		go func() {
			session, _, err := m.cfg.API.SubmitChoice(m.ctx, sessionID, choice)
			m.post(func() {
				if m.gen != gen {
					return
				}
				if err != nil {
					// Every error funnels into the rematch path; the UI is
					// never left stuck on a failed submission.
					m.abandonAndRematch()
					return
				}
				m.applySession(session)
			})
		}()
	})
}

// PlayAgain leaves the result screen and starts a fresh match.
func (m *Machine) PlayAgain() {
	m.post(func() {
		if m.state != StateResult {
			return
		}
		m.requestMatch()
	})
}

func (m *Machine) run() {
	defer close(m.done)
	for {
		select {
		case fn := <-m.events:
			fn()
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Machine) post(fn func()) {
	select {
	case m.events <- fn:
	case <-m.ctx.Done():
	}
}

// after schedules fn on the event loop. The callback carries the generation
// current at schedule time and silently dies if a newer attempt superseded
// it — timers are never left pointing at state they no longer own.
func (m *Machine) after(d time.Duration, gen int, fn func()) {
	go func() {
		select {
		case <-m.clock.After(d):
			m.post(func() {
				if m.gen == gen {
					fn()
				}
			})
		case <-m.ctx.Done():
		}
	}()
}

func (m *Machine) changed() {
	snap := Snapshot{
		State:        m.state,
		Player:       m.player,
		Session:      m.session,
		MyChoice:     m.myChoice,
		OpponentLeft: m.opponentLeft,
		Notice:       m.notice,
	}
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
	if m.cfg.OnChange != nil {
		m.cfg.OnChange(snap)
	}
}

// requestMatch starts a new match attempt. Bumping the generation is what
// disarms every timer and in-flight callback of the previous attempt.
func (m *Machine) requestMatch() {
	m.gen++
	gen := m.gen

	m.state = StateMatching
	m.session = nil
	m.myChoice = ""
	m.opponentLeft = false
	m.polls = 0
	m.closeConn()
	m.changed()

	// Matching timeout: bounded wait with no session before re-issuing.
	m.after(m.cfg.MatchingTimeout, gen, func() {
		if m.state == StateMatching && m.session == nil {
			m.requestMatch()
		}
	})

	go func() {
		resp, err := m.cfg.API.RequestMatch(m.ctx, m.cfg.GameSlug)
		m.post(func() {
			if m.gen != gen {
				return
			}
			if err != nil {
				m.notice = "matchmaking failed, retrying"
				m.changed()
				return // the matching timeout re-issues
			}
			m.notice = ""
			m.relayHost = resp.RelayHost
			m.applySession(resp.Session)
			if m.state == StateMatching && m.session != nil && m.session.Status == models.SessionWaiting {
				// Parked as slot1: the claim-side session_update lands in this
				// session's room, so join it now rather than after the
				// promotion. Polling stays armed as the fallback.
				m.connectRelay(gen)
				m.after(m.cfg.WaitingPollInterval, gen, m.pollWaiting)
			}
		})
	}()
}

// pollWaiting is the second line of defense against a missed pairing push:
// while parked in a waiting session, poll its status; after a bounded number
// of polls without a transition, treat the pairing as failed.
func (m *Machine) pollWaiting() {
	if m.state != StateMatching || m.session == nil || m.session.Status != models.SessionWaiting {
		return
	}
	m.polls++
	if m.polls > m.cfg.MaxWaitingPolls {
		m.abandonAndRematch()
		return
	}

	gen := m.gen
	sessionID := m.session.ID
	go func() {
		session, err := m.cfg.API.GetSession(m.ctx, sessionID)
		m.post(func() {
			if m.gen != gen {
				return
			}
			if err == nil && session != nil {
				m.applySession(session)
			}
			if m.state == StateMatching && m.session != nil && m.session.Status == models.SessionWaiting {
				m.after(m.cfg.WaitingPollInterval, gen, m.pollWaiting)
			}
		})
	}()
}

// pollForResult covers the realtime-disabled deployment: once this player
// has chosen, the finished row can only be observed by asking for it.
func (m *Machine) pollForResult() {
	if m.state != StateWaiting || m.session == nil {
		return
	}
	gen := m.gen
	sessionID := m.session.ID
	go func() {
		session, err := m.cfg.API.GetSession(m.ctx, sessionID)
		m.post(func() {
			if m.gen != gen {
				return
			}
			if err == nil && session != nil {
				m.applySession(session)
			}
			if m.state == StateWaiting {
				m.after(m.cfg.WaitingPollInterval, gen, m.pollForResult)
			}
		})
	}()
}

// applySession reconciles a session snapshot from any source against the
// current state. Terminal always wins; a non-terminal snapshot can never
// drag the machine backwards out of result.
func (m *Machine) applySession(session *models.GameSession) {
	if session == nil {
		return
	}
	if m.session != nil && session.ID != m.session.ID {
		return // row from an older attempt
	}

	switch session.Status {
	case models.SessionCancelled:
		if m.state == StateResult {
			return
		}
		// The peer abandoned or the server reaped the session; nothing left
		// to show, go find a new opponent.
		m.requestMatch()

	case models.SessionFinished:
		m.enterResult(session)

	case models.SessionPlaying:
		switch m.state {
		case StateMatching:
			m.session = session
			m.enterPlaying()
		case StateChoosing:
			m.session = session
			m.changed()
		case StateWaiting:
			// Protection invariant: this push is the peer's intermediate
			// choice broadcast. The locally recorded choice stays; applying
			// the snapshot as a transition would reset this player to an
			// un-chosen state.
			m.session = session
			m.changed()
		}

	case models.SessionWaiting:
		if m.state == StateMatching {
			m.session = session
			m.changed()
		}
	}
}

func (m *Machine) enterPlaying() {
	gen := m.gen
	m.state = StateChoosing
	m.opponentLeft = false
	m.notice = ""
	m.changed()

	// Unconditional backstop spanning choosing and waiting; strictly larger
	// than every targeted timeout.
	m.after(m.cfg.GlobalStuckTimeout, gen, func() {
		if m.state == StateChoosing || m.state == StateWaiting {
			m.abandonAndRematch()
		}
	})

	m.connectRelay(gen)
}

// connectRelay joins the session's relay room. Dialed as soon as a session
// exists, so a waiting slot1 player receives the pairing push; the same
// connection is kept across the waiting → playing promotion.
func (m *Machine) connectRelay(gen int) {
	if m.relayHost == "" || m.session == nil || m.connStarted {
		return
	}
	m.connStarted = true

	m.after(m.cfg.RelayConnectTimeout, gen, func() {
		if !m.connOpen && m.session != nil && m.session.IsActive() {
			m.abandonAndRematch()
		}
	})

	sessionID := m.session.ID
	playerID := ""
	if m.player != nil {
		playerID = m.player.ID
	}

	go func() {
		conn, err := m.cfg.Dial(m.ctx, m.relayHost, sessionID, playerID,
			func(msg models.RelayMessage) {
				m.post(func() {
					if m.gen == gen {
						m.handlePush(msg)
					}
				})
			},
			func(error) {
				m.post(func() {
					if m.gen == gen {
						m.connOpen = false
					}
				})
			},
		)
		m.post(func() {
			if m.gen != gen {
				if conn != nil {
					conn.Close()
				}
				return
			}
			if err != nil {
				return // the connect timeout handles recovery
			}
			m.conn = conn
			m.connOpen = true
		})
	}()
}

func (m *Machine) handlePush(msg models.RelayMessage) {
	switch msg.Type {
	case models.MessageSessionUpdate, models.MessageSessionEnd:
		m.applySession(msg.Session)

	case models.MessagePlayerLeft:
		if m.state != StateChoosing && m.state != StateWaiting {
			return
		}
		m.opponentLeft = true
		m.changed()

		// Hold the notice on screen briefly before recovering. A session_end
		// arriving in the window clears the overlay instead.
		gen := m.gen
		m.after(m.cfg.OpponentLeftDelay, gen, func() {
			if m.opponentLeft && (m.state == StateChoosing || m.state == StateWaiting) {
				m.abandonAndRematch()
			}
		})
	}
}

func (m *Machine) enterResult(session *models.GameSession) {
	if m.state == StateResult && m.session != nil && m.session.ID == session.ID {
		return // duplicate terminal push for an already applied outcome
	}
	if !session.HasResult() {
		// A finished session with no outcome is corrupted state; never
		// render it, recover immediately.
		m.requestMatch()
		return
	}

	m.session = session
	m.myChoice = ownChoice(session, m.player, m.myChoice)
	m.opponentLeft = false
	m.notice = ""
	m.state = StateResult
	m.changed()
	m.closeConn()

	if *session.ResultWinner == models.WinnerDraw {
		gen := m.gen
		m.after(m.cfg.DrawAdvanceDelay, gen, func() {
			if m.state == StateResult {
				m.requestMatch()
			}
		})
	}
}

func (m *Machine) abandonAndRematch() {
	if m.session != nil && m.session.IsActive() {
		m.cfg.API.AbandonDetached(m.session.ID)
	}
	m.requestMatch()
}

func (m *Machine) closeConn() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.connOpen = false
	m.connStarted = false
}

// ownChoice fills the local choice from the final snapshot when possible;
// the server only reveals choices once the round is finished.
func ownChoice(session *models.GameSession, player *models.Player, fallback string) string {
	if player == nil {
		return fallback
	}
	if c := session.ChoiceOf(session.SlotOf(player.ID)); c != nil {
		return *c
	}
	return fallback
}
