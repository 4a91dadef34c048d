// Package game implements the card model, the dealer and the per-game trick engine
package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"rats/internal/network"
	"rats/pkg/logger"
)

// Messenger is the outbound side of a seated session. Deliver must not block;
// Hangup closes the connection once everything already delivered is flushed.
type Messenger interface {
	Deliver(msg network.Message)
	Hangup()
}

// Recorder receives the lifecycle events the server aggregates into its counters
type Recorder interface {
	GameStarted()
	TrickResolved()
	GameCompleted()
	GameTerminated()
}

type nopRecorder struct{}

func (nopRecorder) GameStarted()    {}
func (nopRecorder) TrickResolved()  {}
func (nopRecorder) GameCompleted()  {}
func (nopRecorder) GameTerminated() {}

// Seat is one player's place at the table. Its fields are guarded by the owning game.
type Seat struct {
	Name  string
	index int
	state State
	hand  Hand
	out   Messenger
}

// Option configures a new game
type Option func(*Game)

// WithRules sets the rule switches of the game
func WithRules(r Rules) Option {
	return func(g *Game) { g.rules = r }
}

// WithDealer sets the dealer used at start
func WithDealer(d *Dealer) Option {
	return func(g *Game) {
		if d != nil {
			g.dealer = d
		}
	}
}

// WithRecorder sets the lifecycle event sink
func WithRecorder(r Recorder) Option {
	return func(g *Game) {
		if r != nil {
			g.recorder = r
		}
	}
}

// Game is a single four-seat table
type Game struct {
	ID   string
	Name string

	mu   sync.Mutex
	cond *sync.Cond

	state      State
	terminated bool
	seats      []*Seat
	readyCount int

	turn   int
	leader int
	suit   Suit
	table  [MaxSeats]Card
	played int
	score  Score

	rules    Rules
	dealer   *Dealer
	recorder Recorder
}

// NewGame creates an empty game waiting for players
func NewGame(name string, opts ...Option) *Game {
	g := &Game{
		ID:       uuid.NewString(),
		Name:     name,
		state:    Waiting,
		rules:    DefaultRules(),
		recorder: nopRecorder{},
	}
	g.cond = sync.NewCond(&g.mu)
	for _, opt := range opts {
		opt(g)
	}
	if g.dealer == nil {
		g.dealer = NewDealer(nil)
	}
	return g
}

// Join seats a new player. The game must not have started and must have a free seat.
func (g *Game) Join(name string, out Messenger) (*Seat, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != Waiting && g.state != Ready {
		return nil, ErrGameStarted
	}
	if len(g.seats) >= MaxSeats {
		return nil, ErrGameFull
	}

	seat := &Seat{
		Name:  name,
		index: len(g.seats),
		state: Waiting,
		out:   out,
	}
	g.seats = append(g.seats, seat)

	logger.Server.Debug("Game %s: %s took seat %d", g.Name, name, seat.index)
	return seat, nil
}

// Accepting reports whether the game still takes new players
func (g *Game) Accepting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == Waiting && len(g.seats) < MaxSeats
}

// Ready marks the seat ready and blocks until the game starts, the seat is
// removed, or ctx is done. The call that readies the last seat deals the cards.
func (g *Game) Ready(ctx context.Context, seat *Seat) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.seated(seat) {
		return ErrUnknownSeat
	}
	if seat.state != Waiting {
		return ErrNotWaiting
	}

	seat.state = Ready
	g.readyCount++

	if g.readyCount == MaxSeats {
		g.state = Ready
		g.start()
		return nil
	}

	// Wake the barrier when the caller gives up
	stop := context.AfterFunc(ctx, func() {
		g.mu.Lock()
		g.cond.Broadcast()
		g.mu.Unlock()
	})
	defer stop()

	for g.state != Playing && g.state != Completed && g.seated(seat) && ctx.Err() == nil {
		g.cond.Wait()
	}

	switch {
	case g.state == Playing:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return ErrGameOver
	}
}

// start deals and opens play. Caller holds g.mu.
func (g *Game) start() {
	hands := g.dealer.DealHands(MaxSeats)
	for i, seat := range g.seats {
		seat.hand = hands[i]
		seat.state = Playing
	}

	g.state = Playing
	g.turn = 0
	g.leader = 0
	g.suit = NoSuit
	g.recorder.GameStarted()

	for _, seat := range g.seats {
		seat.out.Deliver(network.GameStart(seat.hand.String()))
	}
	g.promptTurn()
	g.cond.Broadcast()

	logger.Server.Info("Game %s (%s) started", g.Name, g.ID)
}

// Play validates and records a card played by seat. Rule violations are
// returned as errors and leave the turn with the same seat.
func (g *Game) Play(seat *Seat, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == Completed {
		return ErrGameOver
	}
	if g.state != Playing {
		return ErrNotPlaying
	}
	if !g.seated(seat) {
		return ErrUnknownSeat
	}
	if seat.index != g.turn {
		return ErrNotYourTurn
	}

	card, err := ParseCard(token)
	if err != nil {
		return err
	}
	if !seat.hand.Contains(card) {
		return fmt.Errorf("%w: %s", ErrCardNotHeld, card)
	}
	if g.played > 0 && g.rules.FollowSuit && card.Suit != g.suit && seat.hand.HasSuit(g.suit) {
		return fmt.Errorf("%w: %s", ErrMustFollow, g.suit)
	}

	seat.hand, _ = seat.hand.Remove(card)
	g.table[seat.index] = card
	if g.played == 0 {
		g.suit = card.Suit
		g.leader = seat.index
	}
	g.played++
	g.broadcast(network.Play(seat.Name, card.String()))

	if g.played < len(g.seats) {
		g.turn = (g.turn + 1) % len(g.seats)
		g.promptTurn()
		return nil
	}

	g.resolveTrick()
	return nil
}

// resolveTrick scores a full table. Caller holds g.mu.
func (g *Game) resolveTrick() {
	winner := TrickWinner(g.table[:], g.suit)
	g.score.Add(TeamOf(winner))
	g.recorder.TrickResolved()

	g.broadcast(network.TrickWinner(g.seats[winner].Name, g.score.String()))
	logger.Server.Debug("Game %s: trick %d to %s (%s)", g.Name, g.score.Total(), g.seats[winner].Name, g.score)

	g.table = [MaxSeats]Card{}
	g.played = 0
	g.suit = NoSuit
	g.turn = winner
	g.leader = winner

	if len(g.seats[winner].hand) > 0 {
		g.promptTurn()
		return
	}

	// Every hand is empty
	g.state = Completed
	for _, seat := range g.seats {
		seat.state = Completed
	}
	g.recorder.GameCompleted()
	g.broadcast(network.GameWinner(g.score.Leader().String(), g.score.String()))
	for _, seat := range g.seats {
		seat.out.Hangup()
	}
	g.cond.Broadcast()

	logger.Server.Info("Game %s finished: %s %s", g.Name, g.score.Leader(), g.score)
}

// Leave removes seat from the game. Before play starts the seat is simply
// vacated; during play the game is terminated and the other seats are told
// and hung up. It reports whether the game is finished with, either because
// it is over or because no seats remain.
func (g *Game) Leave(seat *Seat) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case Waiting, Ready:
		idx := g.indexOf(seat)
		if idx < 0 {
			return len(g.seats) == 0
		}
		if seat.state == Ready {
			g.readyCount--
		}
		seat.state = Completed
		g.seats = append(g.seats[:idx], g.seats[idx+1:]...)
		for i, s := range g.seats {
			s.index = i
		}
		g.state = Waiting
		g.cond.Broadcast()
		logger.Server.Debug("Game %s: %s left before start", g.Name, seat.Name)
		return len(g.seats) == 0

	case Playing:
		if !g.seated(seat) {
			return false
		}
		g.state = Completed
		g.terminated = true
		for _, s := range g.seats {
			s.state = Completed
		}
		g.recorder.GameTerminated()
		for _, s := range g.seats {
			if s == seat {
				continue
			}
			s.out.Deliver(network.Disconnect())
			s.out.Hangup()
		}
		g.cond.Broadcast()
		logger.Server.Warn("Game %s terminated: %s left mid-game", g.Name, seat.Name)
		return true

	default:
		return true
	}
}

// State returns the current game state
func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Terminated reports whether the game ended because a player left mid-play
func (g *Game) Terminated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.terminated
}

// Score returns the current trick counts
func (g *Game) Score() Score {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.score
}

// Players returns the seated player names in seat order
func (g *Game) Players() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, len(g.seats))
	for i, s := range g.seats {
		names[i] = s.Name
	}
	return names
}

// Turn returns the index of the seat expected to play and the active suit
func (g *Game) Turn() (int, Suit) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turn, g.suit
}

// SeatState returns the state of seat as seen by its game
func (g *Game) SeatState(seat *Seat) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return seat.state
}

// SeatIndex returns the position of seat at the table
func (g *Game) SeatIndex(seat *Seat) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return seat.index
}

// Hand returns a copy of the cards seat still holds
func (g *Game) Hand(seat *Seat) Hand {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append(Hand(nil), seat.hand...)
}

// promptTurn sends YOUR TURN to the seat on move. Caller holds g.mu.
func (g *Game) promptTurn() {
	seat := g.seats[g.turn]
	seat.out.Deliver(network.YourTurn(seat.hand.String()))
}

func (g *Game) broadcast(msg network.Message) {
	for _, seat := range g.seats {
		seat.out.Deliver(msg)
	}
}

func (g *Game) seated(seat *Seat) bool {
	return g.indexOf(seat) >= 0
}

func (g *Game) indexOf(seat *Seat) int {
	for i, s := range g.seats {
		if s == seat {
			return i
		}
	}
	return -1
}
