package server

import (
	"sync"

	"rats/internal/game"
	"rats/pkg/logger"
)

// Stats is a point-in-time copy of the server counters
type Stats struct {
	Connected       int `json:"players_connected"`
	TotalConnected  int `json:"total_connected"`
	GamesStarted    int `json:"games_started"`
	GamesCompleted  int `json:"games_completed"`
	GamesTerminated int `json:"games_terminated"`
	TotalTricks     int `json:"total_tricks"`
	MaxConns        int `json:"max_connections"`
}

// RunningGames returns the number of games started and not yet finished
func (s Stats) RunningGames() int {
	return s.GamesStarted - s.GamesCompleted - s.GamesTerminated
}

// Hub is the state shared by every session: the session registry, the
// game registries and the aggregate counters.
//
// Lock order is gamesMu, then a game's own lock, then mu. clientsMu is
// never held together with another lock.
type Hub struct {
	clientsMu sync.RWMutex
	clients   map[string]*Session

	gamesMu sync.Mutex
	pending map[string]*game.Game
	active  map[string]*game.Game

	mu    sync.Mutex
	stats Stats

	rules  game.Rules
	dealer *game.Dealer
	logger *logger.Logger
}

// NewHub creates an empty hub. New games use rules and deal from dealer.
func NewHub(maxConns int, rules game.Rules, dealer *game.Dealer) *Hub {
	if dealer == nil {
		dealer = game.NewDealer(nil)
	}
	return &Hub{
		clients: make(map[string]*Session),
		pending: make(map[string]*game.Game),
		active:  make(map[string]*game.Game),
		stats:   Stats{MaxConns: maxConns},
		rules:   rules,
		dealer:  dealer,
		logger:  logger.Server,
	}
}

// Register adds a session to the registry
func (h *Hub) Register(s *Session) {
	h.clientsMu.Lock()
	h.clients[s.ID] = s
	h.clientsMu.Unlock()

	h.mu.Lock()
	h.stats.Connected++
	h.stats.TotalConnected++
	h.mu.Unlock()
}

// Unregister removes a session from the registry
func (h *Hub) Unregister(s *Session) {
	h.clientsMu.Lock()
	_, ok := h.clients[s.ID]
	delete(h.clients, s.ID)
	h.clientsMu.Unlock()

	if !ok {
		return
	}
	h.mu.Lock()
	h.stats.Connected--
	h.mu.Unlock()
}

// Session returns the registered session with id
func (h *Hub) Session(id string) (*Session, bool) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	s, ok := h.clients[id]
	return s, ok
}

// CloseAll drops the connection of every registered session
func (h *Hub) CloseAll() {
	h.clientsMu.RLock()
	sessions := make([]*Session, 0, len(h.clients))
	for _, s := range h.clients {
		sessions = append(sessions, s)
	}
	h.clientsMu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}

// JoinGame seats player in the pending game called name, creating it when
// there is none. A pending game that has already started is moved to the
// active registry and replaced by a fresh one.
func (h *Hub) JoinGame(name, player string, out game.Messenger) (*game.Game, *game.Seat, error) {
	if name == "" {
		return nil, nil, game.ErrEmptyName
	}

	h.gamesMu.Lock()
	defer h.gamesMu.Unlock()

	g, ok := h.pending[name]
	if ok {
		switch g.State() {
		case game.Playing:
			h.activate(g)
			ok = false
		case game.Completed:
			delete(h.pending, name)
			ok = false
		}
	}
	if !ok {
		g = game.NewGame(name,
			game.WithRules(h.rules),
			game.WithDealer(h.dealer),
			game.WithRecorder(h),
		)
		h.pending[name] = g
		h.logger.Info("Created game %s (%s)", name, g.ID)
	}

	seat, err := g.Join(player, out)
	if err != nil {
		return nil, nil, err
	}
	return g, seat, nil
}

// Activate moves a started game from the pending to the active registry
func (h *Hub) Activate(g *game.Game) {
	h.gamesMu.Lock()
	defer h.gamesMu.Unlock()
	h.activate(g)
}

func (h *Hub) activate(g *game.Game) {
	if h.pending[g.Name] == g {
		delete(h.pending, g.Name)
	}
	if _, ok := h.active[g.ID]; !ok && g.State() != game.Completed {
		h.active[g.ID] = g
	}
}

// LeaveGame removes seat from g and drops g from the registries once it is finished with
func (h *Hub) LeaveGame(g *game.Game, seat *game.Seat) {
	h.gamesMu.Lock()
	defer h.gamesMu.Unlock()

	if g.Leave(seat) {
		h.retire(g)
	}
}

// Retire drops g from the registries if it is over
func (h *Hub) Retire(g *game.Game) {
	h.gamesMu.Lock()
	defer h.gamesMu.Unlock()

	if g.State() == game.Completed {
		h.retire(g)
	}
}

func (h *Hub) retire(g *game.Game) {
	if h.pending[g.Name] == g {
		delete(h.pending, g.Name)
	}
	delete(h.active, g.ID)
}

// Games returns the number of pending and active games
func (h *Hub) Games() (pending, active int) {
	h.gamesMu.Lock()
	defer h.gamesMu.Unlock()
	return len(h.pending), len(h.active)
}

// Snapshot copies the counters
func (h *Hub) Snapshot() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// GameStarted implements game.Recorder
func (h *Hub) GameStarted() {
	h.mu.Lock()
	h.stats.GamesStarted++
	h.mu.Unlock()
}

// TrickResolved implements game.Recorder
func (h *Hub) TrickResolved() {
	h.mu.Lock()
	h.stats.TotalTricks++
	h.mu.Unlock()
}

// GameCompleted implements game.Recorder
func (h *Hub) GameCompleted() {
	h.mu.Lock()
	h.stats.GamesCompleted++
	h.mu.Unlock()
}

// GameTerminated implements game.Recorder
func (h *Hub) GameTerminated() {
	h.mu.Lock()
	h.stats.GamesTerminated++
	h.mu.Unlock()
}
