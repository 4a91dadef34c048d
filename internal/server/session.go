package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rats/internal/game"
	"rats/internal/network"
	"rats/pkg/logger"
)

const maxLineLength = 4096

// Session is one connected client. A reader goroutine queues command lines
// for Run, which handles them in order; everything sent to the peer goes
// through the mailbox and is written by a dedicated writer goroutine.
type Session struct {
	ID   string
	conn net.Conn
	hub  *Hub

	welcome      string
	writeTimeout time.Duration
	inboxSize    int

	mailbox    chan network.Message
	hangup     chan struct{}
	hangupOnce sync.Once
	writerDone chan struct{}

	mu   sync.Mutex
	name string
	game *game.Game
	seat *game.Seat

	logger *logger.Logger
}

func newSession(conn net.Conn, hub *Hub, cfg Config) *Session {
	return &Session{
		ID:           uuid.NewString(),
		conn:         conn,
		hub:          hub,
		welcome:      cfg.Message,
		writeTimeout: cfg.WriteTimeout,
		inboxSize:    cfg.MailboxSize,
		mailbox:      make(chan network.Message, cfg.MailboxSize),
		hangup:       make(chan struct{}),
		writerDone:   make(chan struct{}),
		name:         conn.RemoteAddr().String(),
		logger:       logger.Server,
	}
}

// Name returns the player name, the remote address until a JOIN names it
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// State returns IDLE before joining, otherwise the seat's state in its game
func (s *Session) State() game.State {
	g, seat := s.joined()
	if g == nil {
		return game.Idle
	}
	return g.SeatState(seat)
}

func (s *Session) joined() (*game.Game, *game.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game, s.seat
}

// Deliver queues msg for the peer without blocking. A peer that lets its
// mailbox fill up is treated as gone.
func (s *Session) Deliver(msg network.Message) {
	select {
	case s.mailbox <- msg:
	default:
		s.logger.Warn("Mailbox full for %s, dropping connection", s.ID)
		s.Close()
	}
}

// Hangup closes the connection after the queued messages are written
func (s *Session) Hangup() {
	s.hangupOnce.Do(func() { close(s.hangup) })
}

// Close drops the connection immediately
func (s *Session) Close() {
	s.conn.Close()
}

// Run serves the session until the peer leaves or the connection fails
func (s *Session) Run(ctx context.Context) {
	go s.writeLoop()
	defer s.cleanup()

	ctx, leave := context.WithCancel(ctx)
	defer leave()

	s.logger.Info("New client connected: %s from %s", s.ID, s.conn.RemoteAddr())
	s.Deliver(network.Welcome(s.welcome))

	lines := make(chan string, s.inboxSize)
	go s.readLoop(lines, leave)

	for line := range lines {
		if !s.processMessage(ctx, line) {
			return
		}
	}
}

// readLoop feeds command lines to Run. It cancels the session context on
// EXIT, end of input or a read error, which ends a pending READY wait.
func (s *Session) readLoop(lines chan<- string, leave context.CancelFunc) {
	defer close(lines)
	defer leave()

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, 512), maxLineLength)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		select {
		case lines <- line:
		default:
			s.logger.Warn("Too many pending commands from %s, dropping connection", s.ID)
			s.Close()
			return
		}
		if isExit(line) {
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("Read from %s failed: %v", s.ID, err)
	}
}

func isExit(line string) bool {
	cmd, err := network.ParseCommand(line)
	return err == nil && cmd.Verb == network.CmdExit
}

// processMessage handles one command line. It returns false when the session should end.
func (s *Session) processMessage(ctx context.Context, line string) bool {
	cmd, err := network.ParseCommand(line)
	if err != nil {
		s.sendError(err)
		return true
	}

	s.logger.Debug("Received %s from %s", cmd.Verb, s.ID)

	switch cmd.Verb {
	case network.CmdJoin:
		s.handleJoin(cmd)
	case network.CmdReady:
		s.handleReady(ctx)
	case network.CmdPlay:
		s.handlePlay(cmd)
	case network.CmdExit:
		s.Deliver(network.Goodbye())
		return false
	}
	return true
}

// handleJoin seats the session in the named game
func (s *Session) handleJoin(cmd network.Command) {
	if g, _ := s.joined(); g != nil {
		s.sendError(errAlreadyJoined)
		return
	}

	player := cmd.Arg(1)
	if player == "" {
		player = s.Name()
	}

	g, seat, err := s.hub.JoinGame(cmd.Arg(0), player, s)
	if err != nil {
		s.sendError(err)
		return
	}

	s.mu.Lock()
	s.name = player
	s.game = g
	s.seat = seat
	s.mu.Unlock()

	s.logger.Info("Player %s joined game %s", player, g.Name)
	s.Deliver(network.Joined())
}

// handleReady blocks until the game starts or the peer leaves
func (s *Session) handleReady(ctx context.Context) {
	g, seat := s.joined()
	if g == nil {
		s.sendError(errNotJoined)
		return
	}

	if err := g.Ready(ctx, seat); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.sendError(err)
		return
	}
	s.hub.Activate(g)
}

// handlePlay relays a card to the game
func (s *Session) handlePlay(cmd network.Command) {
	g, seat := s.joined()
	if g == nil {
		s.sendError(errNotJoined)
		return
	}

	if err := g.Play(seat, cmd.Arg(0)); err != nil {
		s.sendError(err)
		return
	}
	s.hub.Retire(g)
}

func (s *Session) sendError(err error) {
	s.logger.Debug("Rejected command from %s: %v", s.ID, err)
	s.Deliver(network.Error(err.Error()))
}

// writeLoop writes queued messages until hangup, then flushes what is left and closes the connection
func (s *Session) writeLoop() {
	defer close(s.writerDone)
	defer s.conn.Close()

	for {
		select {
		case msg := <-s.mailbox:
			if !s.write(msg) {
				return
			}
		case <-s.hangup:
			for {
				select {
				case msg := <-s.mailbox:
					if !s.write(msg) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (s *Session) write(msg network.Message) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return false
	}
	if _, err := s.conn.Write(msg.Encode()); err != nil {
		s.logger.Debug("Write to %s failed: %v", s.ID, err)
		return false
	}
	return true
}

// cleanup leaves the game, unregisters and waits for the writer to flush
func (s *Session) cleanup() {
	if g, seat := s.joined(); g != nil {
		s.hub.LeaveGame(g, seat)
	}
	s.hub.Unregister(s)

	s.Hangup()
	<-s.writerDone

	s.logger.Info("Client disconnected: %s (%s)", s.ID, s.Name())
}

var (
	errAlreadyJoined = errors.New("already joined a game")
	errNotJoined     = errors.New("not in a game")
)
