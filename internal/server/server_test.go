package server

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rats/internal/game"
	"rats/internal/network"
)

const ioTimeout = 3 * time.Second

func startServer(t *testing.T, maxConns int) (*Server, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(Config{
		MaxConns:     maxConns,
		Message:      "hello players",
		WriteTimeout: time.Second,
		MailboxSize:  64,
		Rules:        game.DefaultRules(),
		Dealer:       game.NewSeededDealer(3),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(ioTimeout):
			t.Error("server did not stop")
		}
	})
	return srv, ln.Addr().String()
}

type testClient struct {
	t    *testing.T
	name string
	conn net.Conn
	r    *network.Reader
}

func dial(t *testing.T, addr, name string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, name: name, conn: conn, r: network.NewReader(conn)}
}

func (c *testClient) send(cmd network.Command) {
	c.t.Helper()
	_, err := c.conn.Write(cmd.Encode())
	require.NoError(c.t, err)
}

func (c *testClient) read() (network.Message, error) {
	c.conn.SetReadDeadline(time.Now().Add(ioTimeout))
	return c.r.ReadMessage()
}

func (c *testClient) expect(msgType network.MessageType) network.Message {
	c.t.Helper()
	msg, err := c.read()
	require.NoError(c.t, err, "%s waiting for %s", c.name, msgType)
	require.Equal(c.t, msgType, msg.Type, "%s got %s", c.name, msg)
	return msg
}

// skipTo discards messages until one of msgType arrives
func (c *testClient) skipTo(msgType network.MessageType) network.Message {
	c.t.Helper()
	for {
		msg, err := c.read()
		require.NoError(c.t, err, "%s waiting for %s", c.name, msgType)
		if msg.Type == msgType {
			return msg
		}
	}
}

func (c *testClient) expectClosed() {
	c.t.Helper()
	_, err := c.read()
	require.Error(c.t, err)
	assert.True(c.t, errors.Is(err, io.EOF) || isReset(err), "%s: %v", c.name, err)
}

func isReset(err error) bool {
	return strings.Contains(err.Error(), "connection reset")
}

// seatTable connects four players to game G and readies them
func seatTable(t *testing.T, addr string) []*testClient {
	t.Helper()
	names := []string{"north", "east", "south", "west"}
	clients := make([]*testClient, len(names))
	for i, name := range names {
		c := dial(t, addr, name)
		assert.Equal(t, "hello players", c.expect(network.MsgWelcome).Body)
		c.send(network.JoinCommand("G", name))
		c.expect(network.MsgJoined)
		clients[i] = c
	}
	for _, c := range clients {
		c.send(network.ReadyCommand())
	}
	return clients
}

func pickCard(t *testing.T, handLine string, lead game.Suit) game.Card {
	t.Helper()
	hand, err := game.ParseHand(handLine)
	require.NoError(t, err)
	require.NotEmpty(t, hand)
	if follow := hand.BySuit(lead); len(follow) > 0 {
		return follow[0]
	}
	return hand[0]
}

func TestFullGameOverTCP(t *testing.T) {
	srv, addr := startServer(t, 8)
	clients := seatTable(t, addr)

	for _, c := range clients {
		hand, err := game.ParseHand(c.expect(network.MsgGameStart).Body)
		require.NoError(t, err)
		assert.Len(t, hand, game.DeckSize/game.MaxSeats)
	}

	// Out of turn
	clients[1].send(network.PlayCommand("2H"))
	clients[1].expect(network.MsgError)

	indexOf := func(name string) int {
		for i, c := range clients {
			if c.name == name {
				return i
			}
		}
		t.Fatalf("unknown player %q", name)
		return -1
	}

	leader := 0
	for trick := 0; trick < 13; trick++ {
		lead := game.NoSuit
		for i := 0; i < game.MaxSeats; i++ {
			seat := clients[(leader+i)%game.MaxSeats]
			turn := seat.expect(network.MsgYourTurn)

			card := pickCard(t, turn.Body, lead)
			if i == 0 {
				lead = card.Suit
			}
			seat.send(network.PlayCommand(card.String()))

			for _, c := range clients {
				assert.Equal(t, seat.name+" "+card.String(), c.expect(network.MsgPlay).Body)
			}
		}

		var winner string
		for _, c := range clients {
			fields := strings.Fields(c.expect(network.MsgTrickWinner).Body)
			require.Len(t, fields, 2)
			winner = fields[0]
		}
		leader = indexOf(winner)
	}

	for _, c := range clients {
		body := c.expect(network.MsgGameWinner).Body
		assert.True(t, strings.HasPrefix(body, "TEAM ONE ") || strings.HasPrefix(body, "TEAM TWO "), body)
		c.expectClosed()
	}

	hub := srv.Hub()
	assert.Eventually(t, func() bool { return hub.Snapshot().Connected == 0 }, ioTimeout, 10*time.Millisecond)

	stats := hub.Snapshot()
	assert.Equal(t, 1, stats.GamesStarted)
	assert.Equal(t, 1, stats.GamesCompleted)
	assert.Equal(t, 0, stats.GamesTerminated)
	assert.Equal(t, 13, stats.TotalTricks)
	assert.Equal(t, 4, stats.TotalConnected)
	assert.Equal(t, 0, stats.RunningGames())

	pending, active := hub.Games()
	assert.Zero(t, pending)
	assert.Zero(t, active)
}

func TestDisconnectMidGame(t *testing.T) {
	srv, addr := startServer(t, 8)
	clients := seatTable(t, addr)
	for _, c := range clients {
		c.expect(network.MsgGameStart)
	}

	clients[2].conn.Close()

	for i, c := range clients {
		if i == 2 {
			continue
		}
		c.skipTo(network.MsgDisconnect)
		c.expectClosed()
	}

	hub := srv.Hub()
	assert.Eventually(t, func() bool { return hub.Snapshot().Connected == 0 }, ioTimeout, 10*time.Millisecond)
	assert.Equal(t, 1, hub.Snapshot().GamesTerminated)
	assert.Equal(t, 0, hub.Snapshot().GamesCompleted)
}

func TestExitMidGame(t *testing.T) {
	srv, addr := startServer(t, 8)
	clients := seatTable(t, addr)
	for _, c := range clients {
		c.expect(network.MsgGameStart)
	}

	clients[1].send(network.ExitCommand())
	clients[1].expect(network.MsgGoodbye)
	clients[1].expectClosed()

	for _, i := range []int{0, 2, 3} {
		clients[i].skipTo(network.MsgDisconnect)
		clients[i].expectClosed()
	}

	hub := srv.Hub()
	assert.Eventually(t, func() bool { return hub.Snapshot().GamesTerminated == 1 }, ioTimeout, 10*time.Millisecond)
}

func TestProtocolErrors(t *testing.T) {
	_, addr := startServer(t, 8)
	c := dial(t, addr, "solo")
	c.expect(network.MsgWelcome)

	c.send(network.ReadyCommand())
	assert.Equal(t, "not in a game", c.expect(network.MsgError).Body)

	c.send(network.PlayCommand("2H"))
	c.expect(network.MsgError)

	_, err := c.conn.Write([]byte("\nDANCE\n"))
	require.NoError(t, err)
	assert.Contains(t, c.expect(network.MsgError).Body, "unknown command")

	c.send(network.JoinCommand("G", "solo"))
	c.expect(network.MsgJoined)
	c.send(network.JoinCommand("H", "solo"))
	assert.Equal(t, "already joined a game", c.expect(network.MsgError).Body)

	c.send(network.PlayCommand("2H"))
	assert.Equal(t, game.ErrNotPlaying.Error(), c.expect(network.MsgError).Body)

	c.send(network.ExitCommand())
	c.expect(network.MsgGoodbye)
	c.expectClosed()
}

func TestJoinFullAndRestartedGames(t *testing.T) {
	srv, addr := startServer(t, 8)

	names := []string{"a", "b", "c", "d"}
	clients := make([]*testClient, len(names))
	for i, name := range names {
		clients[i] = dial(t, addr, name)
		clients[i].expect(network.MsgWelcome)
		clients[i].send(network.JoinCommand("G", name))
		clients[i].expect(network.MsgJoined)
	}

	late := dial(t, addr, "late")
	late.expect(network.MsgWelcome)
	late.send(network.JoinCommand("G", "late"))
	assert.Equal(t, game.ErrGameFull.Error(), late.expect(network.MsgError).Body)

	for _, c := range clients {
		c.send(network.ReadyCommand())
	}
	for _, c := range clients {
		c.expect(network.MsgGameStart)
	}

	// The started game no longer holds the name
	late.send(network.JoinCommand("G", "late"))
	late.expect(network.MsgJoined)

	pending, active := srv.Hub().Games()
	assert.Equal(t, 1, pending)
	assert.Equal(t, 1, active)
}

func TestAdmissionLimit(t *testing.T) {
	srv, addr := startServer(t, 2)

	first := dial(t, addr, "first")
	first.expect(network.MsgWelcome)
	second := dial(t, addr, "second")
	second.expect(network.MsgWelcome)

	refused := dial(t, addr, "refused")
	refused.expectClosed()

	first.send(network.ExitCommand())
	first.expect(network.MsgGoodbye)
	first.expectClosed()

	// The released slot admits exactly one more connection
	var third net.Conn
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		msg, err := network.NewReader(conn).ReadMessage()
		if err != nil || msg.Type != network.MsgWelcome {
			conn.Close()
			return false
		}
		third = conn
		return true
	}, ioTimeout, 20*time.Millisecond)
	t.Cleanup(func() { third.Close() })

	dial(t, addr, "fourth").expectClosed()
	assert.Equal(t, 2, srv.Hub().Snapshot().Connected)
}

func pendingPlayers(h *Hub, name string) []string {
	h.gamesMu.Lock()
	defer h.gamesMu.Unlock()
	g, ok := h.pending[name]
	if !ok {
		return nil
	}
	return g.Players()
}

func TestLeaveWhileWaitingForPlayers(t *testing.T) {
	srv, addr := startServer(t, 8)

	names := []string{"a", "b", "c"}
	clients := make([]*testClient, len(names))
	for i, name := range names {
		clients[i] = dial(t, addr, name)
		clients[i].expect(network.MsgWelcome)
		clients[i].send(network.JoinCommand("G", name))
		clients[i].expect(network.MsgJoined)
		clients[i].send(network.ReadyCommand())
	}

	// EXIT is answered even while READY is waiting
	clients[2].send(network.ExitCommand())
	clients[2].expect(network.MsgGoodbye)
	clients[2].expectClosed()

	// A dropped peer gives up its seat and its slot
	clients[1].conn.Close()

	assert.Eventually(t, func() bool {
		return srv.Hub().Snapshot().Connected == 1 &&
			assert.ObjectsAreEqual([]string{"a"}, pendingPlayers(srv.Hub(), "G"))
	}, ioTimeout, 10*time.Millisecond)

	table := []*testClient{clients[0]}
	for _, name := range []string{"d", "e", "f"} {
		c := dial(t, addr, name)
		c.expect(network.MsgWelcome)
		c.send(network.JoinCommand("G", name))
		c.expect(network.MsgJoined)
		c.send(network.ReadyCommand())
		table = append(table, c)
	}
	for _, c := range table {
		c.expect(network.MsgGameStart)
	}

	stats := srv.Hub().Snapshot()
	assert.Equal(t, 1, stats.GamesStarted)
	assert.Zero(t, stats.GamesTerminated)
	assert.Equal(t, 4, stats.Connected)
}

func TestDefaultPlayerNameIsRemoteAddress(t *testing.T) {
	srv, addr := startServer(t, 4)
	c := dial(t, addr, "anon")
	c.expect(network.MsgWelcome)
	c.send(network.JoinCommand("G", ""))
	c.expect(network.MsgJoined)

	var found bool
	srv.Hub().clientsMu.RLock()
	for _, s := range srv.Hub().clients {
		found = s.Name() == c.conn.LocalAddr().String()
		assert.Equal(t, game.Waiting, s.State())
	}
	srv.Hub().clientsMu.RUnlock()
	assert.True(t, found)
}
