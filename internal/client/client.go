// Package client handles the TCP client and game interaction
package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"rats/internal/game"
	"rats/internal/network"
	"rats/pkg/logger"
)

var (
	ErrConnect       = errors.New("cannot connect to the server")
	ErrUserQuit      = errors.New("user quit")
	ErrProtocol      = errors.New("unexpected communication error")
	ErrUnexpectedEOF = errors.New("server closed the connection unexpectedly")
)

// Client plays one game on behalf of the operator
type Client struct {
	player   string
	gameName string

	conn    net.Conn
	reader  *network.Reader
	display *Display
	input   Prompter
	logger  *logger.Logger

	welcomed bool
	joined   bool
	started  bool
	finished bool

	hand     game.Hand
	lead     game.Suit
	onTable  int
	myTurn   bool
	turnLead game.Suit
}

// NewClient creates a new client instance
func NewClient(player, gameName string, display *Display, input Prompter) *Client {
	return &Client{
		player:   player,
		gameName: gameName,
		display:  display,
		input:    input,
		logger:   logger.Client,
	}
}

// Connect dials the server at addr
func (c *Client) Connect(addr string, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		c.logger.Error("Dial %s: %v", addr, err)
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	c.logger.Info("Connected to server at %s", addr)
	c.Attach(conn)
	return nil
}

// Attach uses an established connection
func (c *Client) Attach(conn net.Conn) {
	c.conn = conn
	c.reader = network.NewReader(conn)
}

// Run handles server messages until the connection ends. It returns nil when
// the server closes the connection after the game is over or the session ended.
func (c *Client) Run() error {
	defer c.conn.Close()

	for {
		msg, err := c.reader.ReadMessage()
		if err != nil {
			return c.readError(err)
		}

		c.logger.Debug("Received %s", msg)
		if err := c.processServerMessage(msg); err != nil {
			return err
		}
	}
}

func (c *Client) readError(err error) error {
	switch {
	case errors.Is(err, io.EOF) && c.finished:
		c.logger.Info("Server closed the connection")
		return nil
	case errors.Is(err, io.EOF):
		return ErrUnexpectedEOF
	case errors.Is(err, network.ErrUnknownMessage), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	case c.finished:
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
}

// processServerMessage handles one message from the server
func (c *Client) processServerMessage(msg network.Message) error {
	if c.finished {
		return c.violation(msg)
	}
	if !c.welcomed && msg.Type != network.MsgWelcome {
		return c.violation(msg)
	}

	switch msg.Type {
	case network.MsgWelcome:
		return c.handleWelcome(msg)
	case network.MsgJoined:
		return c.handleJoined(msg)
	case network.MsgGameStart:
		return c.handleGameStart(msg)
	case network.MsgYourTurn:
		return c.handleYourTurn(msg)
	case network.MsgPlay:
		return c.handlePlay(msg)
	case network.MsgTrickWinner:
		return c.handleTrickWinner(msg)
	case network.MsgGameWinner:
		return c.handleGameWinner(msg)
	case network.MsgError:
		return c.handleError(msg)
	case network.MsgDisconnect:
		c.display.PrintDisconnect()
		c.finished = true
		return nil
	case network.MsgGoodbye:
		c.finished = true
		return nil
	default:
		return c.violation(msg)
	}
}

func (c *Client) handleWelcome(msg network.Message) error {
	if c.welcomed {
		return c.violation(msg)
	}
	c.welcomed = true
	c.display.PrintWelcome(msg.Body)
	return c.send(network.JoinCommand(c.gameName, c.player))
}

func (c *Client) handleJoined(msg network.Message) error {
	if c.joined {
		return c.violation(msg)
	}
	c.joined = true
	c.display.PrintJoined(c.gameName)
	return c.send(network.ReadyCommand())
}

func (c *Client) handleGameStart(msg network.Message) error {
	if !c.joined || c.started {
		return c.violation(msg)
	}
	hand, err := game.ParseHand(msg.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	c.started = true
	c.hand = hand
	c.display.PrintGameStart()
	c.display.PrintHand(c.hand)
	return nil
}

func (c *Client) handleYourTurn(msg network.Message) error {
	if !c.started {
		return c.violation(msg)
	}
	hand, err := game.ParseHand(msg.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	c.hand = hand
	c.myTurn = true
	c.turnLead = c.lead
	c.display.PrintHand(c.hand)
	return c.playCard()
}

// playCard prompts until the operator names a card from the hand, then sends it
func (c *Client) playCard() error {
	for {
		line, err := c.input.Prompt(playPrompt(c.turnLead))
		if err != nil {
			c.logger.Info("Input closed: %v", err)
			_ = c.send(network.ExitCommand())
			return ErrUserQuit
		}

		card, ok := normalizeCard(line, c.turnLead)
		if !ok || !c.hand.Contains(card) {
			c.display.PrintInvalid()
			continue
		}
		return c.send(network.PlayCommand(card.String()))
	}
}

func (c *Client) handlePlay(msg network.Message) error {
	if !c.started {
		return c.violation(msg)
	}
	player, token, ok := splitLast(msg.Body)
	card, err := game.ParseCard(token)
	if !ok || err != nil {
		return c.violation(msg)
	}

	if c.onTable == 0 {
		c.lead = card.Suit
	}
	c.onTable++

	mine := c.myTurn && player == c.player && c.hand.Contains(card)
	if mine {
		c.hand, _ = c.hand.Remove(card)
		c.myTurn = false
	}
	c.display.PrintPlay(player, token, mine)
	return nil
}

func (c *Client) handleTrickWinner(msg network.Message) error {
	if !c.started {
		return c.violation(msg)
	}
	player, score, ok := splitLast(msg.Body)
	if !ok {
		return c.violation(msg)
	}

	c.lead = game.NoSuit
	c.onTable = 0
	c.display.PrintTrickWinner(player, score)
	return nil
}

func (c *Client) handleGameWinner(msg network.Message) error {
	if !c.started {
		return c.violation(msg)
	}
	c.finished = true
	c.display.PrintGameWinner(msg.Body)
	return nil
}

// handleError reports a rejection; a rejected card is chosen again
func (c *Client) handleError(msg network.Message) error {
	c.display.PrintError(msg.Body)
	if !c.joined {
		return fmt.Errorf("%w: join rejected: %s", ErrProtocol, msg.Body)
	}
	if c.myTurn {
		return c.playCard()
	}
	return nil
}

func (c *Client) send(cmd network.Command) error {
	if _, err := c.conn.Write(cmd.Encode()); err != nil {
		c.logger.Error("Write %s: %v", cmd.Verb, err)
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	c.logger.Debug("Sent %s", cmd.Verb)
	return nil
}

func (c *Client) violation(msg network.Message) error {
	c.logger.Error("Unexpected message %s", msg)
	return fmt.Errorf("%w: unexpected %s", ErrProtocol, msg.Type)
}

// splitLast splits "<name> <token>" at the last space
func splitLast(body string) (string, string, bool) {
	for i := len(body) - 1; i >= 0; i-- {
		if body[i] == ' ' {
			if i == 0 || i == len(body)-1 {
				return "", "", false
			}
			return body[:i], body[i+1:], true
		}
	}
	return "", "", false
}
