// Package network implements the line-oriented wire protocol spoken by the server and client
package network

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MessageType is the header line of a server message
type MessageType string

const (
	// Session messages
	MsgWelcome    MessageType = "WELCOME"
	MsgJoined     MessageType = "JOINED"
	MsgError      MessageType = "ERROR"
	MsgDisconnect MessageType = "DISCONNECT"
	MsgGoodbye    MessageType = "GOODBYE"

	// Game messages
	MsgGameStart   MessageType = "GAME START"
	MsgYourTurn    MessageType = "YOUR TURN"
	MsgPlay        MessageType = "PLAY"
	MsgTrickWinner MessageType = "TRICK WINNER"
	MsgGameWinner  MessageType = "GAME WINNER"
)

// hasBody records which message types carry a second line
var hasBody = map[MessageType]bool{
	MsgWelcome:     true,
	MsgJoined:      false,
	MsgError:       true,
	MsgDisconnect:  false,
	MsgGoodbye:     false,
	MsgGameStart:   true,
	MsgYourTurn:    true,
	MsgPlay:        true,
	MsgTrickWinner: true,
	MsgGameWinner:  true,
}

var (
	ErrUnknownMessage  = errors.New("unknown message type")
	ErrEmptyCommand    = errors.New("empty command")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing argument")
	ErrExtraArgument   = errors.New("unexpected argument")
)

// Message is one server-to-client message: a header line and an optional body line
type Message struct {
	Type MessageType
	Body string
}

// NewMessage creates a message; newlines in body are flattened to spaces
func NewMessage(msgType MessageType, body string) Message {
	return Message{Type: msgType, Body: flatten(body)}
}

// Encode renders the message as wire lines
func (m Message) Encode() []byte {
	var sb strings.Builder
	sb.WriteString(string(m.Type))
	sb.WriteByte('\n')
	if hasBody[m.Type] {
		sb.WriteString(m.Body)
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

func (m Message) String() string {
	if hasBody[m.Type] {
		return fmt.Sprintf("%s %q", m.Type, m.Body)
	}
	return string(m.Type)
}

// Helper constructors

func Welcome(text string) Message      { return NewMessage(MsgWelcome, text) }
func Joined() Message                  { return NewMessage(MsgJoined, "") }
func Error(reason string) Message      { return NewMessage(MsgError, reason) }
func Disconnect() Message              { return NewMessage(MsgDisconnect, "") }
func Goodbye() Message                 { return NewMessage(MsgGoodbye, "") }
func GameStart(hand string) Message    { return NewMessage(MsgGameStart, hand) }
func YourTurn(hand string) Message     { return NewMessage(MsgYourTurn, hand) }
func Play(player, card string) Message { return NewMessage(MsgPlay, player+" "+card) }

// TrickWinner announces the seat that took the trick and the running score
func TrickWinner(player, score string) Message {
	return NewMessage(MsgTrickWinner, player+" "+score)
}

// GameWinner announces the winning team and the final score
func GameWinner(team, score string) Message {
	return NewMessage(MsgGameWinner, team+" "+score)
}

// Reader decodes server messages from a stream
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadMessage reads one message. It returns io.EOF at a clean message
// boundary and io.ErrUnexpectedEOF when the stream ends mid-message.
func (r *Reader) ReadMessage() (Message, error) {
	header, err := r.readLine()
	if err != nil {
		return Message{}, err
	}

	msgType := MessageType(header)
	body, known := hasBody[msgType]
	if !known {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessage, header)
	}
	if !body {
		return Message{Type: msgType}, nil
	}

	line, err := r.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, io.ErrUnexpectedEOF
		}
		return Message{}, err
	}
	return Message{Type: msgType, Body: line}, nil
}

func (r *Reader) readLine() (string, error) {
	line, err := r.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Verb names a client-to-server command
type Verb string

const (
	CmdJoin  Verb = "JOIN"
	CmdReady Verb = "READY"
	CmdPlay  Verb = "PLAY"
	CmdExit  Verb = "EXIT"
)

// Command is one client-to-server line
type Command struct {
	Verb Verb
	Args []string
}

// ParseCommand parses a command line such as "PLAY TH"
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}

	cmd := Command{Verb: Verb(fields[0]), Args: fields[1:]}
	switch cmd.Verb {
	case CmdJoin:
		if len(cmd.Args) == 0 {
			return cmd, fmt.Errorf("%w: game name", ErrMissingArgument)
		}
		if len(cmd.Args) > 2 {
			return cmd, fmt.Errorf("%w: %q", ErrExtraArgument, cmd.Args[2])
		}
	case CmdPlay:
		if len(cmd.Args) == 0 {
			return cmd, fmt.Errorf("%w: card", ErrMissingArgument)
		}
		if len(cmd.Args) > 1 {
			return cmd, fmt.Errorf("%w: %q", ErrExtraArgument, cmd.Args[1])
		}
	case CmdReady, CmdExit:
		if len(cmd.Args) > 0 {
			return cmd, fmt.Errorf("%w: %q", ErrExtraArgument, cmd.Args[0])
		}
	default:
		return cmd, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	return cmd, nil
}

// Arg returns the i-th argument or ""
func (c Command) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// Encode renders the command as one wire line
func (c Command) Encode() []byte {
	parts := append([]string{string(c.Verb)}, c.Args...)
	return []byte(strings.Join(parts, " ") + "\n")
}

// JoinCommand asks to be seated in game under the given player name
func JoinCommand(game, player string) Command {
	args := []string{game}
	if player != "" {
		args = append(args, player)
	}
	return Command{Verb: CmdJoin, Args: args}
}

func ReadyCommand() Command           { return Command{Verb: CmdReady} }
func PlayCommand(card string) Command { return Command{Verb: CmdPlay, Args: []string{card}} }
func ExitCommand() Command            { return Command{Verb: CmdExit} }

func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
