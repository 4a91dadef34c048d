package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"

	"rats/internal/game"
)

// Prompter asks the operator for one line. It returns io.EOF once input is closed.
type Prompter interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// NewPrompter uses line editing when in is a terminal and a plain line reader otherwise
func NewPrompter(in *os.File, out io.Writer) (Prompter, error) {
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		return newReadlinePrompter(in, out)
	}
	return NewLinePrompter(in, out), nil
}

type readlinePrompter struct {
	rl *readline.Instance
}

func newReadlinePrompter(in *os.File, out io.Writer) (*readlinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:           in,
		Stdout:          out,
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return nil, fmt.Errorf("init readline: %w", err)
	}
	return &readlinePrompter{rl: rl}, nil
}

func (p *readlinePrompter) Prompt(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func (p *readlinePrompter) Close() error {
	return p.rl.Close()
}

// LinePrompter reads lines from any reader, writing the prompt to out first
type LinePrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewLinePrompter creates a prompter over in
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{scanner: bufio.NewScanner(in), out: out}
}

func (p *LinePrompter) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

func (p *LinePrompter) Close() error {
	return nil
}

// playPrompt returns the prompt shown when the operator must choose a card
func playPrompt(lead game.Suit) string {
	if lead == game.NoSuit {
		return "Lead> "
	}
	return fmt.Sprintf("[%s] play> ", lead)
}

// normalizeCard turns operator input into a wire token. It accepts "TH",
// suit-first "HT", lower case, and a bare rank which takes the leading suit.
func normalizeCard(input string, lead game.Suit) (game.Card, bool) {
	s := strings.ToUpper(strings.TrimSpace(input))

	switch len(s) {
	case 1:
		if lead == game.NoSuit {
			return game.Card{}, false
		}
		s += lead.String()
	case 2:
		if game.Suit(s[0]).Valid() && game.EncodeRank(s[1]) != 0 {
			s = string([]byte{s[1], s[0]})
		}
	default:
		return game.Card{}, false
	}

	c, err := game.ParseCard(s)
	if err != nil {
		return game.Card{}, false
	}
	return c, true
}
