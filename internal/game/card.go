package game

import "fmt"

// Suit is the one-character suit token used on the wire
type Suit byte

const (
	NoSuit   Suit = 0
	Hearts   Suit = 'H'
	Diamonds Suit = 'D'
	Spades   Suit = 'S'
	Clubs    Suit = 'C'
)

// Suits lists the suits in canonical deck order
var Suits = []Suit{Hearts, Diamonds, Spades, Clubs}

const (
	MinRank = 2
	MaxRank = 14
)

// Valid reports whether s is one of the four suits
func (s Suit) Valid() bool {
	switch s {
	case Hearts, Diamonds, Spades, Clubs:
		return true
	}
	return false
}

func (s Suit) String() string {
	if !s.Valid() {
		return "-"
	}
	return string(s)
}

// Card is a rank (2..14) and a suit. The zero Card is an empty play slot.
type Card struct {
	Rank int  `json:"rank"`
	Suit Suit `json:"suit"`
}

// IsZero reports whether c marks an empty slot
func (c Card) IsZero() bool {
	return c.Rank == 0
}

// String returns the wire token, rank first: "TH", "2C"
func (c Card) String() string {
	if c.IsZero() {
		return "--"
	}
	return string([]byte{DecodeRank(c.Rank), byte(c.Suit)})
}

// DecodeRank maps a strength 2..14 to its rank token; anything else yields ' '
func DecodeRank(value int) byte {
	switch {
	case value == 14:
		return 'A'
	case value == 13:
		return 'K'
	case value == 12:
		return 'Q'
	case value == 11:
		return 'J'
	case value == 10:
		return 'T'
	case value >= 2 && value <= 9:
		return byte('0' + value)
	}
	return ' '
}

// EncodeRank maps a rank token to its strength; anything else yields 0
func EncodeRank(token byte) int {
	switch {
	case token == 'A':
		return 14
	case token == 'K':
		return 13
	case token == 'Q':
		return 12
	case token == 'J':
		return 11
	case token == 'T':
		return 10
	case token >= '2' && token <= '9':
		return int(token - '0')
	}
	return 0
}

// ParseCard reads a two-character token such as "QS"
func ParseCard(token string) (Card, error) {
	if len(token) != 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, token)
	}
	rank := EncodeRank(token[0])
	suit := Suit(token[1])
	if rank == 0 || !suit.Valid() {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCard, token)
	}
	return Card{Rank: rank, Suit: suit}, nil
}
