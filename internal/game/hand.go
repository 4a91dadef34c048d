package game

import (
	"fmt"
	"strings"
)

// Hand is the multiset of cards held by one seat
type Hand []Card

// Contains reports whether c is in the hand
func (h Hand) Contains(c Card) bool {
	for _, held := range h {
		if held == c {
			return true
		}
	}
	return false
}

// HasSuit reports whether any held card is of suit s
func (h Hand) HasSuit(s Suit) bool {
	for _, held := range h {
		if held.Suit == s {
			return true
		}
	}
	return false
}

// Remove returns the hand without one copy of c
func (h Hand) Remove(c Card) (Hand, bool) {
	for i, held := range h {
		if held == c {
			out := make(Hand, 0, len(h)-1)
			out = append(out, h[:i]...)
			return append(out, h[i+1:]...), true
		}
	}
	return h, false
}

// BySuit returns the held cards of suit s, in hand order
func (h Hand) BySuit(s Suit) []Card {
	var cards []Card
	for _, held := range h {
		if held.Suit == s {
			cards = append(cards, held)
		}
	}
	return cards
}

// String renders the hand as space-separated wire tokens
func (h Hand) String() string {
	tokens := make([]string, len(h))
	for i, c := range h {
		tokens[i] = c.String()
	}
	return strings.Join(tokens, " ")
}

// ParseHand reads the space-separated form produced by Hand.String
func ParseHand(line string) (Hand, error) {
	fields := strings.Fields(line)
	hand := make(Hand, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, fmt.Errorf("parse hand: %w", err)
		}
		hand = append(hand, c)
	}
	return hand, nil
}
