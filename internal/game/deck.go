package game

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// BuildDeck returns the 52 cards in canonical order: H, D, S, C, each from 2 to A
func BuildDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for rank := MinRank; rank <= MaxRank; rank++ {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// Shuffle permutes deck in place with Fisher-Yates
func Shuffle(deck []Card, r *rand.Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// Deal splits deck into players equal, order-preserving slices. Cards beyond
// the largest multiple of players are left undealt.
func Deal(deck []Card, players int) [][]Card {
	if players <= 0 {
		return nil
	}
	per := len(deck) / players
	hands := make([][]Card, players)
	for i := range hands {
		hand := make([]Card, per)
		copy(hand, deck[i*per:(i+1)*per])
		hands[i] = hand
	}
	return hands
}

// Dealer shuffles and deals fresh decks. It is safe for concurrent use.
type Dealer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDealer creates a dealer; a nil source is seeded from the clock
func NewDealer(r *rand.Rand) *Dealer {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Dealer{rng: r}
}

// NewSeededDealer creates a dealer with a reproducible shuffle
func NewSeededDealer(seed int64) *Dealer {
	return NewDealer(rand.New(rand.NewSource(seed)))
}

// DealHands shuffles a full deck and deals it to players, each hand sorted
func (d *Dealer) DealHands(players int) []Hand {
	deck := BuildDeck()

	d.mu.Lock()
	Shuffle(deck, d.rng)
	d.mu.Unlock()

	split := Deal(deck, players)
	hands := make([]Hand, len(split))
	for i, cards := range split {
		hands[i] = Hand(cards)
		hands[i].Sort()
	}
	return hands
}

func suitOrder(s Suit) int {
	for i, suit := range Suits {
		if suit == s {
			return i
		}
	}
	return len(Suits)
}

// Sort orders the hand by suit (H, D, S, C) then ascending rank
func (h Hand) Sort() {
	sort.Slice(h, func(i, j int) bool {
		if h[i].Suit != h[j].Suit {
			return suitOrder(h[i].Suit) < suitOrder(h[j].Suit)
		}
		return h[i].Rank < h[j].Rank
	})
}
