package game

import "errors"

const (
	// MaxSeats is the number of players in one game
	MaxSeats = 4
	// DeckSize is the number of cards in a full deck
	DeckSize = 52
)

// State is the lifecycle stage shared by sessions and games
type State int

const (
	Idle State = iota
	Waiting
	Ready
	Playing
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Waiting:
		return "WAITING"
	case Ready:
		return "READY"
	case Playing:
		return "PLAYING"
	case Completed:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// Team identifies one of the two partnerships; seats 0 and 2 form team one
type Team int

const (
	TeamOne Team = iota + 1
	TeamTwo
)

// TeamOf returns the team a seat index plays for
func TeamOf(seat int) Team {
	if seat%2 == 0 {
		return TeamOne
	}
	return TeamTwo
}

func (t Team) String() string {
	if t == TeamOne {
		return "TEAM ONE"
	}
	return "TEAM TWO"
}

// Rules holds the per-game rule switches
type Rules struct {
	// FollowSuit requires a seat holding the leading suit to play it
	FollowSuit bool `json:"follow_suit"`
}

// DefaultRules returns the rules used when none are configured
func DefaultRules() Rules {
	return Rules{FollowSuit: true}
}

var (
	ErrInvalidCard = errors.New("invalid card")
	ErrCardNotHeld = errors.New("card not in hand")
	ErrMustFollow  = errors.New("must follow the leading suit")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotPlaying  = errors.New("game is not in progress")
	ErrNotWaiting  = errors.New("not waiting for players")
	ErrGameFull    = errors.New("game is full")
	ErrGameStarted = errors.New("game already started")
	ErrGameOver    = errors.New("game is over")
	ErrUnknownSeat = errors.New("seat does not belong to this game")
	ErrEmptyName   = errors.New("game name is empty")
)
