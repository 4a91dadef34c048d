package game

import "fmt"

// TrickWinner returns the index of the winning play: the highest rank among the
// cards that match lead. Empty slots and off-suit cards never win. It returns
// -1 when no card follows lead.
func TrickWinner(plays []Card, lead Suit) int {
	winner := -1
	best := 0
	for i, c := range plays {
		if c.IsZero() || c.Suit != lead {
			continue
		}
		if c.Rank > best {
			best = c.Rank
			winner = i
		}
	}
	return winner
}

// Score is the running trick count of both teams
type Score struct {
	TeamOne int `json:"team_one"`
	TeamTwo int `json:"team_two"`
}

// Add credits one trick to team
func (s *Score) Add(team Team) {
	if team == TeamOne {
		s.TeamOne++
	} else {
		s.TeamTwo++
	}
}

// Total returns the number of tricks resolved
func (s Score) Total() int {
	return s.TeamOne + s.TeamTwo
}

// Leader returns the team with more tricks; a tie goes to team two
func (s Score) Leader() Team {
	if s.TeamOne > s.TeamTwo {
		return TeamOne
	}
	return TeamTwo
}

// String renders the score as "<team1>-<team2>"
func (s Score) String() string {
	return fmt.Sprintf("%d-%d", s.TeamOne, s.TeamTwo)
}
