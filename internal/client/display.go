// Package client handles client-side display and user interface
package client

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"rats/internal/game"
)

// displayOrder is the suit order used when showing a hand
var displayOrder = []game.Suit{game.Spades, game.Clubs, game.Diamonds, game.Hearts}

// Display renders game events to the terminal
type Display struct {
	out io.Writer

	serverColor *color.Color
	gameColor   *color.Color
	playerColor *color.Color
	otherColor  *color.Color
	winColor    *color.Color
	errorColor  *color.Color
	infoColor   *color.Color
}

// NewDisplay creates a new display writing to out
func NewDisplay(out io.Writer) *Display {
	return &Display{
		out:         out,
		serverColor: color.New(color.FgCyan, color.Bold),
		gameColor:   color.New(color.FgYellow, color.Bold),
		playerColor: color.New(color.FgCyan),
		otherColor:  color.New(color.FgMagenta),
		winColor:    color.New(color.FgGreen, color.Bold),
		errorColor:  color.New(color.FgRed),
		infoColor:   color.New(color.FgWhite),
	}
}

// PrintInfo shows a plain server message
func (d *Display) PrintInfo(message string) {
	d.infoColor.Fprintf(d.out, "Info: %s\n", message)
}

// PrintWelcome shows the server greeting
func (d *Display) PrintWelcome(message string) {
	d.serverColor.Fprintf(d.out, "Info: %s\n", message)
}

// PrintJoined confirms the seat in a game
func (d *Display) PrintJoined(gameName string) {
	d.gameColor.Fprintf(d.out, "Info: joined game %s, waiting for players\n", gameName)
}

// PrintGameStart announces the deal
func (d *Display) PrintGameStart() {
	d.gameColor.Fprintln(d.out, "Info: starting the game")
}

// PrintHand shows the hand grouped by suit
func (d *Display) PrintHand(hand game.Hand) {
	data := pterm.TableData{{"Suit", "Cards"}}
	for _, suit := range displayOrder {
		ranks := make([]string, 0, len(hand))
		for _, c := range hand.BySuit(suit) {
			ranks = append(ranks, string(game.DecodeRank(c.Rank)))
		}
		data = append(data, []string{suit.String(), strings.Join(ranks, " ")})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		// Plain fallback
		for _, row := range data[1:] {
			fmt.Fprintf(d.out, "%s: %s\n", row[0], row[1])
		}
		return
	}
	fmt.Fprintln(d.out, table)
}

// PrintPlay shows a card played to the table
func (d *Display) PrintPlay(player, card string, mine bool) {
	if mine {
		d.playerColor.Fprintf(d.out, "Info: %s plays %s\n", player, card)
		return
	}
	d.otherColor.Fprintf(d.out, "Info: %s plays %s\n", player, card)
}

// PrintTrickWinner shows who took the trick and the running score
func (d *Display) PrintTrickWinner(player, score string) {
	d.gameColor.Fprintf(d.out, "Info: %s wins the trick (%s)\n", player, score)
}

// PrintGameWinner shows the final result
func (d *Display) PrintGameWinner(result string) {
	d.winColor.Fprintf(d.out, "Info: game over, winner %s\n", result)
}

// PrintDisconnect reports that another player left mid-game
func (d *Display) PrintDisconnect() {
	d.errorColor.Fprintln(d.out, "Info: a player disconnected, game over")
}

// PrintError shows a rejection from the server
func (d *Display) PrintError(reason string) {
	d.errorColor.Fprintf(d.out, "Error: %s\n", reason)
}

// PrintInvalid reports unusable operator input
func (d *Display) PrintInvalid() {
	d.errorColor.Fprintln(d.out, "Invalid input!")
}
