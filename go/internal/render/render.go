// Package render turns game state into transport-neutral messages.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/card"
	"github.com/mcdev12/lotto/go/internal/messenger"
	"github.com/mcdev12/lotto/go/internal/models"
)

// Callback actions carried in button data.
const (
	ActionPlay        = "play"
	ActionPlayFriends = "play_friends"
	ActionStart       = "start"
	ActionMark        = "mark"
	ActionLeave       = "leave"
	ActionCard        = "card"
	ActionWait        = "wait"
	ActionHelp        = "help"
	ActionNoop        = "noop"
)

// InvitePrefix precedes the token in deep-link start payloads.
const InvitePrefix = "game_"

const helpText = `How to play:
- Press "Play" to join the public game, or "Play with friends" to open a private one and share its link.
- A public game starts 60 seconds after a second player joins. The creator of a private game starts it when at least 2 players are in.
- Every player gets a card with 15 numbers. A number is drawn every 5 seconds.
- Tap a number on your card once it has been drawn to mark it.
- The first player to mark all 15 numbers wins.
- "Wait" puts you on the list to hear when the current game ends.`

func MainMenu() messenger.Message {
	return messenger.Message{
		Text: "Welcome to Lotto! Pick a game.",
		Buttons: [][]messenger.Button{
			{{Label: "Play", Data: ActionPlay}, {Label: "Play with friends", Data: ActionPlayFriends}},
			{{Label: "Wait for next game", Data: ActionWait}, {Label: "Help", Data: ActionHelp}},
		},
	}
}

func Help() messenger.Message {
	return messenger.Message{
		Text:    helpText,
		Buttons: [][]messenger.Button{{{Label: "Play", Data: ActionPlay}}},
	}
}

// InviteLink builds the deep link that joins a private game.
func InviteLink(botUsername, token string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s%s", botUsername, InvitePrefix, token)
}

// ParseInvite extracts the token from a start payload.
func ParseInvite(payload string) (string, bool) {
	token, ok := strings.CutPrefix(strings.TrimSpace(payload), InvitePrefix)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func PrivateCreated(sess *models.Session, botUsername string) messenger.Message {
	return messenger.Message{
		Text: fmt.Sprintf("Private game created. Share this link with friends:\n%s\n\nPress Start once at least 2 players have joined.",
			InviteLink(botUsername, sess.InviteToken)),
		Buttons: [][]messenger.Button{
			{{Label: "Start", Data: StartData(sess.ID)}},
			{{Label: "Leave", Data: ActionLeave}},
		},
	}
}

func StartData(sessionID uuid.UUID) string {
	return ActionStart + ":" + sessionID.String()
}

func MarkData(cardID uuid.UUID, n int) string {
	return fmt.Sprintf("%s:%s:%d", ActionMark, cardID, n)
}

// ParseMark decodes mark button data.
func ParseMark(data string) (uuid.UUID, int, bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != ActionMark {
		return uuid.Nil, 0, false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, 0, false
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 || n > models.MaxNumber {
		return uuid.Nil, 0, false
	}
	return id, n, true
}

// ParseStart decodes start button data.
func ParseStart(data string) (uuid.UUID, bool) {
	raw, ok := strings.CutPrefix(data, ActionStart+":")
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func Waiting(count, needed int) messenger.Message {
	return messenger.Message{
		Text: fmt.Sprintf("Waiting for players: %d joined, %d needed to start.", count, needed),
		Buttons: [][]messenger.Button{
			{{Label: "My card", Data: ActionCard}, {Label: "Leave", Data: ActionLeave}},
		},
	}
}

func PlayerJoined(name string, count int) messenger.Message {
	return messenger.Message{Text: fmt.Sprintf("%s joined the game. Players: %d.", name, count)}
}

func PlayerLeft(name string, count int) messenger.Message {
	return messenger.Message{Text: fmt.Sprintf("%s left the game. Players: %d.", name, count)}
}

func Countdown(seconds int) messenger.Message {
	return messenger.Message{Text: fmt.Sprintf("The game starts in %d seconds.", seconds)}
}

func CountdownReverted(count, needed int) messenger.Message {
	return messenger.Message{
		Text: fmt.Sprintf("Countdown stopped: %d of %d players left. Waiting for more players.", count, needed),
	}
}

func GameStarted() messenger.Message {
	return messenger.Message{Text: "The game has started! Numbers are drawn every 5 seconds. Good luck!"}
}

func NumberDrawn(n, sequence int) messenger.Message {
	return messenger.Message{
		Text:    fmt.Sprintf("Number %d (draw %d of %d)", n, sequence, models.MaxNumber),
		Buttons: [][]messenger.Button{{{Label: "My card", Data: ActionCard}}},
	}
}

func Waitlisted() messenger.Message {
	return messenger.Message{Text: "A game is already running. You are on the waiting list and will be told when it ends."}
}

func YouWon() messenger.Message {
	return messenger.Message{
		Text:    "Congratulations, you won!",
		Buttons: [][]messenger.Button{{{Label: "Play again", Data: ActionPlay}}},
	}
}

func GameOver(winnerName string) messenger.Message {
	return messenger.Message{
		Text:    fmt.Sprintf("Game over. The winner is %s.", winnerName),
		Buttons: [][]messenger.Button{{{Label: "Play again", Data: ActionPlay}}},
	}
}

func NoWinner() messenger.Message {
	return messenger.Message{
		Text:    "All numbers have been drawn and nobody completed a card. Game over.",
		Buttons: [][]messenger.Button{{{Label: "Play again", Data: ActionPlay}}},
	}
}

func Cancelled() messenger.Message {
	return messenger.Message{
		Text:    "The game was cancelled: not enough players.",
		Buttons: [][]messenger.Button{{{Label: "Play again", Data: ActionPlay}}},
	}
}

func Interrupted() messenger.Message {
	return messenger.Message{
		Text:    "The game was interrupted by a restart. Please start a new one.",
		Buttons: [][]messenger.Button{{{Label: "Play", Data: ActionPlay}}},
	}
}

func Reset() messenger.Message {
	return messenger.Message{
		Text:    "The game was stopped by an administrator. Please start a new one.",
		Buttons: [][]messenger.Button{{{Label: "Play", Data: ActionPlay}}},
	}
}

// WaitlistEnded is sent to waitlisted users when their session finishes.
func WaitlistEnded() messenger.Message {
	return messenger.Message{
		Text: "The game you were waiting for has ended. Create or join a new game.",
		Buttons: [][]messenger.Button{
			{{Label: "Play", Data: ActionPlay}, {Label: "Play with friends", Data: ActionPlayFriends}},
		},
	}
}

func Left() messenger.Message {
	return messenger.Message{
		Text:    "You left the game.",
		Buttons: [][]messenger.Button{{{Label: "Play", Data: ActionPlay}}},
	}
}

// Card renders the card as a 3x8 grid of mark buttons. Marked numbers are
// bracketed; empty cells are inert.
func Card(c *models.Card, sess *models.Session, promo *models.Promo) messenger.Message {
	grid := card.Layout(c)
	buttons := make([][]messenger.Button, 0, models.Rows+1)
	for r := range grid {
		row := make([]messenger.Button, 0, models.Bands)
		for _, n := range grid[r] {
			switch {
			case n == 0:
				row = append(row, messenger.Button{Label: "·", Data: ActionNoop})
			case c.IsMarked(n):
				row = append(row, messenger.Button{Label: fmt.Sprintf("[%d]", n), Data: ActionNoop})
			default:
				row = append(row, messenger.Button{Label: strconv.Itoa(n), Data: MarkData(c.ID, n)})
			}
		}
		buttons = append(buttons, row)
	}
	buttons = append(buttons, []messenger.Button{
		{Label: "Refresh", Data: ActionCard},
		{Label: "Leave", Data: ActionLeave},
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Your card: %d of %d marked.", len(c.Marked), models.CardSize)
	if sess != nil {
		switch sess.Status {
		case models.SessionStatusRunning:
			if k := len(sess.Drawn); k > 0 {
				fmt.Fprintf(&b, "\nLast number: %d (%d drawn).", sess.Drawn[k-1], k)
			} else {
				b.WriteString("\nNo numbers drawn yet.")
			}
		case models.SessionStatusPreparing:
			b.WriteString("\nThe game is about to start.")
		default:
			fmt.Fprintf(&b, "\nWaiting for players (%d joined).", len(sess.Participants))
		}
	}

	msg := messenger.Message{Text: b.String(), Buttons: buttons}
	if promo != nil {
		msg.MediaRef = promo.MediaRef
		if promo.Caption != "" {
			msg.Text = promo.Caption + "\n\n" + msg.Text
		}
	}
	return msg
}
