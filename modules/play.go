package modules

import (
	"fmt"
	"time"

	tg "github.com/amarnathcjd/gogram/telegram"
)

// esperEventID is the daily event category played by /play.
const esperEventID = 0

// dayOrdinal changes once per local calendar day and seeds the daily
// deterministic draws.
func dayOrdinal() int64 {
	year, month, day := time.Now().Local().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// dailyPercentage is stable for a user within a day and reshuffles the next.
func dailyPercentage(userID int64) int {
	p := (userID + dayOrdinal()) % 101
	if p < 0 {
		p += 101
	}
	return int(p)
}

// eventPlayers are the members eligible to win: the owner and every admin
// the bot could promote, bots excluded.
func eventPlayers(c *tg.Client, chatID int64) []*tg.UserObj {
	admins, err := chatAdmins(c, chatID)
	if err != nil {
		Log.Warn("admin lookup failed", "chat", chatID, "err", err)
		return nil
	}
	var players []*tg.UserObj
	for _, a := range admins {
		if a.User == nil || a.User.Bot {
			continue
		}
		if a.Creator || a.CanEdit {
			players = append(players, a.User)
		}
	}
	return players
}

// PlayHandle picks today's esper of the day, at most once per chat per day.
func PlayHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	chatID := m.ChatID()
	players := eventPlayers(m.Client, chatID)
	if len(players) == 0 {
		m.Reply("Nobody can play in this chat yet.")
		return nil
	}

	pickWinner := func() string {
		winner := players[0]
		for _, p := range players[1:] {
			if dailyPercentage(p.ID) > dailyPercentage(winner.ID) {
				winner = p
			}
		}
		if err := Store.CommitWin(chatID, winner.ID, esperEventID); err != nil {
			Log.Error("event win write failed", "chat", chatID, "err", err)
		}
		return fmt.Sprintf("🔮 Today's esper is %s with %d%%!", userLink(winner), dailyPercentage(winner.ID))
	}

	passed, known, err := Store.EventDayPassed(chatID, esperEventID)
	if err != nil {
		Log.Error("event day lookup failed", "chat", chatID, "err", err)
		m.Reply("Failed to look up today's game.")
		return err
	}

	var answer string
	if passed || !known {
		answer = pickWinner()
	} else {
		winnerID, ok, err := Store.LastWinner(chatID, esperEventID)
		if err != nil {
			Log.Error("last winner lookup failed", "chat", chatID, "err", err)
			m.Reply("Failed to look up today's game.")
			return err
		}
		var winner *tg.UserObj
		for _, p := range players {
			if ok && p.ID == winnerID {
				winner = p
				break
			}
		}
		if winner != nil {
			answer = fmt.Sprintf("🔮 Today's esper is already chosen: %s", userLink(winner))
		} else {
			// The stored winner left or lost eligibility; reroll.
			answer = pickWinner()
		}
	}
	m.Reply(answer, &tg.SendOptions{LinkPreview: false})
	return nil
}

// PlayersHandle lists who can win today's game.
func PlayersHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	players := eventPlayers(m.Client, m.ChatID())
	if len(players) == 0 {
		m.Reply("Nobody can play in this chat yet.")
		return nil
	}
	var list string
	for i, p := range players {
		list += fmt.Sprintf("%d. %s\n", i+1, userLink(p))
	}
	m.Reply(list, &tg.SendOptions{LinkPreview: false})
	return nil
}

// TopEspersHandle prints the all-time winner leaderboard.
func TopEspersHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	top, err := Store.TopWinners(m.ChatID(), esperEventID, 10)
	if err != nil {
		Log.Error("top winners failed", "chat", m.ChatID(), "err", err)
		m.Reply("Failed to load the leaderboard.")
		return err
	}
	if len(top) == 0 {
		m.Reply("Nobody has won yet. Try /play.")
		return nil
	}
	board := "🏆 <b>Top espers:</b>\n"
	for i, row := range top {
		name := displayName(m.Client, row.UserID)
		board += fmt.Sprintf("%d. %s — %d\n", i+1, userLinkID(row.UserID, name), row.Count)
	}
	m.Reply(board, &tg.SendOptions{LinkPreview: false})
	return nil
}

func init() {
	Mods.AddModule("Play", `<b>Play Module</b>

A once-a-day chat lottery among the group's promotable members.

<b>Commands:</b>
 - /play - Pick (or show) today's winner
 - /players - List who can win
 - /topespers - All-time winner leaderboard`)
}
