package modules

import (
	"fmt"
	"math/rand"

	tg "github.com/amarnathcjd/gogram/telegram"

	"main/modules/config"
)

func pickBucket(buckets []config.Bucket, idx int) (string, string) {
	b := buckets[idx]
	var emoji, answer string
	if len(b.Emoji) > 0 {
		emoji = b.Emoji[rand.Intn(len(b.Emoji))]
	}
	if len(b.Answer) > 0 {
		answer = b.Answer[rand.Intn(len(b.Answer))]
	}
	return emoji, answer
}

// DrinkOrNotHandle answers the eternal question, with one verdict per user
// per day.
func DrinkOrNotHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	if len(Cfg.Drinks) == 0 {
		m.Reply("No drink fortunes configured.")
		return nil
	}
	idx := int((m.SenderID() + dayOrdinal()) % int64(len(Cfg.Drinks)))
	if idx < 0 {
		idx += len(Cfg.Drinks)
	}
	emoji, answer := pickBucket(Cfg.Drinks, idx)
	m.Reply(fmt.Sprintf("%s %s", emoji, answer))
	return nil
}

// HowMuchEsperHandle rates the sender's esper powers for today.
func HowMuchEsperHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	if len(Cfg.Espers) == 0 {
		m.Reply("No esper fortunes configured.")
		return nil
	}
	percentage := dailyPercentage(m.SenderID())
	idx := percentage / (100 / len(Cfg.Espers))
	if idx > len(Cfg.Espers)-1 {
		idx = len(Cfg.Espers) - 1
	}
	emoji, answer := pickBucket(Cfg.Espers, idx)
	m.Reply(fmt.Sprintf("%s\n[%d%%] %s", emoji, percentage, answer))
	return nil
}

func init() {
	Mods.AddModule("Fun", `<b>Fun Module</b>

Daily fortunes. The verdict is fixed per user per day and reshuffles at
midnight.

<b>Commands:</b>
 - /drink_or_not - Should you drink today?
 - /how_much_esper - Your esper percentage for today`)
}
