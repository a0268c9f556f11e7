package modules

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	tg "github.com/amarnathcjd/gogram/telegram"
)

// Callback payloads for the title game are JSON behind a routing prefix so
// a press carries the action, the button owner and its arguments.
const titlePayloadPrefix = "title:"

const stolenRank = "stolen"

type titleAction string

const (
	actionRenameMenu titleAction = "menu"
	actionStealMenu  titleAction = "steal"
	actionStealTitle titleAction = "take"
	actionRandomD6   titleAction = "lucky"
	actionPickD6     titleAction = "d6"
)

type titlePayload struct {
	Action titleAction `json:"a"`
	UserID int64       `json:"u"`
	Page   int         `json:"p,omitempty"`
	Target int64       `json:"t,omitempty"`
	Dice   int         `json:"d,omitempty"`
}

func titleData(p titlePayload) string {
	data, _ := json.Marshal(p)
	return titlePayloadPrefix + string(data)
}

type rollStatus int

const (
	rollInstant rollStatus = iota // user never rolled in this chat
	rollGiveOld                   // stored title differs from the chat rank
	rollReady                     // a day passed since the last roll
	rollWait                      // already rolled today
)

func titleRollStatus(c *tg.Client, chatID, userID int64) rollStatus {
	passed, known, err := Store.TitleDayPassed(chatID, userID)
	if err != nil {
		Log.Error("title day lookup failed", "chat", chatID, "user", userID, "err", err)
		return rollWait
	}
	if !known {
		return rollInstant
	}
	stored, err := Store.UserTitle(chatID, userID)
	if err != nil {
		Log.Error("title lookup failed", "chat", chatID, "user", userID, "err", err)
		return rollWait
	}
	if stored != "" && stored != adminRank(c, chatID, userID) {
		return rollGiveOld
	}
	if passed {
		return rollReady
	}
	return rollWait
}

func adminRank(c *tg.Client, chatID, userID int64) string {
	admins, err := chatAdmins(c, chatID)
	if err != nil {
		Log.Warn("admin lookup failed", "chat", chatID, "err", err)
		return ""
	}
	for _, a := range admins {
		if a.User != nil && a.User.ID == userID {
			return a.Rank
		}
	}
	return ""
}

// applyTitle promotes the user (invite right only) and sets their custom
// title. Returns a user-facing warning when the chat refuses the change.
func applyTitle(c *tg.Client, chatID, userID int64, title string) string {
	_, err := c.EditAdmin(chatID, userID, &tg.AdminOptions{
		IsAdmin: true,
		Rights:  &tg.ChatAdminRights{InviteUsers: true},
		Rank:    title,
	})
	if err != nil {
		Log.Warn("title apply failed", "chat", chatID, "user", userID, "title", title, "err", err)
		return fmt.Sprintf("⚠️ Could not set %q in the chat: ask an admin to promote me.", title)
	}
	return ""
}

// grantRandomTitle rolls a new title, stores it and applies it in the chat.
func grantRandomTitle(c *tg.Client, chatID, userID int64) string {
	title := Cfg.Titles.Random()
	if err := Store.UpdateTitle(chatID, userID, title); err != nil {
		Log.Error("title write failed", "chat", chatID, "user", userID, "err", err)
	}
	text := fmt.Sprintf("🎉 Your new title: <b>%s</b>", title)
	if warn := applyTitle(c, chatID, userID, title); warn != "" {
		text += "\n" + warn
	}
	return text
}

func grantStoredTitle(c *tg.Client, chatID, userID int64) string {
	title, err := Store.UserTitle(chatID, userID)
	if err != nil || title == "" {
		return "You have no stored title yet, try /rename."
	}
	text := fmt.Sprintf("📜 Your old title is back: <b>%s</b>", title)
	if warn := applyTitle(c, chatID, userID, title); warn != "" {
		text += "\n" + warn
	}
	return text
}

// rollD6 is the house die. A picked number wins on an exact match; the
// "feeling lucky" and steal rolls win on a 5 or a 6.
func rollD6(expected int) (int, bool) {
	value := rand.Intn(6) + 1
	if expected > 0 {
		return value, value == expected
	}
	return value, value >= 5
}

func renameMenu(userID int64) *tg.ReplyInlineMarkup {
	b := tg.Button
	var numbers []tg.KeyboardButton
	for i := 1; i <= 6; i++ {
		numbers = append(numbers, b.Data(fmt.Sprint(i), titleData(titlePayload{
			Action: actionPickD6, UserID: userID, Dice: i,
		})))
	}
	return tg.NewKeyboard().
		AddRow(numbers...).
		AddRow(b.Data("I'm feeling lucky", titleData(titlePayload{Action: actionRandomD6, UserID: userID}))).
		AddRow(b.Data("Steal a title", titleData(titlePayload{Action: actionStealMenu, UserID: userID}))).
		Build()
}

const stealPageSize = 9

// stealTargets lists admins whose chat rank matches their stored title, so
// only titles won through the game can be stolen.
func stealTargets(c *tg.Client, chatID, exceptUserID int64) []adminInfo {
	stored, err := Store.UserTitles(chatID)
	if err != nil {
		Log.Error("titles lookup failed", "chat", chatID, "err", err)
		return nil
	}
	admins, err := chatAdmins(c, chatID)
	if err != nil {
		Log.Warn("admin lookup failed", "chat", chatID, "err", err)
		return nil
	}
	var targets []adminInfo
	for _, a := range admins {
		if a.User == nil || a.User.ID == exceptUserID {
			continue
		}
		if title, ok := stored[a.User.ID]; ok && title == a.Rank && title != "" {
			targets = append(targets, a)
		}
	}
	return targets
}

func stealMenu(c *tg.Client, chatID, userID int64, page int) *tg.ReplyInlineMarkup {
	b := tg.Button
	targets := stealTargets(c, chatID, userID)

	start := page * stealPageSize
	end := start + stealPageSize
	if start > len(targets) {
		start = len(targets)
	}
	if end > len(targets) {
		end = len(targets)
	}
	hasMore := end < len(targets)

	kb := tg.NewKeyboard()
	for _, t := range targets[start:end] {
		label := t.Rank + " | " + t.User.FirstName
		if t.User.Username != "" {
			label = t.Rank + " | " + t.User.Username
		}
		kb.AddRow(b.Data(label, titleData(titlePayload{
			Action: actionStealTitle, UserID: userID, Target: t.User.ID,
		})))
	}

	back := b.Data("◀️", titleData(titlePayload{Action: actionStealMenu, UserID: userID, Page: page - 1}))
	forward := b.Data("▶️", titleData(titlePayload{Action: actionStealMenu, UserID: userID, Page: page + 1}))
	switch {
	case page > 0 && hasMore:
		kb.AddRow(back, forward)
	case page > 0:
		kb.AddRow(back)
	case hasMore:
		kb.AddRow(forward)
	}
	kb.AddRow(b.Data("🟣 Back", titleData(titlePayload{Action: actionRenameMenu, UserID: userID})))
	return kb.Build()
}

// RenameHandle starts the title game: an instant roll for first-timers, the
// stored title when the chat lost it, the dice menu when a day passed.
func RenameHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	chatID, userID := m.ChatID(), m.SenderID()
	switch titleRollStatus(m.Client, chatID, userID) {
	case rollInstant:
		m.Reply(grantRandomTitle(m.Client, chatID, userID))
	case rollGiveOld:
		m.Reply(grantStoredTitle(m.Client, chatID, userID))
	case rollReady:
		m.Reply("🎲 Pick a number, steal a title, or trust your luck:", &tg.SendOptions{
			ReplyMarkup: renameMenu(userID),
		})
	case rollWait:
		m.Reply("You already rolled today. Come back tomorrow.")
	}
	return nil
}

// RegHandle re-applies a lost title or rolls the first one. Unlike /rename
// it never opens the dice menu.
func RegHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	chatID, userID := m.ChatID(), m.SenderID()
	switch titleRollStatus(m.Client, chatID, userID) {
	case rollInstant:
		m.Reply(grantRandomTitle(m.Client, chatID, userID))
	case rollGiveOld:
		m.Reply(grantStoredTitle(m.Client, chatID, userID))
	default:
		m.Reply("You are already registered. Use /rename to roll for a new title.")
	}
	return nil
}

// TitleCallbackHandle routes the title game's button presses.
func TitleCallbackHandle(c *tg.CallbackQuery) error {
	brokenButton := func(reason string) error {
		Log.Warn("broken title button", "chat", c.ChatID, "user", c.SenderID, "reason", reason)
		c.Answer("Sorry, this button doesn't work...", &tg.CallbackOptions{Alert: true})
		return nil
	}

	raw := strings.TrimPrefix(c.DataString(), titlePayloadPrefix)
	var payload titlePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return brokenButton("unparseable payload")
	}
	if payload.UserID == 0 {
		return brokenButton("missing user id")
	}
	if c.SenderID != payload.UserID {
		c.Answer("This button is not for you", &tg.CallbackOptions{Alert: true})
		return nil
	}

	chatID, userID := c.ChatID, c.SenderID
	edit := func(text string, kb *tg.ReplyInlineMarkup) {
		opts := &tg.SendOptions{}
		if kb != nil {
			opts.ReplyMarkup = kb
		}
		if _, err := c.Edit(text, opts); err != nil {
			Log.Warn("title menu edit failed", "chat", chatID, "err", err)
		}
	}

	// Every action except the menus consumes the daily roll, so gate on
	// the same status the command entry points use.
	switch payload.Action {
	case actionRenameMenu:
		edit("🎲 Pick a number, steal a title, or trust your luck:", renameMenu(userID))
	case actionStealMenu:
		if payload.Page < 0 {
			return brokenButton("negative page")
		}
		edit("Whose title do you want? Stealing still takes a lucky roll.", stealMenu(c.Client, chatID, userID, payload.Page))
	case actionPickD6:
		if payload.Dice < 1 || payload.Dice > 6 {
			return brokenButton("dice value out of range")
		}
		if titleRollStatus(c.Client, chatID, userID) != rollReady {
			c.Answer("You already rolled today", &tg.CallbackOptions{Alert: true})
			return nil
		}
		value, success := rollD6(payload.Dice)
		if success {
			edit(fmt.Sprintf("🎲 Rolled %d!\n%s", value, grantRandomTitle(c.Client, chatID, userID)), nil)
		} else {
			if err := Store.CommitDiceRoll(chatID, userID); err != nil {
				Log.Error("dice roll write failed", "chat", chatID, "user", userID, "err", err)
			}
			edit(fmt.Sprintf("🎲 You picked %d, the die says %d. Try again tomorrow.", payload.Dice, value), nil)
		}
	case actionRandomD6:
		if titleRollStatus(c.Client, chatID, userID) != rollReady {
			c.Answer("You already rolled today", &tg.CallbackOptions{Alert: true})
			return nil
		}
		value, success := rollD6(0)
		if success {
			edit(fmt.Sprintf("🎲 Rolled %d!\n%s", value, grantRandomTitle(c.Client, chatID, userID)), nil)
		} else {
			if err := Store.CommitDiceRoll(chatID, userID); err != nil {
				Log.Error("dice roll write failed", "chat", chatID, "user", userID, "err", err)
			}
			edit(fmt.Sprintf("🎲 The die says %d. Not your day, try again tomorrow.", value), nil)
		}
	case actionStealTitle:
		if payload.Target == 0 {
			return brokenButton("missing target")
		}
		if titleRollStatus(c.Client, chatID, userID) != rollReady {
			c.Answer("You already rolled today", &tg.CallbackOptions{Alert: true})
			return nil
		}
		handleSteal(c, chatID, userID, payload.Target, edit)
	default:
		return brokenButton("unknown action")
	}
	return nil
}

func handleSteal(c *tg.CallbackQuery, chatID, userID, targetID int64, edit func(string, *tg.ReplyInlineMarkup)) {
	value, success := rollD6(0)
	if !success {
		if err := Store.CommitDiceRoll(chatID, userID); err != nil {
			Log.Error("dice roll write failed", "chat", chatID, "user", userID, "err", err)
		}
		edit(fmt.Sprintf("🎲 The die says %d. Thief, no stealing today!", value), nil)
		return
	}

	title, err := Store.UserTitle(chatID, targetID)
	if err != nil || title == "" {
		edit("That title is already gone.", nil)
		return
	}

	var warnings string
	if warn := applyTitle(c.Client, chatID, targetID, stolenRank); warn != "" {
		warnings += "\n" + warn
	}
	if err := Store.UpdateTitle(chatID, userID, title); err != nil {
		Log.Error("title write failed", "chat", chatID, "user", userID, "err", err)
	}
	if warn := applyTitle(c.Client, chatID, userID, title); warn != "" {
		warnings += "\n" + warn
	}
	if err := Store.ResetUser(chatID, targetID); err != nil {
		Log.Error("title reset failed", "chat", chatID, "user", targetID, "err", err)
	}

	targetName := displayName(c.Client, targetID)
	edit(fmt.Sprintf("🎲 Rolled %d! %s stole <b>%s</b> from %s.%s",
		value, userLinkID(userID, displayName(c.Client, userID)),
		title, userLinkID(targetID, targetName), warnings), nil)
}

func init() {
	Mods.AddModule("Titles", `<b>Titles Module</b>

A daily dice game for admin custom titles.

<b>Commands:</b>
 - /rename - Roll the dice for a fresh random title, or steal one
 - /reg - Re-apply your stored title after the chat lost it

<b>Rules:</b>
One roll per day. Picking a number wins on an exact match, the lucky roll
and stealing win on a 5 or 6. Losing a roll stamps the day anyway.`)
}
