package modules

import (
	"fmt"

	tg "github.com/amarnathcjd/gogram/telegram"
)

// LikeHandle records a like for the replied-to user.
func LikeHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	if !m.IsReply() {
		m.Reply("🤯 Reply to a message to like its author.")
		return nil
	}
	replied, err := m.GetReplyMessage()
	if err != nil {
		m.Reply("Error: " + err.Error())
		return nil
	}
	target := replied.Sender
	if target == nil {
		m.Reply("Error: User not found")
		return nil
	}

	if err := Store.AddLike(m.ChatID(), m.SenderID(), target.ID); err != nil {
		Log.Error("like write failed", "chat", m.ChatID(), "err", err)
		m.Reply("Failed to save the like.")
		return err
	}
	count, err := Store.CountLikes(m.ChatID(), target.ID)
	if err != nil {
		Log.Error("like count failed", "chat", m.ChatID(), "err", err)
		return err
	}
	m.Reply(fmt.Sprintf("👍 Like counted!\n<b>%s</b> now has %d likes!", target.FirstName, count))
	return nil
}

// TopHandle prints the chat's like leaderboard.
func TopHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	top, err := Store.TopLikes(m.ChatID(), 10)
	if err != nil {
		Log.Error("top likes failed", "chat", m.ChatID(), "err", err)
		m.Reply("Failed to load the leaderboard.")
		return err
	}
	if len(top) == 0 {
		m.Reply("No likes in this chat yet.")
		return nil
	}

	board := "🏆 <b>Top by likes:</b>\n"
	for i, row := range top {
		name := displayName(m.Client, row.UserID)
		board += fmt.Sprintf("%d. %s — %d\n", i+1, userLinkID(row.UserID, name), row.Count)
	}
	m.Reply(board, &tg.SendOptions{LinkPreview: false})
	return nil
}

func init() {
	Mods.AddModule("Likes", `<b>Likes Module</b>

A tiny reputation game. Each user has one movable like per chat.

<b>Commands:</b>
 - /like - Reply to a message to like its author
 - /top - Show the chat's like leaderboard`)
}
