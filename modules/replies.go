package modules

import (
	"math/rand"
	"strings"
	"unicode/utf8"

	tg "github.com/amarnathcjd/gogram/telegram"
)

// TriggerWatcher answers configured trigger phrases with canned text or
// stickers, and over-long messages with a short complaint. Commands and
// users mid-captcha are left to their own handlers.
func TriggerWatcher(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	if Gate != nil && Gate.HasSession(m.SenderID()) {
		return nil
	}
	if m.IsCommand() {
		return nil
	}

	if m.IsMedia() {
		return answerSticker(m)
	}

	text := m.Text()
	if text == "" {
		return nil
	}

	if max := Cfg.LongMessage.MaxLen; max > 0 && utf8.RuneCountInString(text) > max {
		if msgs := Cfg.LongMessage.Messages; len(msgs) > 0 {
			Log.Info("over-long message", "chat", m.ChatID(), "user", m.SenderID(), "len", utf8.RuneCountInString(text))
			m.Reply(msgs[rand.Intn(len(msgs))])
		}
		return nil
	}

	normalized := strings.ToLower(text)

	for _, rule := range Cfg.Replies.TextToText {
		if matchTrigger(normalized, rule.Triggers) && len(rule.Answers) > 0 {
			m.Reply(rule.Answers[rand.Intn(len(rule.Answers))])
			return nil
		}
	}
	for _, rule := range Cfg.Replies.TextToSticker {
		if matchTrigger(normalized, rule.Triggers) && rule.Sticker != "" {
			return replySticker(m, rule.Sticker)
		}
	}
	return nil
}

// matchTrigger is a normalized substring check. Typo-tolerant matching is a
// different feature and stays out.
func matchTrigger(normalized string, triggers []string) bool {
	for _, t := range triggers {
		if t != "" && strings.Contains(normalized, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

func answerSticker(m *tg.NewMessage) error {
	if m.File == nil || m.File.FileID == "" {
		return nil
	}
	for _, rule := range Cfg.Replies.StickerToSticker {
		if rule.StickerID == m.File.FileID && rule.Reply != "" {
			return replySticker(m, rule.Reply)
		}
	}
	return nil
}

func replySticker(m *tg.NewMessage, fileID string) error {
	media, err := tg.ResolveBotFileID(fileID)
	if err != nil {
		Log.Warn("bad sticker file id in config", "file_id", fileID, "err", err)
		return nil
	}
	if _, err := m.ReplyMedia(media, &tg.MediaOptions{}); err != nil {
		Log.Warn("sticker reply failed", "chat", m.ChatID(), "err", err)
	}
	return nil
}

func init() {
	Mods.AddModule("Replies", `<b>Replies Module</b>

Canned reactions configured in config.toml: trigger phrases answered with
text or stickers, stickers answered with stickers, and a short complaint
for messages past the length limit.

No commands; everything here is automatic.`)
}
