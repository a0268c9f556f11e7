package modules

import (
	"strings"

	tg "github.com/amarnathcjd/gogram/telegram"

	"main/modules/db"
)

const captchaRefreshData = "captcha_refresh"

// gramChat adapts the gogram client to the captcha manager's chat interface.
type gramChat struct {
	c *tg.Client
}

func refreshKeyboard() *tg.ReplyInlineMarkup {
	b := tg.Button
	return tg.NewKeyboard().AddRow(b.Data("Update captcha 🔄", captchaRefreshData)).Build()
}

func (g gramChat) SendChallenge(chatID int64, image []byte, caption string) (int32, error) {
	msg, err := g.c.SendMedia(chatID, image, &tg.MediaOptions{
		Caption:     caption,
		ReplyMarkup: refreshKeyboard(),
		Attributes: []tg.DocumentAttribute{
			&tg.DocumentAttributeFilename{FileName: "captcha.png"},
		},
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (g gramChat) EditCaption(chatID int64, msgID int32, caption string) error {
	_, err := g.c.EditMessage(chatID, msgID, caption, &tg.SendOptions{
		ReplyMarkup: refreshKeyboard(),
	})
	return err
}

func (g gramChat) ReplaceChallenge(chatID int64, msgID int32, image []byte, caption string) error {
	_, err := g.c.EditMessage(chatID, msgID, "", &tg.SendOptions{
		Caption:     caption,
		Media:       image,
		ReplyMarkup: refreshKeyboard(),
	})
	return err
}

func (g gramChat) DeleteMessage(chatID int64, msgID int32) error {
	_, err := g.c.DeleteMessages(chatID, []int32{msgID})
	return err
}

func (g gramChat) SendText(chatID int64, text string) error {
	_, err := g.c.SendMessage(chatID, text)
	return err
}

func (g gramChat) KickMember(chatID, userID int64) error {
	user, err := g.c.ResolvePeer(userID)
	if err != nil {
		return err
	}
	_, err = g.c.KickParticipant(chatID, user)
	return err
}

// captchaEnabled folds the per-chat runtime toggle over the default-on gate.
func captchaEnabled(chatID int64) bool {
	settings, err := db.GetChatSettings(chatID)
	if err != nil {
		Log.Warn("settings lookup failed", "chat", chatID, "err", err)
		return true
	}
	return !settings.CaptchaDisabled
}

func chatGreeting(chatID int64) string {
	settings, err := db.GetChatSettings(chatID)
	if err == nil && settings.Greeting != "" {
		return settings.Greeting
	}
	return Cfg.Captcha.Greeting
}

// MemberUpdateHandle routes join and leave events into the captcha gate.
func MemberUpdateHandle(p *tg.ParticipantUpdate) error {
	chatID := p.ChatID()
	if !chatAllowed(chatID) {
		return nil
	}
	switch {
	case p.IsJoined() || p.IsAdded():
		if p.User == nil || !captchaEnabled(chatID) {
			return nil
		}
		Gate.OnMemberJoined(chatID, p.User.ID, p.User.Bot)
	case p.IsLeft() || p.IsKicked():
		if p.User != nil {
			Gate.OnMemberLeft(p.User.ID)
		}
	}
	return nil
}

// CaptchaWatcher intercepts every message from a user mid-verification and
// treats it as an answer attempt. Other users' messages pass through.
func CaptchaWatcher(m *tg.NewMessage) error {
	if m.IsPrivate() || Gate == nil || !Gate.HasSession(m.SenderID()) {
		return nil
	}
	Gate.OnVerifyMessage(m.ChatID(), m.SenderID(), m.ID, m.Text())
	return nil
}

func CaptchaRefreshCallback(c *tg.CallbackQuery) error {
	if !Gate.OnRegenerate(c.SenderID) {
		c.Answer("This button is not for you", &tg.CallbackOptions{Alert: true})
		return nil
	}
	c.Answer("Captcha updated")
	return nil
}

// CaptchaToggleHandle implements /captcha on|off|status for chat admins.
func CaptchaToggleHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	arg := strings.ToLower(strings.TrimSpace(m.Args()))
	if arg == "" || arg == "status" {
		if captchaEnabled(m.ChatID()) {
			m.Reply("Captcha gate is <b>enabled</b> for new members.")
		} else {
			m.Reply("Captcha gate is <b>disabled</b>.")
		}
		return nil
	}
	if !isChatAdmin(m.Client, m.ChatID(), m.SenderID()) {
		m.Reply("Only admins can change the captcha gate.")
		return nil
	}

	settings, err := db.GetChatSettings(m.ChatID())
	if err != nil {
		m.Reply("Failed to load chat settings.")
		return err
	}
	switch arg {
	case "on", "enable":
		settings.CaptchaDisabled = false
	case "off", "disable":
		settings.CaptchaDisabled = true
	default:
		m.Reply("Usage: /captcha on|off|status")
		return nil
	}
	if err := db.SetChatSettings(m.ChatID(), settings); err != nil {
		m.Reply("Failed to save chat settings.")
		return err
	}
	m.Reply("Captcha gate updated.")
	return nil
}

// SetGreetingHandle stores a per-chat greeting override.
func SetGreetingHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	if !isChatAdmin(m.Client, m.ChatID(), m.SenderID()) {
		m.Reply("Only admins can change the greeting.")
		return nil
	}
	greeting := strings.TrimSpace(m.Args())
	if greeting == "" {
		m.Reply("Usage: /setgreeting <text>")
		return nil
	}

	settings, err := db.GetChatSettings(m.ChatID())
	if err != nil {
		m.Reply("Failed to load chat settings.")
		return err
	}
	settings.Greeting = greeting
	if err := db.SetChatSettings(m.ChatID(), settings); err != nil {
		m.Reply("Failed to save chat settings.")
		return err
	}
	m.Reply("Greeting updated.")
	return nil
}

func ClearGreetingHandle(m *tg.NewMessage) error {
	if m.IsPrivate() || !chatAllowed(m.ChatID()) {
		return nil
	}
	if !isChatAdmin(m.Client, m.ChatID(), m.SenderID()) {
		m.Reply("Only admins can change the greeting.")
		return nil
	}

	settings, err := db.GetChatSettings(m.ChatID())
	if err != nil {
		m.Reply("Failed to load chat settings.")
		return err
	}
	settings.Greeting = ""
	if err := db.SetChatSettings(m.ChatID(), settings); err != nil {
		m.Reply("Failed to save chat settings.")
		return err
	}
	m.Reply("Greeting reset to the configured default.")
	return nil
}

func init() {
	Mods.AddModule("Captcha", `<b>Captcha Module</b>

New members must solve an image captcha before chatting. Users who time out
or run out of attempts are removed from the group.

<b>Commands:</b>
 - /captcha on|off|status - Toggle the captcha gate (admins)
 - /setgreeting <text> - Override the post-captcha greeting (admins)
 - /cleargreeting - Restore the default greeting (admins)

<b>How it works:</b>
The challenge message shows a countdown and the attempts left. The
"Update captcha" button redraws the image without resetting the timer.`)
}
