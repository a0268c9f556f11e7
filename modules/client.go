package modules

import (
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tg "github.com/amarnathcjd/gogram/telegram"

	"main/modules/captcha"
	"main/modules/config"
	"main/modules/eventqueue"
	"main/modules/store"
)

// captchaTickInterval drives the countdown once per second of wall clock.
const captchaTickInterval = time.Second

var (
	Client      *tg.Client
	OwnerId     int64
	LoadModules bool

	Cfg   *config.Config
	Store *store.Store
	Gate  *captcha.Manager
	Log   *slog.Logger
)

// Setup wires the shared collaborators before any handler registration.
func Setup(c *tg.Client, cfg *config.Config, st *store.Store, log *slog.Logger) {
	Client = c
	Cfg = cfg
	Store = st
	Log = log

	queue := eventqueue.New(log.With("component", "eventqueue"), captchaTickInterval)
	renderer := captcha.NewImageRenderer(captcha.ImageConfig{
		FontPath:    cfg.Captcha.Gen.FontPath,
		FontSize:    cfg.Captcha.Gen.FontSize,
		MaxRotation: cfg.Captcha.Gen.MaxRotation,
		MarginWidth: cfg.Captcha.Gen.MarginsWidth,
		MarginColor: cfg.Captcha.Gen.MarginsColor,
	})
	Gate = captcha.NewManager(captcha.Config{
		Length:        cfg.Captcha.Gen.Length,
		BannedSymbols: cfg.Captcha.Gen.BannedSymbols,
		Timer:         cfg.Captcha.Validate.Timer,
		UpdateFreq:    cfg.Captcha.Validate.UpdateFreq,
		Attempts:      cfg.Captcha.Validate.Attempts,
		BarLength:     cfg.Captcha.Validate.BarLength,
		Greeting:      cfg.Captcha.Greeting,
	}, gramChat{c}, renderer, queue, log.With("component", "captcha"))
	Gate.GreetingFunc = chatGreeting
}

func SetupFilters(ownerId int64, loadModules bool) {
	OwnerId = ownerId
	LoadModules = loadModules
}

func FilterOwner(m *tg.NewMessage) bool {
	if m.SenderID() == OwnerId {
		return true
	}
	m.Reply("You are not allowed to use this command")
	return false
}

// chatAllowed gates every group feature on the configured chat whitelist.
func chatAllowed(chatID int64) bool {
	return Cfg != nil && Cfg.ChatAllowed(chatID)
}

// userLink renders an HTML mention that works without a username.
func userLink(user *tg.UserObj) string {
	if user == nil {
		return "someone"
	}
	return userLinkID(user.ID, user.FirstName)
}

func userLinkID(userID int64, name string) string {
	if name == "" {
		name = strconv.FormatInt(userID, 10)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, html.EscapeString(name))
}

// adminInfo is one entry of a chat's admin list.
type adminInfo struct {
	User    *tg.UserObj
	Rank    string
	Creator bool
	CanEdit bool
	Rights  *tg.ChatAdminRights
}

// chatAdmins lists a supergroup's administrators with their custom titles.
func chatAdmins(c *tg.Client, chatID int64) ([]adminInfo, error) {
	peer, err := c.ResolvePeer(chatID)
	if err != nil {
		return nil, err
	}
	channel, ok := peer.(*tg.InputPeerChannel)
	if !ok {
		return nil, fmt.Errorf("chat %d is not a supergroup", chatID)
	}
	res, err := c.ChannelsGetParticipants(
		&tg.InputChannelObj{ChannelID: channel.ChannelID, AccessHash: channel.AccessHash},
		&tg.ChannelParticipantsAdmins{}, 0, 200, 0)
	if err != nil {
		return nil, err
	}
	parts, ok := res.(*tg.ChannelsChannelParticipantsObj)
	if !ok {
		return nil, fmt.Errorf("unexpected participants response %T", res)
	}

	users := make(map[int64]*tg.UserObj, len(parts.Users))
	for _, u := range parts.Users {
		if uo, ok := u.(*tg.UserObj); ok {
			users[uo.ID] = uo
		}
	}

	var admins []adminInfo
	for _, p := range parts.Participants {
		switch a := p.(type) {
		case *tg.ChannelParticipantAdmin:
			admins = append(admins, adminInfo{
				User:    users[a.UserID],
				Rank:    a.Rank,
				CanEdit: a.CanEdit,
				Rights:  a.AdminRights,
			})
		case *tg.ChannelParticipantCreator:
			admins = append(admins, adminInfo{
				User:    users[a.UserID],
				Rank:    a.Rank,
				Creator: true,
			})
		}
	}
	return admins, nil
}

// isChatAdmin reports whether the user is an admin or the owner of the chat.
func isChatAdmin(c *tg.Client, chatID, userID int64) bool {
	admins, err := chatAdmins(c, chatID)
	if err != nil {
		if Log != nil {
			Log.Warn("admin lookup failed", "chat", chatID, "err", err)
		}
		return false
	}
	for _, a := range admins {
		if a.User != nil && a.User.ID == userID {
			return true
		}
	}
	return false
}

// displayName resolves a short readable name for a user id.
func displayName(c *tg.Client, userID int64) string {
	if user, err := c.GetUser(userID); err == nil && user != nil {
		name := user.FirstName
		if user.Username != "" {
			name = name + " (@" + user.Username + ")"
		}
		return strings.TrimSpace(name)
	}
	return strconv.FormatInt(userID, 10)
}
