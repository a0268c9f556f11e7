package main

import (
	"main/modules"

	"github.com/amarnathcjd/gogram/telegram"
)

func FilterOwner(m *telegram.NewMessage) bool {
	if m.SenderID() == ownerId {
		return true
	}
	m.Reply("You are not allowed to use this command")
	return false
}

func initFunc(c *telegram.Client) {
	c.UpdatesGetState()
	c.SetCommandPrefixes("./!-?")
	modules.SetupFilters(ownerId, LoadModules)

	if LoadModules {
		c.On("cmd:start", modules.StartHandle)
		c.On("cmd:help", modules.HelpHandle)
		c.On("cmd:ping", modules.PingHandle)
		c.On("cmd:sys", modules.SysHandle, telegram.Custom(FilterOwner))

		c.On("cmd:like", modules.LikeHandle)
		c.On("cmd:top", modules.TopHandle)

		c.On("cmd:rename", modules.RenameHandle)
		c.On("cmd:reg", modules.RegHandle)

		c.On("cmd:play", modules.PlayHandle)
		c.On("cmd:players", modules.PlayersHandle)
		c.On("cmd:topespers", modules.TopEspersHandle)

		c.On("cmd:anime", modules.AnimeHandle)
		c.On("cmd:drink_or_not", modules.DrinkOrNotHandle)
		c.On("cmd:how_much_esper", modules.HowMuchEsperHandle)

		c.On("cmd:captcha", modules.CaptchaToggleHandle)
		c.On("cmd:setgreeting", modules.SetGreetingHandle)
		c.On("cmd:cleargreeting", modules.ClearGreetingHandle)

		c.On("callback:captcha_refresh", modules.CaptchaRefreshCallback)
		c.On("callback:title:(.*)", modules.TitleCallbackHandle)
		c.On("callback:help_back", modules.HelpBackCallback)

		c.On(telegram.OnParticipant, modules.MemberUpdateHandle)
		c.On(telegram.OnNewMessage, modules.CaptchaWatcher)
		c.On(telegram.OnNewMessage, modules.TriggerWatcher)

		modules.Mods.Init(c)
	}
}
