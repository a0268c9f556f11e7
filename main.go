package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	tg "github.com/amarnathcjd/gogram/telegram"
	dotenv "github.com/joho/godotenv"

	"main/modules"
	"main/modules/config"
	"main/modules/db"
	"main/modules/store"
)

const LoadModules = true

var startTimeStamp = time.Now().Unix()
var ownerId int64 = 0

func main() {
	dotenv.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	ownerId, _ = strconv.ParseInt(os.Getenv("OWNER_ID"), 10, 64)

	cfg, err := config.Load("config.toml")
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}

	db.SetPath(cfg.SettingsPath)
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()
	defer db.CloseDB()

	appId, _ := strconv.Atoi(os.Getenv("APP_ID"))
	client, err := tg.NewClient(tg.ClientConfig{
		AppID:    int32(appId),
		AppHash:  os.Getenv("APP_HASH"),
		LogLevel: tg.LogInfo,
		Session:  "session.dat",
	})
	if err != nil {
		panic(err)
	}
	client.LogColor(false)

	client.Conn()
	client.LoginBot(os.Getenv("BOT_TOKEN"))

	modules.Setup(client, cfg, st, log)
	initFunc(client)

	me, err := client.GetMe()
	if err != nil {
		panic(err)
	}

	client.Logger.Info(fmt.Sprintf("Authenticated as @%s, in %s.", me.Username, time.Since(time.Unix(startTimeStamp, 0)).String()))
	client.Idle()
}
