package modules

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	tg "github.com/amarnathcjd/gogram/telegram"
)

const animeAPI = "https://shikimori.one/api/animes?order=random&score=8&limit=1"

var animeClient = &http.Client{Timeout: 10 * time.Second}

// AnimeHandle replies with a random highly-rated anime from shikimori.
func AnimeHandle(m *tg.NewMessage) error {
	if !chatAllowed(m.ChatID()) {
		return nil
	}
	req, _ := http.NewRequest("GET", animeAPI, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := animeClient.Do(req)
	if err != nil {
		Log.Warn("anime api request failed", "err", err)
		m.Reply("The anime oracle is unavailable, try later.")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		Log.Warn("anime api bad status", "status", resp.StatusCode)
		m.Reply("The anime oracle is unavailable, try later.")
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var animes []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &animes); err != nil || len(animes) == 0 {
		Log.Warn("anime api bad payload", "err", err)
		m.Reply("The anime oracle is unavailable, try later.")
		return nil
	}
	m.Reply("https://shikimori.one" + animes[0].URL)
	return nil
}

func init() {
	Mods.AddModule("Anime", `<b>Anime Module</b>

<b>Commands:</b>
 - /anime - A random anime with a score of 8 or higher`)
}
