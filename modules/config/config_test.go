package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

const sampleConfig = `
[captcha]
greeting_message = "Welcome!"

[captcha.gen]
length = 6
banned_symbols = "104aqiol"

[captcha.validate]
timer = 60

[custom_titles]
adjectives = ["great", "tremendous", "shy"]
nouns = ["cat", "capybara", "fox"]

[long_message]
max_len = 300
messages = ["too long, did not read"]

[[drinks]]
answer = ["not today"]
emoji = ["🚱"]

[[drinks]]
answer = ["cheers"]
emoji = ["🍺"]

[[replies.text_to_text]]
triggers = ["good morning"]
answers = ["morning!", "hey there"]

[[replies.text_to_sticker]]
triggers = ["nice"]
sticker = "CAACAgIAAxkBAAE"

[[replies.sticker_to_sticker]]
sticker_id = "AgADBAADb3kxGw"
reply = "CAACAgIAAxkBAAF"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Captcha.Gen.Length != 6 {
		t.Errorf("gen.length = %d, want 6", cfg.Captcha.Gen.Length)
	}
	if cfg.Captcha.Validate.Timer != 60 {
		t.Errorf("validate.timer = %d, want 60", cfg.Captcha.Validate.Timer)
	}
	// Untouched keys fall back to defaults.
	if cfg.Captcha.Validate.Attempts != 5 {
		t.Errorf("validate.attempts = %d, want default 5", cfg.Captcha.Validate.Attempts)
	}
	if cfg.Captcha.Gen.MarginsColor != "#0e1621" {
		t.Errorf("margins_color = %q, want default", cfg.Captcha.Gen.MarginsColor)
	}
	if cfg.Captcha.Greeting != "Welcome!" {
		t.Errorf("greeting = %q", cfg.Captcha.Greeting)
	}
	if len(cfg.Drinks) != 2 || cfg.Drinks[1].Emoji[0] != "🍺" {
		t.Errorf("drinks = %+v", cfg.Drinks)
	}
	if len(cfg.Replies.TextToText) != 1 || cfg.Replies.TextToText[0].Triggers[0] != "good morning" {
		t.Errorf("text_to_text = %+v", cfg.Replies.TextToText)
	}
	if cfg.Replies.StickerToSticker[0].StickerID != "AgADBAADb3kxGw" {
		t.Errorf("sticker id case mangled: %+v", cfg.Replies.StickerToSticker)
	}
}

func TestTitleWeights(t *testing.T) {
	// nouns of rune lengths 3, 3, 8; budget is 15 minus adjective length.
	weights := titleWeights([]string{"great", "tremendous", "shy"}, []string{"cat", "capybara", "fox"})

	want := []int{3, 2, 3} // "tremendous" (10) only fits the 3-rune nouns
	for i := range want {
		if weights[i] != want[i] {
			t.Fatalf("weights = %v, want %v", weights, want)
		}
	}
}

func TestRandomTitleFitsLimit(t *testing.T) {
	titles := CustomTitles{
		Adjectives: []string{"great", "tremendous", "shy"},
		Nouns:      []string{"cat", "capybara", "fox"},
	}
	titles.Weights = titleWeights(titles.Adjectives, titles.Nouns)

	for i := 0; i < 200; i++ {
		title := titles.Random()
		if utf8.RuneCountInString(title) > 16 {
			t.Fatalf("title %q exceeds 16 runes", title)
		}
		if !strings.Contains(title, " ") {
			t.Fatalf("title %q has no noun", title)
		}
	}
}

func TestAllowedChatsWildcardDefault(t *testing.T) {
	cases := []struct {
		raw     string
		chatID  int64
		allowed bool
	}{
		{"", -100123, true},
		{"*", 42, true},
		{"-100123;-100456", -100456, true},
		{"-100123;-100456", -100789, false},
	}
	for _, tc := range cases {
		cfg := &Config{AllowedChatIDs: parseAllowedChats(tc.raw)}
		if got := cfg.ChatAllowed(tc.chatID); got != tc.allowed {
			t.Errorf("ChatAllowed(%q, %d) = %v, want %v", tc.raw, tc.chatID, got, tc.allowed)
		}
	}
}
