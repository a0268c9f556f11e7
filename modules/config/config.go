// Package config loads the bot's TOML configuration. Secrets (bot token)
// and the allowed-chat list come from the environment, everything else from
// the config file.
package config

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
)

// maxTitleLen is Telegram's limit for admin custom titles.
const maxTitleLen = 16

type GenConfig struct {
	Length        int     `mapstructure:"length"`
	BannedSymbols string  `mapstructure:"banned_symbols"`
	MaxRotation   int     `mapstructure:"max_rotation"`
	MarginsWidth  int     `mapstructure:"margins_width"`
	MarginsColor  string  `mapstructure:"margins_color"`
	FontPath      string  `mapstructure:"font_path"`
	FontSize      float64 `mapstructure:"font_size"`
}

type ValidateConfig struct {
	Timer      int `mapstructure:"timer"`
	UpdateFreq int `mapstructure:"update_freq"`
	Attempts   int `mapstructure:"attempts"`
	BarLength  int `mapstructure:"bar_length"`
}

type CaptchaConfig struct {
	Gen      GenConfig      `mapstructure:"gen"`
	Validate ValidateConfig `mapstructure:"validate"`
	Greeting string         `mapstructure:"greeting_message"`
}

// CustomTitles is the word stock for the title dice game. Weights holds the
// per-adjective count of nouns that still fit the title length limit, so a
// weighted adjective draw never strands itself without a matching noun.
type CustomTitles struct {
	Adjectives []string `mapstructure:"adjectives"`
	Nouns      []string `mapstructure:"nouns"`
	Weights    []int    `mapstructure:"-"`
}

// Random draws an "adjective noun" title within the custom title limit.
func (t CustomTitles) Random() string {
	adj := t.Adjectives[weightedIndex(t.Weights)]
	var fitting []string
	for _, noun := range t.Nouns {
		if utf8.RuneCountInString(adj)+1+utf8.RuneCountInString(noun) <= maxTitleLen {
			fitting = append(fitting, noun)
		}
	}
	if len(fitting) == 0 {
		return adj
	}
	return adj + " " + fitting[rand.Intn(len(fitting))]
}

func weightedIndex(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rand.Intn(len(weights))
	}
	n := rand.Intn(total)
	for i, w := range weights {
		if n < w {
			return i
		}
		n -= w
	}
	return len(weights) - 1
}

// Bucket is one themed answer pool for the daily fortune commands.
type Bucket struct {
	Answer []string `mapstructure:"answer"`
	Emoji  []string `mapstructure:"emoji"`
}

type LongMessage struct {
	Messages []string `mapstructure:"messages"`
	MaxLen   int      `mapstructure:"max_len"`
}

// TextReply maps trigger substrings to a pool of text answers.
type TextReply struct {
	Triggers []string `mapstructure:"triggers"`
	Answers  []string `mapstructure:"answers"`
}

// StickerReply maps trigger substrings to a sticker file id.
type StickerReply struct {
	Triggers []string `mapstructure:"triggers"`
	Sticker  string   `mapstructure:"sticker"`
}

// StickerSwap answers an incoming sticker with another sticker.
type StickerSwap struct {
	StickerID string `mapstructure:"sticker_id"`
	Reply     string `mapstructure:"reply"`
}

type Replies struct {
	TextToText       []TextReply    `mapstructure:"text_to_text"`
	TextToSticker    []StickerReply `mapstructure:"text_to_sticker"`
	StickerToSticker []StickerSwap  `mapstructure:"sticker_to_sticker"`
}

type Config struct {
	DatabasePath string        `mapstructure:"database_path"`
	SettingsPath string        `mapstructure:"settings_path"`
	Captcha      CaptchaConfig `mapstructure:"captcha"`
	Titles       CustomTitles  `mapstructure:"custom_titles"`
	Drinks       []Bucket      `mapstructure:"drinks"`
	Espers       []Bucket      `mapstructure:"espers"`
	LongMessage  LongMessage   `mapstructure:"long_message"`
	Replies      Replies       `mapstructure:"replies"`

	// AllowedChatIDs comes from ACCESS_ID_GROUP (';'-separated); "*"
	// admits every chat.
	AllowedChatIDs []string `mapstructure:"-"`
}

// ChatAllowed reports whether the bot serves the given chat.
func (c *Config) ChatAllowed(chatID int64) bool {
	id := strconv.FormatInt(chatID, 10)
	for _, allowed := range c.AllowedChatIDs {
		if allowed == "*" || allowed == id {
			return true
		}
	}
	return false
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Titles.Weights = titleWeights(cfg.Titles.Adjectives, cfg.Titles.Nouns)
	cfg.AllowedChatIDs = parseAllowedChats(os.Getenv("ACCESS_ID_GROUP"))
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_path", "esper.db")
	v.SetDefault("settings_path", "settings.db")
	v.SetDefault("captcha.gen.length", 5)
	v.SetDefault("captcha.gen.banned_symbols", "104aqiol")
	v.SetDefault("captcha.gen.max_rotation", 45)
	v.SetDefault("captcha.gen.margins_width", 12)
	v.SetDefault("captcha.gen.margins_color", "#0e1621")
	v.SetDefault("captcha.gen.font_path", "assets/captcha.ttf")
	v.SetDefault("captcha.gen.font_size", 42)
	v.SetDefault("captcha.validate.timer", 90)
	v.SetDefault("captcha.validate.update_freq", 10)
	v.SetDefault("captcha.validate.attempts", 5)
	v.SetDefault("captcha.validate.bar_length", 20)
	v.SetDefault("long_message.max_len", 1000)
}

func parseAllowedChats(raw string) []string {
	chats := strings.Split(raw, ";")
	var out []string
	for _, c := range chats {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// titleWeights counts, per adjective, how many nouns still fit next to it
// within the title length limit. Longer adjectives get proportionally fewer
// draws instead of dead-ending the noun pick.
func titleWeights(adjectives, nouns []string) []int {
	lens := make([]int, 0, len(nouns))
	for _, n := range nouns {
		lens = append(lens, utf8.RuneCountInString(n))
	}
	sort.Ints(lens)
	weights := make([]int, len(adjectives))
	for i, adj := range adjectives {
		budget := maxTitleLen - 1 - utf8.RuneCountInString(adj)
		weights[i] = sort.SearchInts(lens, budget+1)
	}
	return weights
}
