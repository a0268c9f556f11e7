package db

import (
	"encoding/json"
	"strconv"

	bolt "go.etcd.io/bbolt"
)

// ChatSettings holds per-chat toggles set by admins at runtime. The captcha
// gate is on unless explicitly disabled; Greeting overrides the configured
// greeting message when non-empty.
type ChatSettings struct {
	CaptchaDisabled bool   `json:"captcha_disabled"`
	Greeting        string `json:"greeting,omitempty"`
}

func ensureSettingsBucket(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte("settings"))
		return err
	})
}

func SetChatSettings(chatID int64, s *ChatSettings) error {
	db, err := GetDB()
	if err != nil {
		return err
	}
	if err := ensureSettingsBucket(db); err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("settings"))
		cb, err := b.CreateBucketIfNotExists([]byte(strconv.FormatInt(chatID, 10)))
		if err != nil {
			return err
		}
		data, err := json.Marshal(s)
		if err != nil {
			return err
		}
		return cb.Put([]byte("cfg"), data)
	})
}

// GetChatSettings returns the chat's stored settings, or defaults when the
// chat never changed anything.
func GetChatSettings(chatID int64) (*ChatSettings, error) {
	db, err := GetDB()
	if err != nil {
		return nil, err
	}
	if err := ensureSettingsBucket(db); err != nil {
		return nil, err
	}

	settings := &ChatSettings{}
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte("settings"))
		cb := b.Bucket([]byte(strconv.FormatInt(chatID, 10)))
		if cb == nil {
			return nil
		}
		data := cb.Get([]byte("cfg"))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, settings)
	})
	return settings, err
}
