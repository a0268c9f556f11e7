// Package store persists the small per-chat counters (likes, custom titles,
// event wins) in a single SQLite file.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var migrations = []string{
	`create table if not exists likes (
		chat_id integer,
		from_user_id integer,
		to_user_id integer,
		primary key (chat_id, from_user_id)
	)`,
	`create table if not exists titles (
		chat_id integer,
		user_id integer,
		title text not null default '',
		last_changing integer not null default (strftime('%s', 'now')),
		primary key (chat_id, user_id)
	)`,
	`create table if not exists events (
		chat_id integer,
		winner_user_id integer,
		event_id integer,
		last_played integer not null default (strftime('%s', 'now')),
		primary key (chat_id, winner_user_id, event_id, last_played)
	)`,
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// modernc sqlite is happiest with a single writer connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"pragma journal_mode = WAL",
		"pragma busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: migrate: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// dayPassed evaluates a "has the local date advanced since this unix
// timestamp" query. known is false when the row does not exist at all.
func (s *Store) dayPassed(query string, args ...any) (passed, known bool, err error) {
	var n int
	switch err = s.db.QueryRow(query, args...).Scan(&n); err {
	case nil:
		return n == 1, true, nil
	case sql.ErrNoRows:
		return false, false, nil
	default:
		return false, false, err
	}
}
