package store

import "database/sql"

// CommitWin appends today's winner of an event category in a chat.
func (s *Store) CommitWin(chatID, userID int64, eventID int) error {
	_, err := s.db.Exec(`
		insert into events (chat_id, winner_user_id, event_id, last_played)
		values (?, ?, ?, strftime('%s', 'now'))
		on conflict do nothing`,
		chatID, userID, eventID)
	return err
}

// LastWinner returns the most recent winner of an event category.
func (s *Store) LastWinner(chatID int64, eventID int) (int64, bool, error) {
	var userID int64
	err := s.db.QueryRow(`
		select winner_user_id from events
		where chat_id = ? and event_id = ?
		order by last_played desc
		limit 1`,
		chatID, eventID).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

// EventDayPassed reports whether the local date advanced since the event was
// last played. known is false when the event never ran in this chat.
func (s *Store) EventDayPassed(chatID int64, eventID int) (passed, known bool, err error) {
	return s.dayPassed(`
		select date('now', 'localtime') > date(max(last_played), 'unixepoch', 'localtime')
		from events
		where chat_id = ? and event_id = ?
		group by chat_id, event_id`,
		chatID, eventID)
}

// WinCount is one row of an event's all-time leaderboard.
type WinCount struct {
	UserID int64
	Count  int
}

// TopWinners returns the users with the most wins of an event category.
func (s *Store) TopWinners(chatID int64, eventID, limit int) ([]WinCount, error) {
	rows, err := s.db.Query(`
		select winner_user_id, count(*) as wins
		from events
		where chat_id = ? and event_id = ?
		group by winner_user_id
		order by wins desc
		limit ?`,
		chatID, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var top []WinCount
	for rows.Next() {
		var wc WinCount
		if err := rows.Scan(&wc.UserID, &wc.Count); err != nil {
			return nil, err
		}
		top = append(top, wc)
	}
	return top, rows.Err()
}
