package store

import "database/sql"

// UserTitle returns the stored custom title for a user, empty when none.
func (s *Store) UserTitle(chatID, userID int64) (string, error) {
	var title string
	err := s.db.QueryRow(`
		select title from titles
		where chat_id = ? and user_id = ?`,
		chatID, userID).Scan(&title)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return title, err
}

// UpdateTitle stores a freshly rolled title and stamps the roll time.
func (s *Store) UpdateTitle(chatID, userID int64, title string) error {
	_, err := s.db.Exec(`
		insert into titles (chat_id, user_id, title) values (?, ?, ?)
		on conflict (chat_id, user_id) do update
			set title = excluded.title, last_changing = strftime('%s', 'now')`,
		chatID, userID, title)
	return err
}

// CommitDiceRoll stamps a failed roll so the user waits out the day even
// though no title changed hands.
func (s *Store) CommitDiceRoll(chatID, userID int64) error {
	_, err := s.db.Exec(`
		insert into titles (chat_id, user_id, last_changing) values (?, ?, 0)
		on conflict (chat_id, user_id) do update set last_changing = strftime('%s', 'now')`,
		chatID, userID)
	return err
}

// ResetUser wipes a user's title row, used when their title gets stolen.
func (s *Store) ResetUser(chatID, userID int64) error {
	_, err := s.db.Exec(`
		delete from titles where chat_id = ? and user_id = ?`,
		chatID, userID)
	return err
}

// TitleDayPassed reports whether the local date advanced since the user's
// last roll. known is false when the user never rolled in this chat.
func (s *Store) TitleDayPassed(chatID, userID int64) (passed, known bool, err error) {
	return s.dayPassed(`
		select date('now', 'localtime') > date(last_changing, 'unixepoch', 'localtime')
		from titles
		where chat_id = ? and user_id = ?`,
		chatID, userID)
}

// UserTitles returns every stored title in a chat, keyed by user id.
func (s *Store) UserTitles(chatID int64) (map[int64]string, error) {
	rows, err := s.db.Query(`
		select user_id, title from titles
		where chat_id = ? and title != ''`,
		chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	titles := make(map[int64]string)
	for rows.Next() {
		var userID int64
		var title string
		if err := rows.Scan(&userID, &title); err != nil {
			return nil, err
		}
		titles[userID] = title
	}
	return titles, rows.Err()
}
