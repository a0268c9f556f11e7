package store

// AddLike records that fromUser currently likes toUser in a chat. Each user
// holds at most one outgoing like per chat; a new like moves it.
func (s *Store) AddLike(chatID, fromUserID, toUserID int64) error {
	_, err := s.db.Exec(`
		insert into likes (chat_id, from_user_id, to_user_id) values (?, ?, ?)
		on conflict (chat_id, from_user_id) do update set to_user_id = excluded.to_user_id`,
		chatID, fromUserID, toUserID)
	return err
}

func (s *Store) CountLikes(chatID, toUserID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`
		select count(to_user_id) from likes
		where chat_id = ? and to_user_id = ?`,
		chatID, toUserID).Scan(&n)
	return n, err
}

// LikeCount is one row of the chat's like leaderboard.
type LikeCount struct {
	UserID int64
	Count  int
}

func (s *Store) TopLikes(chatID int64, limit int) ([]LikeCount, error) {
	rows, err := s.db.Query(`
		select to_user_id, count(*) as like_count
		from likes
		where chat_id = ?
		group by to_user_id
		order by like_count desc
		limit ?`,
		chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var top []LikeCount
	for rows.Next() {
		var lc LikeCount
		if err := rows.Scan(&lc.UserID, &lc.Count); err != nil {
			return nil, err
		}
		top = append(top, lc)
	}
	return top, rows.Err()
}
