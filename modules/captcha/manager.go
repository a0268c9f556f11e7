// Package captcha runs the join-time verification flow: one challenge per
// joining user, a tick-driven countdown caption, attempt-limited answer
// checks, and eviction of users who time out or exhaust their attempts.
package captcha

import (
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"unicode"

	"main/modules/eventqueue"
)

// ChatClient is the slice of the chat platform the verification flow talks
// to. Calls may block on the network, so the manager never holds its lock
// across them.
type ChatClient interface {
	SendChallenge(chatID int64, image []byte, caption string) (int32, error)
	EditCaption(chatID int64, msgID int32, caption string) error
	ReplaceChallenge(chatID int64, msgID int32, image []byte, caption string) error
	DeleteMessage(chatID int64, msgID int32) error
	SendText(chatID int64, text string) error
	KickMember(chatID, userID int64) error
}

// Renderer turns challenge text into an image.
type Renderer interface {
	Render(text string) ([]byte, error)
}

// Config carries the challenge generation and validation knobs.
type Config struct {
	Length        int    // challenge text length
	BannedSymbols string // characters excluded from the alphabet, case-folded
	Timer         int    // total seconds before the challenge expires
	UpdateFreq    int    // caption redraw period in seconds
	Attempts      int    // wrong answers allowed before eviction
	BarLength     int    // progress bar width in characters
	Greeting      string // sent after a successful pass, optional
}

// Session tracks one user mid-verification.
type Session struct {
	UserID         int64
	ChatID         int64
	Answer         string
	Image          []byte
	FailedAttempts int
	MessageID      int32 // zero until the challenge message is sent
	TaskID         string
	lastCaption    string
}

// Manager owns the session registry. Each joining user gets at most one
// session; every terminal transition removes the session first so duplicate
// finalizations collapse into benign no-ops.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	queue    *eventqueue.Queue
	chat     ChatClient
	render   Renderer
	cfg      Config
	log      *slog.Logger
	alphabet []rune

	// GreetingFunc, when set, overrides cfg.Greeting per chat.
	GreetingFunc func(chatID int64) string
}

func NewManager(cfg Config, chat ChatClient, render Renderer, queue *eventqueue.Queue, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		sessions: make(map[int64]*Session),
		queue:    queue,
		chat:     chat,
		render:   render,
		cfg:      cfg,
		log:      log,
		alphabet: allowedAlphabet(cfg.BannedSymbols),
	}
}

func allowedAlphabet(banned string) []rune {
	bad := make(map[rune]bool, len(banned))
	for _, r := range banned {
		bad[unicode.ToLower(r)] = true
	}
	var out []rune
	for _, r := range "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" {
		if !bad[unicode.ToLower(r)] {
			out = append(out, r)
		}
	}
	return out
}

func (m *Manager) challengeText() string {
	runes := make([]rune, m.cfg.Length)
	for i := range runes {
		runes[i] = m.alphabet[rand.Intn(len(m.alphabet))]
	}
	return string(runes)
}

// HasSession reports whether a user is currently mid-verification.
func (m *Manager) HasSession(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

// OnMemberJoined opens a session for a freshly joined user, posts the
// challenge and schedules the countdown. Bots are let through untouched.
func (m *Manager) OnMemberJoined(chatID, userID int64, isBot bool) {
	if isBot {
		m.log.Info("joined member is a bot, no challenge", "chat", chatID, "user", userID)
		return
	}

	answer := m.challengeText()
	image, err := m.render.Render(answer)
	if err != nil {
		m.log.Error("challenge render failed", "chat", chatID, "user", userID, "err", err)
		return
	}

	s := &Session{UserID: userID, ChatID: chatID, Answer: answer, Image: image}
	m.mu.Lock()
	if old, ok := m.sessions[userID]; ok {
		// Stale session from an earlier join; drop its countdown quietly.
		oldTask := old.TaskID
		m.sessions[userID] = s
		m.mu.Unlock()
		if oldTask != "" {
			m.queue.Cancel(oldTask, true)
		}
	} else {
		m.sessions[userID] = s
		m.mu.Unlock()
	}

	caption := m.caption(m.cfg.Timer, 0)
	msgID, err := m.chat.SendChallenge(chatID, image, caption)
	if err != nil {
		m.log.Error("challenge send failed", "chat", chatID, "user", userID, "err", err)
	}

	var offsets []int
	for at := m.cfg.UpdateFreq; at <= m.cfg.Timer; at += m.cfg.UpdateFreq {
		offsets = append(offsets, at)
	}
	taskID := m.queue.Add(offsets, func() { m.redraw(userID) }, &eventqueue.Hooks{
		OnSuccess: func() { m.fail(userID, "Time expired") },
		OnCancel:  func() { m.fail(userID, "CAPTCHA cancelled") },
	})

	m.mu.Lock()
	if cur, ok := m.sessions[userID]; ok && cur == s {
		cur.MessageID = msgID
		cur.lastCaption = caption
		cur.TaskID = taskID
	}
	m.mu.Unlock()
	m.log.Info("challenge issued", "chat", chatID, "user", userID, "message", msgID)
}

// OnVerifyMessage consumes a message sent by a user mid-verification. The
// submission is deleted from the chat either way.
func (m *Manager) OnVerifyMessage(chatID, userID int64, msgID int32, text string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	var answer string
	if ok {
		answer = s.Answer
	}
	m.mu.Unlock()
	if !ok {
		m.log.Info("verification message without a session", "chat", chatID, "user", userID)
		return
	}

	if err := m.chat.DeleteMessage(chatID, msgID); err != nil {
		m.log.Warn("delete submission failed", "chat", chatID, "user", userID, "err", err)
	}

	submitted := strings.ToLower(strings.TrimSpace(text))
	if submitted == strings.ToLower(answer) {
		m.pass(userID)
		return
	}
	m.failedAttempt(userID, submitted)
}

// OnMemberLeft drops the departing user's session without kicking.
func (m *Manager) OnMemberLeft(userID int64) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if s.TaskID != "" {
		m.queue.Cancel(s.TaskID, true)
	}
	m.log.Info("member left mid-challenge", "chat", s.ChatID, "user", userID)
}

// OnRegenerate swaps the challenge for a fresh one at the requester's own
// session, keeping the countdown where it is. Reports false when the
// requester has no session, so the caller can show a rejection toast.
func (m *Manager) OnRegenerate(requesterID int64) bool {
	m.mu.Lock()
	_, ok := m.sessions[requesterID]
	m.mu.Unlock()
	if !ok {
		return false
	}

	answer := m.challengeText()
	image, err := m.render.Render(answer)
	if err != nil {
		m.log.Error("challenge re-render failed", "user", requesterID, "err", err)
		return true
	}

	m.mu.Lock()
	s, ok := m.sessions[requesterID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	s.Answer = answer
	s.Image = image
	caption := m.caption(m.timeLeft(s.TaskID), s.FailedAttempts)
	s.lastCaption = caption
	chatID, msgID := s.ChatID, s.MessageID
	m.mu.Unlock()

	if msgID == 0 {
		return true
	}
	if err := m.chat.ReplaceChallenge(chatID, msgID, image, caption); err != nil {
		m.log.Warn("challenge replace failed", "chat", chatID, "user", requesterID, "err", err)
	}
	m.log.Info("challenge regenerated", "chat", chatID, "user", requesterID)
	return true
}

// timeLeft derives the remaining seconds from the countdown task's tick
// offset. A finished or unknown task reads as zero seconds left.
func (m *Manager) timeLeft(taskID string) int {
	offset, ok := m.queue.Offset(taskID)
	if !ok {
		offset = m.cfg.Timer
	}
	if left := m.cfg.Timer - offset; left > 0 {
		return left
	}
	return 0
}

func (m *Manager) caption(timeLeft, failedAttempts int) string {
	return Caption(timeLeft, failedAttempts, m.cfg.Timer, m.cfg.Attempts, m.cfg.BarLength)
}

// redraw refreshes the countdown caption, skipping the edit call when the
// caption text has not changed since the last send.
func (m *Manager) redraw(userID int64) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if !ok || s.MessageID == 0 {
		m.mu.Unlock()
		m.log.Info("countdown redraw without a session", "user", userID)
		return
	}
	caption := m.caption(m.timeLeft(s.TaskID), s.FailedAttempts)
	if caption == s.lastCaption {
		m.mu.Unlock()
		return
	}
	s.lastCaption = caption
	chatID, msgID := s.ChatID, s.MessageID
	m.mu.Unlock()

	if err := m.chat.EditCaption(chatID, msgID, caption); err != nil {
		m.log.Warn("caption edit failed", "chat", chatID, "user", userID, "err", err)
	}
}

func (m *Manager) pass(userID int64) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	if !ok {
		m.log.Info("pass for an already finalized session", "user", userID)
		return
	}

	if s.TaskID != "" {
		m.queue.Cancel(s.TaskID, true)
	}
	if err := m.chat.SendText(s.ChatID, "✅ You passed!"); err != nil {
		m.log.Warn("success notice failed", "chat", s.ChatID, "user", userID, "err", err)
	}
	greeting := m.cfg.Greeting
	if m.GreetingFunc != nil {
		greeting = m.GreetingFunc(s.ChatID)
	}
	if greeting != "" {
		if err := m.chat.SendText(s.ChatID, greeting); err != nil {
			m.log.Warn("greeting failed", "chat", s.ChatID, "user", userID, "err", err)
		}
	}
	if s.MessageID != 0 {
		if err := m.chat.DeleteMessage(s.ChatID, s.MessageID); err != nil {
			m.log.Warn("challenge cleanup failed", "chat", s.ChatID, "user", userID, "err", err)
		}
	}
	m.log.Info("challenge passed", "chat", s.ChatID, "user", userID)
}

func (m *Manager) failedAttempt(userID int64, submitted string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		m.log.Info("attempt for an already finalized session", "user", userID)
		return
	}
	s.FailedAttempts++
	attempts := s.FailedAttempts
	m.mu.Unlock()

	m.log.Info("wrong answer", "chat", s.ChatID, "user", userID, "got", submitted, "attempt", attempts)
	if attempts >= m.cfg.Attempts {
		m.fail(userID, "Max attempts used")
		return
	}
	m.redraw(userID)
}

// fail finalizes a session as failed: the session is removed first, the
// challenge caption gets the reason appended, and the user is kicked.
// Collaborator errors are logged; the session stays finalized regardless.
func (m *Manager) fail(userID int64, reason string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	var caption string
	if ok {
		caption = m.caption(m.timeLeft(s.TaskID), s.FailedAttempts) + "\n❌ " + reason
	}
	m.mu.Unlock()
	if !ok {
		m.log.Info("finalize for an already finalized session", "user", userID, "reason", reason)
		return
	}

	if s.TaskID != "" {
		m.queue.Cancel(s.TaskID, true)
	}
	if s.MessageID != 0 {
		if err := m.chat.EditCaption(s.ChatID, s.MessageID, caption); err != nil {
			m.log.Warn("final caption edit failed", "chat", s.ChatID, "user", userID, "err", err)
		}
	}
	if err := m.chat.KickMember(s.ChatID, userID); err != nil {
		m.log.Warn("kick failed", "chat", s.ChatID, "user", userID, "err", err)
	}
	m.log.Info("challenge failed", "chat", s.ChatID, "user", userID, "reason", reason)
}
