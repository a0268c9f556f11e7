package captcha

import (
	"log/slog"
	"strings"
	"testing"

	"main/modules/eventqueue"
)

type fakeRenderer struct{}

func (fakeRenderer) Render(text string) ([]byte, error) {
	return []byte("png:" + text), nil
}

type captionEdit struct {
	msgID   int32
	caption string
}

type fakeChat struct {
	nextMsgID int32
	sent      []string
	edits     []captionEdit
	replaces  []captionEdit
	deleted   []int32
	kicked    []int64
	texts     []string
}

func (f *fakeChat) SendChallenge(chatID int64, image []byte, caption string) (int32, error) {
	f.nextMsgID++
	f.sent = append(f.sent, caption)
	return f.nextMsgID, nil
}

func (f *fakeChat) EditCaption(chatID int64, msgID int32, caption string) error {
	f.edits = append(f.edits, captionEdit{msgID, caption})
	return nil
}

func (f *fakeChat) ReplaceChallenge(chatID int64, msgID int32, image []byte, caption string) error {
	f.replaces = append(f.replaces, captionEdit{msgID, caption})
	return nil
}

func (f *fakeChat) DeleteMessage(chatID int64, msgID int32) error {
	f.deleted = append(f.deleted, msgID)
	return nil
}

func (f *fakeChat) SendText(chatID int64, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeChat) KickMember(chatID, userID int64) error {
	f.kicked = append(f.kicked, userID)
	return nil
}

func testConfig() Config {
	return Config{
		Length:        5,
		BannedSymbols: "104aqiol",
		Timer:         90,
		UpdateFreq:    10,
		Attempts:      5,
		BarLength:     20,
		Greeting:      "Welcome aboard!",
	}
}

func newTestManager(t *testing.T) (*Manager, *fakeChat, *eventqueue.Queue) {
	t.Helper()
	chat := &fakeChat{}
	q := eventqueue.New(slog.Default(), 0)
	m := NewManager(testConfig(), chat, fakeRenderer{}, q, slog.Default())
	return m, chat, q
}

func answerOf(t *testing.T, m *Manager, userID int64) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		t.Fatal("no session for user")
	}
	return s.Answer
}

func tickN(q *eventqueue.Queue, n int) {
	for i := 0; i < n; i++ {
		q.Tick()
	}
}

func TestJoinIssuesChallenge(t *testing.T) {
	m, chat, _ := newTestManager(t)

	m.OnMemberJoined(1, 42, false)

	if !m.HasSession(42) {
		t.Fatal("no session after join")
	}
	if len(chat.sent) != 1 {
		t.Fatalf("sent %d challenge messages, want 1", len(chat.sent))
	}
	want := "🧩 CAPTCHA Verification\n[>                   ] 0% | 90s\nAttempts left: 5"
	if chat.sent[0] != want {
		t.Fatalf("initial caption = %q, want %q", chat.sent[0], want)
	}

	answer := answerOf(t, m, 42)
	if len(answer) != 5 {
		t.Fatalf("challenge text %q, want length 5", answer)
	}
	for _, r := range strings.ToLower(answer) {
		if strings.ContainsRune("104aqiol", r) {
			t.Fatalf("challenge text %q contains banned symbol %q", answer, r)
		}
	}
}

func TestBotJoinSkipped(t *testing.T) {
	m, chat, q := newTestManager(t)

	m.OnMemberJoined(1, 42, true)

	if m.HasSession(42) {
		t.Fatal("session opened for a bot")
	}
	if len(chat.sent) != 0 || q.Len() != 0 {
		t.Fatal("challenge issued for a bot")
	}
}

func TestCountdownRedrawsCaption(t *testing.T) {
	m, chat, q := newTestManager(t)
	m.OnMemberJoined(1, 42, false)

	tickN(q, 50)

	if len(chat.edits) != 5 {
		t.Fatalf("%d caption edits after 50 ticks, want 5", len(chat.edits))
	}
	last := chat.edits[len(chat.edits)-1].caption
	want := "🧩 CAPTCHA Verification\n[===========>        ] 55% | 40s\nAttempts left: 5"
	if last != want {
		t.Fatalf("caption after 50 ticks = %q, want %q", last, want)
	}
}

func TestRedrawDedupSkipsIdenticalCaption(t *testing.T) {
	m, chat, q := newTestManager(t)
	m.OnMemberJoined(1, 42, false)

	tickN(q, 10)
	edits := len(chat.edits)
	m.redraw(42)

	if len(chat.edits) != edits {
		t.Fatalf("redraw with unchanged state issued an edit")
	}
}

func TestCorrectAnswerPasses(t *testing.T) {
	m, chat, q := newTestManager(t)
	m.OnMemberJoined(1, 42, false)
	answer := answerOf(t, m, 42)

	tickN(q, 30)
	m.OnVerifyMessage(1, 42, 555, "  "+strings.ToUpper(answer)+" ")

	if m.HasSession(42) {
		t.Fatal("session survived a correct answer")
	}
	if len(chat.texts) != 2 || chat.texts[0] != "✅ You passed!" || chat.texts[1] != "Welcome aboard!" {
		t.Fatalf("notices = %v", chat.texts)
	}
	// Both the submission and the challenge message are removed.
	if len(chat.deleted) != 2 {
		t.Fatalf("deleted %d messages, want 2", len(chat.deleted))
	}

	// The pending countdown must not fire a late failure.
	tickN(q, 90)
	if len(chat.kicked) != 0 {
		t.Fatalf("user kicked after passing")
	}
}

func TestMaxAttemptsKicks(t *testing.T) {
	m, chat, q := newTestManager(t)
	m.OnMemberJoined(1, 42, false)

	for i := 0; i < 5; i++ {
		m.OnVerifyMessage(1, 42, int32(600+i), "wrong")
	}

	if m.HasSession(42) {
		t.Fatal("session survived attempt exhaustion")
	}
	if len(chat.kicked) != 1 || chat.kicked[0] != 42 {
		t.Fatalf("kicked = %v, want [42]", chat.kicked)
	}
	final := chat.edits[len(chat.edits)-1].caption
	if !strings.HasSuffix(final, "\n❌ Max attempts used") {
		t.Fatalf("final caption = %q", final)
	}

	// A straggler submission is a benign no-op.
	m.OnVerifyMessage(1, 42, 700, "wrong")
	if len(chat.kicked) != 1 {
		t.Fatal("straggler submission double-kicked")
	}
	tickN(q, 90)
	if len(chat.kicked) != 1 {
		t.Fatal("orphan countdown kicked again")
	}
}

func TestTimeoutKicks(t *testing.T) {
	m, chat, q := newTestManager(t)
	m.OnMemberJoined(1, 42, false)

	tickN(q, 90)

	if m.HasSession(42) {
		t.Fatal("session survived the timer")
	}
	if len(chat.kicked) != 1 {
		t.Fatalf("kicked = %v, want one kick", chat.kicked)
	}
	final := chat.edits[len(chat.edits)-1].caption
	if !strings.HasSuffix(final, "\n❌ Time expired") {
		t.Fatalf("final caption = %q", final)
	}
	if q.Len() != 0 {
		t.Fatal("countdown task survived its final offset")
	}
}

func TestLeaveMidChallengeNeverKicks(t *testing.T) {
	m, chat, q := newTestManager(t)
	m.OnMemberJoined(1, 42, false)

	tickN(q, 30)
	m.OnMemberLeft(42)
	tickN(q, 90)

	if m.HasSession(42) {
		t.Fatal("session survived the leave")
	}
	if len(chat.kicked) != 0 {
		t.Fatal("departed user was kicked")
	}
}

func TestRegenerateKeepsCountdown(t *testing.T) {
	m, chat, q := newTestManager(t)
	m.OnMemberJoined(1, 42, false)
	before := answerOf(t, m, 42)

	tickN(q, 30)
	if !m.OnRegenerate(42) {
		t.Fatal("owner's regenerate rejected")
	}

	after := answerOf(t, m, 42)
	if before == after {
		t.Fatal("challenge text unchanged after regenerate")
	}
	if len(chat.replaces) != 1 {
		t.Fatalf("%d media replacements, want 1", len(chat.replaces))
	}
	if !strings.Contains(chat.replaces[0].caption, "| 60s") {
		t.Fatalf("regenerated caption %q lost the countdown", chat.replaces[0].caption)
	}
}

func TestRegenerateWithoutSessionRejected(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.OnMemberJoined(1, 42, false)

	if m.OnRegenerate(99) {
		t.Fatal("stranger's regenerate accepted")
	}
}
