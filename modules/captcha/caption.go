package captcha

import (
	"fmt"
	"strings"
)

// Caption renders the countdown caption for a challenge message. Pure
// function of its inputs, so identical state yields a byte-identical string
// and redundant edits can be suppressed by comparison.
func Caption(timeLeft, failedAttempts, total, attempts, barLen int) string {
	attemptsLeft := attempts - failedAttempts
	if attemptsLeft < 0 {
		attemptsLeft = 0
	}
	elapsed := total - timeLeft
	filled := elapsed * barLen / total
	if filled > barLen {
		filled = barLen
	}
	pct := elapsed * 100 / total

	var b strings.Builder
	b.WriteString("🧩 CAPTCHA Verification\n")
	b.WriteString("[")
	b.WriteString(strings.Repeat("=", filled))
	b.WriteString(">")
	if blank := barLen - filled - 1; blank > 0 {
		b.WriteString(strings.Repeat(" ", blank))
	}
	fmt.Fprintf(&b, "] %d%% | %ds\n", pct, timeLeft)
	fmt.Fprintf(&b, "Attempts left: %d", attemptsLeft)
	return b.String()
}
