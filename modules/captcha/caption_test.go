package captcha

import "testing"

func TestCaptionInitialState(t *testing.T) {
	got := Caption(90, 0, 90, 5, 20)
	want := "🧩 CAPTCHA Verification\n[>                   ] 0% | 90s\nAttempts left: 5"
	if got != want {
		t.Fatalf("caption = %q, want %q", got, want)
	}
}

func TestCaptionMidCountdown(t *testing.T) {
	// elapsed 50 of 90: filled segment 11 of 20, 55 percent.
	got := Caption(40, 2, 90, 5, 20)
	want := "🧩 CAPTCHA Verification\n[===========>        ] 55% | 40s\nAttempts left: 3"
	if got != want {
		t.Fatalf("caption = %q, want %q", got, want)
	}
}

func TestCaptionExpired(t *testing.T) {
	got := Caption(0, 5, 90, 5, 20)
	want := "🧩 CAPTCHA Verification\n[====================>] 100% | 0s\nAttempts left: 0"
	if got != want {
		t.Fatalf("caption = %q, want %q", got, want)
	}
}

func TestCaptionAttemptsFlooredAtZero(t *testing.T) {
	got := Caption(10, 9, 90, 5, 20)
	if want := "Attempts left: 0"; got[len(got)-len(want):] != want {
		t.Fatalf("caption tail = %q, want %q", got[len(got)-len(want):], want)
	}
}

func TestCaptionDeterministic(t *testing.T) {
	if Caption(40, 2, 90, 5, 20) != Caption(40, 2, 90, 5, 20) {
		t.Fatal("identical inputs produced different captions")
	}
}
