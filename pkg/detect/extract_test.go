package detect

import "testing"

func TestExtractNumbersPlainRead(t *testing.T) {
	got := extractNumbers("23", DefaultConfig())
	if len(got) != 1 || got[0] != "23" {
		t.Fatalf("expected [23] got %v", got)
	}
}

func TestExtractNumbersLeadingZeros(t *testing.T) {
	cfg := DefaultConfig()
	if got := extractNumbers("07", cfg); len(got) != 1 || got[0] != "7" {
		t.Fatalf("expected [7] got %v", got)
	}
	if got := extractNumbers("00", cfg); len(got) != 1 || got[0] != "0" {
		t.Fatalf("expected [0] got %v", got)
	}
}

func TestExtractNumbersNoDigits(t *testing.T) {
	if got := extractNumbers("LIONS", DefaultConfig()); len(got) != 0 {
		t.Fatalf("expected none got %v", got)
	}
}

func TestExtractNumbersRunChunking(t *testing.T) {
	got := extractNumbers("1234", DefaultConfig())
	if len(got) != 2 || got[0] != "12" || got[1] != "34" {
		t.Fatalf("expected [12 34] got %v", got)
	}
}

func TestExtractNumbersMixedText(t *testing.T) {
	got := extractNumbers("player 9, bib 42", DefaultConfig())
	if len(got) != 2 || got[0] != "9" || got[1] != "42" {
		t.Fatalf("expected [9 42] got %v", got)
	}
}

func TestExtractNumbersDedupeKeepsFirst(t *testing.T) {
	got := extractNumbers("7 and 07", DefaultConfig())
	if len(got) != 1 || got[0] != "7" {
		t.Fatalf("expected [7] got %v", got)
	}
}

func TestExtractNumbersSingleDigitFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxValue = 50
	// "99" is over the value limit, the individual digits still come through.
	got := extractNumbers("99", cfg)
	if len(got) != 1 || got[0] != "9" {
		t.Fatalf("expected [9] got %v", got)
	}
}

func TestIsPlausibleNumberRange(t *testing.T) {
	cfg := DefaultConfig()
	for _, s := range []string{"0", "7", "99"} {
		if !isPlausibleNumber(s, cfg) {
			t.Fatalf("%s should be plausible", s)
		}
	}
	for _, s := range []string{"", "100", "1a", "123"} {
		if isPlausibleNumber(s, cfg) {
			t.Fatalf("%s should not be plausible", s)
		}
	}
}

func TestNormalizeNumberKeepsZero(t *testing.T) {
	cfg := DefaultConfig()
	if got := normalizeNumber("000", cfg); got != "0" {
		t.Fatalf("expected 0 got %s", got)
	}
	cfg.StripLeadingZeros = false
	if got := normalizeNumber("07", cfg); got != "07" {
		t.Fatalf("expected 07 got %s", got)
	}
}
