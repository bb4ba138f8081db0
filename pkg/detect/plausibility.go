package detect

import (
	"strconv"
	"strings"
)

// normalizeNumber strips leading zeros when configured, keeping a lone zero.
func normalizeNumber(s string, cfg Config) string {
	if !cfg.StripLeadingZeros {
		return s
	}
	t := strings.TrimLeft(s, "0")
	if t == "" && s != "" {
		return "0"
	}
	return t
}

// isPlausibleNumber decides whether a normalized digit string can be a
// jersey number under cfg. A kit number is short and small valued, so digit
// strings outside the configured length or value range are rejected rather
// than treated as partial reads.
func isPlausibleNumber(s string, cfg Config) bool {
	if s == "" {
		return false
	}
	if len(onlyDigits(s)) != len(s) {
		return false
	}
	if len(s) < cfg.MinDigits || len(s) > cfg.MaxDigits {
		return false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > cfg.MaxValue {
		return false
	}
	return true
}

// onlyDigits extracts decimal digits from a string.
func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
