package detect

import (
	"math"
	"strings"
)

// snippet returns a shortened version of text for logging.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// normalizeText collapses newlines, tabs and whitespace runs.
func normalizeText(t string) string {
	t = strings.ReplaceAll(t, "\n", " ")
	t = strings.ReplaceAll(t, "\t", " ")
	return strings.Join(strings.Fields(t), " ")
}

// round4 keeps four decimal places, enough to compare confidences stably
// across runs.
func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
