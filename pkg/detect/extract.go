package detect

// extractNumbers returns the distinct candidate numbers found in text, in
// discovery order. Consecutive digit runs longer than MaxDigits are split
// into MaxDigits sized chunks. When no run survives normalization and
// validation the individual digits are retried before giving up.
func extractNumbers(text string, cfg Config) []string {
	maxLen := cfg.MaxDigits
	if maxLen < 1 {
		maxLen = 1
	}

	var runs []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		run := text[start:end]
		for len(run) > maxLen {
			runs = append(runs, run[:maxLen])
			run = run[maxLen:]
		}
		if run != "" {
			runs = append(runs, run)
		}
		start = -1
	}
	for i, r := range text {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))

	seen := make(map[string]bool, len(runs))
	var out []string
	add := func(s string) {
		s = normalizeNumber(s, cfg)
		if !isPlausibleNumber(s, cfg) || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, run := range runs {
		add(run)
	}
	if len(out) == 0 {
		for _, r := range onlyDigits(text) {
			add(string(r))
		}
	}
	return out
}
