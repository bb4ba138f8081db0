package detect

import (
	"sort"
	"strconv"
)

// aggregate groups candidates by number, keeps each group's strongest
// observation and applies the confidence thresholds. Group order follows
// candidate discovery order so equal confidences rank the same way on every
// run.
func aggregate(cands []Candidate, cfg Config) []Result {
	groups := make(map[string][]Candidate, len(cands))
	var order []string
	for _, c := range cands {
		if _, ok := groups[c.Number]; !ok {
			order = append(order, c.Number)
		}
		groups[c.Number] = append(groups[c.Number], c)
	}

	results := make([]Result, 0, len(order))
	for _, num := range order {
		n, err := strconv.Atoi(num)
		if err != nil || n < 0 || n > cfg.MaxValue {
			continue
		}
		group := groups[num]
		best := group[0]
		for _, c := range group[1:] {
			if c.Confidence > best.Confidence {
				best = c
			}
		}
		if best.Confidence < cfg.minConfidence(len(num), len(group)) {
			continue
		}
		results = append(results, Result{Number: num, Confidence: best.Confidence, Box: best.Box})
	}
	rank(results)
	return results
}

// rank orders results by confidence, strongest first. Ties keep their
// discovery order.
func rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
}
