package detect

import (
	"image"
	"math"
	"strings"
)

// Candidate is one number claim produced by a detection, with its box
// already mapped back to original image coordinates.
type Candidate struct {
	Number     string
	Confidence float64
	Box        image.Rectangle
}

// Result is an accepted number carrying the confidence and box of its
// strongest observation.
type Result struct {
	Number     string
	Confidence float64
	Box        image.Rectangle
}

// collectCandidates turns one detection into candidates. Detections with no
// text or an unusable confidence are dropped, confidences above 1 are
// clamped. A number that covers only part of the recognized text gets its
// confidence scaled by PartialPenalty.
func collectCandidates(det Detection, v Variant, cfg Config) []Candidate {
	text := strings.TrimSpace(det.Text)
	if text == "" {
		return nil
	}
	conf := det.Confidence
	if math.IsNaN(conf) || conf < 0 {
		return nil
	}
	if conf > 1 {
		conf = 1
	}
	numbers := extractNumbers(text, cfg)
	if len(numbers) == 0 {
		return nil
	}
	box := originalBounds(det.Quad, v)
	out := make([]Candidate, 0, len(numbers))
	for _, n := range numbers {
		c := conf
		if len(n) != len(text) {
			c *= cfg.PartialPenalty
		}
		out = append(out, Candidate{Number: n, Confidence: round4(c), Box: box})
	}
	return out
}

// originalBounds maps a variant space quad to its axis aligned bounds in
// original image coordinates. The reported box is always at least 1x1.
func originalBounds(q [4]image.Point, v Variant) image.Rectangle {
	sx, sy := v.SX, v.SY
	if sx <= 0 {
		sx = 1
	}
	if sy <= 0 {
		sy = 1
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range q {
		x := float64(p.X)/sx + float64(v.OX)
		y := float64(p.Y)/sy + float64(v.OY)
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	x0 := int(minX)
	y0 := int(minY)
	w := int(maxX) - x0
	h := int(maxY) - y0
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Rect(x0, y0, x0+w, y0+h)
}
