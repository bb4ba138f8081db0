package detect

import (
	"image"
	"math"
	"testing"
)

func TestCollectMapsBoxToOriginalSpace(t *testing.T) {
	// Variant at half the original size, coordinates double on the way back.
	v := Variant{Name: "base", SX: 0.5, SY: 0.5}
	d := Detection{Quad: rectQuad(image.Rect(10, 10, 50, 30)), Text: "23", Confidence: 0.9}
	got := collectCandidates(d, v, DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("expected one candidate got %d", len(got))
	}
	want := image.Rect(20, 20, 100, 60)
	if got[0].Box != want {
		t.Fatalf("expected %v got %v", want, got[0].Box)
	}
	if got[0].Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9 got %v", got[0].Confidence)
	}
}

func TestCollectUpscaledVariantShrinksBox(t *testing.T) {
	v := Variant{Name: "upscale-2.0x", SX: 2, SY: 2}
	d := Detection{Quad: rectQuad(image.Rect(10, 10, 50, 30)), Text: "7", Confidence: 0.6}
	got := collectCandidates(d, v, DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("expected one candidate got %d", len(got))
	}
	want := image.Rect(5, 5, 25, 15)
	if got[0].Box != want {
		t.Fatalf("expected %v got %v", want, got[0].Box)
	}
}

func TestCollectAppliesSliceOffset(t *testing.T) {
	v := Variant{Name: "slice-2", SX: 1, SY: 1, OX: 800}
	d := Detection{Quad: rectQuad(image.Rect(5, 40, 25, 60)), Text: "11", Confidence: 0.5}
	got := collectCandidates(d, v, DefaultConfig())
	want := image.Rect(805, 40, 825, 60)
	if len(got) != 1 || got[0].Box != want {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestCollectPartialTextPenalty(t *testing.T) {
	v := Variant{Name: "base", SX: 1, SY: 1}
	d := Detection{Quad: rectQuad(image.Rect(0, 0, 10, 10)), Text: "N23", Confidence: 0.5}
	got := collectCandidates(d, v, DefaultConfig())
	if len(got) != 1 || got[0].Number != "23" {
		t.Fatalf("expected [23] got %v", got)
	}
	if got[0].Confidence != 0.4 {
		t.Fatalf("expected penalized confidence 0.4 got %v", got[0].Confidence)
	}
}

func TestCollectNormalizedLengthCountsAsPartial(t *testing.T) {
	// "07" normalizes to "7", which no longer covers the full read.
	v := Variant{SX: 1, SY: 1}
	d := Detection{Quad: rectQuad(image.Rect(0, 0, 8, 8)), Text: "07", Confidence: 1}
	got := collectCandidates(d, v, DefaultConfig())
	if len(got) != 1 || got[0].Number != "7" {
		t.Fatalf("expected [7] got %v", got)
	}
	if got[0].Confidence != 0.8 {
		t.Fatalf("expected 0.8 got %v", got[0].Confidence)
	}
}

func TestCollectDropsUnusableDetections(t *testing.T) {
	v := Variant{SX: 1, SY: 1}
	cfg := DefaultConfig()
	cases := []Detection{
		{Quad: rectQuad(image.Rect(0, 0, 4, 4)), Text: "", Confidence: 0.9},
		{Quad: rectQuad(image.Rect(0, 0, 4, 4)), Text: "   ", Confidence: 0.9},
		{Quad: rectQuad(image.Rect(0, 0, 4, 4)), Text: "12", Confidence: math.NaN()},
		{Quad: rectQuad(image.Rect(0, 0, 4, 4)), Text: "12", Confidence: -0.1},
		{Quad: rectQuad(image.Rect(0, 0, 4, 4)), Text: "abc", Confidence: 0.9},
	}
	for i, d := range cases {
		if got := collectCandidates(d, v, cfg); len(got) != 0 {
			t.Fatalf("case %d: expected no candidates got %v", i, got)
		}
	}
}

func TestCollectClampsOverflowConfidence(t *testing.T) {
	v := Variant{SX: 1, SY: 1}
	d := Detection{Quad: rectQuad(image.Rect(0, 0, 4, 4)), Text: "9", Confidence: 1.7}
	got := collectCandidates(d, v, DefaultConfig())
	if len(got) != 1 || got[0].Confidence != 1 {
		t.Fatalf("expected clamped confidence 1 got %v", got)
	}
}

func TestCollectDegenerateQuadKeepsMinimumSize(t *testing.T) {
	v := Variant{SX: 1, SY: 1}
	d := Detection{Quad: rectQuad(image.Rect(7, 7, 7, 7)), Text: "5", Confidence: 0.9}
	got := collectCandidates(d, v, DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("expected one candidate got %d", len(got))
	}
	if got[0].Box.Dx() != 1 || got[0].Box.Dy() != 1 {
		t.Fatalf("expected 1x1 box got %v", got[0].Box)
	}
}
