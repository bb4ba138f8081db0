package detect

import (
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestBinarizeSplitsOnThreshold(t *testing.T) {
	img := imaging.New(2, 1, color.NRGBA{255, 255, 255, 255})
	img.Set(0, 0, color.NRGBA{20, 20, 20, 255})
	out := binarize(img, 128)
	if out.NRGBAAt(0, 0).R != 0 {
		t.Fatalf("dark pixel should be black, got %v", out.NRGBAAt(0, 0))
	}
	if out.NRGBAAt(1, 0).R != 255 {
		t.Fatalf("light pixel should stay white, got %v", out.NRGBAAt(1, 0))
	}
}

func TestAdaptiveThresholdUniformImageStaysWhite(t *testing.T) {
	img := imaging.New(16, 16, color.NRGBA{120, 120, 120, 255})
	out := adaptiveThreshold(img, 5, 5)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if out.NRGBAAt(x, y).R != 255 {
				t.Fatalf("pixel %d,%d should be white", x, y)
			}
		}
	}
}

func TestAdaptiveThresholdMarksDarkDetail(t *testing.T) {
	img := imaging.New(17, 17, color.NRGBA{200, 200, 200, 255})
	img.Set(8, 8, color.NRGBA{0, 0, 0, 255})
	out := adaptiveThreshold(img, 15, 5)
	if out.NRGBAAt(8, 8).R != 0 {
		t.Fatalf("dark center should be black")
	}
	if out.NRGBAAt(0, 0).R != 255 {
		t.Fatalf("background corner should stay white")
	}
}

func TestDilateGrowsStrokes(t *testing.T) {
	img := imaging.New(5, 5, color.NRGBA{255, 255, 255, 255})
	img.Set(2, 2, color.NRGBA{0, 0, 0, 255})
	out := dilate(img, 1)
	for _, p := range [][2]int{{2, 2}, {1, 2}, {3, 2}, {2, 1}, {2, 3}} {
		if out.NRGBAAt(p[0], p[1]).R != 0 {
			t.Fatalf("pixel %v should be black", p)
		}
	}
	if out.NRGBAAt(1, 1).R != 255 {
		t.Fatalf("diagonal should stay white")
	}
	if got := dilate(img, 0); got != img {
		t.Fatalf("radius 0 should return the input unchanged")
	}
}
