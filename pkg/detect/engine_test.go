package detect

import (
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestTesseractEngineBlankImage(t *testing.T) {
	eng := NewTesseractEngine(DefaultEngineConfig())
	if err := eng.Ready(); err != nil {
		t.Skipf("tesseract not available: %v", err)
	}
	defer eng.Close()
	p := NewPipeline(eng, DefaultConfig(), quietLogger())
	img := imaging.New(400, 200, color.NRGBA{255, 255, 255, 255})
	if got := p.ExtractNumbers(img); len(got) != 0 {
		t.Fatalf("expected no numbers on a blank image, got %v", got)
	}
}
