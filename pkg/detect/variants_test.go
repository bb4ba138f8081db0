package detect

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func testImage(w, h int) *image.NRGBA {
	img := imaging.New(w, h, color.NRGBA{200, 200, 200, 255})
	// A dark block so thresholding has something to find.
	for y := h / 4; y < h/2; y++ {
		for x := w / 4; x < w/2; x++ {
			img.Set(x, y, color.NRGBA{10, 10, 10, 255})
		}
	}
	return img
}

func TestGenerateVariantsDefaultSet(t *testing.T) {
	vs := GenerateVariants(testImage(320, 200), DefaultConfig())
	if len(vs) != 3 {
		t.Fatalf("expected 3 variants got %d", len(vs))
	}
	names := []string{"base", "enhanced", "adaptive"}
	for i, want := range names {
		if vs[i].Name != want {
			t.Fatalf("variant %d: expected %s got %s", i, want, vs[i].Name)
		}
		if vs[i].SX != 1 || vs[i].SY != 1 || vs[i].OX != 0 || vs[i].OY != 0 {
			t.Fatalf("variant %s: expected identity mapping", vs[i].Name)
		}
	}
}

func TestGenerateVariantsDownscaleRecordsScale(t *testing.T) {
	vs := GenerateVariants(testImage(3200, 200), DefaultConfig())
	base := vs[0]
	if base.Img.Bounds().Dx() != 1600 || base.Img.Bounds().Dy() != 100 {
		t.Fatalf("expected 1600x100 got %v", base.Img.Bounds())
	}
	if base.SX != 0.5 || base.SY != 0.5 {
		t.Fatalf("expected scale 0.5 got %v %v", base.SX, base.SY)
	}
}

func TestGenerateVariantsUpscaleSmallImage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinDimension = 400
	vs := GenerateVariants(testImage(200, 100), cfg)
	base := vs[0]
	if base.Img.Bounds().Dx() != 400 || base.Img.Bounds().Dy() != 200 {
		t.Fatalf("expected 400x200 got %v", base.Img.Bounds())
	}
	if base.SX != 2 || base.SY != 2 {
		t.Fatalf("expected scale 2 got %v %v", base.SX, base.SY)
	}
}

func TestGenerateVariantsUpscaleFactors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UpscaleFactors = []float64{2}
	vs := GenerateVariants(testImage(100, 80), cfg)
	if len(vs) != 4 {
		t.Fatalf("expected 4 variants got %d", len(vs))
	}
	up := vs[3]
	if up.Name != "upscale-2.0x" {
		t.Fatalf("expected upscale-2.0x got %s", up.Name)
	}
	if up.SX != 2 || up.SY != 2 {
		t.Fatalf("expected scale 2 got %v %v", up.SX, up.SY)
	}
}

func TestGenerateVariantsGlobalThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GlobalThreshold = 128
	vs := GenerateVariants(testImage(100, 80), cfg)
	if len(vs) != 4 || vs[3].Name != "binary" {
		t.Fatalf("expected a binary variant got %d variants", len(vs))
	}
}

func TestGenerateVariantsSliceOffsets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CropColumns = 2
	vs := GenerateVariants(testImage(100, 80), cfg)
	if len(vs) != 5 {
		t.Fatalf("expected 5 variants got %d", len(vs))
	}
	first, second := vs[3], vs[4]
	if first.Name != "slice-1" || first.OX != 0 {
		t.Fatalf("expected slice-1 at 0 got %s %d", first.Name, first.OX)
	}
	if second.Name != "slice-2" || second.OX != 50 {
		t.Fatalf("expected slice-2 at 50 got %s %d", second.Name, second.OX)
	}
	if second.Img.Bounds().Dx() != 50 {
		t.Fatalf("expected slice width 50 got %d", second.Img.Bounds().Dx())
	}
}

func TestGenerateVariantsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	img := testImage(160, 120)
	a := GenerateVariants(img, cfg)
	b := GenerateVariants(img, cfg)
	if len(a) != len(b) {
		t.Fatalf("variant count changed: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].SX != b[i].SX || a[i].SY != b[i].SY || a[i].OX != b[i].OX {
			t.Fatalf("variant %d metadata differs", i)
		}
		if a[i].Img.Bounds() != b[i].Img.Bounds() {
			t.Fatalf("variant %d bounds differ", i)
		}
		if a[i].Img.At(40, 30) != b[i].Img.At(40, 30) {
			t.Fatalf("variant %d pixels differ", i)
		}
	}
}
