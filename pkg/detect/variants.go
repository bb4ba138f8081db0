package detect

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Variant is one rendition of the source image handed to the recognition
// engine. SX and SY are the scale factors from original to variant space, OX
// and OY place the variant origin in original coordinates.
type Variant struct {
	Name string
	Img  image.Image
	SX   float64
	SY   float64
	OX   int
	OY   int
}

// GenerateVariants builds the variant set for one image. The same image and
// config always produce the same variants in the same order.
func GenerateVariants(src image.Image, cfg Config) []Variant {
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	if w < 1 || h < 1 {
		return nil
	}

	longest := w
	if h > longest {
		longest = h
	}
	target := 0
	if cfg.MaxDimension > 0 && longest > cfg.MaxDimension {
		target = cfg.MaxDimension
	} else if cfg.MinDimension > 0 && longest < cfg.MinDimension {
		target = cfg.MinDimension
	}
	base := imaging.Clone(src)
	sx, sy := 1.0, 1.0
	if target > 0 {
		f := float64(target) / float64(longest)
		nw := int(math.Round(float64(w) * f))
		nh := int(math.Round(float64(h) * f))
		if nw < 1 {
			nw = 1
		}
		if nh < 1 {
			nh = 1
		}
		base = imaging.Resize(base, nw, nh, imaging.Lanczos)
		sx = float64(nw) / float64(w)
		sy = float64(nh) / float64(h)
	}

	variants := []Variant{{Name: "base", Img: base, SX: sx, SY: sy}}

	var den image.Image = imaging.Grayscale(base)
	if cfg.DenoiseRadius > 0 {
		den = effect.Median(den, float64(cfg.DenoiseRadius))
	}
	enhanced := imaging.Sharpen(imaging.AdjustContrast(den, cfg.ContrastBoost), cfg.SharpenSigma)
	variants = append(variants, Variant{Name: "enhanced", Img: enhanced, SX: sx, SY: sy})

	th := adaptiveThreshold(enhanced, cfg.AdaptiveWindow, cfg.AdaptiveBias)
	if cfg.DilateRadius > 0 {
		th = dilate(th, cfg.DilateRadius)
	}
	variants = append(variants, Variant{Name: "adaptive", Img: th, SX: sx, SY: sy})

	if cfg.GlobalThreshold > 0 {
		bin := binarize(enhanced, cfg.GlobalThreshold)
		variants = append(variants, Variant{Name: "binary", Img: bin, SX: sx, SY: sy})
	}

	bw := base.Bounds().Dx()
	bh := base.Bounds().Dy()
	for _, f := range cfg.UpscaleFactors {
		if f <= 1 {
			continue
		}
		nw := int(math.Round(float64(bw) * f))
		nh := int(math.Round(float64(bh) * f))
		up := imaging.Resize(enhanced, nw, nh, imaging.Lanczos)
		variants = append(variants, Variant{
			Name: fmt.Sprintf("upscale-%.1fx", f),
			Img:  up,
			SX:   sx * float64(nw) / float64(bw),
			SY:   sy * float64(nh) / float64(bh),
		})
	}

	if cfg.CropColumns >= 2 {
		for i := 0; i < cfg.CropColumns; i++ {
			x0 := i * bw / cfg.CropColumns
			x1 := (i + 1) * bw / cfg.CropColumns
			if x1 <= x0 {
				continue
			}
			slice := imaging.Crop(enhanced, image.Rect(x0, 0, x1, bh))
			variants = append(variants, Variant{
				Name: fmt.Sprintf("slice-%d", i+1),
				Img:  slice,
				SX:   sx,
				SY:   sy,
				OX:   int(math.Round(float64(x0) / sx)),
			})
		}
	}

	return variants
}
