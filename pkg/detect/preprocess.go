package detect

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// grayPlane extracts one luminance byte per pixel.
func grayPlane(img image.Image) ([]uint8, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := make([]uint8, w*h)
	if n, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			row := n.Pix[y*n.Stride : y*n.Stride+w*4]
			for x := 0; x < w; x++ {
				r := int(row[x*4])
				g := int(row[x*4+1])
				bl := int(row[x*4+2])
				plane[y*w+x] = uint8((r + g + bl) / 3)
			}
		}
		return plane, w, h
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			plane[y*w+x] = uint8((r + g + bl) / 3 >> 8)
		}
	}
	return plane, w, h
}

// monochrome builds a black-and-white NRGBA from a bit plane where true is black.
func monochrome(black []bool, w, h int) *image.NRGBA {
	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if black[y*w+x] {
				i := y*out.Stride + x*4
				out.Pix[i] = 0
				out.Pix[i+1] = 0
				out.Pix[i+2] = 0
			}
		}
	}
	return out
}

// binarize applies a global threshold. Pixels at or below the threshold
// become black.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	plane, w, h := grayPlane(img)
	black := make([]bool, w*h)
	for i, v := range plane {
		black[i] = v <= threshold
	}
	return monochrome(black, w, h)
}

// adaptiveThreshold compares every pixel against the mean of its local window
// minus bias. The window is clamped to an odd size of at least 3.
func adaptiveThreshold(img image.Image, window, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	plane, w, h := grayPlane(img)

	// Summed-area table with a padding row and column so window sums need no
	// boundary special cases.
	sat := make([]int, (w+1)*(h+1))
	for y := 1; y <= h; y++ {
		rowSum := 0
		for x := 1; x <= w; x++ {
			rowSum += int(plane[(y-1)*w+x-1])
			sat[y*(w+1)+x] = sat[(y-1)*(w+1)+x] + rowSum
		}
	}

	half := window / 2
	black := make([]bool, w*h)
	for y := 0; y < h; y++ {
		y0, y1 := y-half, y+half
		if y0 < 0 {
			y0 = 0
		}
		if y1 >= h {
			y1 = h - 1
		}
		for x := 0; x < w; x++ {
			x0, x1 := x-half, x+half
			if x0 < 0 {
				x0 = 0
			}
			if x1 >= w {
				x1 = w - 1
			}
			sum := sat[(y1+1)*(w+1)+x1+1] - sat[y0*(w+1)+x1+1] - sat[(y1+1)*(w+1)+x0] + sat[y0*(w+1)+x0]
			mean := sum / ((x1 - x0 + 1) * (y1 - y0 + 1))
			th := mean - bias
			if th < 0 {
				th = 0
			}
			black[y*w+x] = int(plane[y*w+x]) < th
		}
	}
	return monochrome(black, w, h)
}

// dilate grows black regions by one 4-neighborhood step per radius unit.
func dilate(img *image.NRGBA, radius int) *image.NRGBA {
	if radius <= 0 {
		return img
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	cur := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cur[y*w+x] = img.Pix[y*img.Stride+x*4] == 0
		}
	}
	for r := 0; r < radius; r++ {
		next := make([]bool, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if cur[y*w+x] ||
					(x > 0 && cur[y*w+x-1]) ||
					(x < w-1 && cur[y*w+x+1]) ||
					(y > 0 && cur[(y-1)*w+x]) ||
					(y < h-1 && cur[(y+1)*w+x]) {
					next[y*w+x] = true
				}
			}
		}
		cur = next
	}
	return monochrome(cur, w, h)
}
