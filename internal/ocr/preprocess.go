package ocr

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Scan cleanup before OCR. The chain is fixed so the same input always
// produces the same bitmap: grayscale, 5x5 Gaussian blur, Gaussian-weighted
// adaptive threshold (11x11 block, offset 2), then a 2x2 morphological
// closing to heal one-pixel breaks in glyph strokes.
const (
	blurSigma   = 1.1 // sigma of a 5x5 Gaussian kernel
	threshBlock = 11
	threshC     = 2.0
	threshSigma = 2.0 // sigma of an 11-tap Gaussian window
)

var threshKernel = gaussianKernel(threshBlock, threshSigma)

// Preprocess returns the cleaned-up binary image used for recognition.
// Already single-channel inputs skip the grayscale conversion.
func Preprocess(src image.Image) *image.Gray {
	work := src
	if _, ok := src.(*image.Gray); !ok {
		work = imaging.Grayscale(src)
	}
	blurred := imaging.Blur(work, blurSigma)
	gray := toGray(blurred)
	bin := adaptiveThreshold(gray)
	return closeGaps(bin)
}

func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func gaussianKernel(size int, sigma float64) []float64 {
	k := make([]float64, size)
	mid := size / 2
	var sum float64
	for i := range k {
		d := float64(i - mid)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// adaptiveThreshold binarizes against a local Gaussian-weighted mean: a pixel
// becomes white when it is brighter than its neighborhood mean minus the
// offset. Local thresholds survive uneven scan lighting where a single global
// cutoff would wipe out half the page. Borders clamp to the edge pixel.
func adaptiveThreshold(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	r := threshBlock / 2

	// separable pass: horizontal then vertical
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for x := 0; x < w; x++ {
			var sum float64
			for k := -r; k <= r; k++ {
				sum += threshKernel[k+r] * float64(row[clampInt(x+k, 0, w-1)])
			}
			tmp[y*w+x] = sum
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var mean float64
			for k := -r; k <= r; k++ {
				mean += threshKernel[k+r] * tmp[clampInt(y+k, 0, h-1)*w+x]
			}
			if float64(src.Pix[y*src.Stride+x]) > mean-threshC {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// closeGaps applies a 2x2 morphological closing (dilate then erode).
func closeGaps(src *image.Gray) *image.Gray {
	return erode2x2(dilate2x2(src))
}

func dilate2x2(src *image.Gray) *image.Gray {
	return morph2x2(src, func(a, b, c, d uint8) uint8 {
		return max(a, b, c, d)
	})
}

func erode2x2(src *image.Gray) *image.Gray {
	return morph2x2(src, func(a, b, c, d uint8) uint8 {
		return min(a, b, c, d)
	})
}

// morph2x2 folds each pixel with its left, upper and upper-left neighbors,
// clamping at the borders.
func morph2x2(src *image.Gray, fold func(a, b, c, d uint8) uint8) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	at := func(x, y int) uint8 {
		return src.Pix[clampInt(y, 0, h-1)*src.Stride+clampInt(x, 0, w-1)]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Pix[y*dst.Stride+x] = fold(at(x-1, y-1), at(x, y-1), at(x-1, y), at(x, y))
		}
	}
	return dst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
