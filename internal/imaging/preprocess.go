package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// PrepareOptions tunes PrepareForOCR.
type PrepareOptions struct {
	// Contrast is passed to imaging.AdjustContrast (-100 to 100).
	Contrast float64

	// MinWidth upscales narrower images so glyphs are large enough for
	// Tesseract. Zero disables scaling.
	MinWidth int

	// Threshold is the binarization level. Zero picks one with Otsu's
	// method.
	Threshold uint8
}

// DefaultPrepareOptions returns the settings used by the scanner.
func DefaultPrepareOptions() PrepareOptions {
	return PrepareOptions{
		Contrast: 30,
		MinWidth: 600,
	}
}

// PrepareForOCR converts a board crop into a black-on-white binary image.
// Light letters on dark tiles are inverted so text is always dark.
func PrepareForOCR(img image.Image, opts PrepareOptions) *image.Gray {
	gray := imaging.Grayscale(img)
	if opts.Contrast != 0 {
		gray = imaging.AdjustContrast(gray, opts.Contrast)
	}
	if opts.MinWidth > 0 && gray.Bounds().Dx() < opts.MinWidth {
		gray = imaging.Resize(gray, opts.MinWidth, 0, imaging.Lanczos)
	}

	level := opts.Threshold
	if level == 0 {
		level = otsuLevel(gray)
	}

	binary := segment.Threshold(gray, level)
	if darkPixels(binary) > len(binary.Pix)/2 {
		binary = segment.Threshold(effect.Invert(binary), 128)
	}
	return binary
}

// otsuLevel picks the threshold that maximizes between-class variance of
// the image's gray levels. img must already be grayscale.
func otsuLevel(img *image.NRGBA) uint8 {
	var hist [256]int
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			hist[row[x]]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}

	sumAll := 0.0
	for i, c := range hist {
		sumAll += float64(i * c)
	}

	var sumB, best float64
	wB := 0
	level := 128
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sumAll - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			// Pixels >= level turn white, so the cut sits just above t.
			level = t + 1
		}
	}
	if level > 255 {
		level = 255
	}
	return uint8(level)
}

func darkPixels(img *image.Gray) int {
	n := 0
	for _, p := range img.Pix {
		if p < 128 {
			n++
		}
	}
	return n
}
