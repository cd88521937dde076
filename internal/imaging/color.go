package imaging

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in several representations.
type ColorResult struct {
	Hex string   `json:"hex"` // Hex format "#rrggbb" (no alpha)
	RGB RGBColor `json:"rgb"`
	HSL HSLColor `json:"hsl"`
}

// ColorFrequency is one entry of a dominant color list.
type ColorFrequency struct {
	Hex        string   `json:"hex"`        // Quantized hex color
	Percentage float64  `json:"percentage"` // Percentage of pixels with this color (0-100)
	RGB        RGBColor `json:"rgb"`        // RGB components (quantized)
}

// ImageStats summarizes the tones of a bitmap. The scanner logs them for
// each analyzed frame; dark or flat frames usually explain a failed read.
type ImageStats struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Mean is the average color.
	Mean ColorResult `json:"mean"`

	// Luminance is the mean CIE L* lightness (0-100) and Contrast its
	// standard deviation.
	Luminance float64 `json:"luminance"`
	Contrast  float64 `json:"contrast"`

	// Dominant lists the most common quantized colors.
	Dominant []ColorFrequency `json:"dominant"`
}

// newColorResult builds all representations of c.
func newColorResult(c colorful.Color) ColorResult {
	c = c.Clamped()
	r, g, b := c.RGB255()
	h, s, l := c.Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	return ColorResult{
		Hex: c.Hex(),
		RGB: RGBColor{R: r, G: g, B: b},
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
	}
}

// Stats computes tone statistics for region of img, or for the whole image
// when region is nil. At most dominant colors are listed.
func Stats(img image.Image, region *image.Rectangle, dominant int) (*ImageStats, error) {
	bounds := img.Bounds()
	if region != nil {
		if region.Empty() || !region.In(bounds) {
			return nil, fmt.Errorf("region %v outside image bounds %v", *region, bounds)
		}
		bounds = *region
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}

	var sumR, sumG, sumB, sumL, sumL2 float64
	colorCounts := make(map[RGBColor]int)
	n := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				// Fully transparent pixels carry no color.
				continue
			}
			sumR += c.R
			sumG += c.G
			sumB += c.B

			l, _, _ := c.Lab()
			sumL += l
			sumL2 += l * l

			// Quantize to reduce color space (group similar colors)
			r8, g8, b8 := c.RGB255()
			colorCounts[RGBColor{R: r8 / 16 * 16, G: g8 / 16 * 16, B: b8 / 16 * 16}]++
			n++
		}
	}

	stats := &ImageStats{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Dominant: []ColorFrequency{},
	}
	if n == 0 {
		return stats, nil
	}

	total := float64(n)
	stats.Mean = newColorResult(colorful.Color{R: sumR / total, G: sumG / total, B: sumB / total})

	meanL := sumL / total
	variance := sumL2/total - meanL*meanL
	if variance < 0 {
		variance = 0
	}
	// Lab() reports L in 0..1.
	stats.Luminance = math.Round(meanL*1000) / 10
	stats.Contrast = math.Round(math.Sqrt(variance)*1000) / 10

	colors := make([]ColorFrequency, 0, len(colorCounts))
	for rgb, cnt := range colorCounts {
		colors = append(colors, ColorFrequency{
			Hex:        fmt.Sprintf("#%02x%02x%02x", rgb.R, rgb.G, rgb.B),
			Percentage: float64(cnt) / total * 100,
			RGB:        rgb,
		})
	}

	sort.Slice(colors, func(i, j int) bool {
		if colors[i].Percentage != colors[j].Percentage {
			return colors[i].Percentage > colors[j].Percentage
		}
		return colors[i].Hex < colors[j].Hex
	})

	if dominant >= 0 && len(colors) > dominant {
		colors = colors[:dominant]
	}
	stats.Dominant = colors

	return stats, nil
}
