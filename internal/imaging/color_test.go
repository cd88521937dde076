package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createInMemoryImage creates an in-memory test image
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with different colors in each quadrant
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255} // Red top-left
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255} // Green top-right
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255} // Blue bottom-left
			} else {
				c = color.RGBA{255, 255, 255, 255} // White bottom-right
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestStats_SolidColor(t *testing.T) {
	img := createInMemoryImage(20, 10, color.RGBA{255, 128, 64, 255})

	stats, err := Stats(img, nil, 5)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.Width != 20 || stats.Height != 10 {
		t.Errorf("dimensions: got %dx%d", stats.Width, stats.Height)
	}
	if stats.Mean.Hex != "#ff8040" {
		t.Errorf("mean hex: got %s, want #ff8040", stats.Mean.Hex)
	}
	if stats.Mean.RGB != (RGBColor{255, 128, 64}) {
		t.Errorf("mean rgb: got %+v", stats.Mean.RGB)
	}
	if stats.Mean.HSL.H < 19 || stats.Mean.HSL.H > 21 {
		t.Errorf("mean hue: got %d, want ~20", stats.Mean.HSL.H)
	}
	if stats.Contrast != 0 {
		t.Errorf("solid image contrast: got %v, want 0", stats.Contrast)
	}
	if len(stats.Dominant) != 1 || stats.Dominant[0].Percentage != 100 {
		t.Errorf("dominant: got %+v", stats.Dominant)
	}
}

func TestStats_BlackAndWhite(t *testing.T) {
	black, _ := Stats(createInMemoryImage(4, 4, color.Black), nil, 1)
	white, _ := Stats(createInMemoryImage(4, 4, color.White), nil, 1)

	if black.Luminance != 0 {
		t.Errorf("black luminance: got %v, want 0", black.Luminance)
	}
	if white.Luminance < 99.9 || white.Luminance > 100.1 {
		t.Errorf("white luminance: got %v, want 100", white.Luminance)
	}
	if white.Mean.HSL != (HSLColor{H: 0, S: 0, L: 100}) {
		t.Errorf("white hsl: got %+v", white.Mean.HSL)
	}
}

func TestStats_Pattern(t *testing.T) {
	img := createPatternImage(100, 100)

	stats, err := Stats(img, nil, 10)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if len(stats.Dominant) != 4 {
		t.Fatalf("dominant colors: got %d, want 4", len(stats.Dominant))
	}
	for _, c := range stats.Dominant {
		if c.Percentage != 25 {
			t.Errorf("%s: got %.1f%%, want 25%%", c.Hex, c.Percentage)
		}
	}
	if stats.Contrast <= 0 {
		t.Error("a four-color image should have contrast")
	}

	limited, _ := Stats(img, nil, 2)
	if len(limited.Dominant) != 2 {
		t.Errorf("limit: got %d colors, want 2", len(limited.Dominant))
	}
}

func TestStats_Region(t *testing.T) {
	img := createPatternImage(100, 100)
	region := image.Rect(0, 0, 50, 50)

	stats, err := Stats(img, &region, 3)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Mean.Hex != "#ff0000" {
		t.Errorf("red quadrant mean: got %s", stats.Mean.Hex)
	}
	if stats.Width != 50 || stats.Height != 50 {
		t.Errorf("region size: got %dx%d", stats.Width, stats.Height)
	}

	outside := image.Rect(90, 90, 200, 200)
	if _, err := Stats(img, &outside, 3); err == nil {
		t.Error("expected error for region outside image")
	}
}

func TestStats_Transparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))

	stats, err := Stats(img, nil, 3)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats.Dominant) != 0 {
		t.Errorf("transparent image should have no colors, got %+v", stats.Dominant)
	}
}
