package detection

import (
	"errors"
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// ErrNoBoard is returned when no letter grid can be located.
var ErrNoBoard = errors.New("no board detected")

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Rect converts b to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Region is a candidate area of dense glyph edges.
type Region struct {
	Bounds     Bounds  `json:"bounds"`
	Confidence float64 `json:"confidence"`
	Area       int     `json:"area"`
	// Cells is the number of active cells merged into the region.
	Cells int `json:"cells"`
}

// Options tunes FindBoard.
type Options struct {
	// MinConfidence discards regions whose share of active cells is
	// below this value (0.0 to 1.0).
	MinConfidence float64

	// EdgeLevel is the Sobel magnitude (0-255) at which a pixel counts
	// as an edge.
	EdgeLevel uint8

	// MinDensity and MaxDensity bound the edge density of an active cell.
	MinDensity float64
	MaxDensity float64

	// MinCells is the smallest region, in cells, that may be a board.
	MinCells int
}

// DefaultOptions returns the settings used by the scanner.
func DefaultOptions() Options {
	return Options{
		MinConfidence: 0.3,
		EdgeLevel:     64,
		MinDensity:    0.03,
		MaxDensity:    0.6,
		MinCells:      4,
	}
}

// FindBoard locates the letter grid in img. The image is split into square
// cells; cells whose edge density looks like printed glyphs are merged
// with their neighbours, and the merged region with the highest
// area-weighted confidence wins.
func FindBoard(img image.Image, opts Options) (*Region, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < 3 || height < 3 {
		return nil, ErrNoBoard
	}

	edges := detectEdges(img, opts.EdgeLevel)

	cell := minInt(width, height) / 16
	if cell < 8 {
		cell = 8
	}

	candidates := make([]Region, 0)
	for y := 0; y < height; y += cell {
		for x := 0; x < width; x += cell {
			w := minInt(cell, width-x)
			h := minInt(cell, height-y)

			edgeCount := 0
			for wy := 0; wy < h; wy++ {
				row := (y + wy) * edges.Stride
				for wx := 0; wx < w; wx++ {
					if edges.Pix[row+x+wx] != 0 {
						edgeCount++
					}
				}
			}

			density := float64(edgeCount) / float64(w*h)
			if density < opts.MinDensity || density > opts.MaxDensity {
				continue
			}

			candidates = append(candidates, Region{
				Bounds: Bounds{
					X1: x + bounds.Min.X,
					Y1: y + bounds.Min.Y,
					X2: x + w + bounds.Min.X,
					Y2: y + h + bounds.Min.Y,
				},
				Area:  w * h,
				Cells: 1,
			})
		}
	}

	// Letters on a board are separated by gaps up to one cell wide.
	merged := mergeOverlappingRegions(candidates, cell)

	cellArea := float64(cell * cell)
	boards := make([]Region, 0, len(merged))
	for _, r := range merged {
		if r.Cells < opts.MinCells {
			continue
		}
		total := math.Ceil(float64(r.Area) / cellArea)
		confidence := math.Min(1, float64(r.Cells)/total)
		if confidence < opts.MinConfidence {
			continue
		}
		r.Confidence = math.Round(confidence*1000) / 1000
		boards = append(boards, r)
	}

	if len(boards) == 0 {
		return nil, ErrNoBoard
	}

	sort.Slice(boards, func(i, j int) bool {
		return float64(boards[i].Area)*boards[i].Confidence > float64(boards[j].Area)*boards[j].Confidence
	})

	best := boards[0]
	return &best, nil
}

// detectEdges returns a binary edge map: 0xFF where the Sobel magnitude
// reaches level, 0 elsewhere.
func detectEdges(img image.Image, level uint8) *image.Gray {
	gray := effect.Grayscale(img)
	edges := segment.Threshold(effect.Sobel(gray), level)
	// Re-anchor at the origin so callers can index Pix directly.
	edges.Rect = image.Rect(0, 0, edges.Rect.Dx(), edges.Rect.Dy())
	return edges
}

// mergeOverlappingRegions combines regions that overlap once each is grown
// by gap pixels, repeating until no more merges happen.
func mergeOverlappingRegions(regions []Region, gap int) []Region {
	if len(regions) == 0 {
		return regions
	}

	merged := append([]Region(nil), regions...)
	for {
		changed := false
		out := make([]Region, 0, len(merged))

		for _, r := range merged {
			foundMerge := false
			for i := range out {
				if regionsOverlap(grow(r.Bounds, gap), out[i].Bounds) {
					out[i].Bounds = mergeBounds(r.Bounds, out[i].Bounds)
					out[i].Cells += r.Cells
					out[i].Area = (out[i].Bounds.X2 - out[i].Bounds.X1) *
						(out[i].Bounds.Y2 - out[i].Bounds.Y1)
					foundMerge = true
					changed = true
					break
				}
			}
			if !foundMerge {
				out = append(out, r)
			}
		}

		merged = out
		if !changed {
			return merged
		}
	}
}

func grow(b Bounds, n int) Bounds {
	return Bounds{X1: b.X1 - n, Y1: b.Y1 - n, X2: b.X2 + n, Y2: b.Y2 + n}
}

// regionsOverlap checks if two bounds overlap
func regionsOverlap(a, b Bounds) bool {
	return a.X1 < b.X2 && a.X2 > b.X1 && a.Y1 < b.Y2 && a.Y2 > b.Y1
}

// mergeBounds combines two bounds into their union
func mergeBounds(a, b Bounds) Bounds {
	return Bounds{
		X1: minInt(a.X1, b.X1),
		Y1: minInt(a.Y1, b.Y1),
		X2: maxInt(a.X2, b.X2),
		Y2: maxInt(a.Y2, b.Y2),
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
