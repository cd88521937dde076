package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultOverlayColor is used when the requested color cannot be parsed.
var DefaultOverlayColor = color.RGBA{255, 0, 0, 255}

// BoardOverlay draws the board outline and a size x size cell grid over a
// copy of img. When letters is non-nil each recognized letter is printed in
// the top-left corner of its cell.
func BoardOverlay(img image.Image, board image.Rectangle, size int, colorSpec string, letters [][]string) (*image.RGBA, error) {
	if size < 1 {
		return nil, fmt.Errorf("grid size must be at least 1, got %d", size)
	}
	bounds := img.Bounds()
	board = board.Intersect(bounds)
	if board.Empty() {
		return nil, fmt.Errorf("board %v outside image bounds %v", board, bounds)
	}

	gridColor, err := parseColor(colorSpec)
	if err != nil {
		gridColor = DefaultOverlayColor
	}

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	// Cell edges, including the outline.
	for i := 0; i <= size; i++ {
		x := board.Min.X + i*board.Dx()/size
		if x >= board.Max.X {
			x = board.Max.X - 1
		}
		for y := board.Min.Y; y < board.Max.Y; y++ {
			result.Set(x, y, gridColor)
		}

		y := board.Min.Y + i*board.Dy()/size
		if y >= board.Max.Y {
			y = board.Max.Y - 1
		}
		for x := board.Min.X; x < board.Max.X; x++ {
			result.Set(x, y, gridColor)
		}
	}

	if letters != nil {
		bg := color.RGBA{0, 0, 0, 180}
		for row, cells := range letters {
			for col, letter := range cells {
				if row >= size || col >= size {
					continue
				}
				x := board.Min.X + col*board.Dx()/size
				y := board.Min.Y + row*board.Dy()/size
				drawLabel(result, x+2, y+2, letter, gridColor, bg)
			}
		}
	}

	return result, nil
}

// parseColor accepts "#RRGGBB", "#RRGGBBAA" or an SVG color name such as
// "lime".
func parseColor(spec string) (color.RGBA, error) {
	if c, ok := colornames.Map[strings.ToLower(strings.TrimSpace(spec))]; ok {
		return c, nil
	}
	return parseHexColor(spec)
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel prints text with basicfont on a filled background box whose
// top-left corner is (x, y).
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	box := image.Rect(x-1, y-1, x+width+1, y+height+1).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + face.Metrics().Ascent.Ceil())},
	}
	d.DrawString(text)
}
