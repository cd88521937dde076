// Package board turns recognized text into a square letter grid.
package board

import (
	"errors"
	"math"
	"strings"
	"unicode"
)

// ErrEmpty is returned when the text contains no letters.
var ErrEmpty = errors.New("no letters recognized")

// Board is a square grid of letters read row by row.
type Board struct {
	Size int        `json:"size"`
	Rows [][]string `json:"rows"`
}

// Parse extracts the letters from OCR output, uppercases them, and lays
// them out in a grid whose side is the rounded square root of the letter
// count. The last row may be short when the count is not a perfect square.
func Parse(text string) (*Board, error) {
	var letters []string
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters = append(letters, string(unicode.ToUpper(r)))
		}
	}
	if len(letters) == 0 {
		return nil, ErrEmpty
	}

	size := int(math.Round(math.Sqrt(float64(len(letters)))))
	if size < 1 {
		size = 1
	}

	b := &Board{Size: size}
	for start := 0; start < len(letters); start += size {
		end := start + size
		if end > len(letters) {
			end = len(letters)
		}
		b.Rows = append(b.Rows, letters[start:end])
	}
	return b, nil
}

// Letters returns the total letter count.
func (b *Board) Letters() int {
	n := 0
	for _, row := range b.Rows {
		n += len(row)
	}
	return n
}

// String renders rows of space separated letters joined by newlines.
func (b *Board) String() string {
	rows := make([]string, len(b.Rows))
	for i, row := range b.Rows {
		rows[i] = strings.Join(row, " ")
	}
	return strings.Join(rows, "\n")
}
