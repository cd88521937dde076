// Package detection locates the letter board inside a camera bitmap.
//
// FindBoard works on edge density rather than on recognized text, so it is
// cheap enough to run on every analysis before the slower OCR pass:
//
//  1. Edge Detection: grayscale, Sobel, then a binary threshold (bild)
//  2. Cell Scoring: the image is split into square cells and cells with a
//     glyph-like edge density are kept
//  3. Merging: kept cells within one cell of each other are merged
//  4. Selection: the largest region with enough filled cells wins
//
// When nothing qualifies FindBoard returns ErrNoBoard, which the scanner
// reports as "no board detected" rather than as a failure.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
package detection
