package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is used when no language is supplied.
const DefaultLanguage = "eng"

// LetterWhitelist restricts recognition to the characters found on
// letter tiles.
const LetterWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this text in the image.
	Bounds Bounds `json:"bounds"`
}

// Result contains the complete results of text extraction from an image.
type Result struct {
	// FullText is all recognized text with original spacing and newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words with their bounding boxes.
	// May be empty if bounding box extraction fails.
	Regions []TextRegion `json:"regions"`
}

// Recognizer extracts text from an in-memory image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, language string) (*Result, error)
}

// Tesseract is a Recognizer backed by the Tesseract engine through
// gosseract. A fresh client is created for every call, so one value may be
// shared between goroutines.
type Tesseract struct {
	// TessdataPrefix overrides the directory holding *.traineddata files.
	TessdataPrefix string

	// Whitelist limits the characters Tesseract may emit. Empty means
	// no restriction.
	Whitelist string

	// PageSegMode selects Tesseract's layout analysis. Zero
	// (PSM_OSD_ONLY) is treated as unset and keeps the engine default.
	PageSegMode gosseract.PageSegMode
}

// NewTesseract returns a recognizer tuned for a block of letter tiles.
func NewTesseract(tessdataPrefix string) *Tesseract {
	return &Tesseract{
		TessdataPrefix: tessdataPrefix,
		Whitelist:      LetterWhitelist,
		PageSegMode:    gosseract.PSM_SINGLE_BLOCK,
	}
}

type recognizeResult struct {
	res *Result
	err error
}

// Recognize performs OCR on img. Tesseract calls cannot be interrupted, so
// when ctx ends first the call returns ctx.Err() and the engine finishes
// in the background.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, language string) (*Result, error) {
	if img == nil {
		return nil, fmt.Errorf("no image to recognize")
	}
	if language == "" {
		language = DefaultLanguage
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	done := make(chan recognizeResult, 1)
	go func() {
		res, err := t.extract(buf.Bytes(), language)
		done <- recognizeResult{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.res, r.err
	}
}

func (t *Tesseract) extract(pngData []byte, language string) (*Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	if t.Whitelist != "" {
		if err := client.SetWhitelist(t.Whitelist); err != nil {
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}

	if t.PageSegMode != 0 {
		if err := client.SetPageSegMode(t.PageSegMode); err != nil {
			return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}

	if err := client.SetImageFromBytes(pngData); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	// Get bounding boxes for words
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Return just text if boxes fail
		return &Result{
			FullText: text,
			Regions:  []TextRegion{},
		}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}

	return &Result{
		FullText: text,
		Regions:  regions,
	}, nil
}

// RecognizeRegion runs r on the part of img inside rect. Returned bounds
// are translated back into img's coordinate space.
func RecognizeRegion(ctx context.Context, r Recognizer, img image.Image, rect image.Rectangle, language string) (*Result, error) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region %v is outside the image bounds %v", rect, img.Bounds())
	}

	cropped := imaging.Crop(img, rect)

	result, err := r.Recognize(ctx, cropped, language)
	if err != nil {
		return nil, err
	}

	// Adjust bounds to be relative to original image
	for i := range result.Regions {
		result.Regions[i].Bounds.X1 += rect.Min.X
		result.Regions[i].Bounds.Y1 += rect.Min.Y
		result.Regions[i].Bounds.X2 += rect.Min.X
		result.Regions[i].Bounds.Y2 += rect.Min.Y
	}

	return result, nil
}

// Info describes the OCR subsystem.
type Info struct {
	Available      bool   `json:"available"`
	Version        string `json:"version,omitempty"`
	Error          string `json:"error,omitempty"`
	Backend        string `json:"backend"`
	TessdataPrefix string `json:"tessdata_prefix,omitempty"`
	Language       string `json:"language"`
}

// GetInfo reports whether Tesseract can be initialized for language.
func GetInfo(tessdataPrefix, language string) Info {
	if language == "" {
		language = DefaultLanguage
	}
	info := Info{
		Backend:        "gosseract",
		TessdataPrefix: tessdataPrefix,
		Language:       language,
	}

	client := gosseract.NewClient()
	defer client.Close()

	if tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(tessdataPrefix); err != nil {
			info.Error = err.Error()
			return info
		}
	}
	if err := client.SetLanguage(language); err != nil {
		info.Error = err.Error()
		return info
	}

	info.Version = client.Version()
	info.Available = info.Version != ""
	return info
}
