// Package ocr reads the letters off a board image using Tesseract.
//
// The engine is reached through gosseract/v2, so the Tesseract library and
// the language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// The default language is English ("eng"). A custom data directory can be
// supplied through Tesseract.TessdataPrefix.
//
// # Recognizer
//
// Callers depend on the Recognizer interface so the scan pipeline can be
// exercised with a fake. Tesseract is the production implementation; it
// encodes the image to PNG in memory and hands the bytes to the engine, so
// no temporary files are written.
//
// # Cancellation
//
// A Tesseract call cannot be interrupted once started. Recognize returns as
// soon as its context ends and leaves the engine to finish on its own
// goroutine; the result is discarded.
//
// If bounding box extraction fails, Recognize still returns the text with an
// empty Regions slice.
package ocr
