// Package imaging holds the bitmap helpers used around a scan: an in-memory
// store for converted frames, OCR preparation, tone statistics and the board
// overlay.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward. For regions, Min is inclusive and Max is exclusive.
//
// # Thread Safety
//
// Store is safe for concurrent use. The other functions are stateless and
// never modify their input image.
//
// # Libraries
//
// Resizing, cropping and contrast use disintegration/imaging; binarization
// and edge work use bild; color statistics use go-colorful; labels are drawn
// with the x/image basic font.
package imaging
