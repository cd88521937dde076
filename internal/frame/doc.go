// Package frame converts planar YUV camera frames into decoded bitmaps.
//
// A Frame carries exactly three byte planes ordered Y, U, V as delivered by a
// capture source. Conversion never mutates the planes and never releases the
// frame: the collaborator that received the frame owns it and must call
// Close exactly once, whether conversion succeeded or not.
//
// # Converters
//
// Two converters implement the Converter interface:
//
//   - JPEGConverter packs the planes into an NV21 buffer (Y, then V, then U),
//     encodes that image as JPEG and decodes it back into a raster bitmap.
//     This mirrors the common mobile pattern for turning a camera frame into
//     a standard bitmap and carries its cost: recompression artifacts and an
//     encode/decode pass per frame.
//   - DirectConverter samples the planes directly into an image.YCbCr using
//     each plane's pixel stride and converts that to NRGBA. It avoids the
//     recompression loss and is the better fit for latency-sensitive callers.
//
// # NV21 Layout
//
// NV21 stores the full-resolution luma plane first, followed by chroma at
// half resolution in each direction, interleaved V then U:
//
//	YYYYYYYY...  (width*height bytes)
//	VUVUVU...    (2 * ceil(width/2) * ceil(height/2) bytes)
//
// Camera frames whose chroma planes have a pixel stride of 2 are already
// interleaved in memory, so appending the V plane and then the U plane
// yields a valid NV21 buffer.
//
// # Errors
//
// Failures are reported as ErrInvalidFrame (wrong plane count, empty plane,
// non-positive dimensions, too little chroma) or ErrEncodeDecode (the JPEG
// round trip failed). Neither is retried; callers drop the frame and wait for
// the next one.
package frame
