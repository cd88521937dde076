// Package server implements the MCP (Model Context Protocol) server that
// drives the scramble scanner.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Scan Session:
//   - scan_status: Session state, scan panel and last result
//   - scan_start: Acquire the camera, requesting permission if needed
//   - scan_press: Press the scan button
//   - camera_permission: Answer a pending camera permission request
//
// Frames:
//   - frame_submit: Deliver a raw YUV frame to the scanner
//   - frame_convert: Convert a raw YUV frame to a stored bitmap
//
// Images:
//   - image_load: Load an image file into the store
//   - image_stats: Color and exposure statistics
//
// Board:
//   - board_ocr: Locate and read the letter board
//   - board_overlay: Draw the board grid over an image
//   - ocr_info: Recognizer availability
//
// # Image Store
//
// Bitmaps loaded from disk, converted from frames or analyzed by the
// scanner are kept in an imaging.Store and addressed by ID in later calls.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(server.Options{Scanner: sc})
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
