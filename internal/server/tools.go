package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// imageSourceProperties are shared by tools that read a stored image or a
// file from disk.
func imageSourceProperties() map[string]interface{} {
	return map[string]interface{}{
		"id": map[string]interface{}{
			"type":        "string",
			"description": "ID of a stored image (from image_load, frame_convert or a scan result)",
		},
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to an image file. Used when id is empty",
		},
	}
}

func regionSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer"},
			"y2": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

// rawFrameProperties describe a raw YUV 4:2:0 frame argument.
func rawFrameProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to a raw YUV file. The first frame is used",
		},
		"data_base64": map[string]interface{}{
			"type":        "string",
			"description": "Raw YUV bytes, base64 encoded. Used when path is empty",
		},
		"width": map[string]interface{}{
			"type":        "integer",
			"description": "Frame width in pixels (default from configuration)",
		},
		"height": map[string]interface{}{
			"type":        "integer",
			"description": "Frame height in pixels (default from configuration)",
		},
		"layout": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"nv21", "i420"},
			"description": "Byte layout of the frame (default nv21)",
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Scan Session
		{
			Name:        "scan_status",
			Description: "Get the scan session state, the scan panel (button label, overlay, recognized text, status message), frame counters and the last analysis result.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "scan_start",
			Description: "Acquire the camera. Without camera permission a permission request is made and the session stays idle until it is granted.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "scan_press",
			Description: "Press the scan button. Idle starts capturing, Capturing starts analysis of the latest frame, Completed or Failed return to idle. Presses during analysis are ignored.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"wait": map[string]interface{}{
						"type":        "boolean",
						"description": "Wait for a started analysis to finish before returning",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "camera_permission",
			Description: "Answer pending camera permission requests.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"granted": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether the camera may be used",
					},
				},
				"required": []string{"granted"},
			},
		},

		// Frames
		{
			Name:        "frame_submit",
			Description: "Deliver a raw YUV 4:2:0 camera frame to the scanner. While capturing, the frame is converted and becomes the latest bitmap.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(rawFrameProperties(), map[string]interface{}{
					"sync": map[string]interface{}{
						"type":        "boolean",
						"description": "Convert the frame before returning instead of queueing it",
						"default":     false,
					},
				}),
			},
		},
		{
			Name:        "frame_convert",
			Description: "Convert a raw YUV 4:2:0 frame to a bitmap without touching the scan session. The bitmap is stored and returned as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(rawFrameProperties(), map[string]interface{}{
					"converter": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"jpeg", "direct"},
						"description": "jpeg compresses through JPEG like a phone camera pipeline; direct converts YUV to RGB (default jpeg)",
					},
					"quality": map[string]interface{}{
						"type":        "integer",
						"minimum":     1,
						"maximum":     100,
						"description": "JPEG quality 1-100 (default 50)",
					},
				}),
			},
		},

		// Images
		{
			Name:        "image_load",
			Description: "Load an image file into the image store and return its ID, dimensions and format.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_stats",
			Description: "Report mean color, luminance, contrast and dominant colors of an image or region. Useful to judge whether a frame is too dark or washed out to read.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(imageSourceProperties(), map[string]interface{}{
					"region": regionSchema("Optional region to measure"),
					"dominant": map[string]interface{}{
						"type":        "integer",
						"description": "Number of dominant colors to report (default 5)",
						"default":     5,
					},
				}),
			},
		},

		// Board
		{
			Name:        "board_ocr",
			Description: "Read the letter board in an image. Without a region the board is located automatically; with a region only that area is read.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(imageSourceProperties(), map[string]interface{}{
					"region": regionSchema("Optional board region"),
				}),
			},
		},
		{
			Name:        "board_overlay",
			Description: "Draw an N x N grid over the board region of an image, optionally labelling each cell with its letter. Returns base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(imageSourceProperties(), map[string]interface{}{
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Grid size N (default: derived from text, or 4)",
					},
					"region": regionSchema("Board region (default: located automatically)"),
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Line color as hex (#RRGGBB or #RRGGBBAA) or a color name (default red)",
					},
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Board letters to label the cells with, e.g. the text of a completed scan",
					},
				}),
			},
		},
		{
			Name:        "ocr_info",
			Description: "Report whether the Tesseract recognizer is available, its version and language.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
