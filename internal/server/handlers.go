package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ironsheep/scramble-scanner/internal/board"
	"github.com/ironsheep/scramble-scanner/internal/capture"
	"github.com/ironsheep/scramble-scanner/internal/detection"
	"github.com/ironsheep/scramble-scanner/internal/frame"
	"github.com/ironsheep/scramble-scanner/internal/imaging"
	"github.com/ironsheep/scramble-scanner/internal/ocr"
	"github.com/ironsheep/scramble-scanner/internal/permission"
	"github.com/ironsheep/scramble-scanner/internal/session"
)

// ocrTimeout bounds OCR calls made directly by tools.
const ocrTimeout = 30 * time.Second

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "scan_press", "board_ocr").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Scan Session
	case "scan_status":
		return s.scanner.Status(), nil
	case "scan_start":
		return s.handleScanStart()
	case "scan_press":
		return s.handleScanPress(args)
	case "camera_permission":
		return s.handleCameraPermission(args)

	// Frames
	case "frame_submit":
		return s.handleFrameSubmit(args)
	case "frame_convert":
		return s.handleFrameConvert(args)

	// Images
	case "image_load":
		return s.handleImageLoad(args)
	case "image_stats":
		return s.handleImageStats(args)

	// Board
	case "board_ocr":
		return s.handleBoardOCR(args)
	case "board_overlay":
		return s.handleBoardOverlay(args)
	case "ocr_info":
		return ocr.GetInfo(s.tessdata, s.language), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Scan Session Handlers ===

type scanStartResult struct {
	State             string `json:"state"`
	CameraAcquired    bool   `json:"camera_acquired"`
	PermissionPending bool   `json:"permission_pending"`
}

func (s *Server) handleScanStart() (interface{}, error) {
	err := s.scanner.Start()
	if err != nil && !errors.Is(err, session.ErrPermissionDenied) {
		return nil, err
	}
	status := s.scanner.Status()
	return scanStartResult{
		State:             status.Session.State,
		CameraAcquired:    status.CameraAcquired,
		PermissionPending: s.perms != nil && s.perms.Pending(permission.Camera) > 0,
	}, nil
}

type scanPressArgs struct {
	Wait bool `json:"wait"`
}

func (s *Server) handleScanPress(args json.RawMessage) (interface{}, error) {
	var a scanPressArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	st, err := s.scanner.Press()
	if err != nil {
		return nil, err
	}
	if a.Wait && st == session.Processing {
		s.scanner.Wait()
	}
	return s.scanner.Status(), nil
}

type cameraPermissionArgs struct {
	Granted bool `json:"granted"`
}

func (s *Server) handleCameraPermission(args json.RawMessage) (interface{}, error) {
	var a cameraPermissionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.perms == nil {
		return nil, fmt.Errorf("camera permission is fixed by configuration")
	}
	pending := s.perms.Pending(permission.Camera)
	s.perms.Resolve(permission.Camera, a.Granted)
	return map[string]interface{}{
		"granted":         a.Granted,
		"resolved":        pending,
		"camera_acquired": s.scanner.Status().CameraAcquired,
	}, nil
}

// === Frame Handlers ===

type rawFrameArgs struct {
	Path       string `json:"path"`
	DataBase64 string `json:"data_base64"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Layout     string `json:"layout"`
}

// frame builds a frame from the arguments, filling in configured defaults.
func (s *Server) frame(a rawFrameArgs) (*frame.Frame, error) {
	if a.Width == 0 {
		a.Width = s.frameWidth
	}
	if a.Height == 0 {
		a.Height = s.frameHeight
	}
	layout := s.frameLayout
	if a.Layout != "" {
		l, err := capture.ParseLayout(a.Layout)
		if err != nil {
			return nil, err
		}
		layout = l
	}

	var (
		f   *frame.Frame
		err error
	)
	switch {
	case a.Path != "":
		f, err = capture.ReadFrameFile(a.Path, a.Width, a.Height, layout)
	case a.DataBase64 != "":
		data, derr := base64.StdEncoding.DecodeString(a.DataBase64)
		if derr != nil {
			return nil, fmt.Errorf("invalid data_base64: %w", derr)
		}
		f, err = capture.Split(layout, data, a.Width, a.Height, nil)
	default:
		return nil, fmt.Errorf("either path or data_base64 is required")
	}
	if err != nil {
		return nil, err
	}
	f.Seq = s.seq.Add(1)
	return f, nil
}

type frameSubmitArgs struct {
	rawFrameArgs
	Sync bool `json:"sync"`
}

type frameSubmitResult struct {
	Seq     uint64 `json:"seq"`
	Queued  bool   `json:"queued"`
	Dropped bool   `json:"dropped"`
	Stored  bool   `json:"stored"`
	State   string `json:"state"`
}

func (s *Server) handleFrameSubmit(args json.RawMessage) (interface{}, error) {
	var a frameSubmitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	f, err := s.frame(a.rawFrameArgs)
	if err != nil {
		return nil, err
	}

	result := frameSubmitResult{Seq: f.Seq}
	if a.Sync {
		stored, err := s.scanner.Process(f)
		if err != nil {
			return nil, err
		}
		result.Stored = stored
	} else {
		result.Dropped = s.scanner.Offer(f)
		result.Queued = true
	}
	result.State = s.scanner.Session().State().String()
	return result, nil
}

type frameConvertArgs struct {
	rawFrameArgs
	Converter string `json:"converter"`
	Quality   *int   `json:"quality"`
}

type frameConvertResult struct {
	ID    string                `json:"id"`
	Info  *imaging.ImageInfo    `json:"info"`
	Image *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleFrameConvert(args json.RawMessage) (interface{}, error) {
	var a frameConvertArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var conv frame.Converter
	switch a.Converter {
	case "", "jpeg":
		q := s.jpegQuality
		if a.Quality != nil {
			if *a.Quality < 1 || *a.Quality > 100 {
				return nil, fmt.Errorf("quality %d outside 1-100", *a.Quality)
			}
			q = *a.Quality
		}
		conv = frame.NewJPEGConverter(q)
	case "direct":
		conv = frame.DirectConverter{}
	default:
		return nil, fmt.Errorf("unknown converter: %s", a.Converter)
	}

	f, err := s.frame(a.rawFrameArgs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := conv.Convert(f)
	if err != nil {
		return nil, err
	}

	id := s.store.Put(img, fmt.Sprintf("convert:%d", f.Seq))
	info, err := s.store.Info(id)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return frameConvertResult{ID: id, Info: info, Image: encoded}, nil
}

// === Image Handlers ===

type imageSourceArgs struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// image resolves a stored image by ID, or loads it from path.
func (s *Server) image(a imageSourceArgs) (string, image.Image, error) {
	if a.ID != "" {
		img, err := s.store.Get(a.ID)
		return a.ID, img, err
	}
	if a.Path == "" {
		return "", nil, fmt.Errorf("either id or path is required")
	}
	return s.store.Load(a.Path)
}

type regionArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r *regionArgs) rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageSourceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	id, _, err := s.store.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return s.store.Info(id)
}

type imageStatsArgs struct {
	imageSourceArgs
	Region   *regionArgs `json:"region"`
	Dominant int         `json:"dominant"`
}

func (s *Server) handleImageStats(args json.RawMessage) (interface{}, error) {
	var a imageStatsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Dominant == 0 {
		a.Dominant = 5
	}
	_, img, err := s.image(a.imageSourceArgs)
	if err != nil {
		return nil, err
	}

	var region *image.Rectangle
	if a.Region != nil {
		r := a.Region.rect()
		region = &r
	}
	return imaging.Stats(img, region, a.Dominant)
}

// === Board Handlers ===

type boardOCRArgs struct {
	imageSourceArgs
	Region *regionArgs `json:"region"`
}

type boardOCRResult struct {
	ID      string            `json:"id"`
	Region  *detection.Region `json:"region,omitempty"`
	Board   *board.Board      `json:"board,omitempty"`
	Text    string            `json:"text"`
	RawText string            `json:"raw_text"`
	Regions []ocr.TextRegion  `json:"regions,omitempty"`
}

func (s *Server) handleBoardOCR(args json.RawMessage) (interface{}, error) {
	var a boardOCRArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	id, img, err := s.image(a.imageSourceArgs)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), ocrTimeout)
	defer cancel()

	if a.Region == nil {
		reading, err := s.scanner.ReadBoard(ctx, img)
		if err != nil {
			return nil, err
		}
		return boardOCRResult{
			ID:      id,
			Region:  reading.Region,
			Board:   reading.Board,
			Text:    reading.Board.String(),
			RawText: reading.RawText,
		}, nil
	}

	if s.recognizer == nil {
		return nil, fmt.Errorf("no recognizer configured")
	}
	res, err := ocr.RecognizeRegion(ctx, s.recognizer, img, a.Region.rect(), s.language)
	if err != nil {
		return nil, err
	}
	b, err := board.Parse(res.FullText)
	if err != nil {
		return nil, err
	}
	return boardOCRResult{
		ID:      id,
		Board:   b,
		Text:    b.String(),
		RawText: res.FullText,
		Regions: res.Regions,
	}, nil
}

type boardOverlayArgs struct {
	imageSourceArgs
	Size   int         `json:"size"`
	Region *regionArgs `json:"region"`
	Color  string      `json:"color"`
	Text   string      `json:"text"`
}

func (s *Server) handleBoardOverlay(args json.RawMessage) (interface{}, error) {
	var a boardOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	_, img, err := s.image(a.imageSourceArgs)
	if err != nil {
		return nil, err
	}

	var rect image.Rectangle
	if a.Region != nil {
		rect = a.Region.rect()
	} else {
		region, err := detection.FindBoard(img, detection.DefaultOptions())
		if err != nil {
			return nil, err
		}
		rect = region.Bounds.Rect()
	}

	var letters [][]string
	if a.Text != "" {
		b, err := board.Parse(a.Text)
		if err != nil {
			return nil, err
		}
		letters = b.Rows
		if a.Size == 0 {
			a.Size = b.Size
		}
	}
	if a.Size == 0 {
		a.Size = 4
	}

	overlay, err := imaging.BoardOverlay(img, rect, a.Size, a.Color, letters)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNG(overlay)
}
