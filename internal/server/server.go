package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/ironsheep/scramble-scanner/internal/capture"
	"github.com/ironsheep/scramble-scanner/internal/imaging"
	"github.com/ironsheep/scramble-scanner/internal/ocr"
	"github.com/ironsheep/scramble-scanner/internal/permission"
	"github.com/ironsheep/scramble-scanner/internal/scanner"
)

// MaxRequestBytes is the default limit on one request line. It fits a
// base64 encoded frame of capture.MaxFrameBytes plus the JSON-RPC envelope.
const MaxRequestBytes = capture.MaxFrameBytes*4/3 + 64*1024

// Options configure a Server. Scanner is required.
type Options struct {
	Scanner *scanner.Scanner

	// Store holds images addressed by ID in tool calls. Defaults to a new
	// store of imaging.DefaultStoreLimit images.
	Store *imaging.Store

	// Permissions answers camera_permission calls. Nil when permission is
	// fixed by configuration.
	Permissions *permission.Manual

	// Recognizer serves region OCR outside a scan attempt.
	Recognizer     ocr.Recognizer
	Language       string
	TessdataPrefix string

	// Defaults for raw frames submitted without dimensions.
	FrameWidth  int
	FrameHeight int
	FrameLayout capture.Layout
	JPEGQuality int

	// MaxRequestBytes limits one request line. Longer lines are answered
	// with an Invalid Request error and skipped. Defaults to MaxRequestBytes.
	MaxRequestBytes int

	Version string
	Logger  *slog.Logger
}

// Server handles MCP protocol communication
type Server struct {
	scanner    *scanner.Scanner
	store      *imaging.Store
	perms      *permission.Manual
	recognizer ocr.Recognizer
	language   string
	tessdata   string

	frameWidth  int
	frameHeight int
	frameLayout capture.Layout
	jpegQuality int
	maxRequest  int

	version string
	logger  *slog.Logger

	seq atomic.Uint64
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance
func New(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = imaging.NewStore(imaging.DefaultStoreLimit)
	}
	if opts.Language == "" {
		opts.Language = ocr.DefaultLanguage
	}
	if opts.FrameLayout == "" {
		opts.FrameLayout = capture.LayoutNV21
	}
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = MaxRequestBytes
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		scanner:     opts.Scanner,
		store:       opts.Store,
		perms:       opts.Permissions,
		recognizer:  opts.Recognizer,
		language:    opts.Language,
		tessdata:    opts.TessdataPrefix,
		frameWidth:  opts.FrameWidth,
		frameHeight: opts.FrameHeight,
		frameLayout: opts.FrameLayout,
		jpegQuality: opts.JPEGQuality,
		maxRequest:  opts.MaxRequestBytes,
		version:     opts.Version,
		logger:      opts.Logger,
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve handles one JSON-RPC request per line of r until r is exhausted.
// A line longer than the request limit is discarded and answered with an
// Invalid Request error; serving continues with the next line.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	encoder := json.NewEncoder(w)

	for {
		line, tooLong, err := readLine(reader, s.maxRequest)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read error: %w", err)
		}

		if tooLong {
			s.logger.Warn("request too large", "limit", s.maxRequest)
			resp := s.errorResponse(nil, -32600, "Invalid Request",
				fmt.Sprintf("request exceeds %d bytes", s.maxRequest))
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
		} else if len(line) > 0 {
			s.serveLine(line, encoder)
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func (s *Server) serveLine(line []byte, encoder *json.Encoder) {
	var req MCPRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Warn("failed to parse request", "error", err)
		return
	}

	resp := s.handleRequest(&req)
	if resp != nil {
		if err := encoder.Encode(resp); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

// readLine returns the next line of r without its line ending. When the line
// is longer than limit the rest of it is consumed, nothing is buffered and
// tooLong is set. err is io.EOF only with the final line.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		var chunk []byte
		chunk, err = r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			chunk = bytes.TrimRight(chunk, "\r\n")
		}
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, err
	}
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "scramble-scanner",
				"version": s.version,
			},
		},
	}
}
