// Package config loads scanner settings from the environment and optional
// .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Converter names.
const (
	ConverterJPEG   = "jpeg"
	ConverterDirect = "direct"
)

// Camera permission policies.
const (
	PermissionPrompt  = "prompt"
	PermissionGranted = "granted"
	PermissionDenied  = "denied"
)

// Config holds every runtime setting.
type Config struct {
	LogLevel  string
	LogFormat string

	// Converter selects the frame converter: "jpeg" or "direct".
	Converter   string
	JPEGQuality int

	// Language is the Tesseract language code passed to the recognizer.
	Language       string
	TessdataPrefix string

	// CameraFiles are raw YUV recordings replayed as the camera.
	CameraFiles      []string
	FrameWidth       int
	FrameHeight      int
	FrameLayout      string
	FrameInterval    time.Duration
	CameraLoop       bool
	CameraPermission string

	MinBoardConfidence float64
	AnalyzeTimeout     time.Duration

	// HTTPAddr enables the HTTP ingest API when non-empty.
	HTTPAddr string
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Converter:          ConverterJPEG,
		JPEGQuality:        50,
		Language:           "eng",
		FrameWidth:         640,
		FrameHeight:        480,
		FrameLayout:        "nv21",
		FrameInterval:      100 * time.Millisecond,
		CameraPermission:   PermissionPrompt,
		MinBoardConfidence: 0.3,
		AnalyzeTimeout:     20 * time.Second,
	}
}

// Load reads settings from the process environment. Values missing there
// are looked up in the first existing .env file: ./.env, then one next to
// the executable, then any extra paths given.
func Load(extraEnvFiles ...string) (*Config, error) {
	envPaths := []string{".env"}
	if execPath, err := os.Executable(); err == nil {
		envPaths = append(envPaths, filepath.Join(filepath.Dir(execPath), ".env"))
	}
	envPaths = append(envPaths, extraEnvFiles...)

	fileEnv := map[string]string{}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		values, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		fileEnv = values
		break
	}

	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	})
}

// FromLookup builds a Config from a key lookup function such as
// os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	get := func(key string) string {
		if v, ok := lookup(key); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}

	if v := get("SCANNER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := get("SCANNER_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	if v := get("SCANNER_CONVERTER"); v != "" {
		cfg.Converter = strings.ToLower(v)
	}
	switch cfg.Converter {
	case ConverterJPEG, ConverterDirect:
	default:
		return nil, fmt.Errorf("SCANNER_CONVERTER: unknown converter %q", cfg.Converter)
	}

	var err error
	if cfg.JPEGQuality, err = intValue(get("SCANNER_JPEG_QUALITY"), cfg.JPEGQuality); err != nil {
		return nil, fmt.Errorf("SCANNER_JPEG_QUALITY: %w", err)
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("SCANNER_JPEG_QUALITY: %d outside 1-100", cfg.JPEGQuality)
	}

	if v := get("SCANNER_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	cfg.TessdataPrefix = get("SCANNER_TESSDATA_PREFIX")
	if cfg.TessdataPrefix == "" {
		cfg.TessdataPrefix = get("TESSDATA_PREFIX")
	}

	if v := get("SCANNER_CAMERA_FILES"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cfg.CameraFiles = append(cfg.CameraFiles, trimmed)
			}
		}
	}
	if cfg.FrameWidth, err = intValue(get("SCANNER_FRAME_WIDTH"), cfg.FrameWidth); err != nil {
		return nil, fmt.Errorf("SCANNER_FRAME_WIDTH: %w", err)
	}
	if cfg.FrameHeight, err = intValue(get("SCANNER_FRAME_HEIGHT"), cfg.FrameHeight); err != nil {
		return nil, fmt.Errorf("SCANNER_FRAME_HEIGHT: %w", err)
	}
	if cfg.FrameWidth <= 0 || cfg.FrameHeight <= 0 {
		return nil, fmt.Errorf("frame dimensions %dx%d must be positive", cfg.FrameWidth, cfg.FrameHeight)
	}
	if v := get("SCANNER_FRAME_LAYOUT"); v != "" {
		cfg.FrameLayout = strings.ToLower(v)
	}
	if cfg.FrameInterval, err = durationValue(get("SCANNER_FRAME_INTERVAL"), cfg.FrameInterval); err != nil {
		return nil, fmt.Errorf("SCANNER_FRAME_INTERVAL: %w", err)
	}
	cfg.CameraLoop = strings.EqualFold(get("SCANNER_CAMERA_LOOP"), "true")

	if v := get("SCANNER_CAMERA_PERMISSION"); v != "" {
		cfg.CameraPermission = strings.ToLower(v)
	}
	switch cfg.CameraPermission {
	case PermissionPrompt, PermissionGranted, PermissionDenied:
	default:
		return nil, fmt.Errorf("SCANNER_CAMERA_PERMISSION: unknown policy %q", cfg.CameraPermission)
	}

	if v := get("SCANNER_MIN_BOARD_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("SCANNER_MIN_BOARD_CONFIDENCE: %w", err)
		}
		cfg.MinBoardConfidence = f
	}
	if cfg.AnalyzeTimeout, err = durationValue(get("SCANNER_ANALYZE_TIMEOUT"), cfg.AnalyzeTimeout); err != nil {
		return nil, fmt.Errorf("SCANNER_ANALYZE_TIMEOUT: %w", err)
	}

	cfg.HTTPAddr = get("SCANNER_HTTP_ADDR")

	return cfg, nil
}

func intValue(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func durationValue(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
