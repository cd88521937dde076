package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ironsheep/scramble-scanner/internal/capture"
	"github.com/ironsheep/scramble-scanner/internal/config"
	"github.com/ironsheep/scramble-scanner/internal/detection"
	"github.com/ironsheep/scramble-scanner/internal/frame"
	"github.com/ironsheep/scramble-scanner/internal/httpapi"
	"github.com/ironsheep/scramble-scanner/internal/imaging"
	"github.com/ironsheep/scramble-scanner/internal/logging"
	"github.com/ironsheep/scramble-scanner/internal/ocr"
	"github.com/ironsheep/scramble-scanner/internal/permission"
	"github.com/ironsheep/scramble-scanner/internal/scanner"
	"github.com/ironsheep/scramble-scanner/internal/server"
	"github.com/ironsheep/scramble-scanner/internal/session"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("scramble-scanner %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout is for MCP protocol
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("scramble-scanner - reads letter boards from camera frames")
	fmt.Println()
	fmt.Println("Usage: scramble-scanner [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  SCANNER_LOG_LEVEL=debug            Log level: debug, info, warn, error")
	fmt.Println("  SCANNER_LOG_FORMAT=json            Log format: text or json")
	fmt.Println("  SCANNER_CONVERTER=direct           Frame converter: jpeg or direct")
	fmt.Println("  SCANNER_JPEG_QUALITY=50            JPEG quality for the jpeg converter")
	fmt.Println("  SCANNER_LANGUAGE=eng               Tesseract language")
	fmt.Println("  SCANNER_TESSDATA_PREFIX=/path      Tesseract data directory")
	fmt.Println("  SCANNER_CAMERA_FILES=a.yuv,b.yuv   Raw YUV recordings replayed as the camera")
	fmt.Println("  SCANNER_FRAME_WIDTH=640            Frame width")
	fmt.Println("  SCANNER_FRAME_HEIGHT=480           Frame height")
	fmt.Println("  SCANNER_FRAME_LAYOUT=nv21          Frame layout: nv21 or i420")
	fmt.Println("  SCANNER_FRAME_INTERVAL=100ms       Delay between replayed frames")
	fmt.Println("  SCANNER_CAMERA_LOOP=true           Replay recordings forever")
	fmt.Println("  SCANNER_CAMERA_PERMISSION=prompt   prompt, granted or denied")
	fmt.Println("  SCANNER_HTTP_ADDR=:8080            Enable the HTTP API")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scramble-scanner", "version", Version, "built", BuildTime, "commit", GitCommit)

	layout, err := capture.ParseLayout(cfg.FrameLayout)
	if err != nil {
		return err
	}

	var conv frame.Converter
	switch cfg.Converter {
	case config.ConverterDirect:
		conv = frame.DirectConverter{}
	default:
		conv = frame.NewJPEGConverter(cfg.JPEGQuality)
	}

	var (
		perms  permission.Provider
		manual *permission.Manual
	)
	switch cfg.CameraPermission {
	case config.PermissionGranted:
		perms = permission.Static{Granted: true}
	case config.PermissionDenied:
		perms = permission.Static{Granted: false}
	default:
		manual = permission.NewManual()
		perms = manual
	}

	var source capture.Source
	if len(cfg.CameraFiles) > 0 {
		source = &capture.FileSource{
			Paths:    cfg.CameraFiles,
			Width:    cfg.FrameWidth,
			Height:   cfg.FrameHeight,
			Layout:   layout,
			Interval: cfg.FrameInterval,
			Loop:     cfg.CameraLoop,
		}
	}

	detect := detection.DefaultOptions()
	detect.MinConfidence = cfg.MinBoardConfidence

	store := imaging.NewStore(imaging.DefaultStoreLimit)
	recognizer := ocr.NewTesseract(cfg.TessdataPrefix)

	sc := scanner.New(scanner.Options{
		Session:     session.New(session.NewPanel()),
		Converter:   conv,
		Permissions: perms,
		Source:      source,
		Recognizer:  recognizer,
		Language:    cfg.Language,
		Detect:      detect,
		Store:       store,
		Timeout:     cfg.AnalyzeTimeout,
		Logger:      logger,
	})
	defer sc.Close()

	if err := sc.Start(); errors.Is(err, session.ErrPermissionDenied) {
		logger.Warn("camera permission not granted; scanning stays idle until it is")
	} else if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		router := httpapi.NewRouter(&httpapi.API{
			Scanner:     sc,
			Permissions: manual,
			Store:       store,
			Width:       cfg.FrameWidth,
			Height:      cfg.FrameHeight,
			Layout:      layout,
			Logger:      logger,
		})
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("http api listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http api stopped", "error", err)
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http api shutdown failed", "error", err)
			}
		}()
	}

	srv := server.New(server.Options{
		Scanner:        sc,
		Store:          store,
		Permissions:    manual,
		Recognizer:     recognizer,
		Language:       cfg.Language,
		TessdataPrefix: cfg.TessdataPrefix,
		FrameWidth:     cfg.FrameWidth,
		FrameHeight:    cfg.FrameHeight,
		FrameLayout:    layout,
		JPEGQuality:    cfg.JPEGQuality,
		Version:        Version,
		Logger:         logger,
	})

	done := make(chan error, 1)
	go func() {
		done <- srv.Run()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	}
}
