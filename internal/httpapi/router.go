// Package httpapi exposes scan control and raw frame ingest over HTTP for
// camera bridges that cannot speak MCP.
package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/ironsheep/scramble-scanner/internal/capture"
	"github.com/ironsheep/scramble-scanner/internal/imaging"
	"github.com/ironsheep/scramble-scanner/internal/permission"
	"github.com/ironsheep/scramble-scanner/internal/scanner"
)

// API holds the handlers' dependencies.
type API struct {
	Scanner *scanner.Scanner

	// Permissions answers camera permission requests posted by clients. Nil
	// when the deployment grants or denies permission statically.
	Permissions *permission.Manual

	// Store serves analyzed bitmaps. Optional.
	Store *imaging.Store

	// Width, Height and Layout are used when a frame upload omits them.
	Width  int
	Height int
	Layout capture.Layout

	Logger *slog.Logger

	seq atomic.Uint64
}

// NewRouter returns the routes of a.
func NewRouter(a *API) *mux.Router {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/scan", a.GetScanHandler).Methods("GET")
	v1.HandleFunc("/scan/start", a.StartHandler).Methods("POST")
	v1.HandleFunc("/scan/press", a.PressHandler).Methods("POST")
	v1.HandleFunc("/permissions/camera", a.CameraPermissionHandler).Methods("POST")
	v1.HandleFunc("/frames", a.FrameHandler).Methods("POST")
	v1.HandleFunc("/images/{id}", a.ImageHandler).Methods("GET")

	r.Use(a.logRequests)
	return r
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.Logger.Debug("http request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
