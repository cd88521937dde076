package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	dimaging "github.com/disintegration/imaging"
	"github.com/gorilla/mux"

	"github.com/ironsheep/scramble-scanner/internal/capture"
	"github.com/ironsheep/scramble-scanner/internal/imaging"
	"github.com/ironsheep/scramble-scanner/internal/permission"
	"github.com/ironsheep/scramble-scanner/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// GetScanHandler returns the scanner status.
func (a *API) GetScanHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Scanner.Status())
}

type stateBody struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// StartHandler acquires the camera. It answers 202 while a permission
// request is outstanding.
func (a *API) StartHandler(w http.ResponseWriter, r *http.Request) {
	err := a.Scanner.Start()
	state := a.Scanner.Session().State().String()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, stateBody{State: state})
	case errors.Is(err, session.ErrPermissionDenied):
		writeJSON(w, http.StatusAccepted, stateBody{State: state, Error: err.Error()})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// PressHandler presses the scan button.
func (a *API) PressHandler(w http.ResponseWriter, r *http.Request) {
	st, err := a.Scanner.Press()
	if errors.Is(err, session.ErrPermissionDenied) {
		writeJSON(w, http.StatusForbidden, stateBody{State: st.String(), Error: err.Error()})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stateBody{State: st.String()})
}

type permissionRequest struct {
	Granted bool `json:"granted"`
}

type permissionResponse struct {
	Granted  bool `json:"granted"`
	Resolved int  `json:"resolved"`
}

// CameraPermissionHandler answers pending camera permission requests.
func (a *API) CameraPermissionHandler(w http.ResponseWriter, r *http.Request) {
	if a.Permissions == nil {
		writeError(w, http.StatusConflict, "camera permission is not answered by clients")
		return
	}

	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	pending := a.Permissions.Pending(permission.Camera)
	a.Permissions.Resolve(permission.Camera, req.Granted)
	a.Logger.Info("camera permission answered", "granted", req.Granted, "pending", pending)

	writeJSON(w, http.StatusOK, permissionResponse{Granted: req.Granted, Resolved: pending})
}

type frameResponse struct {
	Seq     uint64 `json:"seq"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Layout  string `json:"layout"`
	Dropped bool   `json:"dropped"`
}

// FrameHandler accepts one raw YUV 4:2:0 frame as the request body. The
// width, height and layout query parameters override the defaults.
func (a *API) FrameHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	width, err := queryInt(q.Get("width"), a.Width)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid width")
		return
	}
	height, err := queryInt(q.Get("height"), a.Height)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid height")
		return
	}
	layout := a.Layout
	if s := q.Get("layout"); s != "" {
		if layout, err = capture.ParseLayout(s); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if layout == "" {
		layout = capture.LayoutNV21
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, capture.MaxFrameBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	f, err := capture.Split(layout, body, width, height, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Seq = a.seq.Add(1)

	dropped := a.Scanner.Offer(f)

	writeJSON(w, http.StatusAccepted, frameResponse{
		Seq:     f.Seq,
		Width:   width,
		Height:  height,
		Layout:  string(layout),
		Dropped: dropped,
	})
}

// ImageHandler serves a stored bitmap as PNG.
func (a *API) ImageHandler(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		http.NotFound(w, r)
		return
	}
	img, err := a.Store.Get(mux.Vars(r)["id"])
	if errors.Is(err, imaging.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := dimaging.Encode(w, img, dimaging.PNG); err != nil {
		a.Logger.Warn("failed to write image", "error", err)
	}
}

func queryInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
