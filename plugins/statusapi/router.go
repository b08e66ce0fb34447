package statusapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bft-labs/geophoto/pkg/geophoto"
	"github.com/bft-labs/geophoto/pkg/log"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 10

// Controller is the part of *geophoto.Controller the API drives.
type Controller interface {
	Start() error
	Stop() error
	Resume() error
	State() geophoto.ViewState
	Feed() geophoto.Feed
}

type handler struct {
	controller Controller
	manual     *geophoto.ManualProvider
	hub        *hub
	logger     geophoto.Logger
}

func newRouter(controller Controller, manual *geophoto.ManualProvider, h *hub, logger geophoto.Logger) http.Handler {
	hd := &handler{controller: controller, manual: manual, hub: h, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", hd.getState)
		r.Get("/feed", hd.getFeed)
		r.Post("/start", hd.operation(controller.Start))
		r.Post("/stop", hd.operation(controller.Stop))
		r.Post("/resume", hd.operation(controller.Resume))
		r.Post("/positions", hd.pushPosition)
		r.Post("/permission", hd.setPermission)
		r.Get("/stream", hd.stream)
	})
	return r
}

func (h *handler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.State())
}

func (h *handler) getFeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Feed())
}

// operation runs op and replies with the resulting state.
func (h *handler) operation(op func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, h.controller.State())
	}
}

type positionRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type positionResponse struct {
	Accepted bool `json:"accepted"`
}

func (h *handler) pushPosition(w http.ResponseWriter, r *http.Request) {
	if h.manual == nil {
		writeError(w, http.StatusNotFound, errNoManualProvider)
		return
	}
	var req positionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeError(w, http.StatusBadRequest, errors.New("lat and lon are required"))
		return
	}
	accepted, err := h.manual.Push(geophoto.NewPosition(*req.Lat, *req.Lon))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, positionResponse{Accepted: accepted})
}

type permissionRequest struct {
	Status geophoto.PermissionStatus `json:"status"`
}

func (h *handler) setPermission(w http.ResponseWriter, r *http.Request) {
	if h.manual == nil {
		writeError(w, http.StatusNotFound, errNoManualProvider)
		return
	}
	var req permissionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.manual.SetPermission(req.Status)
	writeJSON(w, http.StatusAccepted, req)
}

var errNoManualProvider = errors.New("location provider does not accept posted events")

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, geophoto.ErrMachineClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, geophoto.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, geophoto.ErrNotStopped), errors.Is(err, geophoto.ErrNotTracking):
		return http.StatusConflict
	case errors.Is(err, geophoto.ErrInvalidPosition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs each request at debug level.
func requestLogger(logger geophoto.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				log.String("method", r.Method),
				log.String("path", r.URL.Path),
				log.Int("status", ww.Status()),
				log.Duration("duration", time.Since(start)),
			)
		})
	}
}
