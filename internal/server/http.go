package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/dropin/internal/model"
)

// maxBodyBytes caps request bodies. The largest valid run is well under 4 KiB.
const maxBodyBytes = 64 << 10

// NewHTTPHandler returns an http.Handler with all routes registered and the
// middleware chain applied.
func (s *RunsServer) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("POST /runs", s.handleCreateRun)
	mux.HandleFunc("GET /runs/events", s.handleEventStream)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("PUT /runs/{id}", s.handleUpdateRun)
	mux.HandleFunc("GET /geocode", s.handleGeocode)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	if s.limiter != nil {
		h = RateLimitMiddleware(s.limiter, h)
	}
	h = RequestLogMiddleware(s.logger, h)
	h = CORSMiddleware(h)
	return RecoveryMiddleware(s.logger, h)
}

// handleHealth handles GET /health.
func (s *RunsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeFields reads a JSON object body into raw fields.
func decodeFields(w http.ResponseWriter, r *http.Request) (model.Fields, error) {
	var f model.Fields
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&f); err != nil || f == nil {
		return nil, inputError("Invalid JSON body")
	}
	return f, nil
}

// errorBody is the JSON error envelope. Details lists the individual
// field failures of a validation error.
type errorBody struct {
	Error   string             `json:"error"`
	Details []model.FieldError `json:"details,omitempty"`
}

// writeEngineError maps an engine error to its HTTP status and message.
// Unexpected errors are logged and reported generically.
func (s *RunsServer) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *model.ValidationError
		ie inputError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validationMessage(ve), Details: ve.Errors})
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.Is(err, errTokenRequired):
		writeError(w, http.StatusForbidden, "Edit token is required")
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "Invalid edit token")
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Run not found")
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, "Run with this ID already exists")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// validationMessage joins the field failures with ", ".
func validationMessage(ve *model.ValidationError) string {
	parts := make([]string, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		if fe.Field == "" {
			parts = append(parts, capitalize(fe.Message))
			continue
		}
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return strings.Join(parts, ", ")
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"data": data})
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}
