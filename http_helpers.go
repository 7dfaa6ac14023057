package ignite

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// writeJSON encodes data as JSON with status 200.
func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

// writeJSONStatus writes a JSON response with a specific status code. The
// body is encoded before the header goes out, so values encoding/json rejects
// (NaN, Inf) produce a 500 instead of a truncated 200.
func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, encodeFailureBody)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

const encodeFailureBody = `{"status":"error","errorType":"internal","error":"response could not be encoded"}` + "\n"

// jsonError writes a JSON-formatted error response.
func jsonError(w http.ResponseWriter, status int, errorType, message string) {
	writeJSONStatus(w, status, map[string]any{
		"status":    "error",
		"errorType": errorType,
		"error":     message,
	})
}

// writeError maps engine and storage errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, "validation", verr.Error())
	case IsValidation(err):
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, ErrReportNotFound):
		jsonError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrClosed):
		jsonError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	default:
		slog.Error("request failed", "err", err)
		jsonError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

// decodeRequest reads a size-limited JSON body into dst and validates it.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.HTTP.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			jsonError(w, http.StatusRequestEntityTooLarge, "bad_request", "request body too large")
		case errors.Is(err, io.EOF):
			jsonError(w, http.StatusBadRequest, "bad_request", "empty request body")
		default:
			jsonError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid JSON: %v", err))
		}
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the
// underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes websocket upgrades through to the underlying writer.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
