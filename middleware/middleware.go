// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/guilhermeosaka/voxpop-web/models"
)

// RequestIDHeader carries a per-request correlation ID
const RequestIDHeader = "X-Request-ID"

// RoundTripperFunc adapts a function to http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// WithLogging wraps a transport with request logging and request IDs.
// A nil next uses http.DefaultTransport.
func WithLogging(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			// RoundTrip must not modify the caller's request
			r = r.Clone(r.Context())
			r.Header.Set(RequestIDHeader, requestID)
		}

		slog.Debug("request started",
			"method", r.Method,
			"host", r.URL.Host,
			"path", r.URL.Path,
			"request_id", requestID,
		)

		resp, err := next.RoundTrip(r)

		duration := time.Since(start)
		if err != nil {
			slog.Warn("request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", requestID,
				"duration_ms", duration.Milliseconds(),
				"error", err,
			)
			return nil, err
		}

		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", resp.StatusCode,
			"request_id", requestID,
			"duration_ms", duration.Milliseconds(),
		)
		return resp, nil
	})
}

// JSONBody encodes v for use as a request body. A nil v yields a nil body.
func JSONBody(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseJSONBody decodes a request or response body into v and closes it
func ParseJSONBody(body io.ReadCloser, v interface{}) error {
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return err
	}
	return nil
}

// DrainAndClose discards the rest of a body so the connection can be reused
func DrainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	body.Close()
}

// ReadErrorMessage extracts the message of a JSON error body, if any.
// The body is consumed and closed.
func ReadErrorMessage(body io.ReadCloser) string {
	var errResp models.ErrorResponse
	if err := ParseJSONBody(body, &errResp); err != nil {
		return ""
	}
	if errResp.Message != "" {
		return errResp.Message
	}
	return errResp.Error
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
