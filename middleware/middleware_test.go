// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guilhermeosaka/voxpop-web/models"
)

func TestWithLogging(t *testing.T) {
	var seenID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	}))
	defer server.Close()

	client := &http.Client{Transport: WithLogging(nil)}

	req, _ := http.NewRequest("GET", server.URL+"/test-path", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "success" {
		t.Errorf("Expected body 'success', got '%s'", body)
	}
	if seenID == "" {
		t.Error("Expected a generated request ID")
	}
	if req.Header.Get(RequestIDHeader) != "" {
		t.Error("Caller's request should not be modified")
	}
}

func TestWithLogging_KeepsExistingRequestID(t *testing.T) {
	var seenID string
	next := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seenID = r.Header.Get(RequestIDHeader)
		return &http.Response{StatusCode: http.StatusNoContent, Body: io.NopCloser(strings.NewReader(""))}, nil
	})

	req := httptest.NewRequest("DELETE", "http://example.test/polls/p1/votes/o1", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")

	resp, err := WithLogging(next).RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.StatusCode)
	}
	if seenID != "fixed-id" {
		t.Errorf("Expected fixed-id, got %q", seenID)
	}
}

func TestWithLogging_PropagatesTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	next := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, boom
	})

	req := httptest.NewRequest("GET", "http://example.test/polls", nil)
	resp, err := WithLogging(next).RoundTrip(req)
	if !errors.Is(err, boom) {
		t.Errorf("Expected transport error, got %v", err)
	}
	if resp != nil {
		t.Error("Expected nil response on error")
	}
}

func TestJSONBody(t *testing.T) {
	body, err := JSONBody(nil)
	if err != nil || body != nil {
		t.Errorf("JSONBody(nil) = %q, %v; want nil, nil", body, err)
	}

	body, err = JSONBody(models.RefreshTokenRequest{Token: "rt"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(body)) != `{"token":"rt"}` {
		t.Errorf("unexpected body %s", body)
	}
}

func TestParseJSONBody(t *testing.T) {
	testCases := []struct {
		name      string
		body      string
		expectErr bool
	}{
		{"valid", `{"accessToken":"a","refreshToken":"r"}`, false},
		{"invalid JSON", `{not json`, true},
		{"empty", ``, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var pair models.TokenPair
			err := ParseJSONBody(io.NopCloser(strings.NewReader(tc.body)), &pair)
			if tc.expectErr && err == nil {
				t.Error("Expected error")
			}
			if !tc.expectErr {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if pair.AccessToken != "a" || pair.RefreshToken != "r" {
					t.Errorf("Unexpected pair %+v", pair)
				}
			}
		})
	}
}

func TestReadErrorMessage(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{"message preferred", `{"error":"Conflict","message":"poll expired"}`, "poll expired"},
		{"error only", `{"error":"Bad Request"}`, "Bad Request"},
		{"not JSON", `oops`, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ReadErrorMessage(io.NopCloser(strings.NewReader(tc.body)))
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(w, http.StatusServiceUnavailable, "maintenance")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != "Service Unavailable" || resp.Message != "maintenance" {
		t.Errorf("Unexpected error response %+v", resp)
	}
}
