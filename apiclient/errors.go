// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetworkUnreachable wraps transport failures: the backend never answered.
	ErrNetworkUnreachable = errors.New("network unreachable")
	// ErrServiceUnavailable matches a RequestError with status 503.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// RequestError is a non-2xx answer to a typed operation
type RequestError struct {
	Op      string
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("failed to %s: %d", e.Op, e.Status)
	if e.Message != "" {
		msg += " " + e.Message
	}
	return msg
}

// Is lets errors.Is(err, ErrServiceUnavailable) single out 503s
func (e *RequestError) Is(target error) bool {
	return target == ErrServiceUnavailable && e.Status == http.StatusServiceUnavailable
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return 0
}
