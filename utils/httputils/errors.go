// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
)

// ErrUnexpectedContentType is returned when a JSON response was expected but
// the server answered with another media type.
var ErrUnexpectedContentType = errors.New("unexpected content type")

// ErrorType classifies HTTP failures.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit the server is throttling us.
	ErrorTypeRateLimit
	// ErrorTypeForbidden missing or invalid credentials, or quota exceeded.
	ErrorTypeForbidden
	// ErrorTypeInvalidRequest the request was rejected as malformed.
	ErrorTypeInvalidRequest
	// ErrorTypeNotFound the resource does not exist.
	ErrorTypeNotFound
	// ErrorTypeUnavailable the upstream service is down.
	ErrorTypeUnavailable
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateLimit:
		return "rate limited"
	case ErrorTypeForbidden:
		return "forbidden"
	case ErrorTypeInvalidRequest:
		return "invalid request"
	case ErrorTypeNotFound:
		return "not found"
	case ErrorTypeUnavailable:
		return "service unavailable"
	default:
		return "unknown"
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Type       ErrorType
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d (%s)", e.URL, e.StatusCode, e.Type)
}

// IsRateLimitError checks whether err is a rate limit response.
func IsRateLimitError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Type == ErrorTypeRateLimit
	}

	return false
}

// IsNotFoundError checks whether err is a not found response.
func IsNotFoundError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Type == ErrorTypeNotFound
	}

	return false
}

// ClassifyStatus maps an HTTP status code to an ErrorType.
func ClassifyStatus(statusCode int) ErrorType {
	switch statusCode {
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorTypeForbidden
	case http.StatusBadRequest:
		return ErrorTypeInvalidRequest
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ErrorTypeUnavailable
	default:
		return ErrorTypeUnknown
	}
}

// CheckResponse validates the status code and, when wantJSON is set, the
// media type of resp. No retries are attempted; the caller owns the policy.
func CheckResponse(resp *http.Response, wantJSON bool) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		url := ""
		if resp.Request != nil && resp.Request.URL != nil {
			url = resp.Request.URL.String()
		}

		return &StatusError{
			Type:       ClassifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			URL:        url,
		}
	}

	if wantJSON {
		media := resp.Header.Get("Content-Type")

		mediaType, _, err := mime.ParseMediaType(media)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: expected JSON but received %q", ErrUnexpectedContentType, media)
		}
	}

	return nil
}
