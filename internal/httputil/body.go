// Package httputil provides helpers for working with HTTP payloads safely.
package httputil

import (
	"errors"
	"io"
)

// ErrBodyTooLarge is returned when a payload exceeds the caller's cap.
var ErrBodyTooLarge = errors.New("body exceeds size limit")

// ReadLimitedBody reads up to maxBytes from reader. A non-positive
// maxBytes reads everything. On overflow the truncated prefix is returned
// alongside ErrBodyTooLarge so callers can still log context.
func ReadLimitedBody(reader io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(reader)
	}

	limited := io.LimitReader(reader, maxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return body, err
	}
	if int64(len(body)) > maxBytes {
		return body[:int(maxBytes)], ErrBodyTooLarge
	}
	return body, nil
}
