package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

const maxBodyBytes = 1 << 20

// DecodeJSON reads and decodes a JSON request body into dst, rejecting
// unknown fields and oversized payloads.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &AppError{
			Code:       "BAD_REQUEST",
			Message:    "invalid JSON body",
			HTTPStatus: http.StatusBadRequest,
			Err:        err,
			Details:    jsonErrorDetails(err),
		}
	}
	if dec.More() {
		return &AppError{
			Code:       "BAD_REQUEST",
			Message:    "request body must contain a single JSON object",
			HTTPStatus: http.StatusBadRequest,
		}
	}
	return nil
}

func jsonErrorDetails(err error) any {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return map[string]any{"offset": syntaxErr.Offset}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return map[string]any{"field": typeErr.Field, "expected": typeErr.Type.String()}
	}
	return map[string]any{"reason": fmt.Sprintf("%v", err)}
}

// ClientIP determines the originating client address of the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if candidate := strings.TrimSpace(parts[0]); candidate != "" {
			return candidate
		}
		return forwarded
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
