// Package remote defines the request/response service the stores talk to
// and its HTTP implementation.
//
// Stores depend only on the Service interface. Responses are returned as raw
// JSON and decoded by the caller, so each store owns its own data shapes.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Service is the narrow request/response contract the stores depend on.
type Service interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
	Put(ctx context.Context, path, id string, body any) (json.RawMessage, error)
}

// StatusError is returned for a response outside the 2xx range.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

// Decode unmarshals a service response into T. It passes err through
// unchanged so calls can be written as Decode[T](svc.Get(ctx, path)).
func Decode[T any](raw json.RawMessage, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// WithToken appends the token query parameter to path. An empty token
// leaves path unchanged.
func WithToken(path, token string) string {
	if token == "" {
		return path
	}
	return path + "?" + url.Values{"token": {token}}.Encode()
}
