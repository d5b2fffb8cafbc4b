package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrObjectNotFound means the remote store has no object at the key.
	ErrObjectNotFound = errors.New("object not found")
	// ErrNotCached means downloads are disabled and the local copy is missing or empty.
	ErrNotCached = errors.New("file not cached and downloads are disabled")
	// ErrEmptyObject means the remote object downloaded with zero bytes.
	ErrEmptyObject = errors.New("object is empty")
)

// Fetcher opens remote objects by key.
type Fetcher interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// StatusError is a non-success response from an object store.
type StatusError struct {
	Key        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("fetch %s: http %d", e.Key, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: http %d: %s", e.Key, e.StatusCode, body)
}

// HTTPStatus exposes the status code to retry classification.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}
