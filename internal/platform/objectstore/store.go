package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned (possibly wrapped) when a key has no object.
var ErrNotFound = errors.New("object not found")

// SignOptions tunes a signed download URL.
type SignOptions struct {
	// Filename, when set, is suggested to the browser via Content-Disposition.
	Filename string
}

// Store is a single bucket of opaque objects addressed by key.
type Store interface {
	// Put writes body under key, replacing any existing object.
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// SignedURL returns a time-limited read URL for key.
	SignedURL(ctx context.Context, key string, ttl time.Duration, opts SignOptions) (string, error)
	// Remove deletes key. Missing keys yield an error wrapping ErrNotFound.
	Remove(ctx context.Context, key string) error
	Provider() string
}
