// Package storage abstracts whole-document persistence. A document is an
// opaque byte blob addressed by a relative path; a write replaces the whole
// document or leaves the previous version intact.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
}
