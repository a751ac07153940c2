// Package object holds the types shared by every storage backend.
package object

import (
	"errors"
	"time"
)

// ErrNotFound is returned by Get for a key that does not exist.
var ErrNotFound = errors.New("object not found")

// Info describes one stored object.
type Info struct {
	Key          string
	Size         int64
	LastModified time.Time
}
