// ABOUTME: Store interface and errors for the durable local key-value store
// ABOUTME: The Go stand-in for the browser's localStorage, shared across runs

package store

import "errors"

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("not found")

// Store is a small durable key-value store. It holds the session record
// (id and created-at) and, optionally, the feedback sent marks. Values are
// plain strings, mirroring the localStorage contract the widget was built
// against.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}
