package db

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a key is absent or its value cannot be decoded.
var ErrNotFound = errors.New("db: key not found")

// Store is a flat key-value store with prefix listing. Puts fully replace the
// previous value (last write wins); there are no cross-key transactions.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, metadata map[string]string) error
	// List returns the keys starting with prefix in lexicographic order.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// escapeLike escapes the LIKE wildcards of s using backslash.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// escapeGlob escapes the redis MATCH glob characters of s.
func escapeGlob(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(s)
}
