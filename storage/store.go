package storage

import (
	"context"
	"errors"
	"strings"
)

var ErrClosed = errors.New("store is closed")

type Store interface {
	Set(ctx context.Context, key []byte, value interface{}) error
	Get(ctx context.Context, key []byte) ([]byte, error)
	Delete(ctx context.Context, key []byte) error

	Restore(values []byte) error
	Backup() ([]byte, error)

	ListenToUpdates() <-chan *Update

	Close() error
}

// Update describes a change to a single key. Value is the raw JSON now stored
// at Key, and is empty when the key was deleted.
type Update struct {
	Key     []byte
	Value   []byte
	Deleted bool
}

// Path joins parts into a key, escaping the characters that have a meaning in
// a path so that each part addresses exactly one level of the document.
func Path(parts ...string) []byte {
	escaped := make([]string, len(parts))
	for i, part := range parts {
		escaped[i] = pathEscaper.Replace(part)
	}

	return []byte(strings.Join(escaped, "."))
}

var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
	`!`, `\!`,
	`=`, `\=`,
	`<`, `\<`,
	`>`, `\>`,
	`%`, `\%`,
)
