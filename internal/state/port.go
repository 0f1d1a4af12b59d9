// Package state defines the key/value persistence port the core uses to
// survive restarts. Its only user is the Position Manager, which keeps
// every position peak under the single key "position_peaks".
package state

import "context"

// Store is a small durable key/value store. Values are opaque
// caller-marshaled bytes (typically JSON); Store itself does no encoding.
type Store interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	Delete(ctx context.Context, key string) error
}
