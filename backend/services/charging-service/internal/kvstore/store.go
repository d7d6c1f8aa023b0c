// Package kvstore persists small client state (wallet, auth tokens) the way a
// browser keeps it in local storage.
package kvstore

import "context"

// Store is a durable string key-value store.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Well-known keys.
const (
	KeyWallet       = "mockWallet"
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)
