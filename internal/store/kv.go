// kv.go — Key/value storage interface shared by identity and spill stores.
//
// The storage backend is specified only by its key/value shape, leaving
// the backing implementation to the host environment. This module
// ships two: an in-memory fallback (always available) and a
// modernc.org/sqlite-backed store for a Go process that wants its spill
// and identity data to survive a restart the way a browser's
// persistent storage survives a page reload.
package store

import "context"

// KV is the minimal interface every store backend implements. All keys
// passed to implementations are expected to already carry the
// "monitor_<appId>" namespace prefix (see Namespaced).
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Namespaced prefixes key with "monitor_<appId>:".
func Namespaced(appID, key string) string {
	return "monitor_" + appID + ":" + key
}
