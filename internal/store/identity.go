// identity.go — Session- and user-scoped identity storage.
//
// Two KV-backed interfaces with the same shape but different lifetimes:
// SessionIdentity holds session_id, created from (timestamp + random)
// on first read and stable for the browsing session's lifetime;
// UserIdentity holds the optional user_id set via the identity API.
// Changing userId never rotates sessionId.
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	sessionIDKey = "session_id"
	userIDKey    = "user_id"
)

// SessionIdentity reads/creates the stable per-session id.
type SessionIdentity struct {
	kv    KV
	appID string
}

// NewSessionIdentity builds a SessionIdentity over kv, namespaced to appID.
func NewSessionIdentity(kv KV, appID string) *SessionIdentity {
	return &SessionIdentity{kv: kv, appID: appID}
}

// SessionID returns the session's stable id, creating one from
// (timestamp + random) on first use.
func (s *SessionIdentity) SessionID(ctx context.Context, nowMS int64) (string, error) {
	key := Namespaced(s.appID, sessionIDKey)
	if v, ok, err := s.kv.Get(ctx, key); err != nil {
		return "", err
	} else if ok {
		return v, nil
	}

	id, err := newSessionID(nowMS)
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, key, id); err != nil {
		return "", err
	}
	return id, nil
}

func newSessionID(nowMS int64) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return fmt.Sprintf("%d-%s", nowMS, hex.EncodeToString(buf)), nil
}

// UserIdentity reads/writes the optional user id set via setUser/clearUser.
type UserIdentity struct {
	kv    KV
	appID string
}

// NewUserIdentity builds a UserIdentity over kv, namespaced to appID.
func NewUserIdentity(kv KV, appID string) *UserIdentity {
	return &UserIdentity{kv: kv, appID: appID}
}

// UserID returns the currently set user id, or "" if none is set.
func (u *UserIdentity) UserID(ctx context.Context) (string, error) {
	v, _, err := u.kv.Get(ctx, Namespaced(u.appID, userIDKey))
	return v, err
}

// SetUserID persists the user id. It never touches session_id.
func (u *UserIdentity) SetUserID(ctx context.Context, id string) error {
	return u.kv.Set(ctx, Namespaced(u.appID, userIDKey), id)
}

// Clear removes the persisted user id.
func (u *UserIdentity) Clear(ctx context.Context) error {
	return u.kv.Delete(ctx, Namespaced(u.appID, userIDKey))
}
