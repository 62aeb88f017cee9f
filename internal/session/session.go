// Package session persists the authenticated operator's session: the user
// record, the bearer token and the cached permission snapshot.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/propdesk/propdesk/internal/rbac"
)

// Storage keys. All three are written on login and removed together.
const (
	KeyUser        = "User"
	KeyPermissions = "permissions"
	KeyAccessToken = "accessToken"
)

// Keys lists every key owned by a session.
var Keys = []string{KeyUser, KeyPermissions, KeyAccessToken}

var (
	// ErrNoSession indicates that nobody is logged in.
	ErrNoSession = errors.New("session: no active session")
	// ErrKeyNotFound is returned by backends for missing keys.
	ErrKeyNotFound = errors.New("session: key not found")
)

// User is the cached account record returned by login.
type User struct {
	ID          string `json:"_id"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// Session is the client-side login state.
type Session struct {
	User        User
	AccessToken string
	Permissions []rbac.Permission
	// PermissionsErr is set when the cached permissions could not be decoded.
	PermissionsErr error
}

// Provider loads, stores and destroys the current session.
type Provider interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Clear(ctx context.Context) error
}

// Backend is the key/value persistence under a Store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Store implements Provider on top of a Backend.
type Store struct {
	backend Backend
}

// NewStore wraps backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Load reads the session. A malformed permissions entry does not fail the load.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	if s == nil || s.backend == nil {
		return nil, ErrNoSession
	}
	rawUser, err := s.backend.Get(ctx, KeyUser)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, fmt.Errorf("session: decode user: %w", err)
	}
	sess := &Session{User: user}

	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	sess.AccessToken = token

	perms, err := s.Permissions(ctx)
	if err != nil {
		sess.PermissionsErr = err
	} else {
		sess.Permissions = perms
	}
	return sess, nil
}

// Save writes all three keys.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if s == nil || s.backend == nil {
		return errors.New("session: store not configured")
	}
	if sess == nil || sess.AccessToken == "" {
		return errors.New("session: access token required")
	}
	user := sess.User
	user.AccessToken = sess.AccessToken
	rawUser, err := json.Marshal(user)
	if err != nil {
		return err
	}
	perms := sess.Permissions
	if perms == nil {
		perms = []rbac.Permission{}
	}
	rawPerms, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, KeyUser, string(rawUser)); err != nil {
		return err
	}
	if err := s.backend.Set(ctx, KeyPermissions, string(rawPerms)); err != nil {
		return err
	}
	return s.backend.Set(ctx, KeyAccessToken, sess.AccessToken)
}

// Clear removes every session key.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Delete(ctx, Keys...)
}

// AccessToken returns the cached bearer token or "" when none is stored.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	if s == nil || s.backend == nil {
		return "", nil
	}
	token, err := s.backend.Get(ctx, KeyAccessToken)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return "", err
	}
	rawUser, err := s.backend.Get(ctx, KeyUser)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	var user User
	if json.Unmarshal([]byte(rawUser), &user) != nil {
		return "", nil
	}
	return user.AccessToken, nil
}

// Permissions returns the cached permission snapshot. It satisfies
// rbac.PermissionSource. Without a stored user there is no session, whatever
// the permissions key holds.
func (s *Store) Permissions(ctx context.Context) ([]rbac.Permission, error) {
	if s == nil || s.backend == nil {
		return nil, ErrNoSession
	}
	if _, err := s.backend.Get(ctx, KeyUser); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	raw, err := s.backend.Get(ctx, KeyPermissions)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var perms []rbac.Permission
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		return nil, fmt.Errorf("session: decode permissions: %w", err)
	}
	return perms, nil
}
