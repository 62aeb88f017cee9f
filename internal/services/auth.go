package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
	"github.com/propdesk/propdesk/internal/session"
)

// Credentials are posted to the login endpoint.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginPayload struct {
	User        session.User      `json:"user"`
	AccessToken string            `json:"accessToken"`
	Token       string            `json:"token"`
	Permissions []rbac.Permission `json:"permissions"`
}

// AuthService logs operators in and out.
type AuthService struct {
	base
	sessions session.Provider
}

// Login posts credentials and caches the session. When the response carries
// no permissions they are fetched from the user's role. A re-login replaces
// whatever was cached before. The login call itself bypasses the guard so a
// rejected password does not trigger a redirect.
func (s *AuthService) Login(ctx context.Context, creds Credentials) *apiclient.Result {
	if res := invalid(creds); res != nil {
		return res
	}
	res := s.client.Do(ctx, http.MethodPost, "/users/login", creds)
	if !res.OK() {
		return &res
	}
	payload, err := apiclient.DecodeField[loginPayload](&res, "data")
	if err != nil {
		failed := apiclient.Fail(apiclient.KindServer, err)
		return &failed
	}
	token := firstNonEmpty(payload.AccessToken, payload.Token, payload.User.AccessToken)
	if token == "" {
		failed := apiclient.Fail(apiclient.KindServer, errors.New("login response carried no access token"))
		return &failed
	}
	payload.User.AccessToken = token

	sess := &session.Session{User: payload.User, AccessToken: token, Permissions: payload.Permissions}
	if err := s.sessions.Save(ctx, sess); err != nil {
		failed := apiclient.Fail(apiclient.KindTransport, err)
		return &failed
	}

	if len(payload.Permissions) == 0 && payload.User.Role != "" {
		roleRes := s.Role(ctx, payload.User.Role)
		if roleRes == nil {
			// the guard already tore the session down
			return nil
		}
		role, err := apiclient.DecodeField[rbac.Role](roleRes, "data")
		if err != nil {
			_ = s.sessions.Clear(ctx)
			if roleRes.Err != nil {
				return roleRes
			}
			failed := apiclient.Fail(apiclient.KindServer, err)
			return &failed
		}
		sess.Permissions = role.Permissions
		if err := s.sessions.Save(ctx, sess); err != nil {
			failed := apiclient.Fail(apiclient.KindTransport, err)
			return &failed
		}
	}

	s.logger.Info("login", slog.String("user", sess.User.ID), slog.Int("permissions", len(sess.Permissions)))
	data, _ := json.Marshal(sess.User)
	return &apiclient.Result{Data: data, Status: res.Status}
}

// Role fetches one role with its permission set.
func (s *AuthService) Role(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.client.Get(ctx, resourcePath("/role", id))
}

// Logout removes the cached session.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

// Current returns the cached session.
func (s *AuthService) Current(ctx context.Context) (*session.Session, error) {
	return s.sessions.Load(ctx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
