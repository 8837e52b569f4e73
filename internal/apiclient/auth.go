package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/healthmate/companion/pkg/model"
)

// ErrMissingUser is returned when an auth response does not identify a user
var ErrMissingUser = errors.New("response carries no user")

// AuthAPI groups the /auth endpoints
type AuthAPI struct {
	c *Client
}

// RegisterRequest is the profile submitted to create an account
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Gender      string `json:"gender,omitempty"`
}

// LoginRequest carries login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and returns the issued session
func (a *AuthAPI) Register(ctx context.Context, profile RegisterRequest) (*model.Session, error) {
	req, err := jsonRequest(http.MethodPost, "/auth/register", profile)
	if err != nil {
		return nil, err
	}
	return a.session(ctx, req)
}

// Login exchanges credentials for a session
func (a *AuthAPI) Login(ctx context.Context, creds LoginRequest) (*model.Session, error) {
	req, err := jsonRequest(http.MethodPost, "/auth/login", creds)
	if err != nil {
		return nil, err
	}
	return a.session(ctx, req)
}

// Me resolves the user that owns the current token
func (a *AuthAPI) Me(ctx context.Context) (*model.User, error) {
	var raw json.RawMessage
	if err := a.c.do(ctx, request{method: http.MethodGet, path: "/auth/me"}, &raw); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// session decodes auth responses. The token sits next to either a nested user object
// or the flattened user fields.
func (a *AuthAPI) session(ctx context.Context, req request) (*model.Session, error) {
	var raw json.RawMessage
	if err := a.c.do(ctx, req, &raw); err != nil {
		return nil, err
	}

	var withToken struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &withToken); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if withToken.Token == "" {
		return nil, fmt.Errorf("failed to decode session: response carries no token")
	}

	user, err := decodeUser(raw)
	if err != nil {
		return nil, err
	}

	return &model.Session{User: *user, Token: withToken.Token}, nil
}

// decodeUser accepts a nested user object or flattened user fields. A user without an
// id, including null data, is ErrMissingUser.
func decodeUser(raw json.RawMessage) (*model.User, error) {
	if len(raw) == 0 {
		return nil, ErrMissingUser
	}

	var nested struct {
		User *model.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if nested.User != nil {
		if nested.User.ID == "" {
			return nil, ErrMissingUser
		}
		return nested.User, nil
	}

	var flat model.User
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if flat.ID == "" {
		return nil, ErrMissingUser
	}
	return &flat, nil
}
