package clients

import (
	"context"
	"encoding/json"
	"net/http"
)

// AuthAPI covers /api/auth.
type AuthAPI struct {
	c *Client
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

type ResetCodeRequest struct {
	Identifier string `json:"identifier"`
	Channel    string `json:"channel"`
	Contact    string `json:"contact"`
}

type ResetPasswordRequest struct {
	Identifier  string `json:"identifier"`
	Channel     string `json:"channel"`
	Contact     string `json:"contact"`
	Code        string `json:"code,omitempty"`
	NewPassword string `json:"newPassword"`
}

type AdminResetRequest struct {
	UserID      *int64 `json:"user_id,omitempty"`
	Identifier  string `json:"identifier,omitempty"`
	NewPassword string `json:"new_password"`
}

func (a *AuthAPI) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := a.c.JSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/auth/login",
		Body:   map[string]string{"username": username, "password": password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (json.RawMessage, error) {
	return a.c.postRaw(ctx, "/api/auth/register", req)
}

func (a *AuthAPI) Me(ctx context.Context) (*MeResponse, error) {
	var out MeResponse
	if err := a.c.JSON(ctx, Request{Path: "/api/auth/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh trades a refresh token for a new access token. An empty
// refreshToken sends the stored access token instead.
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var out RefreshResponse
	err := a.c.JSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/auth/refresh",
		Body:   struct{}{},
		Token:  refreshToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AuthAPI) ChangePassword(ctx context.Context, oldPassword, newPassword string) (json.RawMessage, error) {
	return a.c.postRaw(ctx, "/api/auth/change-password", map[string]string{
		"old_password": oldPassword,
		"new_password": newPassword,
	})
}

func (a *AuthAPI) RequestResetCode(ctx context.Context, req ResetCodeRequest) (json.RawMessage, error) {
	return a.c.postRaw(ctx, "/api/auth/request-reset-code", req)
}

func (a *AuthAPI) ResetPassword(ctx context.Context, req ResetPasswordRequest) (json.RawMessage, error) {
	return a.c.postRaw(ctx, "/api/auth/reset-password", req)
}

func (a *AuthAPI) AdminResetUserPassword(ctx context.Context, req AdminResetRequest) (json.RawMessage, error) {
	return a.c.postRaw(ctx, "/api/auth/admin/reset-user-password", req)
}
