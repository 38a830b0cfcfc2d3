package api

import (
	"context"
	"net/http"

	"gymdesk/internal/domain/account"
)

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string       `json:"token"`
	User  account.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.doCredentials(ctx, "auth.login", http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &out)
	return out, err
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, reg account.Registration) (AuthResponse, error) {
	var out AuthResponse
	err := c.doCredentials(ctx, "auth.register", http.MethodPost, "/auth/register", reg, &out)
	return out, err
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (account.User, error) {
	var out account.User
	err := c.do(ctx, "users.profile", http.MethodGet, "/users/profile", nil, &out)
	return out, err
}
