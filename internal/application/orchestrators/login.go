package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"gymdesk/internal/adapters/api"
	"gymdesk/internal/domain/account"
)

// SessionForLogin defines the session surface needed by Login and Register.
type SessionForLogin interface {
	Login(ctx context.Context, email, password string) (account.User, error)
	Register(ctx context.Context, reg account.Registration) (account.User, error)
	Offline() bool
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the result of a successful login.
type LoginResult struct {
	User    account.User
	Offline bool
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Session SessionForLogin
}

// ExecuteLogin signs in and reports whether the session came from the offline credential.
// PRE: Valid email and password provided
// POST: Returns the signed-in user on success; prior session is untouched on failure
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	user, err := deps.Session.Login(ctx, input.Email, input.Password)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", input.Email, "reason", failureReason(err))
		return LoginResult{}, err
	}
	offline := deps.Session.Offline()

	slog.Info("auth_event", "event", "login_success", "email", input.Email, "role", user.Role, "offline", offline)
	return LoginResult{User: user, Offline: offline}, nil
}

// RegisterInput carries input for the register orchestrator.
type RegisterInput struct {
	Registration account.Registration
}

// ExecuteRegister creates an account and signs in as it.
// PRE: Registration passes validation
// POST: Returns the new user; the session holds its token
func ExecuteRegister(ctx context.Context, input RegisterInput, deps LoginDeps) (account.User, error) {
	user, err := deps.Session.Register(ctx, input.Registration)
	if err != nil {
		slog.Info("auth_event", "event", "register_failed", "email", input.Registration.Email, "reason", failureReason(err))
		return account.User{}, err
	}

	slog.Info("auth_event", "event", "register_success", "email", user.Email, "role", user.Role)
	return user, nil
}

func failureReason(err error) string {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrNetwork):
		return "network"
	case errors.Is(err, account.ErrWrongPassword):
		return "offline_credential_mismatch"
	case errors.Is(err, api.ErrUnauthorized), errors.As(err, &apiErr):
		return "rejected"
	default:
		return "invalid_input"
	}
}
