// Package auth resolves the current caller through Supabase GoTrue and checks
// the elevated role required for template-mutating operations.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	gotrue "github.com/supabase-community/gotrue-go/types"
	supa "github.com/supabase-community/supabase-go"

	"coursehub/api-gateway/models"
)

const rolesTable = "user_roles"

type ctxKey int

const tokenKey ctxKey = iota

// WithToken returns a context carrying the caller's bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext extracts the bearer token set by WithToken, if any.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// User is the resolved caller identity.
type User struct {
	ID    uuid.UUID
	Email string
}

// Gate is the authorization boundary consumed by the repositories.
type Gate interface {
	CurrentUser(ctx context.Context) (*User, error)
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// RequireAdmin resolves the caller and confirms the admin role, returning the
// user on success. An auth service failure surfaces as ErrAuthUnavailable,
// never as a denial.
func RequireAdmin(ctx context.Context, g Gate) (*User, error) {
	user, err := g.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	ok, err := g.IsAdmin(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrPermissionDenied
	}
	return user, nil
}

// SupabaseGate implements Gate against GoTrue (identity) and the user_roles
// table (role membership).
type SupabaseGate struct {
	db  *supa.Client
	log *logrus.Logger
}

func NewSupabaseGate(db *supa.Client, log *logrus.Logger) *SupabaseGate {
	return &SupabaseGate{db: db, log: log}
}

// CurrentUser resolves the bearer token on the context to a GoTrue user.
func (g *SupabaseGate) CurrentUser(ctx context.Context) (*User, error) {
	token := TokenFromContext(ctx)
	if token == "" {
		return nil, models.ErrAuthRequired
	}

	res, err := g.db.Auth.WithToken(token).GetUser()
	if err != nil {
		if isTransportFailure(err) {
			return nil, fmt.Errorf("%w: %v", models.ErrAuthUnavailable, err)
		}
		g.log.WithField("error", err.Error()).Warn("Token did not resolve to a user")
		return nil, models.ErrAuthRequired
	}
	return userFromResponse(res), nil
}

func userFromResponse(res *gotrue.UserResponse) *User {
	return &User{ID: res.ID, Email: res.Email}
}

type roleRow struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (g *SupabaseGate) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	body, _, err := g.db.From(rolesTable).
		Select("*", "", false).
		Eq("user_id", userID.String()).
		Eq("role", "admin").
		Execute()
	if err != nil {
		return false, fmt.Errorf("%w: %v", models.ErrAuthUnavailable, err)
	}

	var rows []roleRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return false, fmt.Errorf("%w: %v", models.ErrAuthUnavailable, err)
	}
	return len(rows) > 0, nil
}

func isTransportFailure(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "no such host")
}
