// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"slices"

	"backoffice/internal/core/id"
)

// UserContext contains authenticated user information.
type UserContext struct {
	UserID      string
	BranchID    id.ID // Home branch; Nil for head-office accounts
	Email       string
	Roles       []string
	Permissions []string
	IsAdmin     bool
}

// HasPermission reports whether the user holds perm. Admins hold every permission.
func (u *UserContext) HasPermission(perm string) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || slices.Contains(u.Permissions, perm)
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}


