// Package auth checks the admin shared secret and hands out the Admin
// capability that the theme service requires for its admin operations.
package auth

import "context"

// Admin is proof that a request presented a valid admin credential.
// The zero value is not verified; only Guard.Verify mints verified ones.
type Admin struct {
	method   string
	verified bool
}

// Verified reports whether the capability came from a successful check.
func (a Admin) Verified() bool { return a.verified }

// Method names the credential that was accepted: "token", "token_hash" or
// "session".
func (a Admin) Method() string { return a.method }

type ctxKey string

const adminKey ctxKey = "admin"

func WithAdmin(ctx context.Context, a Admin) context.Context {
	return context.WithValue(ctx, adminKey, a)
}

func AdminFromContext(ctx context.Context) (Admin, bool) {
	a, ok := ctx.Value(adminKey).(Admin)
	return a, ok && a.verified
}
