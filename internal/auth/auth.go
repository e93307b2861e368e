// Package auth carries the identity of the sales rep using the device.
// Authentication itself happens upstream; requests arrive with the
// authenticated e-mail in the X-User-Email header.
package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const (
	// UserEmailHeader is the request header holding the authenticated e-mail.
	UserEmailHeader = "X-User-Email"

	userEmailCtxKey = ctxKey("userEmail")
)

// WithUserEmail stores the user e-mail in context.
func WithUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userEmailCtxKey, email)
}

// UserEmailFromContext extracts the user e-mail.
func UserEmailFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userEmailCtxKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Middleware attaches the user e-mail to the request context if present.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if email := strings.TrimSpace(r.Header.Get(UserEmailHeader)); email != "" {
			r = r.WithContext(WithUserEmail(r.Context(), email))
		}
		next.ServeHTTP(w, r)
	})
}

// Identity resolves the current user's e-mail from a context, falling back to
// a configured default when the request carried none.
type Identity struct {
	Fallback string
}

// UserEmail implements services.UserProvider.
func (i Identity) UserEmail(ctx context.Context) string {
	if email, ok := UserEmailFromContext(ctx); ok {
		return email
	}
	return i.Fallback
}
