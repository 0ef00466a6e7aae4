// Package identity carries the verified caller identity from the HTTP
// boundary into the engines. Tokens are parsed exactly once, in Middleware;
// everything past the boundary sees only the value type.
package identity

import (
	"context"
	"strings"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
)

// Identity is the verified {email, role} pair for one request.
type Identity struct {
	Email string
	Role  Role
}

func (id Identity) Valid() bool {
	if !strings.Contains(id.Email, "@") {
		return false
	}
	return id.Role == RoleCustomer || id.Role == RoleVendor
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
