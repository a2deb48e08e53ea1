package auth

import (
	"context"
	"time"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID         string
	Email          string
	LastLogin      *time.Time
	RecognizedName string
}

// IsUser reports whether the identity belongs to a registered account rather
// than a recognized person.
func (i Identity) IsUser() bool { return i.UserID != "" }

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
