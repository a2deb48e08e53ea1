package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"homeguard/internal/auth"
	"homeguard/internal/model"
	"homeguard/internal/service"
)

// IdentityLocalKey is the Fiber locals key holding the auth.Identity.
const IdentityLocalKey = "identity"

const unauthenticatedMessage = "Please log in first"

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserLookup interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Auth rejects the request with 401 unless it carries a valid bearer token
// for an existing account or a recognized person.
func Auth(tokens TokenVerifier, users UserLookup) fiber.Handler {
	return authenticate(tokens, users, true)
}

// OptionalAuth lets requests without an Authorization header through
// anonymously. A header that is present must still be valid.
func OptionalAuth(tokens TokenVerifier, users UserLookup) fiber.Handler {
	return authenticate(tokens, users, false)
}

func authenticate(tokens TokenVerifier, users UserLookup, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" && !required {
			return c.Next()
		}

		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, unauthenticatedMessage)
		}

		claims, err := tokens.Verify(strings.TrimSpace(raw))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, unauthenticatedMessage)
		}

		id, err := identityFor(c.UserContext(), claims, users)
		if err != nil {
			return err
		}

		c.Locals(IdentityLocalKey, id)
		c.SetUserContext(auth.WithIdentity(c.UserContext(), id))
		return c.Next()
	}
}

// identityFor confirms a user token against the account store. The account
// must still exist under the same id.
func identityFor(ctx context.Context, claims *auth.Claims, users UserLookup) (auth.Identity, error) {
	if claims.Email == "" {
		if claims.RecognizedName != "" {
			return auth.Identity{RecognizedName: claims.RecognizedName}, nil
		}
		return auth.Identity{}, fiber.NewError(fiber.StatusUnauthorized, unauthenticatedMessage)
	}

	u, err := users.FindUserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return auth.Identity{}, fiber.NewError(fiber.StatusUnauthorized, unauthenticatedMessage)
		}
		return auth.Identity{}, err
	}
	if u.ID != claims.UserID {
		return auth.Identity{}, fiber.NewError(fiber.StatusUnauthorized, unauthenticatedMessage)
	}
	return auth.Identity{UserID: u.ID, Email: u.Email, LastLogin: u.LastLogin}, nil
}

// IdentityFrom returns the identity attached by Auth or OptionalAuth.
func IdentityFrom(c *fiber.Ctx) (auth.Identity, bool) {
	id, ok := c.Locals(IdentityLocalKey).(auth.Identity)
	return id, ok
}

// RequireUser answers 403 for identities that are not registered accounts.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, unauthenticatedMessage)
		}
		if !id.IsUser() {
			return fiber.NewError(fiber.StatusForbidden, "account required")
		}
		return c.Next()
	}
}
