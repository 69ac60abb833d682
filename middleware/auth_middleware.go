package middleware

import (
	"context"
	"strings"

	"github.com/anjiri1684/teacherin/services"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const principalKey = "principal"

// PrincipalResolver loads the caller behind a verified token.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID uuid.UUID) (services.Principal, error)
}

// Protected verifies the bearer token and resolves the principal once per
// request. Handlers read it with GetPrincipal.
func Protected(secret string, resolver PrincipalResolver) fiber.Handler {
	return protected(secret, resolver, "header:Authorization", "Bearer")
}

// ProtectedSocket is Protected for websocket upgrades, which carry the
// token in the query string.
func ProtectedSocket(secret string, resolver PrincipalResolver) fiber.Handler {
	return protected(secret, resolver, "query:token", "")
}

// An explicit TokenLookup leaves AuthScheme unset in jwtware, so the
// header scheme has to be passed along with it.
func protected(secret string, resolver PrincipalResolver, lookup, scheme string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		TokenLookup:   lookup,
		AuthScheme:    scheme,
		ErrorHandler:  jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			p, err := resolve(c, resolver)
			if err != nil {
				return err
			}
			c.Locals(principalKey, p)
			return c.Next()
		},
	})
}

func resolve(c *fiber.Ctx, resolver PrincipalResolver) (services.Principal, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return services.Principal{}, services.ErrUnauthenticated
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return services.Principal{}, services.ErrUnauthenticated
	}
	raw, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		return services.Principal{}, services.Unauthenticated("invalid token subject")
	}
	return resolver.ResolvePrincipal(c.UserContext(), userID)
}

func jwtError(c *fiber.Ctx, err error) error {
	if strings.EqualFold(err.Error(), "missing or malformed JWT") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing or malformed JWT"})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
}

// GetPrincipal returns the resolved caller, or the zero Principal on
// unprotected routes.
func GetPrincipal(c *fiber.Ctx) services.Principal {
	p, _ := c.Locals(principalKey).(services.Principal)
	return p
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p.UserID == uuid.Nil {
			return services.ErrUnauthenticated
		}
		for _, r := range roles {
			if p.Role == r {
				return c.Next()
			}
		}
		return services.ErrForbidden
	}
}
