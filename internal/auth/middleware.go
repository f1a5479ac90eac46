package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	localUserID  = "user_id"
	localRole    = "role"
	localSubject = "subject"
)

type Options struct {
	Secret   string
	Issuer   string
	Audience string
}

// JWTMiddleware validates bearer tokens issued by the identity provider,
// syncs the bearer into the local user directory and stores user_id, role and
// subject in locals. A nil directory skips the sync.
func JWTMiddleware(opts Options, users *Directory) fiber.Handler {
	secretBytes := []byte(opts.Secret)
	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}

	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
			return secretBytes, nil
		}, parserOpts...)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		claims, ok := parsed.Claims.(*Claims)
		if !ok || !parsed.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "token invalid")
		}

		identity := IdentityFromClaims(claims)
		if identity.Subject == "" {
			return fiber.NewError(fiber.StatusUnauthorized, ErrMissingSubject.Error())
		}

		var userID int64
		if users != nil {
			user, err := users.Sync(c.Context(), identity)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
			userID = user.ID
		}

		c.Locals(localUserID, userID)
		c.Locals(localRole, identity.Role)
		c.Locals(localSubject, identity.Subject)
		return c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. It must run after
// JWTMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsAdmin(c) {
			return fiber.NewError(fiber.StatusForbidden, "admin role required")
		}
		return c.Next()
	}
}

func UserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(localUserID).(int64)
	return id
}

func IsAdmin(c *fiber.Ctx) bool {
	role, _ := c.Locals(localRole).(string)
	return role == RoleAdmin
}

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
