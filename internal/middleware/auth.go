package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/homelink/marketplace/internal/auth"
	"github.com/homelink/marketplace/internal/config"
	"go.uber.org/zap"
)

const CtxCaller = "caller"

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return authenticate(cfg, log, true)
}

// OptionalAuth attaches the caller when a bearer token is present and lets
// anonymous requests through, so the service decides how to answer them.
// A token that is present but invalid is still rejected.
func OptionalAuth(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return authenticate(cfg, log, false)
}

func authenticate(cfg *config.Config, log *zap.Logger, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			if required {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
			}
			return c.Next()
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader || tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, cfg.JWTIssuer, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxCaller, &auth.Caller{UserID: claims.UserID})
		return c.Next()
	}
}

// GetCaller returns the verified caller or nil for anonymous requests.
func GetCaller(c *fiber.Ctx) *auth.Caller {
	caller, _ := c.Locals(CtxCaller).(*auth.Caller)
	return caller
}
