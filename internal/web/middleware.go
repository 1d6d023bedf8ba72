package web

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/goodtune/daygauge/internal/identity"
	"github.com/goodtune/daygauge/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	// localOwner is the fiber.Ctx local holding the verified owner.
	localOwner = "owner"

	// localNarrow marks a websocket client with a narrow viewport.
	localNarrow = "narrow"

	tokenCookie = "daygauge_token"
)

// tokenFrom extracts a bearer token from the Authorization header, the
// token query parameter or the token cookie, in that order.
func tokenFrom(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if token := c.Query("token"); token != "" {
		return token
	}
	return c.Cookies(tokenCookie)
}

// ownerFrom returns the owner stored by the auth middlewares, if any.
func ownerFrom(c *fiber.Ctx) string {
	owner, _ := c.Locals(localOwner).(string)
	return owner
}

// AuthMiddleware rejects requests without a valid owner token.
func AuthMiddleware(auth *identity.Authority) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, err := auth.Verify(tokenFrom(c))
		if err != nil {
			if errors.Is(err, identity.ErrAuthRequired) {
				return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(localOwner, owner)
		return c.Next()
	}
}

// WebSocketUpgrade ensures requests to the socket endpoint are upgrade
// attempts. A token is optional here: a client may connect signed out and
// authenticate with an auth frame later.
func WebSocketUpgrade(auth *identity.Authority) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		if token := tokenFrom(c); token != "" {
			owner, err := auth.Verify(token)
			if err != nil {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
			}
			c.Locals(localOwner, owner)
		}

		// Locals survive the upgrade, query parameters do not
		c.Locals(localNarrow, c.QueryBool("narrow", false))

		return c.Next()
	}
}

// LoggingMiddleware logs each request and records request metrics.
func LoggingMiddleware(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		route := c.Route().Path
		duration := time.Since(start)

		metrics.RequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())

		logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("remote_addr", c.IP()).
			Int("status", status).
			Dur("duration", duration).
			Msg("Web request")

		return err
	}
}
