package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var sensitiveKeys = map[string]struct{}{
	"password": {}, "token": {}, "authorization": {}, "secret": {}, "session_id": {},
}

func maskQuery(c *fiber.Ctx) map[string]string {
	out := map[string]string{}
	for k, v := range c.Queries() {
		if _, ok := sensitiveKeys[strings.ToLower(k)]; ok {
			v = "****"
		}
		out[k] = v
	}
	return out
}

// AccessLog writes one line per request. Errors from the rest of the chain
// are rendered here so the logged status is the one the client receives.
func AccessLog(l *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				return herr
			}
		}

		fields := []zap.Field{
			zap.String("rid", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.String("method", c.Method()),
			zap.String("path", routePath(c)),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
			zap.String("ua", c.Get(fiber.HeaderUserAgent)),
			zap.Any("query", maskQuery(c)),
			zap.Int("size", len(c.Response().Body())),
		}
		if user := CurrentUser(c); user != nil {
			fields = append(fields, zap.String("user_id", user.ID))
		}
		l.Info("HTTP", fields...)
		return nil
	}
}

// routePath returns the matched route pattern, or the raw path when no route
// matched.
func routePath(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
		return r.Path
	}
	return c.Path()
}
