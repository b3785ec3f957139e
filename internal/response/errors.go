package response

import (
	"errors"

	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const internalMessage = "Internal server error"

// ErrorHandler renders any error returned from a handler or middleware as a
// failed envelope. Outside development, messages of 5xx failures are replaced
// with a generic one.
func ErrorHandler(development bool, log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, message, fields := classify(err)

		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("rid", c.GetRespHeader(fiber.HeaderXRequestID)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err),
			)
			switch {
			case development:
				message = err.Error()
			case status == fiber.StatusInternalServerError:
				message = internalMessage
			}
		}
		return Fail(c, status, message, fields)
	}
}

func classify(err error) (int, string, map[string]string) {
	if se, ok := services.AsError(err); ok {
		return se.Status, se.Message, se.Fields
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message, nil
	}
	return fiber.StatusInternalServerError, internalMessage, nil
}
