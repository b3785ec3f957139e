package response

import "github.com/gofiber/fiber/v2"

// Envelope is the body of every API response.
type Envelope struct {
	Data    any               `json:"data"`
	Message string            `json:"message"`
	Success bool              `json:"success"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// OK writes a successful envelope with status 200.
func OK(c *fiber.Ctx, data any, message string) error {
	return JSON(c, fiber.StatusOK, data, message)
}

// Created writes a successful envelope with status 201.
func Created(c *fiber.Ctx, data any, message string) error {
	return JSON(c, fiber.StatusCreated, data, message)
}

// JSON writes a successful envelope with the given status.
func JSON(c *fiber.Ctx, status int, data any, message string) error {
	return c.Status(status).JSON(Envelope{Data: data, Message: message, Success: true})
}

// Fail writes a failed envelope. Field errors are omitted when empty.
func Fail(c *fiber.Ctx, status int, message string, fields map[string]string) error {
	if len(fields) == 0 {
		fields = nil
	}
	return c.Status(status).JSON(Envelope{Message: message, Errors: fields})
}
