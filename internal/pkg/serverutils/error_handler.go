package serverutils

import (
	"errors"

	"ai-assistant-studio-be/internal/entity"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var verr *ValidationError
	var ferr *fiber.Error
	switch {
	case errors.As(err, &verr), errors.Is(err, entity.ErrInvalidAssistant):
		return fiber.StatusBadRequest
	case errors.Is(err, entity.ErrAssistantNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, entity.ErrTransient):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &ferr):
		return ferr.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware renders errors returned by handlers as
// BaseResponse JSON.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		res := ErrorResponse(code, err.Error())
		var verr *ValidationError
		if errors.As(err, &verr) {
			res.Message = "validation failed"
			res.Errors = verr.Fields
		}
		if code == fiber.StatusInternalServerError {
			res.Message = "internal server error"
		}
		return ctx.Status(code).JSON(res)
	}
}
