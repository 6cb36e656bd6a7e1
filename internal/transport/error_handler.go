package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/domain"
	"github.com/reelforge/reelforge/internal/schedule"
	"github.com/reelforge/reelforge/internal/wizard"
)

// ErrorHandler maps domain and wizard errors to HTTP statuses so handlers
// can return errors unwrapped.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFromError(err)

		if code >= fiber.StatusInternalServerError {
			logger.Error("request error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		} else {
			logger.Warn("request rejected",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

func statusFromError(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	var (
		stepNotFound   *wizard.StepNotFoundError
		stepHidden     *wizard.StepHiddenError
		notReachable   *wizard.StepNotReachableError
		terminalLocked *wizard.TerminalStepLockedError
		feasibility    *schedule.FeasibilityError
	)

	switch {
	case errors.As(err, &stepNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &stepHidden):
		return fiber.StatusConflict
	case errors.As(err, &notReachable):
		return fiber.StatusConflict
	case errors.As(err, &terminalLocked):
		return fiber.StatusConflict
	case errors.As(err, &feasibility):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	}

	return fiber.StatusInternalServerError
}
