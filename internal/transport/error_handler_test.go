package transport

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/reelforge/reelforge/internal/domain"
	"github.com/reelforge/reelforge/internal/schedule"
	"github.com/reelforge/reelforge/internal/wizard"
)

func TestStatusFromError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "validation error maps to bad request",
			err:  fmt.Errorf("%w: title is required", domain.ErrValidation),
			want: fiber.StatusBadRequest,
		},
		{
			name: "not found error maps to 404",
			err:  fmt.Errorf("project: %w", domain.ErrNotFound),
			want: fiber.StatusNotFound,
		},
		{
			name: "conflict error maps to 409",
			err:  fmt.Errorf("item is not failed: %w", domain.ErrConflict),
			want: fiber.StatusConflict,
		},
		{
			name: "unknown step maps to 404",
			err:  &wizard.StepNotFoundError{Mode: domain.ModeAmbient, StepID: "bogus"},
			want: fiber.StatusNotFound,
		},
		{
			name: "hidden step maps to 409",
			err:  &wizard.StepHiddenError{Mode: domain.ModeVlog, StepID: "captions"},
			want: fiber.StatusConflict,
		},
		{
			name: "unreachable step maps to 409",
			err:  &wizard.StepNotReachableError{StepID: "export", CurrentStep: "script"},
			want: fiber.StatusConflict,
		},
		{
			name: "terminal lock maps to 409",
			err:  &wizard.TerminalStepLockedError{StepID: "export"},
			want: fiber.StatusConflict,
		},
		{
			name: "infeasible schedule maps to 422",
			err:  &schedule.FeasibilityError{Requested: 5, Days: 2, MaxPerDay: 2, Capacity: 4},
			want: fiber.StatusUnprocessableEntity,
		},
		{
			name: "fiber error keeps its code",
			err:  fiber.NewError(fiber.StatusMethodNotAllowed, "nope"),
			want: fiber.StatusMethodNotAllowed,
		},
		{
			name: "unknown error maps to 500",
			err:  fmt.Errorf("boom"),
			want: fiber.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := statusFromError(tc.err); got != tc.want {
				t.Fatalf("statusFromError() = %d, want %d", got, tc.want)
			}
		})
	}
}
