package booking

import (
	"errors"
	"fmt"
	"strings"

	"agenda-backend/models"
)

var (
	// ErrValidation is the class of errors caused by bad caller input.
	ErrValidation        = errors.New("validation error")
	ErrInvalidTime       = fmt.Errorf("%w: invalid time", ErrValidation)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrValidation)
)

// ConflictError reports that the requested interval overlaps existing
// active appointments. Conflicts is empty when the store constraint,
// rather than the pre-check, rejected the write.
type ConflictError struct {
	Conflicts []models.Appointment
	cause     error
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return "time slot already taken"
	}
	ranges := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		ranges = append(ranges, c.StartTime+"-"+c.EndTime)
	}
	return "time slot overlaps " + strings.Join(ranges, ", ")
}

func (e *ConflictError) Unwrap() error { return e.cause }

func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}
