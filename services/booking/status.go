package booking

import (
	"slices"

	"agenda-backend/models"
)

var transitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending: {
		models.StatusConfirmed,
		models.StatusCancelled,
		models.StatusRescheduled,
		models.StatusNoShow,
	},
	models.StatusConfirmed: {
		models.StatusCompleted,
		models.StatusCancelled,
		models.StatusRescheduled,
	},
}

// CanTransition reports whether an appointment may move from one status
// to another. COMPLETED, CANCELLED, RESCHEDULED and NO_SHOW are terminal.
func CanTransition(from, to models.AppointmentStatus) bool {
	return slices.Contains(transitions[from], to)
}
