package marketplace

import (
	"errors"
	"fmt"
)

var ErrBadTransition = errors.New("invalid booking status transition")

// transitions is the forward lifecycle plus cancellation. Assignment can skip
// confirmed: admins assign workers to bookings straight off the pending queue.
// A booking cannot be cancelled once work is in progress.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusAssigned, StatusCancelled},
	StatusConfirmed:  {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func ValidStatus(s BookingStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CheckTransition reports whether from -> to is a legal lifecycle step.
func CheckTransition(from, to BookingStatus) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrBadTransition, from, to)
}
