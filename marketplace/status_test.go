package marketplace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBookingLifecycle(t *testing.T) {
	allowed := [][2]BookingStatus{
		{StatusPending, StatusConfirmed},
		// Admin assignment works directly off the pending queue.
		{StatusPending, StatusAssigned},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusAssigned},
		{StatusConfirmed, StatusCancelled},
		{StatusAssigned, StatusInProgress},
		{StatusAssigned, StatusCancelled},
		{StatusInProgress, StatusCompleted},
	}
	for _, tc := range allowed {
		require.NoError(t, CheckTransition(tc[0], tc[1]), "%s -> %s", tc[0], tc[1])
	}

	denied := [][2]BookingStatus{
		{StatusPending, StatusInProgress},
		{StatusPending, StatusCompleted},
		{StatusInProgress, StatusCancelled},
		{StatusCompleted, StatusPending},
		{StatusCancelled, StatusConfirmed},
		{StatusCompleted, StatusCompleted},
	}
	for _, tc := range denied {
		require.ErrorIs(t, CheckTransition(tc[0], tc[1]), ErrBadTransition, "%s -> %s", tc[0], tc[1])
	}
}

func TestValidStatus(t *testing.T) {
	require.True(t, ValidStatus(StatusInProgress))
	require.False(t, ValidStatus("shipped"))
}
