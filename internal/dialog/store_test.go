package dialog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tripspend/trip_tracker/internal/tracker"
)

func TestToggleFlipsSameDialog(t *testing.T) {
	store := NewStore()

	store.ToggleAddTrip()
	_, ok := store.Active().(AddTrip)
	require.True(t, ok)

	// Toggling the dialog that is already open closes it.
	store.ToggleAddTrip()
	_, ok = store.Active().(None)
	require.True(t, ok)
}

func TestOpeningOneDialogClosesAnother(t *testing.T) {
	store := NewStore()

	trip := tracker.Trip{ID: "trip-1", Name: "Client Meeting in Chicago"}
	store.ToggleEditTrip(trip)

	active, ok := store.Active().(EditTrip)
	require.True(t, ok)
	require.Equal(t, "trip-1", active.Trip.ID)

	// Opening the expense form replaces the trip editor, payload included.
	store.ToggleAddExpense("Client Meeting in Chicago")

	expenseState, ok := store.Active().(AddExpense)
	require.True(t, ok)
	require.Equal(t, "Client Meeting in Chicago", expenseState.DefaultTripName)
}

func TestTogglingSameKindDropsStalePayload(t *testing.T) {
	store := NewStore()

	store.ToggleEditExpense(tracker.Expense{ID: "exp-1"})
	store.ToggleEditExpense(tracker.Expense{ID: "exp-2"})

	// Same dialog kind toggled again acts as a close, not a payload swap.
	_, ok := store.Active().(None)
	require.True(t, ok)
}

func TestCloseAll(t *testing.T) {
	store := NewStore()

	tests := []struct {
		name string
		open func()
	}{
		{name: "batch upload", open: func() { store.ToggleBatchUpload("trip-1", "Chicago") }},
		{name: "receipt viewer", open: func() { store.ToggleReceiptViewer("/uploads/receipt.jpg") }},
		{name: "mileage editor", open: func() { store.ToggleMileageEditor(nil, "trip-1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.open()
			store.CloseAll()
			_, ok := store.Active().(None)
			require.True(t, ok)
		})
	}
}

func TestMileageEditorPayload(t *testing.T) {
	store := NewStore()

	log := &tracker.MileageLog{ID: "log-1", StartOdometer: 100, EndOdometer: 150}
	store.ToggleMileageEditor(log, "trip-1")

	active, ok := store.Active().(MileageEditor)
	require.True(t, ok)
	require.Equal(t, "log-1", active.Log.ID)
	require.Equal(t, "trip-1", active.TripID)
}
