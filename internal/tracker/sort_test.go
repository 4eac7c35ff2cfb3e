package tracker_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tripspend/trip_tracker/internal/tracker"
)

func sampleExpenses() []tracker.Expense {
	day := func(d int) time.Time {
		return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC)
	}
	return []tracker.Expense{
		{ID: "a", Date: day(15), Type: "Transportation", Vendor: "Taxi Service", Cost: decimal.RequireFromString("89.99")},
		{ID: "b", Date: day(14), Type: "Meals", Vendor: "deep dish co", Cost: decimal.RequireFromString("24.50")},
		{ID: "c", Date: day(16), Type: "Lodging", Vendor: "Hotel Adler", Cost: decimal.RequireFromString("210.00")},
	}
}

func ids(expenses []tracker.Expense) []string {
	out := make([]string, len(expenses))
	for i, e := range expenses {
		out[i] = e.ID
	}
	return out
}

func TestSortExpenses(t *testing.T) {
	tests := []struct {
		name  string
		state tracker.SortState
		want  []string
	}{
		{"date ascending", tracker.SortState{Field: tracker.SortByDate, Ascending: true}, []string{"b", "a", "c"}},
		{"date descending", tracker.SortState{Field: tracker.SortByDate, Ascending: false}, []string{"c", "a", "b"}},
		{"cost ascending", tracker.SortState{Field: tracker.SortByCost, Ascending: true}, []string{"b", "a", "c"}},
		{"vendor is case insensitive", tracker.SortState{Field: tracker.SortByVendor, Ascending: true}, []string{"b", "c", "a"}},
		{"type ascending", tracker.SortState{Field: tracker.SortByType, Ascending: true}, []string{"c", "b", "a"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expenses := sampleExpenses()
			tracker.SortExpenses(expenses, tc.state)
			require.Equal(t, tc.want, ids(expenses))
		})
	}
}

func TestSortStateSelect(t *testing.T) {
	state := tracker.NewSortState()
	require.Equal(t, tracker.SortByDate, state.Field)
	require.True(t, state.Ascending)

	// Selecting the active field flips direction.
	state.Select(tracker.SortByDate)
	require.False(t, state.Ascending)

	// Selecting a new field resets to ascending.
	state.Select(tracker.SortByCost)
	require.Equal(t, tracker.SortByCost, state.Field)
	require.True(t, state.Ascending)
}

func TestSortDoubleFlipRestoresOrder(t *testing.T) {
	expenses := sampleExpenses()
	state := tracker.SortState{Field: tracker.SortByCost, Ascending: true}
	tracker.SortExpenses(expenses, state)
	before := ids(expenses)

	state.Select(tracker.SortByCost)
	tracker.SortExpenses(expenses, state)
	state.Select(tracker.SortByCost)
	tracker.SortExpenses(expenses, state)

	require.Equal(t, before, ids(expenses))
}

func TestTotalSpent(t *testing.T) {
	total := tracker.TotalSpent(sampleExpenses())
	require.True(t, total.Equal(decimal.RequireFromString("324.49")))

	require.True(t, tracker.TotalSpent(nil).IsZero())
}
