package tracker

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SortField is one of the selectable expense list columns.
type SortField string

const (
	SortByDate   SortField = "date"
	SortByType   SortField = "type"
	SortByVendor SortField = "vendor"
	SortByCost   SortField = "cost"
)

// SortState holds the current list-view ordering. Selecting the field that
// is already active flips the direction; selecting a new field resets the
// direction to ascending.
type SortState struct {
	Field     SortField
	Ascending bool
}

func NewSortState() SortState {
	return SortState{Field: SortByDate, Ascending: true}
}

func (s *SortState) Select(field SortField) {
	if s.Field == field {
		s.Ascending = !s.Ascending
		return
	}
	s.Field = field
	s.Ascending = true
}

// SortExpenses orders the slice in place according to state. Dates compare
// as timestamps, costs numerically, text fields case-insensitively. The
// sort is stable so flipping the direction twice restores the order.
func SortExpenses(expenses []Expense, state SortState) {
	less := func(a, b Expense) bool {
		switch state.Field {
		case SortByDate:
			return a.Date.Before(b.Date)
		case SortByCost:
			return a.Cost.LessThan(b.Cost)
		case SortByVendor:
			return strings.ToLower(a.Vendor) < strings.ToLower(b.Vendor)
		default:
			return strings.ToLower(a.Type) < strings.ToLower(b.Type)
		}
	}

	sort.SliceStable(expenses, func(i, j int) bool {
		if state.Ascending {
			return less(expenses[i], expenses[j])
		}
		return less(expenses[j], expenses[i])
	})
}

// TotalSpent folds the cost over the given expenses. It only reflects what
// was fetched; the authoritative per-trip total comes from the storage
// aggregate query.
func TotalSpent(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, expense := range expenses {
		total = total.Add(expense.Cost)
	}
	return total
}
