// Package dialog tracks which editing dialog of the client is open and
// with what payload. The state is a single tagged-union value, so two
// dialogs being open at the same time is unrepresentable.
package dialog

import (
	"sync"

	"github.com/tripspend/trip_tracker/internal/tracker"
)

// State is the active dialog with its payload. Exactly one variant is
// active at any time; None means everything is closed.
type State interface {
	dialogState()
}

type None struct{}

type AddTrip struct{}

type EditTrip struct {
	Trip tracker.Trip
}

// AddExpense pre-selects the trip the expense form should default to.
type AddExpense struct {
	DefaultTripName string
}

type EditExpense struct {
	Expense tracker.Expense
}

type BatchUpload struct {
	TripID   string
	TripName string
}

type ReceiptViewer struct {
	URL string
}

// MileageEditor edits an existing log when Log is set, otherwise it
// creates a new one for TripID.
type MileageEditor struct {
	Log    *tracker.MileageLog
	TripID string
}

func (None) dialogState()          {}
func (AddTrip) dialogState()       {}
func (EditTrip) dialogState()      {}
func (AddExpense) dialogState()    {}
func (EditExpense) dialogState()   {}
func (BatchUpload) dialogState()   {}
func (ReceiptViewer) dialogState() {}
func (MileageEditor) dialogState() {}

// Store is the single source of truth for dialog visibility. Toggling a
// dialog that is already open closes it; opening any dialog replaces
// whatever was open before, payload included.
type Store struct {
	mu     sync.Mutex
	active State
}

func NewStore() *Store {
	return &Store{active: None{}}
}

// Active returns the current state snapshot.
func (s *Store) Active() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// CloseAll resets the store unconditionally. Used on navigation and logout.
func (s *Store) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = None{}
}

// toggle flips between next and None when the active variant matches
// next's variant, otherwise it opens next.
func (s *Store) toggle(next State, sameKind func(State) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sameKind(s.active) {
		s.active = None{}
		return
	}
	s.active = next
}

func (s *Store) ToggleAddTrip() {
	s.toggle(AddTrip{}, func(st State) bool { _, ok := st.(AddTrip); return ok })
}

func (s *Store) ToggleEditTrip(trip tracker.Trip) {
	s.toggle(EditTrip{Trip: trip}, func(st State) bool { _, ok := st.(EditTrip); return ok })
}

func (s *Store) ToggleAddExpense(defaultTripName string) {
	s.toggle(AddExpense{DefaultTripName: defaultTripName}, func(st State) bool { _, ok := st.(AddExpense); return ok })
}

func (s *Store) ToggleEditExpense(expense tracker.Expense) {
	s.toggle(EditExpense{Expense: expense}, func(st State) bool { _, ok := st.(EditExpense); return ok })
}

func (s *Store) ToggleBatchUpload(tripID, tripName string) {
	s.toggle(BatchUpload{TripID: tripID, TripName: tripName}, func(st State) bool { _, ok := st.(BatchUpload); return ok })
}

func (s *Store) ToggleReceiptViewer(url string) {
	s.toggle(ReceiptViewer{URL: url}, func(st State) bool { _, ok := st.(ReceiptViewer); return ok })
}

func (s *Store) ToggleMileageEditor(log *tracker.MileageLog, tripID string) {
	s.toggle(MileageEditor{Log: log, TripID: tripID}, func(st State) bool { _, ok := st.(MileageEditor); return ok })
}
