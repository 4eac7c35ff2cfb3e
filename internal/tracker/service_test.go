package tracker_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	appErrors "github.com/tripspend/trip_tracker/customErrors"
	"github.com/tripspend/trip_tracker/internal/auth"
	"github.com/tripspend/trip_tracker/internal/storage"
	"github.com/tripspend/trip_tracker/internal/tracker"
)

func newTestTracker(t *testing.T) (tracker.TripTracker, context.Context, string) {
	t.Helper()
	tt := tracker.NewTripTracker(storage.NewInMemoryStorage())
	ctx := context.Background()

	token, err := tt.SaveUser(ctx, auth.NewUser{
		UserName:      "chris",
		FullName:      "chris harper",
		PasswordPlain: "secret-pass-1",
		Email:         "chris@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userId, err := tt.CheckSession(ctx, token)
	require.NoError(t, err)
	return tt, ctx, userId
}

func TestSaveUser(t *testing.T) {
	tt := tracker.NewTripTracker(storage.NewInMemoryStorage())
	ctx := context.Background()

	tests := []struct {
		name     string
		user     auth.NewUser
		wantCode string
	}{
		{
			name: "valid user",
			user: auth.NewUser{
				UserName:      "anna",
				FullName:      "anna lee",
				PasswordPlain: "pass-123",
				Email:         "anna@example.com",
			},
		},
		{
			name: "duplicate username",
			user: auth.NewUser{
				UserName:      "anna",
				FullName:      "another anna",
				PasswordPlain: "pass-456",
				Email:         "anna2@example.com",
			},
			wantCode: appErrors.ErrConflict,
		},
		{
			name: "duplicate email",
			user: auth.NewUser{
				UserName:      "annaclone",
				FullName:      "anna clone",
				PasswordPlain: "pass-456",
				Email:         "anna@example.com",
			},
			wantCode: appErrors.ErrConflict,
		},
		{
			name: "invalid username",
			user: auth.NewUser{
				UserName:      "Anna With Spaces",
				FullName:      "anna lee",
				PasswordPlain: "pass-123",
				Email:         "anna3@example.com",
			},
			wantCode: appErrors.ErrInvalidInput,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token, err := tt.SaveUser(ctx, tc.user)
			if tc.wantCode == "" {
				require.NoError(t, err)
				require.NotEmpty(t, token)
				return
			}
			require.Error(t, err)
			require.Equal(t, tc.wantCode, appErrors.CodeOf(err))
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	tt := tracker.NewTripTracker(storage.NewInMemoryStorage())
	ctx := context.Background()

	_, err := tt.SaveUser(ctx, auth.NewUser{
		UserName:      "maria",
		FullName:      "maria costa",
		PasswordPlain: "strong-pass",
		Email:         "maria@example.com",
	})
	require.NoError(t, err)

	_, err = tt.GenerateSession(ctx, auth.UserCredentialsPure{
		UserName:      "maria",
		PasswordPlain: "wrong-pass",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAuth, appErrors.CodeOf(err))

	token, err := tt.GenerateSession(ctx, auth.UserCredentialsPure{
		UserName:      "maria",
		PasswordPlain: "strong-pass",
	})
	require.NoError(t, err)

	userId, err := tt.CheckSession(ctx, token)
	require.NoError(t, err)
	require.NotEmpty(t, userId)

	require.NoError(t, tt.LogoutUser(ctx, userId, token))

	_, err = tt.CheckSession(ctx, token)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAuth, appErrors.CodeOf(err))
}

func TestChangePassword(t *testing.T) {
	tt, ctx, userId := newTestTracker(t)

	err := tt.ChangePassword(ctx, userId, auth.PasswordChange{
		CurrentPassword: "not-the-password",
		NewPassword:     "new-pass-9",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAuth, appErrors.CodeOf(err))

	err = tt.ChangePassword(ctx, userId, auth.PasswordChange{
		CurrentPassword: "secret-pass-1",
		NewPassword:     "new-pass-9",
	})
	require.NoError(t, err)

	_, err = tt.GenerateSession(ctx, auth.UserCredentialsPure{
		UserName:      "chris",
		PasswordPlain: "new-pass-9",
	})
	require.NoError(t, err)
}

func TestSaveTrip(t *testing.T) {
	tt, ctx, userId := newTestTracker(t)

	trip, err := tt.SaveTrip(ctx, userId, tracker.TripRequest{
		Name:        "Client Meeting in Chicago",
		Description: "Quarterly onsite",
	})
	require.NoError(t, err)
	require.Equal(t, "Client Meeting in Chicago", trip.Name)
	require.Equal(t, userId, trip.CreatedBy)

	_, err = tt.SaveTrip(ctx, userId, tracker.TripRequest{Name: "Client Meeting in Chicago"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict, appErrors.CodeOf(err))

	_, err = tt.SaveTrip(ctx, userId, tracker.TripRequest{Name: "   "})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
}

func TestTripAggregates(t *testing.T) {
	tt, ctx, userId := newTestTracker(t)

	_, err := tt.SaveTrip(ctx, userId, tracker.TripRequest{Name: "Client Meeting in Chicago"})
	require.NoError(t, err)

	date := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	_, err = tt.SaveExpense(ctx, userId, tracker.ExpenseRequest{
		Date:     date,
		Type:     "Transportation",
		Vendor:   "Taxi Service",
		Location: "Chicago",
		Cost:     decimal.RequireFromString("89.99"),
		TripName: "Client Meeting in Chicago",
	})
	require.NoError(t, err)
	_, err = tt.SaveExpense(ctx, userId, tracker.ExpenseRequest{
		Date:     date,
		Type:     "Meals",
		Vendor:   "Deep Dish Co",
		Location: "Chicago",
		Cost:     decimal.RequireFromString("24.50"),
		TripName: "Client Meeting in Chicago",
	})
	require.NoError(t, err)

	trips, err := tt.GetTrips(ctx, userId)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	require.Equal(t, 2, trips[0].ExpenseCount)
	require.True(t, trips[0].TotalSpent.Equal(decimal.RequireFromString("114.49")))
}

func TestSaveExpenseValidation(t *testing.T) {
	tt, ctx, userId := newTestTracker(t)

	_, err := tt.SaveTrip(ctx, userId, tracker.TripRequest{Name: "Berlin"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		expense tracker.ExpenseRequest
	}{
		{
			name: "zero cost",
			expense: tracker.ExpenseRequest{
				Cost:     decimal.Zero,
				Type:     "Meals",
				TripName: "Berlin",
			},
		},
		{
			name: "negative cost",
			expense: tracker.ExpenseRequest{
				Cost:     decimal.RequireFromString("-5.00"),
				Type:     "Meals",
				TripName: "Berlin",
			},
		},
		{
			name: "missing trip name",
			expense: tracker.ExpenseRequest{
				Cost: decimal.RequireFromString("5.00"),
				Type: "Meals",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tt.SaveExpense(ctx, userId, tc.expense)
			require.Error(t, err)
			require.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
		})
	}

	_, err = tt.SaveExpense(ctx, userId, tracker.ExpenseRequest{
		Cost:     decimal.RequireFromString("5.00"),
		Type:     "Meals",
		TripName: "No Such Trip",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))
}

func TestSaveExpensesBatchAllOrNothing(t *testing.T) {
	tt, ctx, userId := newTestTracker(t)

	_, err := tt.SaveTrip(ctx, userId, tracker.TripRequest{Name: "Berlin"})
	require.NoError(t, err)

	batch := []tracker.ExpenseRequest{
		{
			Date:     time.Now().UTC(),
			Type:     "Meals",
			Vendor:   "Cafe",
			Cost:     decimal.RequireFromString("10.00"),
			TripName: "Berlin",
		},
		{
			Date:     time.Now().UTC(),
			Type:     "Meals",
			Vendor:   "Bad Row",
			Cost:     decimal.Zero,
			TripName: "Berlin",
		},
	}

	saved, err := tt.SaveExpenses(ctx, userId, batch)
	require.Error(t, err)
	require.Empty(t, saved)

	expenses, err := tt.GetExpenses(ctx, userId, "Berlin")
	require.NoError(t, err)
	require.Empty(t, expenses)
}

// batchFailStorage rejects batch inserts while everything else works,
// standing in for a connection drop mid-write.
type batchFailStorage struct {
	tracker.Storage
}

func (s batchFailStorage) SaveExpenses(ctx context.Context, expenses []tracker.Expense) error {
	return appErrors.New(appErrors.ErrInternal, "insert failed")
}

func TestSaveExpensesBatchInsertFailureKeepsNothing(t *testing.T) {
	tt := tracker.NewTripTracker(batchFailStorage{Storage: storage.NewInMemoryStorage()})
	ctx := context.Background()

	token, err := tt.SaveUser(ctx, auth.NewUser{
		UserName:      "chris",
		FullName:      "chris harper",
		PasswordPlain: "secret-pass-1",
		Email:         "chris@example.com",
	})
	require.NoError(t, err)
	userId, err := tt.CheckSession(ctx, token)
	require.NoError(t, err)

	_, err = tt.SaveTrip(ctx, userId, tracker.TripRequest{Name: "Berlin"})
	require.NoError(t, err)

	batch := []tracker.ExpenseRequest{
		{
			Date:     time.Now().UTC(),
			Type:     "Meals",
			Vendor:   "Currywurst Stand",
			Cost:     decimal.RequireFromString("8.50"),
			TripName: "Berlin",
		},
		{
			Date:     time.Now().UTC(),
			Type:     "Transportation",
			Vendor:   "S-Bahn",
			Cost:     decimal.RequireFromString("3.80"),
			TripName: "Berlin",
		},
	}

	saved, err := tt.SaveExpenses(ctx, userId, batch)
	require.Error(t, err)
	require.Empty(t, saved)

	// Valid rows must not have been written one at a time.
	expenses, err := tt.GetExpenses(ctx, userId, "Berlin")
	require.NoError(t, err)
	require.Empty(t, expenses)
}

func TestDeleteTripCascades(t *testing.T) {
	tt, ctx, userId := newTestTracker(t)

	trip, err := tt.SaveTrip(ctx, userId, tracker.TripRequest{Name: "Berlin"})
	require.NoError(t, err)

	_, err = tt.SaveExpense(ctx, userId, tracker.ExpenseRequest{
		Date:     time.Now().UTC(),
		Type:     "Meals",
		Cost:     decimal.RequireFromString("10.00"),
		TripName: "Berlin",
	})
	require.NoError(t, err)

	_, err = tt.SaveMileageLog(ctx, userId, tracker.MileageLogRequest{
		TripID:        trip.ID,
		TripDate:      time.Now().UTC(),
		StartOdometer: 1000,
		EndOdometer:   1050,
		Purpose:       "Airport run",
		EntryMethod:   tracker.EntryMethodManual,
	})
	require.NoError(t, err)

	require.NoError(t, tt.DeleteTrip(ctx, userId, trip.ID))

	expenses, err := tt.GetExpenses(ctx, userId, "Berlin")
	require.NoError(t, err)
	require.Empty(t, expenses)

	logs, err := tt.GetMileageLogs(ctx, userId, trip.ID)
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestMileageValidation(t *testing.T) {
	tt, ctx, userId := newTestTracker(t)

	trip, err := tt.SaveTrip(ctx, userId, tracker.TripRequest{Name: "Berlin"})
	require.NoError(t, err)

	tests := []struct {
		name string
		log  tracker.MileageLogRequest
	}{
		{
			name: "end before start",
			log: tracker.MileageLogRequest{
				TripID:        trip.ID,
				StartOdometer: 1050,
				EndOdometer:   1000,
				EntryMethod:   tracker.EntryMethodManual,
			},
		},
		{
			name: "negative reading",
			log: tracker.MileageLogRequest{
				TripID:        trip.ID,
				StartOdometer: -1,
				EndOdometer:   100,
				EntryMethod:   tracker.EntryMethodManual,
			},
		},
		{
			name: "unknown entry method",
			log: tracker.MileageLogRequest{
				TripID:        trip.ID,
				StartOdometer: 100,
				EndOdometer:   150,
				EntryMethod:   "telepathy",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tt.SaveMileageLog(ctx, userId, tc.log)
			require.Error(t, err)
			require.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
		})
	}

	log, err := tt.SaveMileageLog(ctx, userId, tracker.MileageLogRequest{
		TripID:        trip.ID,
		TripDate:      time.Now().UTC(),
		StartOdometer: 1000,
		EndOdometer:   1050.5,
		Purpose:       "Client visit",
		EntryMethod:   tracker.EntryMethodManual,
	})
	require.NoError(t, err)
	require.InDelta(t, 50.5, log.Distance(), 0.0001)
}

func TestUpdateTripRenamesExpenseRefs(t *testing.T) {
	tt, ctx, userId := newTestTracker(t)

	trip, err := tt.SaveTrip(ctx, userId, tracker.TripRequest{Name: "Berlin"})
	require.NoError(t, err)

	_, err = tt.SaveExpense(ctx, userId, tracker.ExpenseRequest{
		Date:     time.Now().UTC(),
		Type:     "Meals",
		Cost:     decimal.RequireFromString("10.00"),
		TripName: "Berlin",
	})
	require.NoError(t, err)

	updated, err := tt.UpdateTrip(ctx, userId, tracker.UpdateTripRequest{
		ID:             trip.ID,
		NewName:        "Berlin Q2",
		NewDescription: "renamed",
	})
	require.NoError(t, err)
	require.Equal(t, "Berlin Q2", updated.Name)

	expenses, err := tt.GetExpenses(ctx, userId, "Berlin Q2")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
}

func TestUpdateProfile(t *testing.T) {
	tt, ctx, userId := newTestTracker(t)

	user, err := tt.UpdateProfile(ctx, userId, auth.ProfileUpdate{
		FullName: "Chris Harper",
		Email:    "Chris.Harper@Example.com",
		Phone:    "+1 555 0100",
		Bio:      "Frequent flyer",
	})
	require.NoError(t, err)
	require.Equal(t, "chris.harper@example.com", user.Email)
	require.Equal(t, "Frequent flyer", user.Bio)
}

func TestCapitalizeFullName(t *testing.T) {
	require.Equal(t, "Chris Harper", tracker.CapitalizeFullName("chris harper"))
	require.Equal(t, "", tracker.CapitalizeFullName("   "))
}

func TestUserIsolation(t *testing.T) {
	tt, ctx, userId := newTestTracker(t)

	otherToken, err := tt.SaveUser(ctx, auth.NewUser{
		UserName:      "intruder",
		FullName:      "someone else",
		PasswordPlain: "other-pass",
		Email:         "intruder@example.com",
	})
	require.NoError(t, err)
	otherId, err := tt.CheckSession(ctx, otherToken)
	require.NoError(t, err)

	trip, err := tt.SaveTrip(ctx, userId, tracker.TripRequest{Name: "Private Trip"})
	require.NoError(t, err)

	_, err = tt.GetTripById(ctx, otherId, trip.ID)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))

	err = tt.DeleteTrip(ctx, otherId, trip.ID)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound, appErrors.CodeOf(err))
}
