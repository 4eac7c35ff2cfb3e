package client_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/0xcafe-io/iz"
	"github.com/stretchr/testify/require"
	"github.com/tripspend/trip_tracker/api"
	"github.com/tripspend/trip_tracker/client"
	"github.com/tripspend/trip_tracker/internal/ocr"
	"github.com/tripspend/trip_tracker/internal/storage"
	"github.com/tripspend/trip_tracker/internal/tracker"
)

func newTestServer(t *testing.T) *client.Client {
	t.Helper()

	tt := tracker.NewTripTracker(storage.NewInMemoryStorage())
	handlers := api.NewApi(&tt, ocr.NewDispatcher())

	server := http.NewServeMux()
	server.HandleFunc("POST /api/auth/register", iz.Bind(handlers.SaveUserHandler))
	server.HandleFunc("POST /api/auth/login", iz.Bind(handlers.LoginUserHandler))
	server.HandleFunc("POST /api/auth/logout", iz.Bind(handlers.LogoutUserHandler))
	server.HandleFunc("GET /api/auth/user", iz.Bind(handlers.CurrentUserHandler))
	server.HandleFunc("PUT /api/profile", iz.Bind(handlers.UpdateProfileHandler))
	server.HandleFunc("POST /api/profile/change-password", iz.Bind(handlers.ChangePasswordHandler))
	server.HandleFunc("POST /api/trips", iz.Bind(handlers.SaveTripHandler))
	server.HandleFunc("GET /api/trips", iz.Bind(handlers.GetTripsHandler))
	server.HandleFunc("DELETE /api/trips/{id}", iz.Bind(handlers.DeleteTripHandler))
	server.HandleFunc("POST /api/expenses", iz.Bind(handlers.SaveExpenseHandler))
	server.HandleFunc("POST /api/expenses/batch", iz.Bind(handlers.SaveExpensesBatchHandler))
	server.HandleFunc("GET /api/expenses", iz.Bind(handlers.GetExpensesHandler))
	server.HandleFunc("DELETE /api/expenses/{id}", iz.Bind(handlers.DeleteExpenseHandler))
	server.HandleFunc("POST /api/mileage-logs", iz.Bind(handlers.SaveMileageLogHandler))
	server.HandleFunc("GET /api/mileage-logs", iz.Bind(handlers.GetMileageLogsHandler))
	server.HandleFunc("GET /api/export-expenses", handlers.ExportExpensesHandler)
	server.HandleFunc("POST /api/upload", handlers.UploadFileHandler)
	server.HandleFunc("GET /uploads/{file}", handlers.ServeUploadHandler)

	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return client.New(ts.URL)
}

func registerTestUser(t *testing.T, c *client.Client) {
	t.Helper()
	err := c.Register(context.Background(), api.SaveUserRequest{
		UserName: "traveler",
		FullName: "pat traveler",
		Password: "road-trip-1",
		Email:    "pat@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, c.Token())
}

func TestCurrentUserWithoutSession(t *testing.T) {
	c := newTestServer(t)

	// No token: the probe answers nil without an error.
	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	registerTestUser(t, c)

	user, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "traveler", user.UserName)
	require.Equal(t, "Pat Traveler", user.FullName)

	require.NoError(t, c.Logout(ctx))
	require.Empty(t, c.Token())

	user, err = c.CurrentUser(ctx)
	require.NoError(t, err)
	require.Nil(t, user)

	require.NoError(t, c.Login(ctx, "traveler", "road-trip-1"))
	user, err = c.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
}

func TestAPIErrorCarriesStatusAndBody(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	registerTestUser(t, c)

	_, err := c.CreateTrip(ctx, api.CreateTripRequest{Name: "Chicago"})
	require.NoError(t, err)

	_, err = c.CreateTrip(ctx, api.CreateTripRequest{Name: "Chicago"})
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 409, apiErr.Status)
	require.Contains(t, apiErr.Body, "already")
}

func TestTripExpenseFlow(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	registerTestUser(t, c)

	_, err := c.CreateTrip(ctx, api.CreateTripRequest{
		Name:        "Client Meeting in Chicago",
		Description: "Quarterly onsite",
	})
	require.NoError(t, err)

	_, err = c.CreateExpense(ctx, api.CreateExpenseRequest{
		Date:     "2025-04-15",
		Type:     "Transportation",
		Vendor:   "Taxi Service",
		Location: "Chicago",
		Cost:     "89.99",
		TripName: "Client Meeting in Chicago",
	})
	require.NoError(t, err)

	_, err = c.CreateExpense(ctx, api.CreateExpenseRequest{
		Date:     "2025-04-14",
		Type:     "Meals",
		Vendor:   "Deep Dish Co",
		Cost:     "24.50",
		TripName: "Client Meeting in Chicago",
	})
	require.NoError(t, err)

	listing, err := c.Expenses(ctx, "Client Meeting in Chicago", "cost", true)
	require.NoError(t, err)
	require.Len(t, listing.Expenses, 2)
	require.Equal(t, "24.50", listing.Expenses[0].Cost)
	require.Equal(t, "89.99", listing.Expenses[1].Cost)
	require.Equal(t, "114.49", listing.Total)

	trips, err := c.Trips(ctx)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	require.Equal(t, "114.49", trips[0].TotalSpent)
	require.Equal(t, 2, trips[0].ExpenseCount)
}

func TestExpenseBatch(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	registerTestUser(t, c)

	_, err := c.CreateTrip(ctx, api.CreateTripRequest{Name: "Berlin"})
	require.NoError(t, err)

	batch := []api.CreateExpenseRequest{
		{Date: "2025-05-01", Type: "Meals", Vendor: "Cafe", Cost: "10.00", TripName: "Berlin"},
		{Date: "2025-05-02", Type: "Lodging", Vendor: "Hotel", Cost: "120.00", TripName: "Berlin"},
	}
	resp, err := c.CreateExpenseBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, resp.Expenses, 2)
	require.Equal(t, "130.00", resp.Total)

	// One bad row rejects the whole batch.
	batch[1].Cost = "0"
	_, err = c.CreateExpenseBatch(ctx, batch)
	require.Error(t, err)

	listing, err := c.Expenses(ctx, "Berlin", "", true)
	require.NoError(t, err)
	require.Len(t, listing.Expenses, 2)
}

func TestMileageFlow(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	registerTestUser(t, c)

	trip, err := c.CreateTrip(ctx, api.CreateTripRequest{Name: "Berlin"})
	require.NoError(t, err)

	log, err := c.CreateMileageLog(ctx, api.CreateMileageLogRequest{
		TripID:        trip.ID,
		TripDate:      "2025-05-01",
		StartOdometer: 1000,
		EndOdometer:   1050.5,
		Purpose:       "Airport run",
	})
	require.NoError(t, err)
	require.Equal(t, "manual", log.EntryMethod)
	require.InDelta(t, 50.5, log.Distance, 0.0001)

	_, err = c.CreateMileageLog(ctx, api.CreateMileageLogRequest{
		TripID:        trip.ID,
		TripDate:      "2025-05-01",
		StartOdometer: 1050,
		EndOdometer:   1000,
	})
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 400, apiErr.Status)

	logs, err := c.MileageLogs(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

func TestUploadFileAndPublicServe(t *testing.T) {
	t.Chdir(t.TempDir())

	c := newTestServer(t)
	ctx := context.Background()
	registerTestUser(t, c)

	path, err := c.UploadFile(ctx, "odometer.png", bytes.NewReader([]byte("fake image bytes")))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, "/uploads/"))
	require.True(t, strings.HasSuffix(path, ".png"))

	// Disallowed extensions are rejected before anything hits disk.
	_, err = c.UploadFile(ctx, "report.exe", bytes.NewReader([]byte("nope")))
	require.Error(t, err)

	// Stored images are public; image tags carry no Authorization header.
	c.SetToken("")
	data, err := c.Request(ctx, "GET", path, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("fake image bytes"), data)

	_, err = c.Request(ctx, "GET", "/uploads/no-such-file.png", nil)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 404, apiErr.Status)
}

func TestCreateExpenseWithReceipt(t *testing.T) {
	t.Chdir(t.TempDir())

	c := newTestServer(t)
	ctx := context.Background()
	registerTestUser(t, c)

	_, err := c.CreateTrip(ctx, api.CreateTripRequest{Name: "Berlin"})
	require.NoError(t, err)

	expense, err := c.CreateExpenseWithReceipt(ctx, api.CreateExpenseRequest{
		Date:     "2025-05-01",
		Type:     "Meals",
		Vendor:   "Cafe",
		Cost:     "89.99",
		TripName: "Berlin",
	}, "receipt.jpg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	require.Equal(t, "89.99", expense.Cost)
	require.True(t, strings.HasPrefix(expense.ReceiptPath, "/uploads/"))

	listing, err := c.Expenses(ctx, "Berlin", "", true)
	require.NoError(t, err)
	require.Len(t, listing.Expenses, 1)
	require.Equal(t, expense.ReceiptPath, listing.Expenses[0].ReceiptPath)
}

func TestExportExpenses(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	registerTestUser(t, c)

	_, err := c.CreateTrip(ctx, api.CreateTripRequest{Name: "Berlin"})
	require.NoError(t, err)
	_, err = c.CreateExpense(ctx, api.CreateExpenseRequest{
		Date:     "2025-05-01",
		Type:     "Meals",
		Vendor:   "Cafe",
		Cost:     "10.00",
		TripName: "Berlin",
	})
	require.NoError(t, err)

	data, err := c.ExportExpenses(ctx, "Berlin")
	require.NoError(t, err)
	// xlsx files are zip archives.
	require.Greater(t, len(data), 4)
	require.Equal(t, []byte{'P', 'K'}, data[:2])
}
