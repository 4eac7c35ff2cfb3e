package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/0xcafe-io/iz"
	"github.com/rs/cors"
	"github.com/tripspend/trip_tracker/api"
	"github.com/tripspend/trip_tracker/internal/ocr"
	"github.com/tripspend/trip_tracker/internal/storage"
	"github.com/tripspend/trip_tracker/internal/tracker"
	"github.com/tripspend/trip_tracker/logging"
)

var tt tracker.TripTracker // Global

var corsConf = cors.New(cors.Options{
	AllowedOrigins:   []string{"*"},
	AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	AllowedHeaders:   []string{"Authorization", "Content-Type"},
	AllowCredentials: true,
})

func main() {
	if err := logging.Init("debug"); err != nil {
		fmt.Println("failed to initialize logger: %w", err)
		return
	}

	logging.Logger.Info("application starting...")

	db, err := storage.Init()
	if err != nil {
		logging.Logger.Errorf("failed to initialize database: %v", err)
		return
	}

	storageInstance := storage.NewMySQLStorage(db)
	if storageInstance == nil {
		logging.Logger.Errorf("failed to create instance of database: %v", err)
		return
	}

	tt = tracker.NewTripTracker(storageInstance)

	server := http.NewServeMux()
	api := api.NewApi(&tt, ocr.NewDispatcher())

	// AUTH ENDPOINTS.
	server.HandleFunc("POST /api/auth/register", iz.Bind(api.SaveUserHandler)) // Create User
	server.HandleFunc("POST /api/auth/login", iz.Bind(api.LoginUserHandler))   // Login User
	server.HandleFunc("POST /api/auth/logout", iz.Bind(api.LogoutUserHandler)) // Logout User
	server.HandleFunc("GET /api/auth/user", iz.Bind(api.CurrentUserHandler))   // Current User, 401 when not logged in

	// PROFILE ENDPOINTS.
	server.HandleFunc("GET /api/profile", iz.Bind(api.CurrentUserHandler))                      // Profile Info
	server.HandleFunc("PUT /api/profile", iz.Bind(api.UpdateProfileHandler))                    // Update Profile
	server.HandleFunc("POST /api/profile/change-password", iz.Bind(api.ChangePasswordHandler)) // Change Password

	// TRIP ENDPOINTS.
	server.HandleFunc("POST /api/trips", iz.Bind(api.SaveTripHandler))          // Create Trip
	server.HandleFunc("GET /api/trips", iz.Bind(api.GetTripsHandler))           // Get Trips with totals
	server.HandleFunc("GET /api/trips/{id}", iz.Bind(api.GetTripByIdHandler))   // Get Trip by ID
	server.HandleFunc("PUT /api/trips/{id}", iz.Bind(api.UpdateTripHandler))    // Update Trip
	server.HandleFunc("DELETE /api/trips/{id}", iz.Bind(api.DeleteTripHandler)) // Delete Trip with its expenses and logs

	// EXPENSE ENDPOINTS.
	server.HandleFunc("POST /api/expenses", iz.Bind(api.SaveExpenseHandler))             // Create Expense, JSON or multipart with receipt
	server.HandleFunc("POST /api/expenses/batch", iz.Bind(api.SaveExpensesBatchHandler)) // Create multiple Expenses at once
	server.HandleFunc("GET /api/expenses", iz.Bind(api.GetExpensesHandler))              // Get Expenses, optional tripName filter and sort
	server.HandleFunc("GET /api/expenses/{id}", iz.Bind(api.GetExpenseByIdHandler))      // Get Expense by ID
	server.HandleFunc("PUT /api/expenses/{id}", iz.Bind(api.UpdateExpenseHandler))       // Update Expense
	server.HandleFunc("DELETE /api/expenses/{id}", iz.Bind(api.DeleteExpenseHandler))    // Delete Expense
	server.HandleFunc("GET /api/export-expenses", api.ExportExpensesHandler)             // Download expenses as xlsx

	// MILEAGE ENDPOINTS.
	server.HandleFunc("POST /api/mileage-logs", iz.Bind(api.SaveMileageLogHandler))          // Create Mileage Log
	server.HandleFunc("GET /api/mileage-logs", iz.Bind(api.GetMileageLogsHandler))           // Get Mileage Logs, optional trip filter
	server.HandleFunc("PUT /api/mileage-logs/{id}", iz.Bind(api.UpdateMileageLogHandler))    // Update Mileage Log
	server.HandleFunc("DELETE /api/mileage-logs/{id}", iz.Bind(api.DeleteMileageLogHandler)) // Delete Mileage Log

	// OCR & SETTINGS ENDPOINTS.
	server.Handle("POST /api/ocr/process", iz.Bind(api.OcrProcessHandler))       // Take receipt image, returns possible expense fields
	server.HandleFunc("POST /api/test-ocr", iz.Bind(api.OcrTestHandler))         // Check provider credentials
	server.HandleFunc("GET /api/settings", iz.Bind(api.GetSettingsHandler))      // Get Settings
	server.HandleFunc("POST /api/update-env", iz.Bind(api.UpdateSettingsHandler)) // Persist OCR provider and key

	// FILE ENDPOINTS.
	server.HandleFunc("POST /api/upload", api.UploadFileHandler)     // Upload receipt or odometer image
	server.HandleFunc("GET /uploads/{file}", api.ServeUploadHandler) // Serve stored image

	port := os.Getenv("APP_PORT")
	if port == "" {
		logging.Logger.Info("APP_PORT environment variable not set, using default port 8060")
		port = "8080"
	}
	fmt.Println("Starting server on port: ", port)
	handlerwithCors := corsConf.Handler(server)
	err = http.ListenAndServe(":"+port, handlerwithCors) // Start the server
	if err != nil {
		logging.Logger.Errorf("failed to start server: %v", err)
		return
	}
}
