package tracker

import (
	"time"

	"github.com/shopspring/decimal"
)

// REQUESTS START:

type TripRequest struct {
	Name        string
	Description string
}

type UpdateTripRequest struct {
	ID             string
	NewName        string
	NewDescription string
	UpdateTime     time.Time
}

type ExpenseRequest struct {
	Date        time.Time
	Type        string
	Vendor      string
	Location    string
	Cost        decimal.Decimal
	Comments    string
	TripName    string
	ReceiptPath string
}

type UpdateExpenseRequest struct {
	ID             string
	NewDate        time.Time
	NewType        string
	NewVendor      string
	NewLocation    string
	NewCost        decimal.Decimal
	NewComments    string
	NewTripName    string
	NewReceiptPath string
	UpdateTime     time.Time
}

type MileageLogRequest struct {
	TripID         string
	TripDate       time.Time
	StartOdometer  float64
	EndOdometer    float64
	Purpose        string
	EntryMethod    string
	StartImagePath string
	EndImagePath   string
}

type UpdateMileageLogRequest struct {
	ID               string
	NewTripDate      time.Time
	NewStartOdometer float64
	NewEndOdometer   float64
	NewPurpose       string
	UpdateTime       time.Time
}

// REQUESTS END:

// MODELS:

type Trip struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	CreatedBy   string
}

type Expense struct {
	ID          string
	Date        time.Time
	Type        string
	Vendor      string
	Location    string
	Cost        decimal.Decimal
	Comments    string
	ReceiptPath string
	TripName    string
	CreatedAt   time.Time
	CreatedBy   string
}

type MileageLog struct {
	ID             string
	TripID         string
	TripDate       time.Time
	StartOdometer  float64
	EndOdometer    float64
	Purpose        string
	EntryMethod    string
	StartImagePath string
	EndImagePath   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CreatedBy      string
}

// Distance is the derived odometer delta. Valid logs never go below zero,
// the service rejects end readings smaller than the start reading.
func (m MileageLog) Distance() float64 {
	return m.EndOdometer - m.StartOdometer
}

// RESPONSES:

// TripResponse carries the server-computed aggregates for the trip list,
// so totals stay correct even when the client fetched only part of the
// expense collection.
type TripResponse struct {
	ID           string
	Name         string
	Description  string
	TotalSpent   decimal.Decimal
	ExpenseCount int
	CreatedAt    time.Time
	CreatedBy    string
}
