package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	appErrors "github.com/tripspend/trip_tracker/customErrors"
	"github.com/tripspend/trip_tracker/internal/auth"
	"github.com/tripspend/trip_tracker/internal/ocr"
	"github.com/tripspend/trip_tracker/internal/tracker"
)

const dateLayout = "2006-01-02"

// REQUESTS START:

type SaveUserRequest struct {
	UserName string `json:"username"`
	FullName string `json:"fullname"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type UserLoginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Bio      string `json:"bio"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type CreateTripRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateTripHttpRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateExpenseRequest struct {
	Date        string `json:"date"` // "2006-01-02"
	Type        string `json:"type"`
	Vendor      string `json:"vendor"`
	Location    string `json:"location"`
	Cost        string `json:"cost"` // keep as string, parsed as decimal
	Comments    string `json:"comments"`
	TripName    string `json:"trip_name"`
	ReceiptPath string `json:"receipt_path"`
}

type CreateMileageLogRequest struct {
	TripID         string  `json:"trip_id"`
	TripDate       string  `json:"trip_date"`
	StartOdometer  float64 `json:"start_odometer"`
	EndOdometer    float64 `json:"end_odometer"`
	Purpose        string  `json:"purpose"`
	EntryMethod    string  `json:"entry_method"`
	StartImagePath string  `json:"start_image_path"`
	EndImagePath   string  `json:"end_image_path"`
}

type UpdateMileageLogHttpRequest struct {
	TripDate      string  `json:"trip_date"`
	StartOdometer float64 `json:"start_odometer"`
	EndOdometer   float64 `json:"end_odometer"`
	Purpose       string  `json:"purpose"`
}

type OcrProcessRequest struct {
	Method string `json:"method"`
	Image  string `json:"image"` // base64 data URL
}

type OcrTestRequest struct {
	Method string `json:"method"`
}

type UpdateSettingsRequest struct {
	OcrMethod string `json:"ocr_method"`
	ApiKey    string `json:"api_key"`
}

// REQUESTS END:

// RESPONSES:

type UserCreatedResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type UserProfileResponse struct {
	ID        string `json:"id"`
	UserName  string `json:"username"`
	FullName  string `json:"fullname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Bio       string `json:"bio"`
	CreatedAt string `json:"created_at"`
}

type TripItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	TotalSpent   string `json:"total_spent"`
	ExpenseCount int    `json:"expense_count"`
	CreatedAt    string `json:"created_at"`
	CreatedBy    string `json:"created_by"`
}

type ListTripsResponse struct {
	Trips []TripItem `json:"trips"`
}

type ExpenseItem struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Vendor      string `json:"vendor"`
	Location    string `json:"location"`
	Cost        string `json:"cost"`
	Comments    string `json:"comments"`
	ReceiptPath string `json:"receipt_path"`
	TripName    string `json:"trip_name"`
	CreatedAt   string `json:"created_at"`
	CreatedBy   string `json:"created_by"`
}

type ListExpensesResponse struct {
	Expenses []ExpenseItem `json:"expenses"`
	Total    string        `json:"total"`
}

type MileageLogItem struct {
	ID             string  `json:"id"`
	TripID         string  `json:"trip_id"`
	TripDate       string  `json:"trip_date"`
	StartOdometer  float64 `json:"start_odometer"`
	EndOdometer    float64 `json:"end_odometer"`
	Distance       float64 `json:"distance"`
	Purpose        string  `json:"purpose"`
	EntryMethod    string  `json:"entry_method"`
	StartImagePath string  `json:"start_image_path"`
	EndImagePath   string  `json:"end_image_path"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	CreatedBy      string  `json:"created_by"`
}

type ListMileageLogsResponse struct {
	Logs []MileageLogItem `json:"logs"`
}

type UploadResponse struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

// OcrResultResponse always returns 200; a provider failure is reported in
// the body so the form stays open with whatever the user already typed.
type OcrResultResponse struct {
	Success  bool          `json:"success"`
	FormData *ocr.FormData `json:"form_data,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type SettingsResponse struct {
	OcrMethod string `json:"ocr_method"`
	Message   string `json:"message,omitempty"`
}

func httpStatusFromError(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrNotFound:
		return 404 // not found
	case appErrors.ErrInvalidInput:
		return 400 // bad request
	case appErrors.ErrAuth:
		return 401 // unauthorized
	case appErrors.ErrAccessDenied:
		return 403 // access denied
	case appErrors.ErrConflict:
		return 409 // conflict
	default:
		return 500 // internal error
	}
}

func parseCost(costStr string) (decimal.Decimal, error) {
	cost, err := decimal.NewFromString(costStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w", appErrors.New(appErrors.ErrInvalidInput, "invalid cost: '%s'", costStr))
	}
	return cost, nil
}

func parseDate(dateStr string) (time.Time, error) {
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w", appErrors.New(appErrors.ErrInvalidInput, "invalid date: '%s', expected format: %s", dateStr, dateLayout))
	}
	return date, nil
}

func UserToHttp(user auth.User) UserProfileResponse {
	return UserProfileResponse{
		ID:        user.ID,
		UserName:  user.UserName,
		FullName:  user.FullName,
		Email:     user.Email,
		Phone:     user.Phone,
		Bio:       user.Bio,
		CreatedAt: user.CreatedAt.Format("02/01/2006 15:04"),
	}
}

func TripToHttp(trip tracker.TripResponse) TripItem {
	return TripItem{
		ID:           trip.ID,
		Name:         trip.Name,
		Description:  trip.Description,
		TotalSpent:   trip.TotalSpent.StringFixed(2),
		ExpenseCount: trip.ExpenseCount,
		CreatedAt:    trip.CreatedAt.Format("02/01/2006 15:04"),
		CreatedBy:    trip.CreatedBy,
	}
}

func ExpenseToHttp(expense tracker.Expense) ExpenseItem {
	return ExpenseItem{
		ID:          expense.ID,
		Date:        expense.Date.Format(dateLayout),
		Type:        expense.Type,
		Vendor:      expense.Vendor,
		Location:    expense.Location,
		Cost:        expense.Cost.StringFixed(2),
		Comments:    expense.Comments,
		ReceiptPath: expense.ReceiptPath,
		TripName:    expense.TripName,
		CreatedAt:   expense.CreatedAt.Format("02/01/2006 15:04"),
		CreatedBy:   expense.CreatedBy,
	}
}

func MileageLogToHttp(log tracker.MileageLog) MileageLogItem {
	return MileageLogItem{
		ID:             log.ID,
		TripID:         log.TripID,
		TripDate:       log.TripDate.Format(dateLayout),
		StartOdometer:  log.StartOdometer,
		EndOdometer:    log.EndOdometer,
		Distance:       log.Distance(),
		Purpose:        log.Purpose,
		EntryMethod:    log.EntryMethod,
		StartImagePath: log.StartImagePath,
		EndImagePath:   log.EndImagePath,
		CreatedAt:      log.CreatedAt.Format("02/01/2006 15:04"),
		UpdatedAt:      log.UpdatedAt.Format("02/01/2006 15:04"),
		CreatedBy:      log.CreatedBy,
	}
}
