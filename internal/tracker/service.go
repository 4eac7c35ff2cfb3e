package tracker

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appErrors "github.com/tripspend/trip_tracker/customErrors"
	"github.com/tripspend/trip_tracker/internal/auth"
)

const (
	MAX_TRIP_NAME_LENGTH        = 255
	MAX_TRIP_DESCRIPTION_LENGTH = 1000
	MAX_EXPENSE_TYPE_LENGTH     = 100
	MAX_EXPENSE_VENDOR_LENGTH   = 255
	MAX_EXPENSE_LOCATION_LENGTH = 255
	MAX_EXPENSE_COMMENTS_LENGTH = 1000
	MAX_MILEAGE_PURPOSE_LENGTH  = 500
	MAX_ODOMETER_READING        = 10000000

	EntryMethodManual = "manual"
	EntryMethodPhoto  = "photo"
)

// MaxExpenseCost caps a single expense, mirroring the column precision.
var MaxExpenseCost = decimal.RequireFromString("999999999999.99")

type TripTracker struct {
	storage     Storage
	StorageType string
}

func NewTripTracker(s Storage) TripTracker {
	return TripTracker{
		storage:     s,
		StorageType: s.GetStorageType(),
	}
}

type Storage interface {
	SaveUser(ctx context.Context, user auth.User) error
	ValidateUser(ctx context.Context, credentials auth.UserCredentialsPure) (auth.User, error)
	IsUserExists(ctx context.Context, username string) (bool, error)
	IsEmailTaken(ctx context.Context, emailAddress string) (bool, error)
	GetUserById(ctx context.Context, userId string) (auth.User, error)
	UpdateProfile(ctx context.Context, userId string, update auth.ProfileUpdate) (auth.User, error)
	UpdatePassword(ctx context.Context, userId string, newHash string) error

	SaveSession(ctx context.Context, session auth.Session) error
	GetSessionByToken(ctx context.Context, token string) (auth.Session, error)
	CheckSession(ctx context.Context, token string) (userId string, err error)
	UpdateSession(ctx context.Context, userId string, expireAt time.Time) error
	LogoutUser(ctx context.Context, userId string, token string) error

	SaveTrip(ctx context.Context, trip Trip) error
	GetTrips(ctx context.Context, userId string) ([]Trip, error)
	GetTripById(ctx context.Context, userId string, tripId string) (Trip, error)
	GetTripByName(ctx context.Context, userId string, name string) (Trip, error)
	UpdateTrip(ctx context.Context, userId string, fields UpdateTripRequest) (*Trip, error)
	DeleteTrip(ctx context.Context, userId string, tripId string) error
	SumExpenses(ctx context.Context, userId string, tripName string) (decimal.Decimal, int, error)

	SaveExpense(ctx context.Context, expense Expense) error
	SaveExpenses(ctx context.Context, expenses []Expense) error
	GetExpenses(ctx context.Context, userId string, tripName string) ([]Expense, error)
	GetExpenseById(ctx context.Context, userId string, expenseId string) (Expense, error)
	UpdateExpense(ctx context.Context, userId string, fields UpdateExpenseRequest) (*Expense, error)
	DeleteExpense(ctx context.Context, userId string, expenseId string) error

	SaveMileageLog(ctx context.Context, log MileageLog) error
	GetMileageLogs(ctx context.Context, userId string, tripId string) ([]MileageLog, error)
	GetMileageLogById(ctx context.Context, userId string, logId string) (MileageLog, error)
	UpdateMileageLog(ctx context.Context, userId string, fields UpdateMileageLogRequest) (*MileageLog, error)
	DeleteMileageLog(ctx context.Context, userId string, logId string) error

	GetStorageType() string
}

// --- USERS & SESSIONS --- //

func (tt *TripTracker) SaveUser(ctx context.Context, newUser auth.NewUser) (string, error) {
	if err := newUser.ValidateUserFields(); err != nil {
		return "", err
	}
	isUserExists, err := tt.storage.IsUserExists(ctx, newUser.UserName)
	if err != nil {
		return "", fmt.Errorf("failed to check username availability: %w", err)
	}
	if isUserExists {
		return "", appErrors.New(appErrors.ErrConflict, "this '%s' username already taken", newUser.UserName)
	}
	isEmailTaken, err := tt.storage.IsEmailTaken(ctx, newUser.Email)
	if err != nil {
		return "", fmt.Errorf("failed to check email availability: %w", err)
	}
	if isEmailTaken {
		return "", appErrors.New(appErrors.ErrConflict, "this '%s' email address already taken, try to register with another email", newUser.Email)
	}
	hashedPassword, err := auth.HashPassword(newUser.PasswordPlain)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := auth.User{
		ID:             uuid.New().String(),
		UserName:       strings.ToLower(newUser.UserName),
		FullName:       CapitalizeFullName(newUser.FullName),
		Email:          strings.ToLower(newUser.Email),
		PasswordHashed: hashedPassword,
		CreatedAt:      time.Now().UTC(),
	}

	if err := tt.storage.SaveUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to registration: %w", err)
	}

	credentials := auth.UserCredentialsPure{
		UserName:      newUser.UserName,
		PasswordPlain: newUser.PasswordPlain,
	}

	token, err := tt.GenerateSession(ctx, credentials)
	if err != nil {
		return "", fmt.Errorf("registration successfully but failed to generate session: %w | try login", err)
	}
	return token, nil
}

func CapitalizeFullName(name string) string {
	words := strings.Fields(name)
	for i, word := range words {
		if len(word) == 0 {
			continue
		}
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func (tt *TripTracker) GenerateSession(ctx context.Context, credentialsPure auth.UserCredentialsPure) (string, error) {
	user, err := tt.storage.ValidateUser(ctx, credentialsPure)
	if err != nil {
		return "", fmt.Errorf("%w", err)
	}

	tokenByte := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, tokenByte); err != nil {
		return "", fmt.Errorf("failed to generate new session: %w", err)
	}

	token := hex.EncodeToString(tokenByte)

	now := time.Now().UTC()

	session := auth.Session{
		ID:        uuid.New().String(),
		Token:     token,
		CreatedAt: now,
		ExpireAt:  now.AddDate(0, 3, 0),
		UserID:    user.ID,
	}

	err = tt.storage.SaveSession(ctx, session)
	if err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return token, nil
}

func (tt *TripTracker) CheckSession(ctx context.Context, token string) (string, error) {
	session, err := tt.storage.GetSessionByToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to get session by token: %w", err)
	}

	userId, err := tt.storage.CheckSession(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to check session: %w", err)
	}

	now := time.Now().UTC()
	daysUntilExpiry := int(session.ExpireAt.Sub(now).Hours() / 24)

	// Sliding expiry: sessions close to expiring get another month.
	if daysUntilExpiry <= 5 {
		newExpireAt := time.Now().AddDate(0, 1, 0)

		err := tt.storage.UpdateSession(ctx, userId, newExpireAt)
		if err != nil {
			return "", fmt.Errorf("failed to update session: %w", err)
		}
	}

	return userId, nil
}

func (tt *TripTracker) LogoutUser(ctx context.Context, userId string, token string) error {
	err := tt.storage.LogoutUser(ctx, userId, token)
	if err != nil {
		return err
	}
	return nil
}

func (tt *TripTracker) GetUserById(ctx context.Context, userId string) (auth.User, error) {
	user, err := tt.storage.GetUserById(ctx, userId)
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (tt *TripTracker) UpdateProfile(ctx context.Context, userId string, update auth.ProfileUpdate) (auth.User, error) {
	if err := update.ValidateProfileFields(); err != nil {
		return auth.User{}, err
	}
	update.Email = strings.ToLower(update.Email)
	user, err := tt.storage.UpdateProfile(ctx, userId, update)
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

func (tt *TripTracker) ChangePassword(ctx context.Context, userId string, change auth.PasswordChange) error {
	if change.NewPassword == "" {
		return appErrors.New(appErrors.ErrInvalidInput, "new password cannot be empty")
	}
	if len(change.NewPassword) > auth.MAX_PASSWORD_LENGTH {
		return appErrors.New(appErrors.ErrInvalidInput, "new password so long, maximum length is %d", auth.MAX_PASSWORD_LENGTH)
	}

	user, err := tt.storage.GetUserById(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if !auth.ComparePasswords(user.PasswordHashed, change.CurrentPassword) {
		return appErrors.New(appErrors.ErrAuth, "current password is wrong")
	}

	newHash, err := auth.HashPassword(change.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := tt.storage.UpdatePassword(ctx, userId, newHash); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	return nil
}

// --- TRIPS --- //

func (tt *TripTracker) SaveTrip(ctx context.Context, userId string, trip TripRequest) (Trip, error) {
	if strings.TrimSpace(trip.Name) == "" {
		return Trip{}, appErrors.New(appErrors.ErrInvalidInput, "trip name is empty")
	}
	if len(trip.Name) > MAX_TRIP_NAME_LENGTH {
		return Trip{}, appErrors.New(appErrors.ErrInvalidInput, "trip name is too long, the limit is: %d", MAX_TRIP_NAME_LENGTH)
	}
	if len(trip.Description) > MAX_TRIP_DESCRIPTION_LENGTH {
		return Trip{}, appErrors.New(appErrors.ErrInvalidInput, "trip description is too long, the limit is: %d", MAX_TRIP_DESCRIPTION_LENGTH)
	}

	now := time.Now().UTC()
	tripItem := Trip{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(trip.Name),
		Description: trip.Description,
		CreatedAt:   now,
		CreatedBy:   userId,
	}

	if err := tt.storage.SaveTrip(ctx, tripItem); err != nil {
		return Trip{}, err
	}
	return tripItem, nil
}

// GetTrips returns the user's trips with server-computed spending aggregates.
func (tt *TripTracker) GetTrips(ctx context.Context, userId string) ([]TripResponse, error) {
	tripsRaw, err := tt.storage.GetTrips(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get trips: %w", err)
	}

	var trips []TripResponse
	for _, trip := range tripsRaw {
		total, count, err := tt.storage.SumExpenses(ctx, userId, trip.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to get trip totals: %w", err)
		}
		trips = append(trips, TripResponse{
			ID:           trip.ID,
			Name:         trip.Name,
			Description:  trip.Description,
			TotalSpent:   total,
			ExpenseCount: count,
			CreatedAt:    trip.CreatedAt,
			CreatedBy:    trip.CreatedBy,
		})
	}
	return trips, nil
}

// GetTripTotals returns the aggregate spend and expense count. An empty
// trip name covers all of the user's expenses.
func (tt *TripTracker) GetTripTotals(ctx context.Context, userId string, tripName string) (decimal.Decimal, int, error) {
	total, count, err := tt.storage.SumExpenses(ctx, userId, tripName)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to get trip totals: %w", err)
	}
	return total, count, nil
}

func (tt *TripTracker) GetTripById(ctx context.Context, userId string, tripId string) (Trip, error) {
	trip, err := tt.storage.GetTripById(ctx, userId, tripId)
	if err != nil {
		return Trip{}, fmt.Errorf("failed to get trip by id: %w", err)
	}
	return trip, nil
}

func (tt *TripTracker) UpdateTrip(ctx context.Context, userId string, fields UpdateTripRequest) (*Trip, error) {
	if strings.TrimSpace(fields.NewName) == "" {
		return nil, appErrors.New(appErrors.ErrInvalidInput, "trip name is empty")
	}
	if len(fields.NewName) > MAX_TRIP_NAME_LENGTH {
		return nil, appErrors.New(appErrors.ErrInvalidInput, "trip name is too long, the limit is: %d", MAX_TRIP_NAME_LENGTH)
	}
	if len(fields.NewDescription) > MAX_TRIP_DESCRIPTION_LENGTH {
		return nil, appErrors.New(appErrors.ErrInvalidInput, "trip description is too long, the limit is: %d", MAX_TRIP_DESCRIPTION_LENGTH)
	}

	fields.NewName = strings.TrimSpace(fields.NewName)
	fields.UpdateTime = time.Now().UTC()
	trip, err := tt.storage.UpdateTrip(ctx, userId, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}
	return trip, nil
}

// DeleteTrip removes the trip together with its expenses and mileage logs.
func (tt *TripTracker) DeleteTrip(ctx context.Context, userId string, tripId string) error {
	err := tt.storage.DeleteTrip(ctx, userId, tripId)
	if err != nil {
		return err
	}
	return nil
}

// --- EXPENSES --- //

func (tt *TripTracker) validateExpenseFields(expType, vendor, location, comments string, cost decimal.Decimal) error {
	if !cost.IsPositive() {
		return appErrors.New(appErrors.ErrInvalidInput, "expense cost must be greater than zero")
	}
	if cost.GreaterThan(MaxExpenseCost) {
		return appErrors.New(appErrors.ErrInvalidInput, "expense cost is too large, the limit is: %s", MaxExpenseCost.String())
	}
	if len(expType) > MAX_EXPENSE_TYPE_LENGTH {
		return appErrors.New(appErrors.ErrInvalidInput, "expense type is too long, the limit is: %d", MAX_EXPENSE_TYPE_LENGTH)
	}
	if len(vendor) > MAX_EXPENSE_VENDOR_LENGTH {
		return appErrors.New(appErrors.ErrInvalidInput, "vendor is too long, the limit is: %d", MAX_EXPENSE_VENDOR_LENGTH)
	}
	if len(location) > MAX_EXPENSE_LOCATION_LENGTH {
		return appErrors.New(appErrors.ErrInvalidInput, "location is too long, the limit is: %d", MAX_EXPENSE_LOCATION_LENGTH)
	}
	if len(comments) > MAX_EXPENSE_COMMENTS_LENGTH {
		return appErrors.New(appErrors.ErrInvalidInput, "comments so long, maximum allowed length is: %d", MAX_EXPENSE_COMMENTS_LENGTH)
	}
	return nil
}

func (tt *TripTracker) SaveExpense(ctx context.Context, userId string, expense ExpenseRequest) (Expense, error) {
	if err := tt.validateExpenseFields(expense.Type, expense.Vendor, expense.Location, expense.Comments, expense.Cost); err != nil {
		return Expense{}, err
	}
	if expense.TripName == "" {
		return Expense{}, appErrors.New(appErrors.ErrInvalidInput, "trip name is required")
	}

	// The trip reference must name an existing trip of the same user.
	if _, err := tt.storage.GetTripByName(ctx, userId, expense.TripName); err != nil {
		return Expense{}, fmt.Errorf("failed to resolve trip '%s': %w", expense.TripName, err)
	}

	now := time.Now().UTC()
	expenseItem := Expense{
		ID:          uuid.New().String(),
		Date:        expense.Date,
		Type:        expense.Type,
		Vendor:      expense.Vendor,
		Location:    expense.Location,
		Cost:        expense.Cost,
		Comments:    expense.Comments,
		ReceiptPath: expense.ReceiptPath,
		TripName:    expense.TripName,
		CreatedAt:   now,
		CreatedBy:   userId,
	}

	if err := tt.storage.SaveExpense(ctx, expenseItem); err != nil {
		return Expense{}, fmt.Errorf("failed to save expense to db: %w", err)
	}
	return expenseItem, nil
}

// SaveExpenses persists a batch upload as a single unit: the whole batch
// is validated first and stored in one storage call, so a bad row or a
// failed insert never leaves a partial batch behind.
func (tt *TripTracker) SaveExpenses(ctx context.Context, userId string, expenses []ExpenseRequest) ([]Expense, error) {
	for i, expense := range expenses {
		if err := tt.validateExpenseFields(expense.Type, expense.Vendor, expense.Location, expense.Comments, expense.Cost); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if expense.TripName == "" {
			return nil, fmt.Errorf("row %d: %w", i+1, appErrors.New(appErrors.ErrInvalidInput, "trip name is required"))
		}
		if _, err := tt.storage.GetTripByName(ctx, userId, expense.TripName); err != nil {
			return nil, fmt.Errorf("row %d: failed to resolve trip '%s': %w", i+1, expense.TripName, err)
		}
	}

	now := time.Now().UTC()
	items := make([]Expense, 0, len(expenses))
	for _, expense := range expenses {
		items = append(items, Expense{
			ID:          uuid.New().String(),
			Date:        expense.Date,
			Type:        expense.Type,
			Vendor:      expense.Vendor,
			Location:    expense.Location,
			Cost:        expense.Cost,
			Comments:    expense.Comments,
			ReceiptPath: expense.ReceiptPath,
			TripName:    expense.TripName,
			CreatedAt:   now,
			CreatedBy:   userId,
		})
	}

	if err := tt.storage.SaveExpenses(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to save expense batch to db: %w", err)
	}
	return items, nil
}

func (tt *TripTracker) GetExpenses(ctx context.Context, userId string, tripName string) ([]Expense, error) {
	expenses, err := tt.storage.GetExpenses(ctx, userId, tripName)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	return expenses, nil
}

func (tt *TripTracker) GetExpenseById(ctx context.Context, userId string, expenseId string) (Expense, error) {
	expense, err := tt.storage.GetExpenseById(ctx, userId, expenseId)
	if err != nil {
		return Expense{}, fmt.Errorf("failed to get expense by id: %w", err)
	}
	return expense, nil
}

func (tt *TripTracker) UpdateExpense(ctx context.Context, userId string, fields UpdateExpenseRequest) (*Expense, error) {
	if err := tt.validateExpenseFields(fields.NewType, fields.NewVendor, fields.NewLocation, fields.NewComments, fields.NewCost); err != nil {
		return nil, err
	}
	if fields.NewTripName != "" {
		if _, err := tt.storage.GetTripByName(ctx, userId, fields.NewTripName); err != nil {
			return nil, fmt.Errorf("failed to resolve trip '%s': %w", fields.NewTripName, err)
		}
	}

	fields.UpdateTime = time.Now().UTC()
	expense, err := tt.storage.UpdateExpense(ctx, userId, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	return expense, nil
}

func (tt *TripTracker) DeleteExpense(ctx context.Context, userId string, expenseId string) error {
	err := tt.storage.DeleteExpense(ctx, userId, expenseId)
	if err != nil {
		return err
	}
	return nil
}

// --- MILEAGE LOGS --- //

func (tt *TripTracker) validateMileageFields(start, end float64, purpose string, entryMethod string) error {
	if start < 0 || end < 0 {
		return appErrors.New(appErrors.ErrInvalidInput, "odometer readings cannot be negative")
	}
	if start > MAX_ODOMETER_READING || end > MAX_ODOMETER_READING {
		return appErrors.New(appErrors.ErrInvalidInput, "odometer reading is too large, the limit is: %d", MAX_ODOMETER_READING)
	}
	if end < start {
		return appErrors.New(appErrors.ErrInvalidInput, "end odometer reading must not be less than the start reading")
	}
	if len(purpose) > MAX_MILEAGE_PURPOSE_LENGTH {
		return appErrors.New(appErrors.ErrInvalidInput, "purpose so long, maximum allowed length is: %d", MAX_MILEAGE_PURPOSE_LENGTH)
	}
	if entryMethod != EntryMethodManual && entryMethod != EntryMethodPhoto {
		return appErrors.New(appErrors.ErrInvalidInput, "invalid entry method: %s", entryMethod)
	}
	return nil
}

func (tt *TripTracker) SaveMileageLog(ctx context.Context, userId string, log MileageLogRequest) (MileageLog, error) {
	if err := tt.validateMileageFields(log.StartOdometer, log.EndOdometer, log.Purpose, log.EntryMethod); err != nil {
		return MileageLog{}, err
	}
	if log.TripID == "" {
		return MileageLog{}, appErrors.New(appErrors.ErrInvalidInput, "trip id is required")
	}
	if _, err := tt.storage.GetTripById(ctx, userId, log.TripID); err != nil {
		return MileageLog{}, fmt.Errorf("failed to resolve trip: %w", err)
	}

	now := time.Now().UTC()
	logItem := MileageLog{
		ID:             uuid.New().String(),
		TripID:         log.TripID,
		TripDate:       log.TripDate,
		StartOdometer:  log.StartOdometer,
		EndOdometer:    log.EndOdometer,
		Purpose:        log.Purpose,
		EntryMethod:    log.EntryMethod,
		StartImagePath: log.StartImagePath,
		EndImagePath:   log.EndImagePath,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      userId,
	}

	if err := tt.storage.SaveMileageLog(ctx, logItem); err != nil {
		return MileageLog{}, fmt.Errorf("failed to save mileage log to db: %w", err)
	}
	return logItem, nil
}

func (tt *TripTracker) GetMileageLogs(ctx context.Context, userId string, tripId string) ([]MileageLog, error) {
	logs, err := tt.storage.GetMileageLogs(ctx, userId, tripId)
	if err != nil {
		return nil, fmt.Errorf("failed to get mileage logs: %w", err)
	}
	return logs, nil
}

func (tt *TripTracker) UpdateMileageLog(ctx context.Context, userId string, fields UpdateMileageLogRequest) (*MileageLog, error) {
	existing, err := tt.storage.GetMileageLogById(ctx, userId, fields.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mileage log: %w", err)
	}
	if err := tt.validateMileageFields(fields.NewStartOdometer, fields.NewEndOdometer, fields.NewPurpose, existing.EntryMethod); err != nil {
		return nil, err
	}

	fields.UpdateTime = time.Now().UTC()
	log, err := tt.storage.UpdateMileageLog(ctx, userId, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update mileage log: %w", err)
	}
	return log, nil
}

func (tt *TripTracker) DeleteMileageLog(ctx context.Context, userId string, logId string) error {
	err := tt.storage.DeleteMileageLog(ctx, userId, logId)
	if err != nil {
		return err
	}
	return nil
}
