package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	appErrors "github.com/tripspend/trip_tracker/customErrors"
	"github.com/tripspend/trip_tracker/internal/auth"
	"github.com/tripspend/trip_tracker/internal/tracker"
)

// InMemoryStorage keeps everything in maps behind a single mutex. It backs
// the test suites and local development without a database.
type InMemoryStorage struct {
	mu          sync.Mutex
	users       map[string]auth.User    // keyed by user id
	sessions    map[string]auth.Session // keyed by token
	trips       map[string]tracker.Trip
	expenses    map[string]tracker.Expense
	mileageLogs map[string]tracker.MileageLog
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		users:       make(map[string]auth.User),
		sessions:    make(map[string]auth.Session),
		trips:       make(map[string]tracker.Trip),
		expenses:    make(map[string]tracker.Expense),
		mileageLogs: make(map[string]tracker.MileageLog),
	}
}

// --- USERS --- //

func (mem *InMemoryStorage) SaveUser(ctx context.Context, user auth.User) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	for _, existing := range mem.users {
		if existing.UserName == user.UserName {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "The username already taken.",
			}
		}
	}
	mem.users[user.ID] = user
	return nil
}

func (mem *InMemoryStorage) ValidateUser(ctx context.Context, credentials auth.UserCredentialsPure) (auth.User, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	for _, user := range mem.users {
		if user.UserName == strings.ToLower(credentials.UserName) {
			if !auth.ComparePasswords(user.PasswordHashed, credentials.PasswordPlain) {
				break
			}
			return user, nil
		}
	}
	return auth.User{}, appErrors.ErrorResponse{
		Code:    appErrors.ErrAuth,
		Message: "Username or password is wrong.",
	}
}

func (mem *InMemoryStorage) IsUserExists(ctx context.Context, username string) (bool, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	for _, user := range mem.users {
		if user.UserName == strings.ToLower(username) {
			return true, nil
		}
	}
	return false, nil
}

func (mem *InMemoryStorage) IsEmailTaken(ctx context.Context, emailAddress string) (bool, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	for _, user := range mem.users {
		if user.Email != "" && strings.EqualFold(user.Email, emailAddress) {
			return true, nil
		}
	}
	return false, nil
}

func (mem *InMemoryStorage) GetUserById(ctx context.Context, userId string) (auth.User, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	user, ok := mem.users[userId]
	if !ok {
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "User does not exist.",
		}
	}
	return user, nil
}

func (mem *InMemoryStorage) UpdateProfile(ctx context.Context, userId string, update auth.ProfileUpdate) (auth.User, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	user, ok := mem.users[userId]
	if !ok {
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "User does not exist.",
		}
	}
	user.FullName = update.FullName
	user.Email = update.Email
	user.Phone = update.Phone
	user.Bio = update.Bio
	mem.users[userId] = user
	return user, nil
}

func (mem *InMemoryStorage) UpdatePassword(ctx context.Context, userId string, newHash string) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	user, ok := mem.users[userId]
	if !ok {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "User does not exist.",
		}
	}
	user.PasswordHashed = newHash
	mem.users[userId] = user
	return nil
}

// --- SESSIONS --- //

func (mem *InMemoryStorage) SaveSession(ctx context.Context, session auth.Session) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	mem.sessions[session.Token] = session
	return nil
}

func (mem *InMemoryStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	session, ok := mem.sessions[token]
	if !ok {
		return auth.Session{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Session does not exist, please login.",
		}
	}
	return session, nil
}

func (mem *InMemoryStorage) CheckSession(ctx context.Context, token string) (string, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	session, ok := mem.sessions[token]
	if !ok {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Session does not exist, please login.",
		}
	}
	if session.ExpireAt.Before(time.Now().UTC()) {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Your session expired, please login again.",
		}
	}
	return session.UserID, nil
}

func (mem *InMemoryStorage) UpdateSession(ctx context.Context, userId string, newExpireDate time.Time) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	updated := false
	for token, session := range mem.sessions {
		if session.UserID == userId {
			session.ExpireAt = newExpireDate
			mem.sessions[token] = session
			updated = true
		}
	}
	if !updated {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Session does not exist, please login.",
		}
	}
	return nil
}

func (mem *InMemoryStorage) LogoutUser(ctx context.Context, userId string, token string) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	session, ok := mem.sessions[token]
	if ok && session.UserID == userId {
		delete(mem.sessions, token)
	}
	return nil
}

// --- TRIPS --- //

func (mem *InMemoryStorage) SaveTrip(ctx context.Context, trip tracker.Trip) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	for _, existing := range mem.trips {
		if existing.CreatedBy == trip.CreatedBy && existing.Name == trip.Name {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "A trip with this name already exists.",
			}
		}
	}
	mem.trips[trip.ID] = trip
	return nil
}

func (mem *InMemoryStorage) GetTrips(ctx context.Context, userId string) ([]tracker.Trip, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	var trips []tracker.Trip
	for _, trip := range mem.trips {
		if trip.CreatedBy == userId {
			trips = append(trips, trip)
		}
	}
	sort.Slice(trips, func(i, j int) bool {
		return trips[i].CreatedAt.After(trips[j].CreatedAt)
	})
	return trips, nil
}

func (mem *InMemoryStorage) GetTripById(ctx context.Context, userId string, tripId string) (tracker.Trip, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	trip, ok := mem.trips[tripId]
	if !ok || trip.CreatedBy != userId {
		return tracker.Trip{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Trip does not exist.",
		}
	}
	return trip, nil
}

func (mem *InMemoryStorage) GetTripByName(ctx context.Context, userId string, name string) (tracker.Trip, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	for _, trip := range mem.trips {
		if trip.CreatedBy == userId && trip.Name == name {
			return trip, nil
		}
	}
	return tracker.Trip{}, appErrors.ErrorResponse{
		Code:    appErrors.ErrNotFound,
		Message: "Trip does not exist.",
	}
}

func (mem *InMemoryStorage) UpdateTrip(ctx context.Context, userId string, fields tracker.UpdateTripRequest) (*tracker.Trip, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	trip, ok := mem.trips[fields.ID]
	if !ok || trip.CreatedBy != userId {
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Trip does not exist.",
		}
	}

	for id, other := range mem.trips {
		if id != fields.ID && other.CreatedBy == userId && other.Name == fields.NewName {
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "A trip with this name already exists.",
			}
		}
	}

	oldName := trip.Name
	trip.Name = fields.NewName
	trip.Description = fields.NewDescription
	mem.trips[fields.ID] = trip

	if oldName != fields.NewName {
		for id, expense := range mem.expenses {
			if expense.CreatedBy == userId && expense.TripName == oldName {
				expense.TripName = fields.NewName
				mem.expenses[id] = expense
			}
		}
	}
	return &trip, nil
}

func (mem *InMemoryStorage) DeleteTrip(ctx context.Context, userId string, tripId string) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	trip, ok := mem.trips[tripId]
	if !ok || trip.CreatedBy != userId {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Trip does not exist.",
		}
	}

	for id, expense := range mem.expenses {
		if expense.CreatedBy == userId && expense.TripName == trip.Name {
			delete(mem.expenses, id)
		}
	}
	for id, log := range mem.mileageLogs {
		if log.CreatedBy == userId && log.TripID == tripId {
			delete(mem.mileageLogs, id)
		}
	}
	delete(mem.trips, tripId)
	return nil
}

func (mem *InMemoryStorage) SumExpenses(ctx context.Context, userId string, tripName string) (decimal.Decimal, int, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	total := decimal.Zero
	count := 0
	for _, expense := range mem.expenses {
		if expense.CreatedBy != userId {
			continue
		}
		if tripName != "" && expense.TripName != tripName {
			continue
		}
		total = total.Add(expense.Cost)
		count++
	}
	return total, count, nil
}

// --- EXPENSES --- //

func (mem *InMemoryStorage) SaveExpense(ctx context.Context, expense tracker.Expense) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	mem.expenses[expense.ID] = expense
	return nil
}

func (mem *InMemoryStorage) SaveExpenses(ctx context.Context, expenses []tracker.Expense) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	for _, expense := range expenses {
		mem.expenses[expense.ID] = expense
	}
	return nil
}

func (mem *InMemoryStorage) GetExpenses(ctx context.Context, userId string, tripName string) ([]tracker.Expense, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	var expenses []tracker.Expense
	for _, expense := range mem.expenses {
		if expense.CreatedBy != userId {
			continue
		}
		if tripName != "" && expense.TripName != tripName {
			continue
		}
		expenses = append(expenses, expense)
	}
	sort.Slice(expenses, func(i, j int) bool {
		return expenses[i].Date.After(expenses[j].Date)
	})
	return expenses, nil
}

func (mem *InMemoryStorage) GetExpenseById(ctx context.Context, userId string, expenseId string) (tracker.Expense, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	expense, ok := mem.expenses[expenseId]
	if !ok || expense.CreatedBy != userId {
		return tracker.Expense{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Expense does not exist.",
		}
	}
	return expense, nil
}

func (mem *InMemoryStorage) UpdateExpense(ctx context.Context, userId string, fields tracker.UpdateExpenseRequest) (*tracker.Expense, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	expense, ok := mem.expenses[fields.ID]
	if !ok || expense.CreatedBy != userId {
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Expense does not exist.",
		}
	}
	expense.Date = fields.NewDate
	expense.Type = fields.NewType
	expense.Vendor = fields.NewVendor
	expense.Location = fields.NewLocation
	expense.Cost = fields.NewCost
	expense.Comments = fields.NewComments
	expense.ReceiptPath = fields.NewReceiptPath
	expense.TripName = fields.NewTripName
	mem.expenses[fields.ID] = expense
	return &expense, nil
}

func (mem *InMemoryStorage) DeleteExpense(ctx context.Context, userId string, expenseId string) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	expense, ok := mem.expenses[expenseId]
	if !ok || expense.CreatedBy != userId {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Expense does not exist.",
		}
	}
	delete(mem.expenses, expenseId)
	return nil
}

// --- MILEAGE LOGS --- //

func (mem *InMemoryStorage) SaveMileageLog(ctx context.Context, log tracker.MileageLog) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	mem.mileageLogs[log.ID] = log
	return nil
}

func (mem *InMemoryStorage) GetMileageLogs(ctx context.Context, userId string, tripId string) ([]tracker.MileageLog, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	var logs []tracker.MileageLog
	for _, log := range mem.mileageLogs {
		if log.CreatedBy != userId {
			continue
		}
		if tripId != "" && log.TripID != tripId {
			continue
		}
		logs = append(logs, log)
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].TripDate.After(logs[j].TripDate)
	})
	return logs, nil
}

func (mem *InMemoryStorage) GetMileageLogById(ctx context.Context, userId string, logId string) (tracker.MileageLog, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	log, ok := mem.mileageLogs[logId]
	if !ok || log.CreatedBy != userId {
		return tracker.MileageLog{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Mileage log does not exist.",
		}
	}
	return log, nil
}

func (mem *InMemoryStorage) UpdateMileageLog(ctx context.Context, userId string, fields tracker.UpdateMileageLogRequest) (*tracker.MileageLog, error) {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	log, ok := mem.mileageLogs[fields.ID]
	if !ok || log.CreatedBy != userId {
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Mileage log does not exist.",
		}
	}
	log.TripDate = fields.NewTripDate
	log.StartOdometer = fields.NewStartOdometer
	log.EndOdometer = fields.NewEndOdometer
	log.Purpose = fields.NewPurpose
	log.UpdatedAt = fields.UpdateTime
	mem.mileageLogs[fields.ID] = log
	return &log, nil
}

func (mem *InMemoryStorage) DeleteMileageLog(ctx context.Context, userId string, logId string) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	log, ok := mem.mileageLogs[logId]
	if !ok || log.CreatedBy != userId {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Mileage log does not exist.",
		}
	}
	delete(mem.mileageLogs, logId)
	return nil
}

func (mem *InMemoryStorage) GetStorageType() string {
	return "InMemory"
}
