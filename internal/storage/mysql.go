package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	appErrors "github.com/tripspend/trip_tracker/customErrors"
	"github.com/tripspend/trip_tracker/internal/auth"
	"github.com/tripspend/trip_tracker/internal/contextutil"
	"github.com/tripspend/trip_tracker/internal/tracker"
	"github.com/tripspend/trip_tracker/logging"
)

// --- INIT START --- //

func Init() (*sql.DB, error) {
	var db *sql.DB
	var err error
	var dbname string

	username := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASS")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	dbname = os.Getenv("DB_NAME")
	fullDsn := os.Getenv("FULL_DSN")

	if dbname == "" {
		dbname = "trip_tracker"
	}

	var adminDsn string
	if fullDsn != "" {
		parts := strings.Split(fullDsn, "/")
		adminDsn = strings.Join(parts[:len(parts)-1], "/") + "/"
	} else {
		if username == "" || password == "" || host == "" || port == "" {
			return nil, fmt.Errorf("missing required DB environment variables")
		}
		adminDsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/?parseTime=true", username, password, host, port)
	}

	logging.Logger.Info("Connecting to MySQL server for initialization...")
	adminDb, err := sql.Open("mysql", adminDsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open admin mysql handle: %v", err)
	}
	connected := false
	for i := 0; i < 15; i++ {
		if err := adminDb.Ping(); err == nil {
			connected = true
			break
		}
		logging.Logger.Warnf("Database not ready, retrying... (%d/15)", i+1)
		time.Sleep(3 * time.Second)
	}
	if !connected {
		return nil, fmt.Errorf("database unreachable after multiple attempts")
	}

	var dbnameExistence string
	checkDbnameExistQuery := "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
	err = adminDb.QueryRow(checkDbnameExistQuery, dbname).Scan(&dbnameExistence)

	if err == sql.ErrNoRows {
		logging.Logger.Infof("Database '%s' does not exist, creating...", dbname)
		createDbSql := fmt.Sprintf("CREATE DATABASE `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci;", dbname)
		if _, err := adminDb.Exec(createDbSql); err != nil {
			adminDb.Close()
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	} else if err != nil {
		adminDb.Close()
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	adminDb.Close()

	var finalDsn string
	if fullDsn != "" {
		finalDsn = fullDsn
	} else {
		finalDsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", username, password, host, port, dbname)
	}

	logging.Logger.Info("Connecting to database...")
	db, err = sql.Open("mysql", finalDsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle: %v", err)
	}

	if _, err := db.Exec("SET GLOBAL time_zone = '+00:00'"); err != nil {
		logging.Logger.Warn("failed to set database timezone(UTC+0)")
	}

	logging.Logger.Info("Connected to database successfully")
	logging.Logger.Info("Running migrations...")

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	migrationFiles, err := getMigrationFiles("db/migrations")
	if err != nil {
		return fmt.Errorf("failed to get migration files: %v", err)
	}

	lastAppliedMigration, err := getLastAppliedMigration(db)
	if err != nil {
		return fmt.Errorf("failed to get last applied migration name: %v", err)
	}

	newMigrations := filterNewMigrations(migrationFiles, lastAppliedMigration)

	if len(newMigrations) == 0 {
		logging.Logger.Info("no new migration")
		return nil
	}

	for _, migrationFile := range newMigrations {
		logging.Logger.Info("applying migration: ", migrationFile)
		migrationContent, err := os.ReadFile(filepath.Join("db/migrations/", migrationFile))
		if err != nil {
			return fmt.Errorf("failed to read this '%s' migration file, error: %v", migrationFile, err)
		}

		err = applyMigration(db, migrationFile, string(migrationContent))
		if err != nil {
			return fmt.Errorf("failed to apply this '%s' migration file, error: %v", migrationFile, err)
		}

	}

	logging.Logger.Info("all migrations applied successfully")
	return nil
}

func getMigrationFiles(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)
	return migrationFiles, nil
}

func getLastAppliedMigration(db *sql.DB) (string, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS migration (
        id INT AUTO_INCREMENT PRIMARY KEY,
        migration_name VARCHAR(255) NOT NULL UNIQUE,
        applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );`)

	if err != nil {
		return "", err
	}

	var lastMigration string
	err = db.QueryRow("SELECT migration_name FROM migration ORDER BY migration_name DESC LIMIT 1").Scan(&lastMigration)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return lastMigration, err
}

func filterNewMigrations(all []string, lastApplied string) []string {
	if lastApplied == "" {
		return all
	}

	var result []string
	for _, migration := range all {
		if migration > lastApplied {
			result = append(result, migration)
		}
	}
	return result
}

func applyMigration(db *sql.DB, name, sqlContent string) error {
	txn, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	statements := strings.Split(sqlContent, ";")

	for _, statement := range statements {
		trimmedStmt := strings.TrimSpace(statement)
		if trimmedStmt == "" {
			continue
		}

		if _, err := txn.Exec(trimmedStmt); err != nil {
			txn.Rollback()
			return fmt.Errorf("migration statement failed: %w\nStatement: %s", err, trimmedStmt)
		}
	}

	if _, err := txn.Exec("INSERT INTO migration (migration_name) VALUES (?)", name); err != nil {
		txn.Rollback()
		return fmt.Errorf("failed to record migration name: %w", err)
	}

	return txn.Commit()
}

// --- INIT END --- //

type MySQLStorage struct {
	db *sql.DB
}

func NewMySQLStorage(db *sql.DB) *MySQLStorage {
	return &MySQLStorage{db: db}
}

func isDuplicateKey(err error) bool {
	if mysqlErr, ok := err.(*mysql.MySQLError); ok {
		return mysqlErr.Number == 1062
	}
	return false
}

// --- USERS --- //

func (mySql *MySQLStorage) SaveUser(ctx context.Context, user auth.User) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO user (id, username, fullname, hashed_password, email, phone, bio, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?);"
	_, err := mySql.db.Exec(query, user.ID, user.UserName, user.FullName, user.PasswordHashed, user.Email, user.Phone, user.Bio, user.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "The username already taken.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to save user in Storage.SaveUser() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Registration failed, try again later.",
		}
	}
	return nil
}

func (mySql *MySQLStorage) ValidateUser(ctx context.Context, credentials auth.UserCredentialsPure) (auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, username, fullname, hashed_password, email, phone, bio, created_at FROM user WHERE username = ?;"
	var dbU dbUser
	err := mySql.db.QueryRow(query, strings.ToLower(credentials.UserName)).Scan(
		&dbU.ID,
		&dbU.UserName,
		&dbU.FullName,
		&dbU.PasswordHashed,
		&dbU.Email,
		&dbU.Phone,
		&dbU.Bio,
		&dbU.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrAuth,
				Message: "Username or password is wrong.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get user in Storage.ValidateUser() function | Error: %v", traceID, err)
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Login failed, try again later.",
		}
	}

	if !auth.ComparePasswords(dbU.PasswordHashed, credentials.PasswordPlain) {
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Username or password is wrong.",
		}
	}

	return userFromRow(dbU), nil
}

func userFromRow(dbU dbUser) auth.User {
	return auth.User{
		ID:             dbU.ID,
		UserName:       dbU.UserName,
		FullName:       dbU.FullName,
		PasswordHashed: dbU.PasswordHashed,
		Email:          dbU.Email,
		Phone:          dbU.Phone,
		Bio:            dbU.Bio,
		CreatedAt:      dbU.CreatedAt,
	}
}

func (mySql *MySQLStorage) IsUserExists(ctx context.Context, username string) (bool, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	var existing string
	err := mySql.db.QueryRow("SELECT username FROM user WHERE username = ?;", strings.ToLower(username)).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to check user existance in Storage.IsUserExists() function | Error: %v", traceID, err)
		return false, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to check username availability.",
		}
	}
	return true, nil
}

func (mySql *MySQLStorage) IsEmailTaken(ctx context.Context, emailAddress string) (bool, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	var existing string
	err := mySql.db.QueryRow("SELECT email FROM user WHERE email = ?;", strings.ToLower(emailAddress)).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to check email existance in Storage.IsEmailTaken() function | Error: %v", traceID, err)
		return false, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to check email availability.",
		}
	}
	return true, nil
}

func (mySql *MySQLStorage) GetUserById(ctx context.Context, userId string) (auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, username, fullname, hashed_password, email, phone, bio, created_at FROM user WHERE id = ?;"
	var dbU dbUser
	err := mySql.db.QueryRow(query, userId).Scan(
		&dbU.ID,
		&dbU.UserName,
		&dbU.FullName,
		&dbU.PasswordHashed,
		&dbU.Email,
		&dbU.Phone,
		&dbU.Bio,
		&dbU.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrNotFound,
				Message: "User does not exist.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get user in Storage.GetUserById() function | Error: %v", traceID, err)
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get user, try again later.",
		}
	}
	return userFromRow(dbU), nil
}

func (mySql *MySQLStorage) UpdateProfile(ctx context.Context, userId string, update auth.ProfileUpdate) (auth.User, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "UPDATE user SET fullname = ?, email = ?, phone = ?, bio = ? WHERE id = ?;"
	_, err := mySql.db.Exec(query, update.FullName, update.Email, update.Phone, update.Bio, userId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update profile in Storage.UpdateProfile() function | Error: %v", traceID, err)
		return auth.User{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to update profile, try again later.",
		}
	}
	// Zero rows affected can mean unchanged values, so the follow-up read
	// decides whether the user actually exists.
	return mySql.GetUserById(ctx, userId)
}

func (mySql *MySQLStorage) UpdatePassword(ctx context.Context, userId string, newHash string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	res, err := mySql.db.Exec("UPDATE user SET hashed_password = ? WHERE id = ?;", newHash, userId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update password in Storage.UpdatePassword() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to change password, try again later.",
		}
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "User does not exist.",
		}
	}
	return nil
}

// --- SESSIONS --- //

func (mySql *MySQLStorage) SaveSession(ctx context.Context, session auth.Session) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO session (id, token, created_at, expire_at, user_id) VALUES (?, ?, ?, ?, ?);"
	_, err := mySql.db.Exec(query, session.ID, session.Token, session.CreatedAt, session.ExpireAt, session.UserID)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to save session in Storage.SaveSession() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to create session, try again later.",
		}
	}
	return nil
}

func (mySql *MySQLStorage) GetSessionByToken(ctx context.Context, token string) (auth.Session, error) {
	query := `SELECT id, token, created_at, expire_at, user_id FROM session WHERE token = ?`
	var dbS dbSession

	err := mySql.db.QueryRow(query, token).Scan(
		&dbS.ID,
		&dbS.Token,
		&dbS.CreatedAt,
		&dbS.ExpireAt,
		&dbS.UserID,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Session{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrAuth,
				Message: "Session does not exist, please login.",
			}
		}
		return auth.Session{}, err
	}

	return auth.Session{
		ID:        dbS.ID,
		Token:     dbS.Token,
		CreatedAt: dbS.CreatedAt,
		ExpireAt:  dbS.ExpireAt,
		UserID:    dbS.UserID,
	}, nil
}

func (mySql *MySQLStorage) CheckSession(ctx context.Context, token string) (string, error) {
	query := `SELECT user_id, expire_at FROM session WHERE token = ?`

	var userID string
	var expireAt time.Time
	traceID := contextutil.TraceIDFromContext(ctx)

	err := mySql.db.QueryRow(query, token).Scan(&userID, &expireAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.ErrorResponse{
				Code:    appErrors.ErrAuth,
				Message: "Session does not exist, please login.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to check session existance in Storage.CheckSession() function | Error: %v", traceID, err)
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to check session, please try again later.",
		}
	}

	now := time.Now().UTC()
	if expireAt.Before(now) {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Your session expired, please login again.",
		}
	}

	return userID, nil
}

func (mySql *MySQLStorage) UpdateSession(ctx context.Context, userId string, newExpireDate time.Time) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `UPDATE session SET expire_at = ? WHERE user_id = ?`
	res, err := mySql.db.Exec(query, newExpireDate, userId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update session in Storage.UpdateSession() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to check session, please try again later.",
		}
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to check affected rows in Storage.UpdateSession() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to check session, please try again later.",
		}
	}

	if rowsAffected == 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Session does not exist, please login.",
		}
	}

	return nil
}

func (mySql *MySQLStorage) LogoutUser(ctx context.Context, userId string, token string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	_, err := mySql.db.Exec("DELETE FROM session WHERE user_id = ? AND token = ?;", userId, token)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to delete session in Storage.LogoutUser() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Logout failed, try again later.",
		}
	}
	return nil
}

// --- TRIPS --- //

func (mySql *MySQLStorage) SaveTrip(ctx context.Context, trip tracker.Trip) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO trip (id, name, description, created_at, created_by) VALUES (?, ?, ?, ?, ?);"
	_, err := mySql.db.Exec(query, trip.ID, trip.Name, trip.Description, trip.CreatedAt, trip.CreatedBy)
	if err != nil {
		if isDuplicateKey(err) {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "A trip with this name already exists.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to save trip in Storage.SaveTrip() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save the trip, try again later.",
		}
	}
	return nil
}

func (mySql *MySQLStorage) scanTrip(row *sql.Row) (tracker.Trip, error) {
	var trip tracker.Trip
	err := row.Scan(&trip.ID, &trip.Name, &trip.Description, &trip.CreatedAt, &trip.CreatedBy)
	return trip, err
}

func (mySql *MySQLStorage) GetTrips(ctx context.Context, userId string) ([]tracker.Trip, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, name, description, created_at, created_by FROM trip WHERE created_by = ? ORDER BY created_at DESC;"
	rows, err := mySql.db.Query(query, userId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to get trips in Storage.GetTrips() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get trips, try again later.",
		}
	}
	defer rows.Close()

	var trips []tracker.Trip
	for rows.Next() {
		var trip tracker.Trip
		if err := rows.Scan(&trip.ID, &trip.Name, &trip.Description, &trip.CreatedAt, &trip.CreatedBy); err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.GetTrips() function | Error: %v", traceID, err)
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInternal,
				Message: "Failed to get trips, try again later.",
			}
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate rows in Storage.GetTrips() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get trips, try again later.",
		}
	}
	return trips, nil
}

func (mySql *MySQLStorage) GetTripById(ctx context.Context, userId string, tripId string) (tracker.Trip, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, name, description, created_at, created_by FROM trip WHERE id = ? AND created_by = ?;"
	trip, err := mySql.scanTrip(mySql.db.QueryRow(query, tripId, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tracker.Trip{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrNotFound,
				Message: "Trip does not exist.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get trip in Storage.GetTripById() function | Error: %v", traceID, err)
		return tracker.Trip{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get trip, try again later.",
		}
	}
	return trip, nil
}

func (mySql *MySQLStorage) GetTripByName(ctx context.Context, userId string, name string) (tracker.Trip, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, name, description, created_at, created_by FROM trip WHERE name = ? AND created_by = ?;"
	trip, err := mySql.scanTrip(mySql.db.QueryRow(query, name, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tracker.Trip{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrNotFound,
				Message: "Trip does not exist.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get trip in Storage.GetTripByName() function | Error: %v", traceID, err)
		return tracker.Trip{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get trip, try again later.",
		}
	}
	return trip, nil
}

func (mySql *MySQLStorage) UpdateTrip(ctx context.Context, userId string, fields tracker.UpdateTripRequest) (*tracker.Trip, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	// Expense rows reference the trip by name, so a rename has to follow
	// through to them in the same transaction.
	txn, err := mySql.db.Begin()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to start transaction in Storage.UpdateTrip() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to update trip, try again later.",
		}
	}

	var oldName string
	err = txn.QueryRow("SELECT name FROM trip WHERE id = ? AND created_by = ?;", fields.ID, userId).Scan(&oldName)
	if err != nil {
		txn.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrNotFound,
				Message: "Trip does not exist.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get trip in Storage.UpdateTrip() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to update trip, try again later.",
		}
	}

	_, err = txn.Exec("UPDATE trip SET name = ?, description = ? WHERE id = ? AND created_by = ?;",
		fields.NewName, fields.NewDescription, fields.ID, userId)
	if err != nil {
		txn.Rollback()
		if isDuplicateKey(err) {
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrConflict,
				Message: "A trip with this name already exists.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to update trip in Storage.UpdateTrip() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to update trip, try again later.",
		}
	}

	if oldName != fields.NewName {
		_, err = txn.Exec("UPDATE expense SET trip_name = ? WHERE trip_name = ? AND created_by = ?;",
			fields.NewName, oldName, userId)
		if err != nil {
			txn.Rollback()
			logging.Logger.Errorf("[TraceID=%s] | failed to rename expense trip refs in Storage.UpdateTrip() function | Error: %v", traceID, err)
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInternal,
				Message: "Failed to update trip, try again later.",
			}
		}
	}

	if err := txn.Commit(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to commit transaction in Storage.UpdateTrip() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to update trip, try again later.",
		}
	}

	trip, err := mySql.GetTripById(ctx, userId, fields.ID)
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (mySql *MySQLStorage) DeleteTrip(ctx context.Context, userId string, tripId string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	txn, err := mySql.db.Begin()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to start transaction in Storage.DeleteTrip() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to delete trip, try again later.",
		}
	}

	var tripName string
	err = txn.QueryRow("SELECT name FROM trip WHERE id = ? AND created_by = ?;", tripId, userId).Scan(&tripName)
	if err != nil {
		txn.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrNotFound,
				Message: "Trip does not exist.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get trip in Storage.DeleteTrip() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to delete trip, try again later.",
		}
	}

	// Deleting a trip cascades to its expenses and mileage logs.
	for _, stmt := range []struct {
		query string
		args  []interface{}
	}{
		{"DELETE FROM expense WHERE trip_name = ? AND created_by = ?;", []interface{}{tripName, userId}},
		{"DELETE FROM mileage_log WHERE trip_id = ? AND created_by = ?;", []interface{}{tripId, userId}},
		{"DELETE FROM trip WHERE id = ? AND created_by = ?;", []interface{}{tripId, userId}},
	} {
		if _, err := txn.Exec(stmt.query, stmt.args...); err != nil {
			txn.Rollback()
			logging.Logger.Errorf("[TraceID=%s] | failed cascade delete in Storage.DeleteTrip() function | Error: %v", traceID, err)
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrInternal,
				Message: "Failed to delete trip, try again later.",
			}
		}
	}

	if err := txn.Commit(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to commit transaction in Storage.DeleteTrip() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to delete trip, try again later.",
		}
	}
	return nil
}

func (mySql *MySQLStorage) SumExpenses(ctx context.Context, userId string, tripName string) (decimal.Decimal, int, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `
		SELECT IFNULL(SUM(cost), 0), COUNT(*)
		FROM expense
		WHERE created_by = ?
	`
	args := []interface{}{userId}
	if tripName != "" {
		query += " AND trip_name = ?"
		args = append(args, tripName)
	}

	var total decimal.Decimal
	var count int
	err := mySql.db.QueryRow(query, args...).Scan(&total, &count)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to sum expenses in Storage.SumExpenses() function | Error: %v", traceID, err)
		return decimal.Zero, 0, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get trip totals, try again later.",
		}
	}
	return total, count, nil
}

// --- EXPENSES --- //

func (mySql *MySQLStorage) SaveExpense(ctx context.Context, expense tracker.Expense) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO expense (id, expense_date, type, vendor, location, cost, comments, receipt_path, trip_name, created_at, created_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);"
	_, err := mySql.db.Exec(query, expense.ID, expense.Date, expense.Type, expense.Vendor, expense.Location, expense.Cost, expense.Comments, expense.ReceiptPath, expense.TripName, expense.CreatedAt, expense.CreatedBy)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to save expense in Storage.SaveExpense() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save expense, try again later.",
		}
	}
	return nil
}

// SaveExpenses inserts a batch in one transaction so a failed row never
// leaves the earlier rows behind.
func (mySql *MySQLStorage) SaveExpenses(ctx context.Context, expenses []tracker.Expense) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	txn, err := mySql.db.Begin()
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to start transaction in Storage.SaveExpenses() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save expenses, try again later.",
		}
	}

	query := "INSERT INTO expense (id, expense_date, type, vendor, location, cost, comments, receipt_path, trip_name, created_at, created_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);"
	for _, expense := range expenses {
		_, err := txn.Exec(query, expense.ID, expense.Date, expense.Type, expense.Vendor, expense.Location, expense.Cost, expense.Comments, expense.ReceiptPath, expense.TripName, expense.CreatedAt, expense.CreatedBy)
		if err != nil {
			txn.Rollback()
			logging.Logger.Errorf("[TraceID=%s] | failed to save expense batch in Storage.SaveExpenses() function | Error: %v", traceID, err)
			return appErrors.ErrorResponse{
				Code:    appErrors.ErrInternal,
				Message: "Failed to save expenses, try again later.",
			}
		}
	}

	if err := txn.Commit(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to commit expense batch in Storage.SaveExpenses() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save expenses, try again later.",
		}
	}
	return nil
}

func (mySql *MySQLStorage) processExpenseRows(ctx context.Context, rows *sql.Rows) ([]tracker.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)
	defer rows.Close()

	var expenses []tracker.Expense

	for rows.Next() {
		var expense tracker.Expense
		err := rows.Scan(&expense.ID, &expense.Date, &expense.Type, &expense.Vendor, &expense.Location, &expense.Cost, &expense.Comments, &expense.ReceiptPath, &expense.TripName, &expense.CreatedAt, &expense.CreatedBy)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.processExpenseRows() function | Error : %v", traceID, err)
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInternal,
				Message: "Failed to get expenses, try again later.",
			}
		}
		expenses = append(expenses, expense)
	}

	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate rows in Storage.processExpenseRows() function | Error : %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get expenses, try again later.",
		}
	}

	return expenses, nil
}

func (mySql *MySQLStorage) GetExpenses(ctx context.Context, userId string, tripName string) ([]tracker.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, expense_date, type, vendor, location, cost, comments, receipt_path, trip_name, created_at, created_by FROM expense WHERE created_by = ?"
	args := []interface{}{userId}

	if tripName != "" {
		query += " AND trip_name = ?"
		args = append(args, tripName)
	}
	query += " ORDER BY expense_date DESC;"

	rows, err := mySql.db.Query(query, args...)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to get expenses in Storage.GetExpenses() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get expenses, try again later.",
		}
	}
	return mySql.processExpenseRows(ctx, rows)
}

func (mySql *MySQLStorage) GetExpenseById(ctx context.Context, userId string, expenseId string) (tracker.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, expense_date, type, vendor, location, cost, comments, receipt_path, trip_name, created_at, created_by FROM expense WHERE id = ? AND created_by = ?;"
	var expense tracker.Expense
	err := mySql.db.QueryRow(query, expenseId, userId).Scan(&expense.ID, &expense.Date, &expense.Type, &expense.Vendor, &expense.Location, &expense.Cost, &expense.Comments, &expense.ReceiptPath, &expense.TripName, &expense.CreatedAt, &expense.CreatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tracker.Expense{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrNotFound,
				Message: "Expense does not exist.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get expense in Storage.GetExpenseById() function | Error: %v", traceID, err)
		return tracker.Expense{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get expense, try again later.",
		}
	}
	return expense, nil
}

func (mySql *MySQLStorage) UpdateExpense(ctx context.Context, userId string, fields tracker.UpdateExpenseRequest) (*tracker.Expense, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `UPDATE expense SET expense_date = ?, type = ?, vendor = ?, location = ?, cost = ?, comments = ?, receipt_path = ?, trip_name = ? WHERE id = ? AND created_by = ?;`
	_, err := mySql.db.Exec(query, fields.NewDate, fields.NewType, fields.NewVendor, fields.NewLocation, fields.NewCost, fields.NewComments, fields.NewReceiptPath, fields.NewTripName, fields.ID, userId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update expense in Storage.UpdateExpense() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to update expense, try again later.",
		}
	}

	expense, err := mySql.GetExpenseById(ctx, userId, fields.ID)
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (mySql *MySQLStorage) DeleteExpense(ctx context.Context, userId string, expenseId string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	res, err := mySql.db.Exec("DELETE FROM expense WHERE id = ? AND created_by = ?;", expenseId, userId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to delete expense in Storage.DeleteExpense() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to delete expense, try again later.",
		}
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Expense does not exist.",
		}
	}
	return nil
}

// --- MILEAGE LOGS --- //

func (mySql *MySQLStorage) SaveMileageLog(ctx context.Context, log tracker.MileageLog) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "INSERT INTO mileage_log (id, trip_id, trip_date, start_odometer, end_odometer, purpose, entry_method, start_image_path, end_image_path, created_at, updated_at, created_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);"
	_, err := mySql.db.Exec(query, log.ID, log.TripID, log.TripDate, log.StartOdometer, log.EndOdometer, log.Purpose, log.EntryMethod, log.StartImagePath, log.EndImagePath, log.CreatedAt, log.UpdatedAt, log.CreatedBy)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to save mileage log in Storage.SaveMileageLog() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to save mileage log, try again later.",
		}
	}
	return nil
}

func (mySql *MySQLStorage) GetMileageLogs(ctx context.Context, userId string, tripId string) ([]tracker.MileageLog, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, trip_id, trip_date, start_odometer, end_odometer, purpose, entry_method, start_image_path, end_image_path, created_at, updated_at, created_by FROM mileage_log WHERE created_by = ?"
	args := []interface{}{userId}
	if tripId != "" {
		query += " AND trip_id = ?"
		args = append(args, tripId)
	}
	query += " ORDER BY trip_date DESC;"

	rows, err := mySql.db.Query(query, args...)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to get mileage logs in Storage.GetMileageLogs() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get mileage logs, try again later.",
		}
	}
	defer rows.Close()

	var logs []tracker.MileageLog
	for rows.Next() {
		var log tracker.MileageLog
		err := rows.Scan(&log.ID, &log.TripID, &log.TripDate, &log.StartOdometer, &log.EndOdometer, &log.Purpose, &log.EntryMethod, &log.StartImagePath, &log.EndImagePath, &log.CreatedAt, &log.UpdatedAt, &log.CreatedBy)
		if err != nil {
			logging.Logger.Errorf("[TraceID=%s] | failed to scan row in Storage.GetMileageLogs() function | Error: %v", traceID, err)
			return nil, appErrors.ErrorResponse{
				Code:    appErrors.ErrInternal,
				Message: "Failed to get mileage logs, try again later.",
			}
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to iterate rows in Storage.GetMileageLogs() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get mileage logs, try again later.",
		}
	}
	return logs, nil
}

func (mySql *MySQLStorage) GetMileageLogById(ctx context.Context, userId string, logId string) (tracker.MileageLog, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := "SELECT id, trip_id, trip_date, start_odometer, end_odometer, purpose, entry_method, start_image_path, end_image_path, created_at, updated_at, created_by FROM mileage_log WHERE id = ? AND created_by = ?;"
	var log tracker.MileageLog
	err := mySql.db.QueryRow(query, logId, userId).Scan(&log.ID, &log.TripID, &log.TripDate, &log.StartOdometer, &log.EndOdometer, &log.Purpose, &log.EntryMethod, &log.StartImagePath, &log.EndImagePath, &log.CreatedAt, &log.UpdatedAt, &log.CreatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tracker.MileageLog{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrNotFound,
				Message: "Mileage log does not exist.",
			}
		}
		logging.Logger.Errorf("[TraceID=%s] | failed to get mileage log in Storage.GetMileageLogById() function | Error: %v", traceID, err)
		return tracker.MileageLog{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to get mileage log, try again later.",
		}
	}
	return log, nil
}

func (mySql *MySQLStorage) UpdateMileageLog(ctx context.Context, userId string, fields tracker.UpdateMileageLogRequest) (*tracker.MileageLog, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `UPDATE mileage_log SET trip_date = ?, start_odometer = ?, end_odometer = ?, purpose = ?, updated_at = ? WHERE id = ? AND created_by = ?;`
	_, err := mySql.db.Exec(query, fields.NewTripDate, fields.NewStartOdometer, fields.NewEndOdometer, fields.NewPurpose, fields.UpdateTime, fields.ID, userId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to update mileage log in Storage.UpdateMileageLog() function | Error: %v", traceID, err)
		return nil, appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to update mileage log, try again later.",
		}
	}

	log, err := mySql.GetMileageLogById(ctx, userId, fields.ID)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (mySql *MySQLStorage) DeleteMileageLog(ctx context.Context, userId string, logId string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	res, err := mySql.db.Exec("DELETE FROM mileage_log WHERE id = ? AND created_by = ?;", logId, userId)
	if err != nil {
		logging.Logger.Errorf("[TraceID=%s] | failed to delete mileage log in Storage.DeleteMileageLog() function | Error: %v", traceID, err)
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInternal,
			Message: "Failed to delete mileage log, try again later.",
		}
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrNotFound,
			Message: "Mileage log does not exist.",
		}
	}
	return nil
}

func (mySql *MySQLStorage) GetStorageType() string {
	return "MySQL"
}
