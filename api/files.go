package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	appErrors "github.com/tripspend/trip_tracker/customErrors"
	"github.com/tripspend/trip_tracker/internal/contextutil"
	"github.com/tripspend/trip_tracker/internal/export"
	"github.com/tripspend/trip_tracker/logging"
)

const (
	uploadsDir    = "uploads"
	maxUploadSize = 10 << 20 // 10 MB
)

var allowedUploadExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

// authorizeRaw is the Authorization check for the handlers that bypass the
// binding layer to stream files.
func (api *Api) authorizeRaw(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := contextutil.WithTraceID(r.Context(), uuid.New().String())

	token := r.Header.Get("Authorization")
	if token == "" {
		http.Error(w, "authorization failed: Authorization header is required.", 401)
		return "", false
	}
	userId, err := api.Service.CheckSession(ctx, token)
	if err != nil {
		http.Error(w, fmt.Sprintf("authorization failed: %s", err.Error()), 401)
		return "", false
	}
	return userId, true
}

// storeUpload writes one uploaded file into the uploads directory under a
// flat, collision-free name and returns its public path.
func storeUpload(file io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedUploadExts[ext] {
		return "", appErrors.New(appErrors.ErrInvalidInput, "file type '%s' is not allowed", ext)
	}

	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	storedName := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(uploadsDir, storedName))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return "/uploads/" + storedName, nil
}

// UploadFileHandler stores a receipt or odometer image and returns the
// path to reference from an expense or mileage log.
func (api *Api) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := api.authorizeRaw(w, r); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, fmt.Sprintf("failed to parse upload: %v", err), 400)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing 'file' form field", 400)
		return
	}
	defer file.Close()

	path, err := storeUpload(file, header.Filename)
	if err != nil {
		logging.Logger.Errorf("Failed to store upload: %v", err)
		http.Error(w, err.Error(), httpStatusFromError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(201)
	json.NewEncoder(w).Encode(UploadResponse{
		Message: "upload successful",
		Path:    path,
	})
}

// ServeUploadHandler serves stored images back. The path is public; the
// random file names are unguessable, and image tags in the frontend carry
// no Authorization header. The file name collapses to its base so path
// traversal cannot escape the uploads directory.
func (api *Api) ServeUploadHandler(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(r.PathValue("file"))
	if name == "." || name == "/" {
		http.Error(w, "file not found", 404)
		return
	}

	path := filepath.Join(uploadsDir, name)
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "file not found", 404)
		return
	}
	http.ServeFile(w, r, path)
}

// ExportExpensesHandler streams the expense listing as an xlsx workbook.
// An empty trip filter exports everything.
func (api *Api) ExportExpensesHandler(w http.ResponseWriter, r *http.Request) {
	userId, ok := api.authorizeRaw(w, r)
	if !ok {
		return
	}

	ctx := contextutil.WithTraceID(r.Context(), uuid.New().String())
	tripName := r.URL.Query().Get("tripName")

	expenses, err := api.Service.GetExpenses(ctx, userId, tripName)
	if err != nil {
		logging.Logger.Errorf("Failed to get expenses for export: %v", err)
		http.Error(w, "failed to export expenses", httpStatusFromError(err))
		return
	}

	workbook, err := export.ExpensesWorkbook(expenses)
	if err != nil {
		logging.Logger.Errorf("Failed to build workbook: %v", err)
		http.Error(w, "failed to export expenses", 500)
		return
	}

	fileName := export.AttachmentName(tripName)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	if _, err := io.Copy(w, workbook); err != nil {
		logging.Logger.Errorf("Failed to stream workbook: %v", err)
	}
}
