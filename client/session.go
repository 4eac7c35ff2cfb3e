package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"

	"github.com/tripspend/trip_tracker/api"
)

func (c *Client) Register(ctx context.Context, req api.SaveUserRequest) error {
	var resp api.UserCreatedResponse
	if err := c.do(ctx, "POST", "/api/auth/register", req, &resp); err != nil {
		return err
	}
	c.SetToken(resp.Token)
	return nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp api.LoginResponse
	err := c.do(ctx, "POST", "/api/auth/login", api.UserLoginRequest{
		UserName: username,
		Password: password,
	}, &resp)
	if err != nil {
		return err
	}
	c.SetToken(resp.Token)
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.Request(ctx, "POST", "/api/auth/logout", nil); err != nil {
		return err
	}
	c.SetToken("")
	c.Dialogs.CloseAll()
	return nil
}

// CurrentUser probes the stored session. A 401 means "not logged in" and
// returns nil without an error; the login screen is the normal answer to
// that, not a failure dialog.
func (c *Client) CurrentUser(ctx context.Context) (*api.UserProfileResponse, error) {
	var user api.UserProfileResponse
	err := c.do(ctx, "GET", "/api/auth/user", nil, &user)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 401 {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req api.UpdateProfileRequest) (*api.UserProfileResponse, error) {
	var user api.UserProfileResponse
	if err := c.do(ctx, "PUT", "/api/profile", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	_, err := c.Request(ctx, "POST", "/api/profile/change-password", api.ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	return err
}

func (c *Client) Trips(ctx context.Context) ([]api.TripItem, error) {
	var resp api.ListTripsResponse
	if err := c.do(ctx, "GET", "/api/trips", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Trips, nil
}

func (c *Client) CreateTrip(ctx context.Context, req api.CreateTripRequest) (*api.TripItem, error) {
	var trip api.TripItem
	if err := c.do(ctx, "POST", "/api/trips", req, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (c *Client) DeleteTrip(ctx context.Context, tripId string) error {
	_, err := c.Request(ctx, "DELETE", "/api/trips/"+url.PathEscape(tripId), nil)
	return err
}

// Expenses lists expenses, optionally filtered by trip and sorted
// server-side by the given field and direction.
func (c *Client) Expenses(ctx context.Context, tripName, sortField string, ascending bool) (api.ListExpensesResponse, error) {
	params := url.Values{}
	if tripName != "" {
		params.Set("tripName", tripName)
	}
	if sortField != "" {
		params.Set("sort", sortField)
		if !ascending {
			params.Set("dir", "desc")
		}
	}

	path := "/api/expenses"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp api.ListExpensesResponse
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return api.ListExpensesResponse{}, err
	}
	return resp, nil
}

func (c *Client) CreateExpense(ctx context.Context, req api.CreateExpenseRequest) (*api.ExpenseItem, error) {
	var expense api.ExpenseItem
	if err := c.do(ctx, "POST", "/api/expenses", req, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

// CreateExpenseWithReceipt submits the expense form together with its
// receipt image in one multipart request; the server stores the image
// and fills in the receipt path.
func (c *Client) CreateExpenseWithReceipt(ctx context.Context, req api.CreateExpenseRequest, receiptName string, receipt io.Reader) (*api.ExpenseItem, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"date":      req.Date,
		"type":      req.Type,
		"vendor":    req.Vendor,
		"location":  req.Location,
		"cost":      req.Cost,
		"comments":  req.Comments,
		"trip_name": req.TripName,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to encode expense form: %w", err)
		}
	}

	if receipt != nil {
		part, err := writer.CreateFormFile("receipt", receiptName)
		if err != nil {
			return nil, fmt.Errorf("failed to encode receipt: %w", err)
		}
		if _, err := io.Copy(part, receipt); err != nil {
			return nil, fmt.Errorf("failed to encode receipt: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode expense form: %w", err)
	}

	var expense api.ExpenseItem
	err := c.do(ctx, "POST", "/api/expenses", &Multipart{
		ContentType: writer.FormDataContentType(),
		Body:        &buf,
	}, &expense)
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (c *Client) CreateExpenseBatch(ctx context.Context, reqs []api.CreateExpenseRequest) (api.ListExpensesResponse, error) {
	var resp api.ListExpensesResponse
	if err := c.do(ctx, "POST", "/api/expenses/batch", reqs, &resp); err != nil {
		return api.ListExpensesResponse{}, err
	}
	return resp, nil
}

func (c *Client) DeleteExpense(ctx context.Context, expenseId string) error {
	_, err := c.Request(ctx, "DELETE", "/api/expenses/"+url.PathEscape(expenseId), nil)
	return err
}

func (c *Client) MileageLogs(ctx context.Context, tripId string) ([]api.MileageLogItem, error) {
	path := "/api/mileage-logs"
	if tripId != "" {
		path += "?trip_id=" + url.QueryEscape(tripId)
	}
	var resp api.ListMileageLogsResponse
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

func (c *Client) CreateMileageLog(ctx context.Context, req api.CreateMileageLogRequest) (*api.MileageLogItem, error) {
	var log api.MileageLogItem
	if err := c.do(ctx, "POST", "/api/mileage-logs", req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// ProcessReceipt sends a receipt image for extraction. The server answers
// 200 even when the provider fails; the result carries the outcome.
func (c *Client) ProcessReceipt(ctx context.Context, method, imageDataURL string) (api.OcrResultResponse, error) {
	var resp api.OcrResultResponse
	err := c.do(ctx, "POST", "/api/ocr/process", api.OcrProcessRequest{
		Method: method,
		Image:  imageDataURL,
	}, &resp)
	if err != nil {
		return api.OcrResultResponse{}, err
	}
	return resp, nil
}

// UploadFile stores a receipt or odometer image and returns the path it
// is served from.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to encode upload: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("failed to encode upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to encode upload: %w", err)
	}

	var resp api.UploadResponse
	err = c.do(ctx, "POST", "/api/upload", &Multipart{
		ContentType: writer.FormDataContentType(),
		Body:        &buf,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Path, nil
}

// ExportExpenses downloads the xlsx workbook for a trip (all expenses
// when tripName is empty).
func (c *Client) ExportExpenses(ctx context.Context, tripName string) ([]byte, error) {
	path := "/api/export-expenses"
	if tripName != "" {
		path += "?tripName=" + url.QueryEscape(tripName)
	}
	data, err := c.Request(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	return data, nil
}
