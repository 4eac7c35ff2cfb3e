package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/0xcafe-io/iz"
	"github.com/tripspend/trip_tracker/internal/tracker"
	"github.com/tripspend/trip_tracker/logging"
)

// decodeExpenseForm reads an expense payload from either a JSON body or a
// multipart form whose optional "receipt" file is stored first.
func decodeExpenseForm(r *iz.Request) (CreateExpenseRequest, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var req CreateExpenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return CreateExpenseRequest{}, fmt.Errorf("invalid request body: %s", err.Error())
		}
		return req, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return CreateExpenseRequest{}, fmt.Errorf("failed to parse form: %s", err.Error())
	}

	req := CreateExpenseRequest{
		Date:        r.FormValue("date"),
		Type:        r.FormValue("type"),
		Vendor:      r.FormValue("vendor"),
		Location:    r.FormValue("location"),
		Cost:        r.FormValue("cost"),
		Comments:    r.FormValue("comments"),
		TripName:    r.FormValue("trip_name"),
		ReceiptPath: r.FormValue("receipt_path"),
	}

	file, header, err := r.FormFile("receipt")
	if err == nil {
		defer file.Close()
		path, err := storeUpload(file, header.Filename)
		if err != nil {
			return CreateExpenseRequest{}, err
		}
		req.ReceiptPath = path
	}
	return req, nil
}

func expenseRequestFromHttp(req CreateExpenseRequest) (tracker.ExpenseRequest, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return tracker.ExpenseRequest{}, err
	}
	cost, err := parseCost(req.Cost)
	if err != nil {
		return tracker.ExpenseRequest{}, err
	}
	return tracker.ExpenseRequest{
		Date:        date,
		Type:        req.Type,
		Vendor:      req.Vendor,
		Location:    req.Location,
		Cost:        cost,
		Comments:    req.Comments,
		TripName:    req.TripName,
		ReceiptPath: req.ReceiptPath,
	}, nil
}

func (api *Api) SaveExpenseHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	newExpenseReq, err := decodeExpenseForm(r)
	if err != nil {
		return iz.Respond().Status(400).Text(err.Error())
	}

	expenseReq, err := expenseRequestFromHttp(newExpenseReq)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	expense, err := api.Service.SaveExpense(ctx, userId, expenseReq)
	if err != nil {
		msg := fmt.Sprintf("failed to create expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(201).JSON(ExpenseToHttp(expense))
}

// SaveExpensesBatchHandler accepts a JSON array of expenses; the whole batch
// is rejected if any row fails validation.
func (api *Api) SaveExpensesBatchHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var batchReq []CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&batchReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}
	if len(batchReq) == 0 {
		return iz.Respond().Status(400).Text("batch is empty")
	}

	expenseReqs := make([]tracker.ExpenseRequest, 0, len(batchReq))
	for i, row := range batchReq {
		expenseReq, err := expenseRequestFromHttp(row)
		if err != nil {
			msg := fmt.Sprintf("row %d: %s", i+1, err.Error())
			return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
		}
		expenseReqs = append(expenseReqs, expenseReq)
	}

	saved, err := api.Service.SaveExpenses(ctx, userId, expenseReqs)
	if err != nil {
		msg := fmt.Sprintf("failed to save batch: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	var container ListExpensesResponse
	container.Expenses = make([]ExpenseItem, 0, len(saved))
	for _, expense := range saved {
		container.Expenses = append(container.Expenses, ExpenseToHttp(expense))
	}
	container.Total = tracker.TotalSpent(saved).StringFixed(2)
	return iz.Respond().Status(201).JSON(container)
}

func (api *Api) GetExpensesHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	tripName := r.URL.Query().Get("tripName")

	expenses, err := api.Service.GetExpenses(ctx, userId, tripName)
	if err != nil {
		logging.Logger.Errorf("Failed to get expenses: %v", err)
		msg := "failed to get expenses"
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	if field := r.URL.Query().Get("sort"); field != "" {
		state := tracker.SortState{
			Field:     tracker.SortField(field),
			Ascending: r.URL.Query().Get("dir") != "desc",
		}
		tracker.SortExpenses(expenses, state)
	}

	var container ListExpensesResponse
	container.Expenses = make([]ExpenseItem, 0, len(expenses))
	for _, expense := range expenses {
		container.Expenses = append(container.Expenses, ExpenseToHttp(expense))
	}
	container.Total = tracker.TotalSpent(expenses).StringFixed(2)
	return iz.Respond().Status(200).JSON(container)
}

func (api *Api) GetExpenseByIdHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	expenseId := r.PathValue("id")

	expense, err := api.Service.GetExpenseById(ctx, userId, expenseId)
	if err != nil {
		msg := fmt.Sprintf("failed to get expense by ID: %s", err.Error())
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(ExpenseToHttp(expense))
}

func (api *Api) UpdateExpenseHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	expenseId := r.PathValue("id")

	updateReq, err := decodeExpenseForm(r)
	if err != nil {
		return iz.Respond().Status(400).Text(err.Error())
	}

	date, err := parseDate(updateReq.Date)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}
	cost, err := parseCost(updateReq.Cost)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	expense, err := api.Service.UpdateExpense(ctx, userId, tracker.UpdateExpenseRequest{
		ID:             expenseId,
		NewDate:        date,
		NewType:        updateReq.Type,
		NewVendor:      updateReq.Vendor,
		NewLocation:    updateReq.Location,
		NewCost:        cost,
		NewComments:    updateReq.Comments,
		NewTripName:    updateReq.TripName,
		NewReceiptPath: updateReq.ReceiptPath,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to update expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(ExpenseToHttp(*expense))
}

func (api *Api) DeleteExpenseHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	expenseId := r.PathValue("id")

	if err := api.Service.DeleteExpense(ctx, userId, expenseId); err != nil {
		logging.Logger.Errorf("Failed to delete expense: %v", err)
		msg := fmt.Sprintf("failed to delete expense: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	msg := "expense deleted successfully"
	return iz.Respond().Status(200).Text(msg)
}
