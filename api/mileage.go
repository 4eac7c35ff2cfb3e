package api

import (
	"encoding/json"
	"fmt"

	"github.com/0xcafe-io/iz"
	"github.com/tripspend/trip_tracker/internal/tracker"
	"github.com/tripspend/trip_tracker/logging"
)

func (api *Api) SaveMileageLogHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var newLogReq CreateMileageLogRequest
	if err := json.NewDecoder(r.Body).Decode(&newLogReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	tripDate, err := parseDate(newLogReq.TripDate)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	entryMethod := newLogReq.EntryMethod
	if entryMethod == "" {
		entryMethod = tracker.EntryMethodManual
	}

	log, err := api.Service.SaveMileageLog(ctx, userId, tracker.MileageLogRequest{
		TripID:         newLogReq.TripID,
		TripDate:       tripDate,
		StartOdometer:  newLogReq.StartOdometer,
		EndOdometer:    newLogReq.EndOdometer,
		Purpose:        newLogReq.Purpose,
		EntryMethod:    entryMethod,
		StartImagePath: newLogReq.StartImagePath,
		EndImagePath:   newLogReq.EndImagePath,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to create mileage log: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(201).JSON(MileageLogToHttp(log))
}

func (api *Api) GetMileageLogsHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	tripId := r.URL.Query().Get("trip_id")

	logs, err := api.Service.GetMileageLogs(ctx, userId, tripId)
	if err != nil {
		logging.Logger.Errorf("Failed to get mileage logs: %v", err)
		msg := "failed to get mileage logs"
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	var container ListMileageLogsResponse
	container.Logs = make([]MileageLogItem, 0, len(logs))
	for _, log := range logs {
		container.Logs = append(container.Logs, MileageLogToHttp(log))
	}
	return iz.Respond().Status(200).JSON(container)
}

func (api *Api) UpdateMileageLogHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	logId := r.PathValue("id")

	var updateReq UpdateMileageLogHttpRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	tripDate, err := parseDate(updateReq.TripDate)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	log, err := api.Service.UpdateMileageLog(ctx, userId, tracker.UpdateMileageLogRequest{
		ID:               logId,
		NewTripDate:      tripDate,
		NewStartOdometer: updateReq.StartOdometer,
		NewEndOdometer:   updateReq.EndOdometer,
		NewPurpose:       updateReq.Purpose,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to update mileage log: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(MileageLogToHttp(*log))
}

func (api *Api) DeleteMileageLogHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	logId := r.PathValue("id")

	if err := api.Service.DeleteMileageLog(ctx, userId, logId); err != nil {
		logging.Logger.Errorf("Failed to delete mileage log: %v", err)
		msg := fmt.Sprintf("failed to delete mileage log: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	msg := "mileage log deleted successfully"
	return iz.Respond().Status(200).Text(msg)
}
