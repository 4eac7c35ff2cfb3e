package api

import (
	"encoding/json"
	"fmt"

	"github.com/0xcafe-io/iz"
	"github.com/tripspend/trip_tracker/internal/tracker"
	"github.com/tripspend/trip_tracker/logging"
)

func (api *Api) SaveTripHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var newTripReq CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&newTripReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	trip, err := api.Service.SaveTrip(ctx, userId, tracker.TripRequest{
		Name:        newTripReq.Name,
		Description: newTripReq.Description,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to create trip: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	return iz.Respond().Status(201).JSON(TripToHttp(tracker.TripResponse{
		ID:          trip.ID,
		Name:        trip.Name,
		Description: trip.Description,
		CreatedAt:   trip.CreatedAt,
		CreatedBy:   trip.CreatedBy,
	}))
}

func (api *Api) GetTripsHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	trips, err := api.Service.GetTrips(ctx, userId)
	if err != nil {
		logging.Logger.Errorf("Failed to get trips: %v", err)
		msg := "failed to get trips"
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	var container ListTripsResponse
	container.Trips = make([]TripItem, 0, len(trips))
	for _, trip := range trips {
		container.Trips = append(container.Trips, TripToHttp(trip))
	}
	return iz.Respond().Status(200).JSON(container)
}

func (api *Api) GetTripByIdHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	tripId := r.PathValue("id")

	trip, err := api.Service.GetTripById(ctx, userId, tripId)
	if err != nil {
		msg := fmt.Sprintf("failed to get trip by ID: %s", err.Error())
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	total, count, err := api.Service.GetTripTotals(ctx, userId, trip.Name)
	if err != nil {
		logging.Logger.Errorf("Failed to get trip totals: %v", err)
		msg := "failed to get trip totals"
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	return iz.Respond().Status(200).JSON(TripToHttp(tracker.TripResponse{
		ID:           trip.ID,
		Name:         trip.Name,
		Description:  trip.Description,
		TotalSpent:   total,
		ExpenseCount: count,
		CreatedAt:    trip.CreatedAt,
		CreatedBy:    trip.CreatedBy,
	}))
}

func (api *Api) UpdateTripHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	tripId := r.PathValue("id")

	var updateReq UpdateTripHttpRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	trip, err := api.Service.UpdateTrip(ctx, userId, tracker.UpdateTripRequest{
		ID:             tripId,
		NewName:        updateReq.Name,
		NewDescription: updateReq.Description,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to update trip: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	return iz.Respond().Status(200).JSON(TripToHttp(tracker.TripResponse{
		ID:          trip.ID,
		Name:        trip.Name,
		Description: trip.Description,
		CreatedAt:   trip.CreatedAt,
		CreatedBy:   trip.CreatedBy,
	}))
}

func (api *Api) DeleteTripHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	tripId := r.PathValue("id")

	if err := api.Service.DeleteTrip(ctx, userId, tripId); err != nil {
		logging.Logger.Errorf("Failed to delete trip: %v", err)
		msg := fmt.Sprintf("failed to delete trip: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	msg := "trip deleted successfully"
	return iz.Respond().Status(200).Text(msg)
}
