package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/0xcafe-io/iz"
	"github.com/google/uuid"
	"github.com/tripspend/trip_tracker/internal/auth"
	"github.com/tripspend/trip_tracker/internal/contextutil"
	"github.com/tripspend/trip_tracker/internal/ocr"
	"github.com/tripspend/trip_tracker/internal/tracker"
	"github.com/tripspend/trip_tracker/logging"
)

type Api struct {
	Service *tracker.TripTracker
	Ocr     *ocr.Dispatcher
}

func NewApi(service *tracker.TripTracker, dispatcher *ocr.Dispatcher) *Api {
	return &Api{
		Service: service,
		Ocr:     dispatcher,
	}
}

// authorize resolves the bearer token to a user id. The returned responder
// is non-nil when the request must be rejected.
func (api *Api) authorize(r *iz.Request) (string, context.Context, iz.Responder) {
	ctx := contextutil.WithTraceID(r.Context(), uuid.New().String())

	token := r.Header.Get("Authorization")
	if token == "" {
		msg := "authorization failed: Authorization header is required."
		return "", ctx, iz.Respond().Status(401).Text(msg)
	}

	userId, err := api.Service.CheckSession(ctx, token)
	if err != nil {
		msg := fmt.Sprintf("authorization failed: %s", err.Error())
		return "", ctx, iz.Respond().Status(401).Text(msg)
	}
	return userId, ctx, nil
}

func (api *Api) SaveUserHandler(r *iz.Request) iz.Responder {
	ctx := contextutil.WithTraceID(r.Context(), uuid.New().String())

	var newUserReq SaveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&newUserReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	newUser := auth.NewUser{
		UserName:      newUserReq.UserName,
		FullName:      newUserReq.FullName,
		PasswordPlain: newUserReq.Password,
		Email:         newUserReq.Email,
	}

	if err := newUser.ValidateUserFields(); err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	token, err := api.Service.SaveUser(ctx, newUser)
	if err != nil {
		msg := fmt.Sprintf("registration failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := UserCreatedResponse{
		Message: "Registration Completed",
		Token:   token,
	}
	return iz.Respond().Status(201).JSON(resp)
}

func (api *Api) LoginUserHandler(r *iz.Request) iz.Responder {
	ctx := contextutil.WithTraceID(r.Context(), uuid.New().String())

	var loginRequest UserLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		msg := "invalid request body"
		return iz.Respond().Status(400).Text(msg)
	}

	credentials := auth.UserCredentialsPure{
		UserName:      loginRequest.UserName,
		PasswordPlain: loginRequest.Password,
	}

	response := LoginResponse{}

	token, err := api.Service.GenerateSession(ctx, credentials)
	if err != nil {
		response.Message = err.Error()
		return iz.Respond().Status(httpStatusFromError(err)).JSON(response)
	}
	response.Message = "You've logged in successfully!"
	response.Token = token
	return iz.Respond().Status(200).JSON(response)
}

func (api *Api) LogoutUserHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	token := r.Header.Get("Authorization")
	if err := api.Service.LogoutUser(ctx, userId, token); err != nil {
		msg := fmt.Sprintf("logout failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	msg := "Logout successful."
	return iz.Respond().Status(200).Text(msg)
}

// CurrentUserHandler backs the session probe the client fires on startup.
func (api *Api) CurrentUserHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	user, err := api.Service.GetUserById(ctx, userId)
	if err != nil {
		logging.Logger.Errorf("Failed to get current user: %v", err)
		msg := "failed to get current user"
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(UserToHttp(user))
}

func (api *Api) UpdateProfileHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var profileReq UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&profileReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	user, err := api.Service.UpdateProfile(ctx, userId, auth.ProfileUpdate{
		FullName: profileReq.FullName,
		Email:    profileReq.Email,
		Phone:    profileReq.Phone,
		Bio:      profileReq.Bio,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to update profile: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).JSON(UserToHttp(user))
}

func (api *Api) ChangePasswordHandler(r *iz.Request) iz.Responder {
	userId, ctx, errResp := api.authorize(r)
	if errResp != nil {
		return errResp
	}

	var passwordReq ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&passwordReq); err != nil {
		msg := fmt.Sprintf("invalid request body: %s", err.Error())
		return iz.Respond().Status(400).Text(msg)
	}

	err := api.Service.ChangePassword(ctx, userId, auth.PasswordChange{
		CurrentPassword: passwordReq.CurrentPassword,
		NewPassword:     passwordReq.NewPassword,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to change password: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("Password changed successfully.")
}
