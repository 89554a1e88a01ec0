package booking

import (
	"encoding/json"
	"net/http"

	"clinic-app-server/internal/models"
)

// State is the terminal state of one booking request.
type State string

const (
	StateInitiated        State = "initiated"
	StateGatewayRejected  State = "gateway_rejected"
	StateValidationFailed State = "validation_failed"
	StateNotFound         State = "not_found"
	StateInternalError    State = "internal_error"
)

// Messages returned to the caller.
const (
	MsgPatientMissing      = "Patient information is missing"
	MsgPatientNotFound     = "Patient not found. Please use the correct values"
	MsgUnrecognizedGateway = "Unrecognized payment gateway response"
	MsgInternal            = "Something went wrong while booking the appointment"
)

// Result describes how a booking ended. Only the fields that belong to
// State are set.
type Result struct {
	State         State
	HTTPStatus    int
	TransactionID string
	Code          string
	Message       string
	Redirect      json.RawMessage
	Errors        models.FieldErrors
}

func initiated(txID, message string, redirect json.RawMessage) *Result {
	return &Result{State: StateInitiated, HTTPStatus: http.StatusOK, TransactionID: txID, Message: message, Redirect: redirect}
}

func rejected(txID string, resp *GatewayResponse) *Result {
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusBadGateway
	}
	return &Result{
		State:         StateGatewayRejected,
		HTTPStatus:    status,
		TransactionID: txID,
		Code:          resp.Code,
		Errors:        models.FieldErrors{"Error": {resp.Message}},
	}
}

func invalid(errs models.FieldErrors) *Result {
	return &Result{State: StateValidationFailed, HTTPStatus: http.StatusBadRequest, Errors: errs}
}

func notFound() *Result {
	return &Result{
		State:      StateNotFound,
		HTTPStatus: http.StatusNotFound,
		Errors:     models.FieldErrors{"PatientNotFoundError": {MsgPatientNotFound}},
	}
}

func internal() *Result {
	return &Result{
		State:      StateInternalError,
		HTTPStatus: http.StatusInternalServerError,
		Errors:     models.FieldErrors{"Error": {MsgInternal}},
	}
}
