package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Response общий конверт ответа: message при успехе, error при ошибке.
type Response struct {
	Status     string `json:"status"`
	Message    any    `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"status_code"`
}

func OK(msg any) Response {
	return Response{
		Status:     StatusOK,
		Message:    msg,
		StatusCode: http.StatusOK,
	}
}

func Error(msg string, code int) Response {
	return Response{
		Status:     StatusError,
		Error:      msg,
		StatusCode: code,
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "url":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid URL", err.Field()))
		case "gt":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}

	return Error(strings.Join(errMsgs, ", "), http.StatusBadRequest)
}
