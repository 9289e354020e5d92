package utils

import (
	"fmt"
	"net/http"
)

// Error carries an HTTP status with a message
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e Error) StatusCode() int {
	return e.Code
}

func (e Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

var ErrUnauthorized = &Error{Code: http.StatusUnauthorized, Message: "unauthorized"}
var ErrTooManyRequests = &Error{Code: http.StatusTooManyRequests, Message: "too many requests"}
var ErrNotFound = &Error{Code: http.StatusNotFound, Message: "not found"}
var ErrInvalidParams = &Error{Code: http.StatusBadRequest, Message: "invalid parameters"}
