package lib

import "net/http"

// AppError is the client-facing error shape. Code doubles as the HTTP status.
type AppError struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (e *AppError) Error() string { return e.Message }

func NewAppError(code int, message, description string) *AppError {
	return &AppError{Code: code, Message: message, Description: description}
}

// ErrForbidden is the uniform authorization failure. Every relationship-based
// deny uses this exact response so a blocked actor cannot distinguish a block
// from a missing follow edge.
var ErrForbidden = NewAppError(http.StatusForbidden, "Access denied", "You are not allowed to perform this action")

// ErrInternal hides infrastructure failures behind a generic response.
var ErrInternal = NewAppError(http.StatusInternalServerError, "Internal Server Error", "Internal Server Error")

// ErrConflict is the normalized duplicate-unique-field response. Store error
// text is never echoed to the client.
var ErrConflict = NewAppError(http.StatusConflict, "Username or email already in use", "Username or email already in use")
