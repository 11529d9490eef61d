// Package lib holds the API response envelope and error taxonomy.
package lib

// SuccessBody wraps successful responses as {"code": ..., "data": ...}.
type SuccessBody struct {
	Code int `json:"code"`
	Data any `json:"data,omitempty"`
}

// ErrorBody wraps failures as {"code": ..., "error": {...}}.
type ErrorBody struct {
	Code  int       `json:"code"`
	Error *AppError `json:"error"`
}

func SuccessResponse(data any, code int) SuccessBody {
	return SuccessBody{Code: code, Data: data}
}

func ErrorResponse(err *AppError) ErrorBody {
	return ErrorBody{Code: err.Code, Error: err}
}
