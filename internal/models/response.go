package models

import "net/http"

// Response is the outcome reported back to whatever triggered an invocation
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Success builds a 200 response
func Success(message string) Response {
	return Response{StatusCode: http.StatusOK, Body: message}
}

// Failure builds an error response, 500 unless another code is given
func Failure(message string, code ...int) Response {
	status := http.StatusInternalServerError
	if len(code) > 0 {
		status = code[0]
	}
	return Response{StatusCode: status, Body: message}
}

// OK reports whether the response is a success
func (r Response) OK() bool {
	return r.StatusCode == http.StatusOK
}
