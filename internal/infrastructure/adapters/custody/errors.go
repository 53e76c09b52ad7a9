package custody

import "fmt"

// ErrorResponse is a structured error from the custody API
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("custody API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}
