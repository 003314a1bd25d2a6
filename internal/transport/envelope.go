package transport

import "github.com/Skotchmaster/learnhub/pkg/apperr"

// Envelope is the shape of every JSON response body.
type Envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       any                 `json:"data,omitempty"`
	Errors     []apperr.FieldError `json:"errors,omitempty"`
	RetryAfter int                 `json:"retryAfter,omitempty"`
}

func OK(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

func Fail(message string) Envelope {
	return Envelope{Success: false, Message: message}
}
