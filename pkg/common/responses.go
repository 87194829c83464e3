package common

import (
	"encoding/json"
	"net/http"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the response body shared by every endpoint.
type Envelope struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
	Auth       *AuthInfo   `json:"auth,omitempty"`
}

// AuthInfo is attached to responses that (re)issue a session.
type AuthInfo struct {
	User interface{} `json:"user"`
}

// RespondJSON writes a success envelope.
func RespondJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	writeEnvelope(w, Envelope{
		Status:     StatusSuccess,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

// RespondAuth writes a success envelope carrying the session user.
func RespondAuth(w http.ResponseWriter, message string, user interface{}) {
	writeEnvelope(w, Envelope{
		Status:     StatusSuccess,
		StatusCode: http.StatusOK,
		Message:    message,
		Auth:       &AuthInfo{User: user},
	})
}

// RespondError writes an error envelope.
func RespondError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, Envelope{
		Status:     StatusError,
		StatusCode: status,
		Message:    message,
	})
}

func writeEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)
	_ = json.NewEncoder(w).Encode(env)
}
