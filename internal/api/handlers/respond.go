package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/comilla/site-backend/internal/api/problem"
)

type ackResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAck(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, ackResponse{Message: message})
}

// writeBodyError reports a request body that could not be read.
func writeBodyError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Request body too large", err, env)
		return
	}
	problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, env)
}

func writeServerError(w http.ResponseWriter, r *http.Request, err error, env string) {
	problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Internal Server Error", err, env)
}
