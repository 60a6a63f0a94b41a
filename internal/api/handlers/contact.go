package handlers

import (
	"errors"
	"net/http"

	"github.com/comilla/site-backend/internal/api/problem"
	"github.com/comilla/site-backend/internal/domain/contact"
)

type ContactHandler struct {
	Service *contact.Service
	Env     string
}

func NewContactHandler(service *contact.Service, env string) *ContactHandler {
	return &ContactHandler{Service: service, Env: env}
}

// Send handles POST /contact.
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeBodyError(w, r, err, h.Env)
		return
	}

	err = h.Service.Notify(r.Context(), contact.Message{
		Name:    body.field("name"),
		Email:   body.field("email"),
		Subject: body.field("subject"),
		Message: body.field("message"),
	})
	switch {
	case errors.Is(err, contact.ErrMissingField):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "All fields are required", err, h.Env)
	case err != nil:
		writeServerError(w, r, err, h.Env)
	default:
		writeAck(w, "Email sent successfully")
	}
}
