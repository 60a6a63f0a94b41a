package handlers

import (
	"errors"
	"net/http"

	"github.com/comilla/site-backend/internal/api/problem"
	"github.com/comilla/site-backend/internal/domain/events"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type eventResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	imageFields
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type eventUpdatedResponse struct {
	Message string        `json:"message"`
	Event   eventResponse `json:"event"`
}

func toEventResponse(e events.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Location:    e.Location,
		Date:        e.Date,
		Time:        e.Time,
		imageFields: toImageFields(e.Images),
		CreatedAt:   formatTime(e.CreatedAt),
		UpdatedAt:   formatTime(e.UpdatedAt),
	}
}

func eventInput(body *requestBody) events.Input {
	return events.Input{
		Name:        body.field("name"),
		Description: body.field("description"),
		Location:    body.field("location"),
		Date:        body.field("date"),
		Time:        body.field("time"),
	}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	if err != nil {
		writeServerError(w, r, err, h.Env)
		return
	}
	out := make([]eventResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.Get(r.Context(), recordID(r, nil))
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
			return
		}
		writeServerError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(*item))
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeBodyError(w, r, err, h.Env)
		return
	}

	_, err = h.Service.Create(r.Context(), eventInput(body), body.uploads)
	switch {
	case errors.Is(err, events.ErrMissingName):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Event name is required", err, h.Env)
	case errors.Is(err, events.ErrConflict):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeConflict, "Duplicate Event found.", err, h.Env)
	case err != nil:
		writeServerError(w, r, err, h.Env)
	default:
		writeAck(w, "Successfully added event!")
	}
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeBodyError(w, r, err, h.Env)
		return
	}

	updated, err := h.Service.Update(r.Context(), recordID(r, body), eventInput(body), body.uploads)
	switch {
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeNotFound, "Event not found.", err, h.Env)
	case err != nil:
		writeServerError(w, r, err, h.Env)
	default:
		writeJSON(w, http.StatusOK, eventUpdatedResponse{
			Message: "Successfully updated event",
			Event:   toEventResponse(*updated),
		})
	}
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.Service.Delete(r.Context(), recordID(r, nil))
	switch {
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
	case err != nil:
		writeServerError(w, r, err, h.Env)
	default:
		writeAck(w, "Event deleted successfully")
	}
}
