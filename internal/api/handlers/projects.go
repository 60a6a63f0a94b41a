package handlers

import (
	"errors"
	"net/http"

	"github.com/comilla/site-backend/internal/api/problem"
	"github.com/comilla/site-backend/internal/domain/projects"
)

type ProjectsHandler struct {
	Service *projects.Service
	Env     string
}

func NewProjectsHandler(service *projects.Service, env string) *ProjectsHandler {
	return &ProjectsHandler{Service: service, Env: env}
}

type projectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	imageFields
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type projectUpdatedResponse struct {
	Message string          `json:"message"`
	Project projectResponse `json:"project"`
}

func toProjectResponse(p projects.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Location:    p.Location,
		imageFields: toImageFields(p.Images),
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

func projectInput(body *requestBody) projects.Input {
	return projects.Input{
		Name:        body.field("name"),
		Description: body.field("description"),
		Location:    body.field("location"),
	}
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	if err != nil {
		writeServerError(w, r, err, h.Env)
		return
	}
	out := make([]projectResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toProjectResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.Get(r.Context(), recordID(r, nil))
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Project not found", err, h.Env)
			return
		}
		writeServerError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(*item))
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeBodyError(w, r, err, h.Env)
		return
	}

	_, err = h.Service.Create(r.Context(), projectInput(body), body.uploads)
	switch {
	case errors.Is(err, projects.ErrMissingName):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Project name is required", err, h.Env)
	case errors.Is(err, projects.ErrConflict):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeConflict, "Duplicate Project found.", err, h.Env)
	case err != nil:
		writeServerError(w, r, err, h.Env)
	default:
		writeAck(w, "Successfully added project!")
	}
}

// Update handles PATCH /project. The id travels in the body as id or _id.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeBodyError(w, r, err, h.Env)
		return
	}

	updated, err := h.Service.Update(r.Context(), recordID(r, body), projectInput(body), body.uploads)
	switch {
	case errors.Is(err, projects.ErrNotFound):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeNotFound, "Project not found.", err, h.Env)
	case err != nil:
		writeServerError(w, r, err, h.Env)
	default:
		writeJSON(w, http.StatusOK, projectUpdatedResponse{
			Message: "Successfully updated project",
			Project: toProjectResponse(*updated),
		})
	}
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.Service.Delete(r.Context(), recordID(r, nil))
	switch {
	case errors.Is(err, projects.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Project not found", err, h.Env)
	case err != nil:
		writeServerError(w, r, err, h.Env)
	default:
		writeAck(w, "Project deleted successfully")
	}
}
