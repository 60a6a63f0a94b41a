package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/comilla/site-backend/internal/api/middleware"
	"github.com/comilla/site-backend/internal/api/problem"
	"github.com/comilla/site-backend/internal/domain/ids"
	"github.com/comilla/site-backend/internal/domain/users"
	"github.com/comilla/site-backend/internal/validation"
)

type AuthHandler struct {
	Users        *users.Service
	Env          string
	SecureCookie bool
}

func NewAuthHandler(service *users.Service, env string, secureCookie bool) *AuthHandler {
	return &AuthHandler{Users: service, Env: env, SecureCookie: secureCookie}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Message   string `json:"message"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	ID        string `json:"id"`
	Email     string `json:"email"`
}

type editEmailRequest struct {
	ID    string `json:"id" validate:"required"`
	Email string `json:"email" validate:"required"`
}

type editEmailResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Email   string `json:"email"`
}

type changePasswordRequest struct {
	ID                 string `json:"id" validate:"required"`
	OldPassword        string `json:"oldPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required"`
}

// Login handles POST /login. The session token is returned in the body and
// set as the access_token cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	result, err := h.Users.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeNotFound, "User not found", err, h.Env)
		return
	case errors.Is(err, users.ErrInvalidCredentials):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeUnauthorized, "Incorrect password", err, h.Env)
		return
	case err != nil:
		writeServerError(w, r, err, h.Env)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		MaxAge:   int(time.Until(result.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Login successful",
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
		ID:        result.User.ID,
		Email:     result.User.Email,
	})
}

// Logout handles POST /logout by expiring the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeAck(w, "Logged out")
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	if _, err := h.Users.Register(r.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, users.ErrMissingEmail) || errors.Is(err, users.ErrMissingPassword) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Email and password are required", err, h.Env)
			return
		}
		writeServerError(w, r, err, h.Env)
		return
	}
	writeAck(w, "Successfully registered!")
}

// EditEmail handles POST /edit-email. Only the logged-in user's own
// address can be changed.
func (h *AuthHandler) EditEmail(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeBodyError(w, r, err, h.Env)
		return
	}
	req := editEmailRequest{ID: body.field("id", "_id"), Email: body.field("email")}
	if !h.validate(w, r, req) || !h.ownAccount(w, r, req.ID) {
		return
	}

	user, err := h.Users.ChangeEmail(r.Context(), req.ID, req.Email)
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", err, h.Env)
		return
	case errors.Is(err, users.ErrMissingEmail):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Email is required", err, h.Env)
		return
	case err != nil:
		writeServerError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, editEmailResponse{
		Message: "Email updated successfully",
		ID:      user.ID,
		Email:   user.Email,
	})
}

// ChangePassword handles POST /change-password. Every domain failure is
// reported as 404 with a distinguishing message.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeBodyError(w, r, err, h.Env)
		return
	}
	req := changePasswordRequest{
		ID:                 body.field("id", "_id"),
		OldPassword:        body.field("oldPassword"),
		NewPassword:        body.field("newPassword"),
		ConfirmNewPassword: body.field("confirmNewPassword"),
	}
	if !h.validate(w, r, req) || !h.ownAccount(w, r, req.ID) {
		return
	}

	err = h.Users.ChangePassword(r.Context(), req.ID, req.OldPassword, req.NewPassword, req.ConfirmNewPassword)
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "User not found", err, h.Env)
	case errors.Is(err, users.ErrInvalidCredentials):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Incorrect old password", err, h.Env)
	case errors.Is(err, users.ErrPasswordMismatch):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "New passwords do not match", err, h.Env)
	case err != nil:
		writeServerError(w, r, err, h.Env)
	default:
		writeAck(w, "Password updated successfully")
	}
}

func (h *AuthHandler) readCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	body, err := readBody(r)
	if err != nil {
		writeBodyError(w, r, err, h.Env)
		return credentialsRequest{}, false
	}
	req := credentialsRequest{Email: body.field("email"), Password: body.field("password")}
	if !h.validate(w, r, req) {
		return credentialsRequest{}, false
	}
	return req, true
}

func (h *AuthHandler) validate(w http.ResponseWriter, r *http.Request, req any) bool {
	err := validation.Struct(req)
	if err == nil {
		return true
	}
	writeValidationError(w, r, err, h.Env)
	return false
}

// ownAccount rejects requests naming an account other than the session's.
func (h *AuthHandler) ownAccount(w http.ResponseWriter, r *http.Request, id string) bool {
	claims := middleware.SessionClaims(r)
	if claims == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return false
	}
	normalized, err := ids.Normalize(id)
	if err != nil {
		normalized = id
	}
	if normalized != claims.Subject {
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", nil, h.Env)
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		writeServerError(w, r, err, env)
		return
	}
	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field] = fe.Message()
	}
	problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Missing required fields", err, env,
		problem.WithMessage(verrs.Error()),
		problem.WithErrors(fields),
	)
}
