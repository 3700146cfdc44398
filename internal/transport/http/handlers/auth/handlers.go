package authhandler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"perfreview/internal/domain/auth"
	"perfreview/internal/transport/http/api"
	"perfreview/internal/transport/http/middleware"
	"perfreview/internal/transport/http/shared"
)

type Handler struct {
	Service      *auth.Service
	CookieName   string
	SecureCookie bool
}

func NewHandler(service *auth.Service, cookieName string, secureCookie bool) *Handler {
	return &Handler{Service: service, CookieName: cookieName, SecureCookie: secureCookie}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)
		r.With(middleware.RequireAuth).Get("/me", h.HandleMe)
		r.With(middleware.RequireAuth).Post("/change-password", h.HandleChangePassword)
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}

	result, err := h.Service.Login(r.Context(), payload.Username, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
		return
	}
	if err != nil {
		slog.Warn("login failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", requestID)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	api.Success(w, result, requestID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity, _ := middleware.GetUser(r.Context())
	emp, err := h.Service.Directory.GetEmployee(r.Context(), identity.EmployeeID)
	if err != nil {
		slog.Warn("me lookup failed", "err", err, "employeeId", identity.EmployeeID)
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
		return
	}
	api.Success(w, map[string]any{"identity": identity, "employee": emp}, requestID)
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity, _ := middleware.GetUser(r.Context())
	var payload changePasswordRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}

	v := shared.NewValidator()
	v.Required("oldPassword", payload.OldPassword, "is required")
	v.Required("newPassword", payload.NewPassword, "is required")
	if v.Reject(w, requestID) {
		return
	}

	err := h.Service.ChangePassword(r.Context(), identity.EmployeeID, payload.OldPassword, payload.NewPassword)
	switch {
	case err == nil:
		api.Success(w, map[string]string{"status": "password_changed"}, requestID)
	case errors.Is(err, auth.ErrPasswordPolicy):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "newPassword", Reason: err.Error()}})
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "current password is incorrect", requestID)
	default:
		slog.Warn("change password failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "change_password_failed", "failed to change password", requestID)
	}
}
