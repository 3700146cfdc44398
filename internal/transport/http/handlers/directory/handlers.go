package directoryhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"perfreview/internal/domain/audit"
	"perfreview/internal/domain/directory"
	"perfreview/internal/transport/http/api"
	"perfreview/internal/transport/http/middleware"
	"perfreview/internal/transport/http/shared"
)

type Handler struct {
	Service *directory.Service
	Audit   *audit.Service
}

// NewHandler wires the directory routes. auditLog may be nil.
func NewHandler(service *directory.Service, auditLog *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditLog}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/employees/{employeeID}", h.handleGetEmployee)
	r.Get("/departments", h.handleListDepartments)
	r.Get("/product-lines", h.handleListProductLines)
	r.Route("/periods", func(r chi.Router) {
		r.Get("/", h.handleListPeriods)
		r.With(middleware.RequireSuperAdmin).Post("/", h.handleCreatePeriod)
		r.Get("/{periodID}", h.handleGetPeriod)
	})
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		slog.Warn("employee lookup failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_lookup_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Service.ListDepartments(r.Context())
	if err != nil {
		slog.Warn("department list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "department_list_failed", "failed to list departments", middleware.GetRequestID(r.Context()))
		return
	}
	if departments == nil {
		departments = []directory.Department{}
	}
	api.Success(w, departments, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListProductLines(w http.ResponseWriter, r *http.Request) {
	products, err := h.Service.ListProductLines(r.Context())
	if err != nil {
		slog.Warn("product line list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "product_line_list_failed", "failed to list product lines", middleware.GetRequestID(r.Context()))
		return
	}
	if products == nil {
		products = []directory.ProductLine{}
	}
	api.Success(w, products, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	var departmentID int64
	if raw := r.URL.Query().Get("departmentId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "departmentId", Reason: "must be a non-negative integer"}})
			return
		}
		departmentID = parsed
	}

	periods, err := h.Service.ListPeriods(r.Context(), departmentID)
	if err != nil {
		slog.Warn("period list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "period_list_failed", "failed to list periods", middleware.GetRequestID(r.Context()))
		return
	}
	if periods == nil {
		periods = []directory.Period{}
	}
	api.Success(w, periods, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "periodId", Reason: "must be an integer"}})
		return
	}
	period, err := h.Service.GetPeriod(r.Context(), periodID)
	if errors.Is(err, directory.ErrPeriodNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "assessment period not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		slog.Warn("period lookup failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "period_lookup_failed", "failed to load period", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name               string          `json:"name"`
		ScoreRule          string          `json:"scoreRule"`
		Criteria           json.RawMessage `json:"criteria"`
		Deadline           string          `json:"deadline"`
		ForcedDistribution bool            `json:"forcedDistribution"`
		PunishmentRule     json.RawMessage `json:"punishmentRule"`
		DepartmentID       int64           `json:"departmentId"`
	}
	requestID := middleware.GetRequestID(r.Context())
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	var deadline *time.Time
	if payload.Deadline != "" {
		if parsed, ok := v.Deadline("deadline", payload.Deadline); ok {
			deadline = &parsed
		}
	}
	if payload.DepartmentID < 0 {
		v.Add("departmentId", "must not be negative")
	}
	if v.Reject(w, requestID) {
		return
	}

	id, err := h.Service.CreatePeriod(r.Context(), directory.Period{
		Name:               payload.Name,
		ScoreRule:          payload.ScoreRule,
		Criteria:           payload.Criteria,
		Deadline:           deadline,
		ForcedDistribution: payload.ForcedDistribution,
		PunishmentRule:     payload.PunishmentRule,
		DepartmentID:       payload.DepartmentID,
	})
	if errors.Is(err, directory.ErrPeriodInvalid) {
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
		return
	}
	if err != nil {
		slog.Warn("period create failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "period_create_failed", "failed to create period", requestID)
		return
	}
	if h.Audit != nil {
		user, _ := middleware.GetUser(r.Context())
		entry := audit.Entry{
			ActorID:    user.EmployeeID,
			Action:     audit.ActionPeriodCreate,
			EntityType: audit.EntityPeriod,
			EntityID:   strconv.FormatInt(id, 10),
			RequestID:  requestID,
			IP:         middleware.ClientIP(r),
			After:      payload,
		}
		if err := h.Audit.Record(r.Context(), entry); err != nil {
			slog.Warn("audit period.create failed", "err", err, "periodId", id)
		}
	}
	api.Created(w, map[string]int64{"id": id}, requestID)
}
