package assessmenthandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"perfreview/internal/domain/assessment"
	"perfreview/internal/domain/audit"
	"perfreview/internal/domain/auth"
	"perfreview/internal/transport/http/api"
	"perfreview/internal/transport/http/middleware"
	"perfreview/internal/transport/http/shared"
)

type Handler struct {
	Service *assessment.Service
	Audit   *audit.Service
}

// NewHandler wires the assessment routes. auditLog may be nil.
func NewHandler(service *assessment.Service, auditLog *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditLog}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/assessments", func(r chi.Router) {
		r.Get("/", h.handleSearch)
		r.Post("/", h.handleSubmit)
		r.Get("/{employeeID}", h.handleListForEmployee)
		r.Get("/{employeeID}/{periodID}", h.handleGet)
	})
	r.Get("/employees/{employeeID}/view-permission", h.handleViewPermission)
	r.Get("/employees/{employeeID}/write-permission", h.handleWritePermission)
	r.Get("/subordinates", h.handleListSubordinates)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var payload assessment.SubmitRequest
	if !shared.DecodeJSON(w, r, &payload, middleware.GetRequestID(r.Context())) {
		return
	}

	rec, err := h.Service.Submit(r.Context(), caller, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Audit != nil {
		entry := audit.Entry{
			ActorID:    caller.EmployeeID,
			Action:     audit.ActionAssessmentSubmit,
			EntityType: audit.EntityAssessmentRecord,
			EntityID:   rec.ID,
			RequestID:  middleware.GetRequestID(r.Context()),
			IP:         middleware.ClientIP(r),
			After:      map[string]any{"categories": payload.Submission.Categories(), "record": rec},
		}
		if err := h.Audit.Record(r.Context(), entry); err != nil {
			slog.Warn("audit assessment.submit failed", "err", err, "recordId", rec.ID)
		}
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	var issues []shared.ValidationIssue
	periodID, err := strconv.ParseInt(query.Get("periodId"), 10, 64)
	if err != nil || periodID <= 0 {
		issues = append(issues, shared.ValidationIssue{Field: "periodId", Reason: "must be a positive id"})
	}
	var departmentID int64
	if raw := query.Get("departmentId"); raw != "" {
		departmentID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || departmentID < 0 {
			issues = append(issues, shared.ValidationIssue{Field: "departmentId", Reason: "must be a non-negative id"})
		}
	}
	if len(issues) > 0 {
		shared.FailValidation(w, requestID, issues)
		return
	}

	page := shared.ParsePagination(r, assessment.DefaultSearchLimit, assessment.MaxSearchLimit)
	result, err := h.Service.Search(r.Context(), caller, assessment.SearchRequest{
		PeriodID:     periodID,
		DepartmentID: departmentID,
		LeaderID:     query.Get("leaderId"),
		TopLeaderID:  query.Get("topLeaderId"),
		Name:         query.Get("name"),
		EmployeeID:   query.Get("employeeId"),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, result, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil || periodID <= 0 {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "periodId", Reason: "must be a positive id"}})
		return
	}

	rec, err := h.Service.Get(r.Context(), caller, chi.URLParam(r, "employeeID"), periodID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListForEmployee(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	records, err := h.Service.ListForEmployee(r.Context(), caller, chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []assessment.Record{}
	}
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleViewPermission(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	perm, err := h.Service.ResolveViewPermission(r.Context(), caller, chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, perm, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleWritePermission(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	perms, err := h.Service.ResolveWritePermissions(r.Context(), caller, chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, perms, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListSubordinates(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	summaries, err := h.Service.ListSubordinates(r.Context(), caller.EmployeeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, summaries, middleware.GetRequestID(r.Context()))
}

func requireCaller(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	caller, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
	}
	return caller, ok
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var verr *assessment.ValidationError
	if errors.As(err, &verr) {
		issues := make([]shared.ValidationIssue, 0, len(verr.Issues))
		for _, issue := range verr.Issues {
			issues = append(issues, shared.ValidationIssue{Field: issue.Field, Reason: issue.Reason})
		}
		shared.FailValidation(w, requestID, issues)
		return
	}
	var authErr *assessment.AuthorizationError
	if errors.As(err, &authErr) {
		api.FailWithDetails(w, http.StatusForbidden, "forbidden", authErr.Error(),
			map[string]any{"categories": authErr.Categories}, requestID)
		return
	}

	switch {
	case errors.Is(err, assessment.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, assessment.ErrNoPermission):
		api.Fail(w, http.StatusForbidden, "no_permission", "no permission for this assessment", requestID)
	case errors.Is(err, assessment.ErrConflict):
		api.Fail(w, http.StatusConflict, "conflict", "assessment was modified concurrently, retry the request", requestID)
	default:
		slog.Warn("assessment request failed", "err", err, "path", r.URL.Path, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "store_error", "assessment store failure", requestID)
	}
}
