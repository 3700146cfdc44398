package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"perfreview/internal/domain/auth"
	"perfreview/internal/domain/directory"
	"perfreview/internal/requestctx"
)

const DefaultMaxRetries = 5

type Service struct {
	Store      Store
	Directory  Directory
	MaxRetries int
	Observer   Observer
	Now        func() time.Time
}

func NewService(store Store, dir Directory, maxRetries int, observer Observer) *Service {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Service{
		Store:      store,
		Directory:  dir,
		MaxRetries: maxRetries,
		Observer:   observer,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit authorizes every present category and then merges them into the
// (target, period) record in one unit of work, retrying lost races.
func (s *Service) Submit(ctx context.Context, caller auth.Identity, req SubmitRequest) (Record, error) {
	rec, err := s.submit(ctx, caller, req)
	if errors.Is(err, ErrStore) {
		slog.Warn("assessment submit failed", append(requestctx.LogAttrs(ctx),
			"employeeId", req.TargetID, "periodId", req.PeriodID, "err", err)...)
	}
	s.observe(outcomeOf(err))
	return rec, err
}

func (s *Service) submit(ctx context.Context, caller auth.Identity, req SubmitRequest) (Record, error) {
	if err := req.Validate(); err != nil {
		return Record{}, err
	}
	if _, err := s.employee(ctx, caller.EmployeeID); err != nil {
		return Record{}, err
	}
	target, err := s.employee(ctx, req.TargetID)
	if err != nil {
		return Record{}, err
	}
	if err := s.period(ctx, req.PeriodID); err != nil {
		return Record{}, err
	}

	perms := ResolveWrite(caller, target)
	if err := perms.Authorize(req.Submission); err != nil {
		return Record{}, err
	}
	if req.Submission.Empty() && !perms.Any() {
		return Record{}, ErrNoPermission
	}

	for attempt := 0; ; attempt++ {
		rec, err := s.submitOnce(ctx, req)
		if errors.Is(err, ErrConflict) && attempt < s.MaxRetries && ctx.Err() == nil {
			slog.Debug("assessment submit conflict, retrying", append(requestctx.LogAttrs(ctx),
				"employeeId", req.TargetID, "periodId", req.PeriodID, "attempt", attempt+1)...)
			if s.Observer != nil {
				s.Observer.ConflictRetry()
			}
			continue
		}
		return rec, err
	}
}

func (s *Service) submitOnce(ctx context.Context, req SubmitRequest) (Record, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Record{}, mapStoreError("begin", err)
	}

	current, found, err := tx.Get(ctx, req.TargetID, req.PeriodID)
	if err != nil {
		s.rollback(ctx, tx)
		return Record{}, mapStoreError("get", err)
	}
	if !found {
		if req.Submission.Empty() {
			s.rollback(ctx, tx)
			return Record{}, ErrNoPermission
		}
		current = Record{EmployeeID: req.TargetID, PeriodID: req.PeriodID}
	}

	merged := Merge(current, req.Submission, s.Now())
	saved, err := tx.Save(ctx, merged, current.Version)
	if err != nil {
		s.rollback(ctx, tx)
		return Record{}, mapStoreError("save", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Record{}, mapStoreError("commit", err)
	}
	return saved, nil
}

func (s *Service) rollback(ctx context.Context, tx Tx) {
	if err := tx.Rollback(ctx); err != nil {
		slog.Warn("assessment rollback failed", append(requestctx.LogAttrs(ctx), "err", err)...)
	}
}

// Get returns one record when caller may view target.
func (s *Service) Get(ctx context.Context, caller auth.Identity, employeeID string, periodID int64) (Record, error) {
	if err := s.authorizeView(ctx, caller, employeeID); err != nil {
		return Record{}, err
	}
	rec, found, err := s.Store.Get(ctx, employeeID, periodID)
	if err != nil {
		return Record{}, mapStoreError("get", err)
	}
	if !found {
		return Record{}, fmt.Errorf("%w: no assessment for %s in period %d", ErrNotFound, employeeID, periodID)
	}
	return rec, nil
}

// ListForEmployee returns every period's record for employeeID.
func (s *Service) ListForEmployee(ctx context.Context, caller auth.Identity, employeeID string) ([]Record, error) {
	if err := s.authorizeView(ctx, caller, employeeID); err != nil {
		return nil, err
	}
	records, err := s.Store.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, mapStoreError("list", err)
	}
	return records, nil
}

// Search lists the period's records for employees matching req. A system
// admin sees everyone; other callers see only the employees they lead or
// judge, which is the same set ResolveView grants.
func (s *Service) Search(ctx context.Context, caller auth.Identity, req SearchRequest) (SearchPage, error) {
	if err := req.Validate(); err != nil {
		return SearchPage{}, err
	}
	if _, err := s.employee(ctx, caller.EmployeeID); err != nil {
		return SearchPage{}, err
	}
	if err := s.period(ctx, req.PeriodID); err != nil {
		return SearchPage{}, err
	}

	query := directory.EmployeeQuery{
		DepartmentID: req.DepartmentID,
		LeaderID:     req.LeaderID,
		TopLeaderID:  req.TopLeaderID,
		Name:         req.Name,
		EmployeeID:   req.EmployeeID,
		Limit:        req.Limit,
		Offset:       req.Offset,
	}
	if !caller.IsSA {
		query.RelatedTo = caller.EmployeeID
	}
	employees, err := s.Directory.SearchEmployees(ctx, query)
	if err != nil {
		return SearchPage{}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	ids := make([]string, 0, len(employees.Employees))
	for _, emp := range employees.Employees {
		ids = append(ids, emp.ID)
	}
	records, err := s.Store.ListByPeriod(ctx, req.PeriodID, ids)
	if err != nil {
		return SearchPage{}, mapStoreError("list", err)
	}
	byEmployee := make(map[string]Record, len(records))
	for _, rec := range records {
		byEmployee[rec.EmployeeID] = rec
	}

	page := SearchPage{
		PeriodID: req.PeriodID,
		Items:    make([]SearchResult, 0, len(employees.Employees)),
		Total:    employees.Total,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	for _, emp := range employees.Employees {
		item := SearchResult{Employee: emp.Summary()}
		if rec, ok := byEmployee[emp.ID]; ok {
			summary := rec.Summary()
			item.Record = &summary
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

func (s *Service) ResolveViewPermission(ctx context.Context, caller auth.Identity, targetID string) (ViewPermission, error) {
	if _, err := s.employee(ctx, caller.EmployeeID); err != nil {
		return ViewPermission{}, err
	}
	target, err := s.employee(ctx, targetID)
	if err != nil {
		return ViewPermission{}, err
	}
	return ResolveView(caller, target), nil
}

// ResolveWritePermissions exposes the write matrix for worklist rendering.
func (s *Service) ResolveWritePermissions(ctx context.Context, caller auth.Identity, targetID string) (WritePermissions, error) {
	if _, err := s.employee(ctx, caller.EmployeeID); err != nil {
		return WritePermissions{}, err
	}
	target, err := s.employee(ctx, targetID)
	if err != nil {
		return WritePermissions{}, err
	}
	return ResolveWrite(caller, target), nil
}

// ListSubordinates returns the employees callerID leads or judges, once each.
func (s *Service) ListSubordinates(ctx context.Context, callerID string) ([]directory.Summary, error) {
	if _, err := s.employee(ctx, callerID); err != nil {
		return nil, err
	}
	employees, err := s.Directory.SubordinatesAndJudged(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	employees = directory.DedupeByID(employees)
	out := make([]directory.Summary, 0, len(employees))
	for _, emp := range employees {
		out = append(out, emp.Summary())
	}
	return out, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.Store.Ping(ctx)
}

func (s *Service) authorizeView(ctx context.Context, caller auth.Identity, targetID string) error {
	perm, err := s.ResolveViewPermission(ctx, caller, targetID)
	if err != nil {
		return err
	}
	if !perm.HasPermission {
		return ErrNoPermission
	}
	return nil
}

func (s *Service) employee(ctx context.Context, employeeID string) (directory.Employee, error) {
	emp, err := s.Directory.GetEmployee(ctx, employeeID)
	if err == nil {
		return emp, nil
	}
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		return directory.Employee{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return directory.Employee{}, fmt.Errorf("%w: %w", ErrStore, err)
}

func (s *Service) period(ctx context.Context, periodID int64) error {
	_, err := s.Directory.GetPeriod(ctx, periodID)
	if err == nil {
		return nil
	}
	if errors.Is(err, directory.ErrPeriodNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrStore, err)
}

func (s *Service) observe(outcome string) {
	if s.Observer != nil {
		s.Observer.SubmissionOutcome(outcome)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, ErrValidation):
		return OutcomeInvalid
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	case errors.Is(err, ErrNoPermission):
		return OutcomeNoPermission
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeStoreError
	}
}
