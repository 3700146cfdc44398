package assessment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("not authorized")
	ErrNoPermission = errors.New("no permission to create or modify this record")
	ErrConflict     = errors.New("concurrent modification")
	ErrStore        = errors.New("assessment store failure")
)

type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) add(field, reason string) {
	e.Issues = append(e.Issues, FieldIssue{Field: field, Reason: reason})
}

// AuthorizationError names every submitted category the caller may not write.
type AuthorizationError struct {
	Categories []Category
}

func (e *AuthorizationError) Error() string {
	names := make([]string, 0, len(e.Categories))
	for _, c := range e.Categories {
		names = append(names, string(c))
	}
	return "not authorized to write " + strings.Join(names, ", ")
}

func (e *AuthorizationError) Unwrap() error { return ErrForbidden }

// mapStoreError folds pgx failures into ErrConflict or ErrStore.
func mapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrStore) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
