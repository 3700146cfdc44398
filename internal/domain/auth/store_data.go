package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"perfreview/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) FindByUsername(ctx context.Context, username string) (Credential, error) {
	return s.findOne(ctx, "username", username)
}

func (s *Store) FindByEmployeeID(ctx context.Context, employeeID string) (Credential, error) {
	return s.findOne(ctx, "employee_id", employeeID)
}

func (s *Store) findOne(ctx context.Context, column, value string) (Credential, error) {
	var cred Credential
	err := s.DB.QueryRow(ctx, `
    SELECT username, employee_id, password_hash, updated_at
    FROM user_credentials
    WHERE `+column+` = $1
  `, value).Scan(&cred.Username, &cred.EmployeeID, &cred.PasswordHash, &cred.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credential{}, ErrCredentialNotFound
	}
	if err != nil {
		return Credential{}, err
	}
	return cred, nil
}

func (s *Store) UpsertCredential(ctx context.Context, cred Credential) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO user_credentials (username, employee_id, password_hash, updated_at)
    VALUES ($1, $2, $3, now())
    ON CONFLICT (username) DO UPDATE
    SET employee_id = EXCLUDED.employee_id,
        password_hash = EXCLUDED.password_hash,
        updated_at = now()
  `, cred.Username, cred.EmployeeID, cred.PasswordHash)
	return err
}

func (s *Store) UpdatePasswordHash(ctx context.Context, employeeID, hash string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE user_credentials SET password_hash = $1, updated_at = now()
    WHERE employee_id = $2
  `, hash, employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrCredentialNotFound, employeeID)
	}
	return nil
}
