package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"perfreview/internal/domain/directory"
)

type EmployeeLookup interface {
	GetEmployee(ctx context.Context, employeeID string) (directory.Employee, error)
}

type Service struct {
	Store     StoreAPI
	Directory EmployeeLookup
	Secret    string
	TTL       time.Duration
}

func NewService(store StoreAPI, dir EmployeeLookup, secret string, ttl time.Duration) *Service {
	return &Service{Store: store, Directory: dir, Secret: secret, TTL: ttl}
}

type LoginResult struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Identity  Identity          `json:"identity"`
	Employee  directory.Summary `json:"employee"`
}

// Login checks the password and issues a token carrying the employee's
// current role flags.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	cred, err := s.Store.FindByUsername(ctx, username)
	if errors.Is(err, ErrCredentialNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(cred.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	emp, err := s.Directory.GetEmployee(ctx, cred.EmployeeID)
	if err != nil {
		if errors.Is(err, directory.ErrEmployeeNotFound) {
			slog.Warn("credential points at missing employee", "employeeId", cred.EmployeeID)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	identity := IdentityOf(emp)
	token, expires, err := GenerateToken(s.Secret, identity, s.TTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{Token: token, ExpiresAt: expires, Identity: identity, Employee: emp.Summary()}, nil
}

func (s *Service) Authenticate(token string) (Identity, error) {
	claims, err := ParseToken(s.Secret, token)
	if err != nil {
		return Identity{}, err
	}
	return claims.Identity(), nil
}

func (s *Service) ChangePassword(ctx context.Context, employeeID, oldPassword, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	cred, err := s.Store.FindByEmployeeID(ctx, employeeID)
	if errors.Is(err, ErrCredentialNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if err := CheckPassword(cred.PasswordHash, oldPassword); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Store.UpdatePasswordHash(ctx, employeeID, hash)
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPasswordPolicy, MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: must be at most %d bytes", ErrPasswordPolicy, MaxPasswordLength)
	}
	return nil
}

func IdentityOf(emp directory.Employee) Identity {
	return Identity{EmployeeID: emp.ID, IsSA: emp.IsSA, IsRJ: emp.IsRJ, IsPJ: emp.IsPJ}
}
