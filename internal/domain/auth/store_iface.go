package auth

import "context"

type StoreAPI interface {
	FindByUsername(ctx context.Context, username string) (Credential, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (Credential, error)
	UpsertCredential(ctx context.Context, cred Credential) error
	UpdatePasswordHash(ctx context.Context, employeeID, hash string) error
}
