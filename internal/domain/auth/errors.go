package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrPasswordPolicy     = errors.New("password does not meet policy")
)
