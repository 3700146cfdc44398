package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type MemoryStore struct {
	mu          sync.RWMutex
	byUsername  map[string]Credential
	usernameFor map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUsername:  map[string]Credential{},
		usernameFor: map[string]string{},
	}
}

func (m *MemoryStore) FindByUsername(_ context.Context, username string) (Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.byUsername[username]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return cred, nil
}

func (m *MemoryStore) FindByEmployeeID(ctx context.Context, employeeID string) (Credential, error) {
	m.mu.RLock()
	username, ok := m.usernameFor[employeeID]
	m.mu.RUnlock()
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return m.FindByUsername(ctx, username)
}

func (m *MemoryStore) UpsertCredential(_ context.Context, cred Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if previous, ok := m.byUsername[cred.Username]; ok && previous.EmployeeID != cred.EmployeeID {
		delete(m.usernameFor, previous.EmployeeID)
	}
	cred.UpdatedAt = time.Now().UTC()
	m.byUsername[cred.Username] = cred
	m.usernameFor[cred.EmployeeID] = cred.Username
	return nil
}

func (m *MemoryStore) UpdatePasswordHash(_ context.Context, employeeID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	username, ok := m.usernameFor[employeeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCredentialNotFound, employeeID)
	}
	cred := m.byUsername[username]
	cred.PasswordHash = hash
	cred.UpdatedAt = time.Now().UTC()
	m.byUsername[username] = cred
	return nil
}
