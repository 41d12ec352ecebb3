package memorystore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/servxpert/authcore/core"
)

// IdentityStore keeps identities in memory, for tests and single-process dev.
type IdentityStore struct {
	mu   sync.Mutex
	byID map[string]*core.Identity
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{byID: make(map[string]*core.Identity)}
}

func (s *IdentityStore) FindByDestination(ctx context.Context, destination string, method core.Method) (*core.Identity, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.byID {
		if matchesDestination(id, destination, method) {
			return cloneIdentity(id), nil
		}
	}
	return nil, nil
}

func (s *IdentityStore) FindByID(ctx context.Context, id string) (*core.Identity, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity, ok := s.byID[id]; ok {
		return cloneIdentity(identity), nil
	}
	return nil, nil
}

func (s *IdentityStore) CreateShell(ctx context.Context, destination string, method core.Method) (*core.Identity, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if matchesDestination(existing, destination, method) {
			return nil, fmt.Errorf("identity already exists for %s", destination)
		}
	}
	now := time.Now()
	identity := &core.Identity{
		ID:        uuid.NewString(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch method {
	case core.MethodPhone:
		d := destination
		identity.Phone = &d
	case core.MethodEmail:
		d := destination
		identity.Email = &d
	}
	s.byID[identity.ID] = identity
	return cloneIdentity(identity), nil
}

func (s *IdentityStore) Provision(ctx context.Context, id string, profile core.SignupProfile) (*core.Identity, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("identity %s not found", id)
	}
	name := profile.Name
	role := profile.Role
	identity.Name = &name
	identity.Role = &role
	if profile.SecondaryEmail != "" && identity.Email == nil {
		e := profile.SecondaryEmail
		identity.Email = &e
	}
	if profile.SecondaryPhone != "" && identity.Phone == nil {
		p := profile.SecondaryPhone
		identity.Phone = &p
	}
	identity.UpdatedAt = time.Now()
	return cloneIdentity(identity), nil
}

func (s *IdentityStore) SetRole(ctx context.Context, id string, role core.Role) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("identity %s not found", id)
	}
	identity.Role = &role
	identity.UpdatedAt = time.Now()
	return nil
}

func (s *IdentityStore) TouchLastLogin(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity, ok := s.byID[id]; ok {
		now := time.Now()
		identity.LastLogin = &now
	}
	return nil
}

func matchesDestination(id *core.Identity, destination string, method core.Method) bool {
	switch method {
	case core.MethodPhone:
		return id.Phone != nil && *id.Phone == destination
	case core.MethodEmail:
		return id.Email != nil && *id.Email == destination
	}
	return false
}

func cloneIdentity(id *core.Identity) *core.Identity {
	c := *id
	return &c
}
