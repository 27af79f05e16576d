package subscription

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// InMemStore is a Store kept in process memory. It implements the same
// patch-merge semantics as the identity provider and is used by tests and
// local development.
type InMemStore struct {
	mu     sync.RWMutex
	users  map[string]User
	nextID int
}

// NewInMemStore returns an empty in-memory store.
func NewInMemStore() *InMemStore {
	return &InMemStore{users: make(map[string]User)}
}

// Seed inserts a user verbatim, returning it. Tests only.
func (s *InMemStore) Seed(u User) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		s.nextID++
		u.ID = fmt.Sprintf("user|%06d", s.nextID)
	}
	u.Email = strings.ToLower(u.Email)
	s.users[u.ID] = u
	return u
}

func (s *InMemStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	out := u
	return &out, nil
}

func (s *InMemStore) GetUsersByEmail(ctx context.Context, email string) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	var out []User
	for _, u := range s.users {
		if u.Email == email {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *InMemStore) CreateUser(ctx context.Context, email string, meta Metadata) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u := User{
		ID:       fmt.Sprintf("user|%06d", s.nextID),
		Email:    strings.ToLower(email),
		Metadata: meta,
	}
	s.users[u.ID] = u
	out := u
	return &out, nil
}

func (s *InMemStore) UpdateUserMetadata(ctx context.Context, id string, patch Patch) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	merged, err := patch.ApplyTo(u.Metadata)
	if err != nil {
		return nil, err
	}
	u.Metadata = merged
	s.users[id] = u
	out := u
	return &out, nil
}
