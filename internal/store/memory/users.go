package memory

import (
	"context"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/auth"
)

type userStore struct{ db *Store }

func (s *userStore) Find(_ context.Context, id int64) (*auth.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.st.users[id]
	if !ok {
		return nil, apperr.NotFound("memory.user.find", "user not found")
	}
	return &u, nil
}

// FindByEmail matches the email exactly; lookups are case-sensitive.
func (s *userStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("memory.user.find_by_email", "user not found")
}

func (s *userStore) Create(_ context.Context, u *auth.User) error {
	const op = "memory.user.create"
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.st.users {
		if existing.Email == u.Email {
			return apperr.Conflict(op, "email already registered")
		}
	}
	if u.EnterpriseID != 0 {
		if _, ok := s.db.st.enterprises[u.EnterpriseID]; !ok {
			return apperr.Conflict(op, "enterprise does not exist")
		}
	}
	u.ID = s.db.st.next("user")
	u.CreatedAt = s.db.now().UTC()
	s.db.st.users[u.ID] = *u
	return nil
}
