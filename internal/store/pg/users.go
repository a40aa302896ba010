package pg

import (
	"context"
	"database/sql"

	"smartlotto.org/internal/auth"
)

type userStore struct{ db *sql.DB }

const userColumns = `user_id, user_email, user_name, password_hash, coalesce(enterprise_id, 0), created_at`

func (s *userStore) Find(ctx context.Context, id int64) (*auth.User, error) {
	return s.one(ctx, "pg.user.find", `select `+userColumns+` from users where user_id=$1`, id)
}

// FindByEmail is an exact, case-sensitive match.
func (s *userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.one(ctx, "pg.user.find_by_email", `select `+userColumns+` from users where user_email=$1`, email)
}

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	var enterprise any
	if u.EnterpriseID > 0 {
		enterprise = u.EnterpriseID
	}
	err := s.db.QueryRowContext(ctx, `
		insert into users(user_email, user_name, password_hash, enterprise_id)
		values ($1,$2,$3,$4)
		returning user_id, created_at
	`, u.Email, u.Name, u.PasswordHash, enterprise).Scan(&u.ID, &u.CreatedAt)
	return classify("pg.user.create", err)
}

func (s *userStore) one(ctx context.Context, op, query string, arg any) (*auth.User, error) {
	var u auth.User
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.EnterpriseID, &u.CreatedAt)
	if err != nil {
		return nil, classify(op, err)
	}
	return &u, nil
}
