package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/obs"
)

// Service registers users, exchanges credentials for tokens and resolves
// bearer tokens into tenant-bound principals.
type Service struct {
	users  UserStore
	hasher *Hasher
	issuer *Issuer

	dummyOnce sync.Once
	dummyHash string
}

// NewService wires the credential store, the hasher and the token issuer.
func NewService(users UserStore, hasher *Hasher, issuer *Issuer) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if hasher == nil {
		return nil, errors.New("auth: hasher is required")
	}
	if issuer == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	return &Service{users: users, hasher: hasher, issuer: issuer}, nil
}

// Register stores a new user with a hashed password. The user is not bound
// to any enterprise and cannot pass Authenticate until a member adds them.
func (s *Service) Register(ctx context.Context, in Registration) (PublicUser, error) {
	return s.create(ctx, "auth.register", in, 0)
}

// AddMember creates a user inside the caller's enterprise.
func (s *Service) AddMember(ctx context.Context, by Principal, in Registration) (PublicUser, error) {
	const op = "auth.add_member"
	if by.UserID <= 0 || by.EnterpriseID <= 0 {
		return PublicUser{}, apperr.Unauthorized(op, "caller is not bound to an enterprise")
	}
	return s.create(ctx, op, in, by.EnterpriseID)
}

func (s *Service) create(ctx context.Context, op string, in Registration, enterpriseID int64) (PublicUser, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return PublicUser{}, apperr.BadRequest(op, "name, email and password are required")
	}
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return PublicUser{}, err
	}
	user := &User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: digest,
		EnterpriseID: enterpriseID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return PublicUser{}, apperr.Persistence(op, err)
	}
	_ = audit.LogEvent(ctx, op+".succeeded", map[string]any{
		"user_id":       user.ID,
		"email":         user.Email,
		"enterprise_id": user.EnterpriseID,
	})
	return user.Public(), nil
}

// Login verifies the password for email and issues an access token. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	const op = "auth.login"
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, s.loginFailed(ctx, email, "missing_credentials", ErrInvalidCredentials)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// Keep timing close to the known-user path.
			_, _ = s.hasher.Verify(password, s.fallbackHash())
			return LoginResult{}, s.loginFailed(ctx, email, "unknown_email", ErrInvalidCredentials)
		}
		return LoginResult{}, s.loginFailed(ctx, email, "error", apperr.Persistence(op, err))
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		obs.LoggerFrom(ctx).Error("stored password hash is unreadable",
			zap.Int64("user_id", user.ID), zap.Error(err))
		return LoginResult{}, s.loginFailed(ctx, email, "error", err)
	}
	if !ok {
		return LoginResult{}, s.loginFailed(ctx, email, "wrong_password", ErrInvalidCredentials)
	}

	tok, err := s.issuer.Issue(Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return LoginResult{}, s.loginFailed(ctx, email, "error", err)
	}
	obs.ObserveLogin("success")
	_ = audit.LogEvent(ctx, "auth.login.succeeded", map[string]any{
		"user_id":       user.ID,
		"email":         user.Email,
		"enterprise_id": user.EnterpriseID,
	})
	return LoginResult{
		AccessToken: tok.Value,
		TokenType:   "Bearer",
		ExpiresAt:   tok.ExpiresAt,
		User:        user.Public(),
	}, nil
}

// VerifyToken checks a bearer token without touching storage.
func (s *Service) VerifyToken(token string) (Identity, error) {
	return s.issuer.Verify(token)
}

// Authenticate verifies token and loads the user to resolve its enterprise.
// A token for a user that no longer exists is treated as invalid.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	const op = "auth.authenticate"
	id, err := s.issuer.Verify(token)
	if err != nil {
		return Principal{}, err
	}
	user, err := s.users.Find(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, apperr.Persistence(op, err)
	}
	if user.EnterpriseID <= 0 {
		return Principal{}, ErrNoTenant
	}
	return Principal{
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		EnterpriseID: user.EnterpriseID,
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, email, reason string, err error) error {
	result := "failure"
	if reason == "error" {
		result = "error"
	}
	obs.ObserveLogin(result)
	_ = audit.LogEvent(ctx, "auth.login.failed", map[string]any{
		"email":  email,
		"reason": reason,
	})
	return err
}

func (s *Service) fallbackHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("smartlotto-login-placeholder")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
