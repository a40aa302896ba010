package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"smartlotto.org/internal/apperr"
)

type stubUserStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*User
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{byID: map[int64]*User{}}
}

func (s *stubUserStore) Find(_ context.Context, id int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, apperr.NotFound("stub.find", "user not found")
	}
	cp := *u
	return &cp, nil
}

func (s *stubUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("stub.find_by_email", "user not found")
}

func (s *stubUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Email == u.Email {
			return apperr.Conflict("stub.create", "email already registered")
		}
	}
	s.nextID++
	u.ID = s.nextID
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func newTestService(t *testing.T, clock *testClock) (*Service, *stubUserStore) {
	t.Helper()
	store := newStubUserStore()
	svc, err := NewService(store, NewHasher(bcrypt.MinCost), newTestIssuer(t, "test-secret", clock))
	require.NoError(t, err)
	return svc, store
}

func TestRegisterLoginScenario(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	svc, store := newTestService(t, clock)

	registered, err := svc.Register(ctx, Registration{
		Name: "Alice", Email: "alice@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	require.Zero(t, registered.EnterpriseID)
	store.byID[registered.ID].EnterpriseID = 1
	registered.EnterpriseID = 1
	require.NotZero(t, registered.ID)
	require.NotEqual(t, "secret1", store.byID[registered.ID].PasswordHash)

	res, err := svc.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.Equal(t, clock.now.Add(time.Hour), res.ExpiresAt)
	require.Equal(t, registered, res.User)

	clock.now = clock.now.Add(59 * time.Minute)
	principal, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, registered.ID, principal.UserID)
	require.Equal(t, int64(1), principal.EnterpriseID)

	clock.now = res.ExpiresAt
	_, err = svc.Authenticate(ctx, res.AccessToken)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	res, err = svc.Login(ctx, "alice@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Empty(t, res.AccessToken)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t, &testClock{now: time.Now()})
	_, err := svc.Login(context.Background(), "nobody@example.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginEmailIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &testClock{now: time.Now()})
	_, err := svc.Register(ctx, Registration{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "Alice@Example.com", "secret1")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestLoginCorruptStoredHash(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, &testClock{now: time.Now()})
	require.NoError(t, store.Create(ctx, &User{Email: "bob@example.com", Name: "Bob", PasswordHash: "garbage", EnterpriseID: 1}))

	_, err := svc.Login(ctx, "bob@example.com", "secret1")
	require.ErrorIs(t, err, apperr.ErrCrypto)
	require.NotErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &testClock{now: time.Now()})
	in := Registration{Name: "Alice", Email: "alice@example.com", Password: "secret1"}
	_, err := svc.Register(ctx, in)
	require.NoError(t, err)
	_, err = svc.Register(ctx, in)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newTestService(t, &testClock{now: time.Now()})
	_, err := svc.Register(context.Background(), Registration{Email: "a@b.c", Password: "x"})
	require.ErrorIs(t, err, apperr.ErrBadRequest)
	_, err = svc.Register(context.Background(), Registration{Name: "A", Email: " ", Password: "x"})
	require.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestRegisteredUserHasNoTenantAccess(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &testClock{now: time.Now()})
	_, err := svc.Register(ctx, Registration{Name: "Mallory", Email: "mallory@example.com", Password: "secret1"})
	require.NoError(t, err)

	res, err := svc.Login(ctx, "mallory@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, res.AccessToken)
	require.ErrorIs(t, err, ErrNoTenant)
}

func TestAddMemberBindsCallerEnterprise(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, &testClock{now: time.Now()})
	owner := Principal{UserID: 7, EnterpriseID: 2}

	added, err := svc.AddMember(ctx, owner, Registration{Name: "Bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, int64(2), added.EnterpriseID)
	require.Equal(t, int64(2), store.byID[added.ID].EnterpriseID)

	res, err := svc.Login(ctx, "bob@example.com", "secret1")
	require.NoError(t, err)
	principal, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, int64(2), principal.EnterpriseID)

	_, err = svc.AddMember(ctx, Principal{UserID: 7}, Registration{Name: "Eve", Email: "eve@example.com", Password: "secret1"})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = store.FindByEmail(ctx, "eve@example.com")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAuthenticateRejectsUserWithoutTenant(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Now()}
	svc, store := newTestService(t, clock)
	require.NoError(t, store.Create(ctx, &User{Email: "orphan@example.com", Name: "Orphan", PasswordHash: "x"}))

	tok, err := svc.issuer.Issue(Identity{UserID: 1, Email: "orphan@example.com"})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, tok.Value)
	require.ErrorIs(t, err, ErrNoTenant)
}

func TestAuthenticateRejectsVanishedUser(t *testing.T) {
	svc, _ := newTestService(t, &testClock{now: time.Now()})
	tok, err := svc.issuer.Issue(Identity{UserID: 99, Email: "ghost@example.com"})
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), tok.Value)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestContextWithPrincipal(t *testing.T) {
	p := Principal{UserID: 3, Email: "c@d.e", EnterpriseID: 2}
	ctx := ContextWithPrincipal(context.Background(), p)
	got, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, p, got)

	_, ok = PrincipalFromContext(context.Background())
	require.False(t, ok)
}
