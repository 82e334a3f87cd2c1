package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"matchmap/internal/domain/tenant"
	"matchmap/internal/domain/user"
	"matchmap/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memStore struct {
	mu          sync.Mutex
	users       map[string]user.User
	tenants     map[string]tenant.Tenant
	memberships map[uuid.UUID][]tenant.Membership
	createErr   error
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]user.User{},
		tenants:     map[string]tenant.Tenant{},
		memberships: map[uuid.UUID][]tenant.Membership{},
	}
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (m *memStore) GetByEmail(_ context.Context, email string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (m *memStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[email]
	return ok, nil
}

func (m *memStore) CreateAccount(_ context.Context, u user.User, t tenant.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.users[u.Email] = u
	m.tenants[t.Slug] = t
	m.memberships[u.ID] = append(m.memberships[u.ID], tenant.Membership{Tenant: t, UserID: u.ID, Role: tenant.RoleOwner})
	return nil
}

type memTenants struct {
	tenant.Repository
	store *memStore
}

func (t memTenants) SlugExists(_ context.Context, slug string) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	_, ok := t.store.tenants[slug]
	return ok, nil
}

func (t memTenants) ListMemberships(_ context.Context, userID uuid.UUID) ([]tenant.Membership, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.memberships[userID], nil
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, memTenants{store: store}, jwt.NewHMACService("secret", 7*24*time.Hour, "matchmap"), nil), store
}

func validSignup() SignupInput {
	return SignupInput{Email: " Owner@Example.com ", Password: "supersecret", Name: "Olivia Owner", CompanyName: "Müller GmbH"}
}

func TestSignup_CreatesAccountAndSession(t *testing.T) {
	svc, store := newTestService()

	sess, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", sess.User.Email)
	assert.Empty(t, sess.User.PasswordHash)
	assert.Equal(t, "mueller-gmbh", sess.TenantSlug)
	assert.NotEmpty(t, sess.Token)

	stored := store.users["owner@example.com"]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("supersecret")))
	assert.Equal(t, tenant.PlanStarter, store.tenants["mueller-gmbh"].Plan)
	require.Len(t, store.memberships[stored.ID], 1)
	assert.Equal(t, tenant.RoleOwner, store.memberships[stored.ID][0].Role)

	uid, err := svc.Authenticate(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, uid)
}

func TestSignup_SlugCollisionGetsSuffix(t *testing.T) {
	svc, store := newTestService()
	store.tenants["mueller-gmbh"] = tenant.Tenant{Slug: "mueller-gmbh"}

	sess, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)
	assert.Regexp(t, `^mueller-gmbh-[a-z0-9]{4}$`, sess.TenantSlug)
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SignupInput)
	}{
		{name: "bad email", mutate: func(in *SignupInput) { in.Email = "not-an-email" }},
		{name: "short password", mutate: func(in *SignupInput) { in.Password = "short" }},
		{name: "short name", mutate: func(in *SignupInput) { in.Name = "O" }},
		{name: "short company", mutate: func(in *SignupInput) { in.CompanyName = " x " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			in := validSignup()
			tt.mutate(&in)
			_, err := svc.Signup(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	in := validSignup()
	in.CompanyName = "Other Co"
	_, err = svc.Signup(context.Background(), in)
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
}

func TestSignup_RaceOnEmailMapsToConflict(t *testing.T) {
	svc, store := newTestService()
	store.createErr = user.ErrEmailTaken

	_, err := svc.Signup(context.Background(), validSignup())
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)

	store.createErr = errors.New("connection reset")
	_, err = svc.Signup(context.Background(), validSignup())
	assert.ErrorIs(t, err, ErrInternal)
}

func TestSignin(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	sess, err := svc.Signin(context.Background(), SigninInput{Email: "OWNER@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, "mueller-gmbh", sess.TenantSlug)
	assert.NotEmpty(t, sess.Token)

	_, err = svc.Signin(context.Background(), SigninInput{Email: "owner@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Signin(context.Background(), SigninInput{Email: "nobody@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_RejectsGarbage(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Authenticate("")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Authenticate("abc.def.ghi")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
