package accounts

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/accounts/repository"
	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockRepository struct {
	mu    sync.Mutex
	users []*domain.User
}

func (m *mockRepository) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	m.users = append(m.users, u)
	return nil
}

func (m *mockRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockRepository) ListUsers(context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.User(nil), m.users...), nil
}

func (m *mockRepository) CountCustomers(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.Role == domain.RoleCustomer {
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) RunMigrations(string) error { return nil }

func newTestService(t *testing.T) (*Service, *auth.Gate) {
	tokens, err := auth.NewTokens("secret", time.Hour)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(&mockRepository{}, tokens, logger,
		WithAdminEmails([]string{" Admin@Shop.test "}),
		WithBcryptCost(bcrypt.MinCost),
	)
	return svc, auth.NewGate(tokens)
}

func TestRegister_IssuesUsableToken(t *testing.T) {
	svc, gate := newTestService(t)

	sess, err := svc.Register(context.Background(), RegisterInput{Name: "Asha", Email: "Asha@Example.com", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, "asha@example.com", sess.User.Email)
	assert.Equal(t, domain.RoleCustomer, sess.User.Role)
	assert.NotEqual(t, "secret1", sess.User.PasswordHash)

	id, err := gate.Authenticate("Bearer " + sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, id.UserID)
}

func TestRegister_AdminEmail(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.Register(context.Background(), RegisterInput{Name: "Boss", Email: "admin@shop.test", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, sess.User.Role)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@b.c", Password: "secret1"}},
		{"bad email", RegisterInput{Name: "a", Email: "nope", Password: "secret1"}},
		{"short password", RegisterInput{Name: "a", Email: "a@b.c", Password: "12345"}},
		{"password over bcrypt limit", RegisterInput{Name: "a", Email: "a@b.c", Password: strings.Repeat("x", MaxPasswordBytes+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "dup@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "DUP@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegister_PasswordAtBcryptLimit(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "A", Email: "long@example.com", Password: strings.Repeat("x", MaxPasswordBytes),
	})
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	sess, err := svc.Login(ctx, "A@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, sess.User.ID)
	assert.NotEmpty(t, sess.Token)

	_, err = svc.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = svc.Login(ctx, "ghost@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestProfileAndListUsers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	customer, err := svc.Register(ctx, RegisterInput{Name: "C", Email: "c@example.com", Password: "secret1"})
	require.NoError(t, err)
	admin, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "admin@shop.test", Password: "secret1"})
	require.NoError(t, err)

	customerID := domain.Identity{UserID: customer.User.ID, Role: domain.RoleCustomer}
	adminID := domain.Identity{UserID: admin.User.ID, Role: domain.RoleAdmin}

	u, err := svc.Profile(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", u.Email)

	_, err = svc.Profile(ctx, domain.GuestIdentity)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = svc.ListUsers(ctx, customerID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	users, err := svc.ListUsers(ctx, adminID)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	n, err := svc.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
