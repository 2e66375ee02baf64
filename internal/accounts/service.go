package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/accounts/repository"
	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Session is the result of a successful register or login.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	repo        repository.UserRepository
	tokens      *auth.Tokens
	adminEmails map[string]struct{}
	bcryptCost  int
	logger      *slog.Logger
}

type Option func(*Service)

// WithAdminEmails grants the admin role to accounts registered with one of
// the given addresses.
func WithAdminEmails(emails []string) Option {
	return func(s *Service) {
		for _, e := range emails {
			if e = normalizeEmail(e); e != "" {
				s.adminEmails[e] = struct{}{}
			}
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func NewService(repo repository.UserRepository, tokens *auth.Tokens, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		tokens:      tokens,
		adminEmails: make(map[string]struct{}),
		bcryptCost:  bcrypt.DefaultCost,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func (in RegisterInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewValidationError("name", "is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return domain.NewValidationError("email", "is not a valid address")
	}
	if len(in.Password) < MinPasswordLength {
		return domain.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if len(in.Password) > MaxPasswordBytes {
		return domain.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	email := normalizeEmail(in.Email)
	role := domain.RoleCustomer
	if _, ok := s.adminEmails[email]; ok {
		role = domain.RoleAdmin
	}

	u := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID, "role", u.Role)

	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "login rejected", "user_id", u.ID)
		return nil, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthenticated)
	}

	return s.issue(u)
}

func (s *Service) issue(u *domain.User) (*Session, error) {
	token, expires, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token, ExpiresAt: expires}, nil
}

// Profile returns the caller's own account.
func (s *Service) Profile(ctx context.Context, id domain.Identity) (*domain.User, error) {
	if err := auth.Authorize(id, domain.RoleCustomer); err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(ctx, id.UserID)
}

func (s *Service) ListUsers(ctx context.Context, id domain.Identity) ([]*domain.User, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) CountCustomers(ctx context.Context) (int, error) {
	return s.repo.CountCustomers(ctx)
}
