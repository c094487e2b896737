package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asclep-health/asclep/internal/config"
	"github.com/asclep-health/asclep/internal/domain"
	"github.com/asclep-health/asclep/pkg/auth"
)

type fakeUserRepo struct {
	byEmail map[string]*domain.User
	byID    map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[uuid.UUID]*domain.User),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.byEmail[u.Email] = u
	r.byID[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *domain.User) error {
	r.byEmail[u.Email] = u
	r.byID[u.ID] = u
	return nil
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if u, ok := r.byID[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (r *fakeUserRepo) SavePushSubscription(_ context.Context, userID uuid.UUID, sub *domain.PushSubscription) error {
	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PushSubscription = sub
	return nil
}

func newTestAuthService(repo *fakeUserRepo) *AuthService {
	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "unit-test-secret-at-least-32-chars-long",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "asclep-test",
	})
	return NewAuthService(repo, jwtManager, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	user, err := svc.Register(context.Background(), "Pat Doe", "Pat@Example.com", "a-long-enough-password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "pat@example.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}
	if user.Role != domain.RoleMember {
		t.Errorf("role = %s, want member", user.Role)
	}
	if user.PasswordHash == "a-long-enough-password" {
		t.Fatal("password stored in plaintext")
	}

	pair, err := svc.Login(context.Background(), "pat@example.com", "a-long-enough-password", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("login returned an incomplete token pair")
	}

	if _, err := svc.Login(context.Background(), "pat@example.com", "wrong-password!!", "127.0.0.1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "a-long-enough-password", "127.0.0.1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	if _, err := svc.Register(context.Background(), "Pat", "pat@example.com", "a-long-enough-password"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "Pat Again", "pat@example.com", "another-long-password"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate Register: got %v, want ErrEmailTaken", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), "", "not-an-email", "short")
	var validErr *ValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("Register: got %v, want ValidationError", err)
	}
	if len(validErr.Fields) != 3 {
		t.Errorf("validation reported %d problems, want 3: %v", len(validErr.Fields), validErr.Fields)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	user, err := svc.Register(context.Background(), "Pat", "pat@example.com", "a-long-enough-password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	user.IsActive = false

	if _, err := svc.Login(context.Background(), "pat@example.com", "a-long-enough-password", "127.0.0.1"); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("inactive login: got %v, want ErrAccountInactive", err)
	}
}

func TestRefreshToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	if _, err := svc.Register(context.Background(), "Pat", "pat@example.com", "a-long-enough-password"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, err := svc.Login(context.Background(), "pat@example.com", "a-long-enough-password", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	fresh, err := svc.RefreshToken(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if fresh.AccessToken == "" {
		t.Fatal("refresh returned no access token")
	}

	if _, err := svc.RefreshToken(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("access token accepted for refresh: %v", err)
	}
}
