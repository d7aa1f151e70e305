package services

import (
	"context"
	"errors"
	"testing"

	"survey-service/internal/models"
	"survey-service/internal/repository"
)

func newAuthFixture(t *testing.T) (*AuthService, *models.User) {
	t.Helper()
	db := testDB(t)
	cfg := testConfig()
	svc := NewAuthService(repository.NewUserRepository(db), NewJWTService(cfg.JWT), testLogger())
	admin := seedAdmin(t, db)
	return svc, admin
}

func TestLogin(t *testing.T) {
	svc, admin := newAuthFixture(t)
	ctx := context.Background()

	out, err := svc.Login(ctx, &models.LoginRequest{Email: admin.Email, Password: "admin-pass-1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if out.User.Role != models.RoleAdmin {
		t.Fatalf("unexpected role %s", out.User.Role)
	}

	if _, err := svc.Login(ctx, &models.LoginRequest{Email: admin.Email, Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, &models.LoginRequest{Email: "ghost@example.com", Password: "whatever"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRefreshRotationRejectsReplay(t *testing.T) {
	svc, admin := newAuthFixture(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, &models.LoginRequest{Email: admin.Email, Password: "admin-pass-1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	rotated, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// Replaying the pre-rotation token must fail.
	if _, err := svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked on replay, got %v", err)
	}

	// The freshly rotated token still works.
	if _, err := svc.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("Refresh with rotated token: %v", err)
	}
}

func TestLogoutInvalidatesRefreshTokens(t *testing.T) {
	svc, admin := newAuthFixture(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, &models.LoginRequest{Email: admin.Email, Password: "admin-pass-1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, admin.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	svc, _ := newAuthFixture(t)

	if _, err := svc.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	db := testDB(t)
	cfg := testConfig()
	userRepo := repository.NewUserRepository(db)
	svc := NewAuthService(userRepo, NewJWTService(cfg.JWT), testLogger())

	hash, _ := HashPassword("disabled-pw1")
	user := &models.User{
		Email:          "off@example.com",
		HashedPassword: hash,
		FullName:       "Disabled",
		Role:           models.RoleBrigadista,
		IsActive:       false,
		TokenVersion:   1,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	if _, err := svc.Login(context.Background(), &models.LoginRequest{
		Email:    user.Email,
		Password: "disabled-pw1",
	}); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}
