package services

import (
	"testing"

	"github.com/google/uuid"

	"survey-service/internal/models"
)

func jwtFixture() (*JWTService, *models.User) {
	svc := NewJWTService(testConfig().JWT)
	user := &models.User{
		Email:        "u@example.com",
		Role:         models.RoleEncargado,
		TokenVersion: 3,
	}
	user.ID = uuid.New()
	return svc, user
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, user := jwtFixture()

	token, err := svc.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := svc.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("user id mismatch: %s != %s", claims.UserID, user.ID)
	}
	if claims.Role != models.RoleEncargado {
		t.Fatalf("role mismatch: %s", claims.Role)
	}
}

func TestRefreshTokenCarriesVersion(t *testing.T) {
	svc, user := jwtFixture()

	token, err := svc.GenerateRefreshToken(user)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	claims, err := svc.ValidateRefreshToken(token)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	if claims.Ver != 3 {
		t.Fatalf("expected version 3, got %d", claims.Ver)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	svc, user := jwtFixture()

	access, _ := svc.GenerateAccessToken(user)
	refresh, _ := svc.GenerateRefreshToken(user)

	if _, err := svc.ValidateAccessToken(refresh); err == nil {
		t.Fatal("refresh token accepted as access token")
	}
	if _, err := svc.ValidateRefreshToken(access); err == nil {
		t.Fatal("access token accepted as refresh token")
	}
}

func TestTokenSecretMismatch(t *testing.T) {
	svc, user := jwtFixture()
	token, _ := svc.GenerateAccessToken(user)

	other := testConfig().JWT
	other.AccessSecret = "different-secret"
	if _, err := NewJWTService(other).ValidateAccessToken(token); err == nil {
		t.Fatal("token accepted with the wrong secret")
	}
}
