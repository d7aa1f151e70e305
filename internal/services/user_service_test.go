package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"survey-service/internal/models"
	"survey-service/internal/repository"
)

func newUserFixture(t *testing.T) (*UserService, *gorm.DB, *models.User) {
	t.Helper()
	db := testDB(t)
	svc := NewUserService(repository.NewUserRepository(db), repository.NewAuditRepository(db), testLogger())
	return svc, db, seedAdmin(t, db)
}

func TestUserDeactivationInvalidatesTokens(t *testing.T) {
	svc, db, admin := newUserFixture(t)
	ctx := context.Background()

	inactive := false
	info, err := svc.Update(ctx, admin.ID, admin.ID, &models.UpdateUserRequest{IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if info.IsActive {
		t.Fatal("user still active")
	}

	var reloaded models.User
	if err := db.First(&reloaded, "id = ?", admin.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if reloaded.TokenVersion != admin.TokenVersion+1 {
		t.Fatalf("expected token version bump, got %d", reloaded.TokenVersion)
	}

	// The change lands in the admin trail.
	entries, _, err := svc.ListAdminAudit(ctx, nil, "user_updated", 1, 10)
	if err != nil {
		t.Fatalf("ListAdminAudit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(entries))
	}
}

func TestUserDeleteIsSoft(t *testing.T) {
	svc, db, admin := newUserFixture(t)
	ctx := context.Background()

	hash, _ := HashPassword("target-pw-99")
	target := &models.User{
		Email:          "target@example.com",
		HashedPassword: hash,
		FullName:       "Target",
		Role:           models.RoleBrigadista,
		IsActive:       true,
		TokenVersion:   1,
	}
	if err := db.Create(target).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	if err := svc.Delete(ctx, target.ID, admin.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := svc.Get(ctx, target.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}

	// The row survives as a soft delete.
	var count int64
	db.Unscoped().Model(&models.User{}).Where("id = ?", target.ID).Count(&count)
	if count != 1 {
		t.Fatal("row was hard-deleted")
	}
}

func TestUserGetUnknown(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
