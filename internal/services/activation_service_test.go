package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"survey-service/internal/config"
	"survey-service/internal/events"
	"survey-service/internal/metrics"
	"survey-service/internal/models"
	"survey-service/internal/providers"
	"survey-service/internal/repository"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.WhitelistEntry{},
		&models.ActivationCode{},
		&models.ActivationAuditLog{},
		&models.AdminAuditLog{},
		&models.Survey{},
		&models.SurveyVersion{},
		&models.Question{},
		&models.AnswerOption{},
		&models.Assignment{},
		&models.SurveyResponse{},
		&models.QuestionAnswer{},
		&models.Notification{},
		&models.Document{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:      "test-access-secret",
			RefreshSecret:     "test-refresh-secret",
			AccessExpiryMins:  30,
			RefreshExpiryDays: 7,
		},
		Activation: config.ActivationConfig{
			CodeLength:         6,
			DefaultExpiryHours: 72,
			RateLimitPerMinute: 10,
		},
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type fakeEmail struct {
	sent []string
	fail bool
}

func (f *fakeEmail) SendActivationEmail(ctx context.Context, recipient, fullName, code string, expiresAt time.Time, customMessage string) error {
	if f.fail {
		return errors.New("delivery failed")
	}
	f.sent = append(f.sent, recipient)
	return nil
}

func (f *fakeEmail) GetName() string { return "fake" }

func newActivationFixture(t *testing.T) (*ActivationService, *gorm.DB, *fakeEmail) {
	t.Helper()
	db := testDB(t)
	cfg := testConfig()
	logger := testLogger()
	email := &fakeEmail{}

	svc := NewActivationService(
		cfg,
		db,
		repository.NewActivationRepository(db),
		repository.NewWhitelistRepository(db),
		repository.NewUserRepository(db),
		repository.NewAuditRepository(db),
		email,
		providers.NewIDVerifier(config.IDCheckConfig{}, logger),
		events.NewPublisher("", logger),
		metrics.New(),
		NewJWTService(cfg.JWT),
		logger,
	)
	return svc, db, email
}

func seedWhitelist(t *testing.T, db *gorm.DB, identifier string, idType models.IdentifierType) *models.WhitelistEntry {
	t.Helper()
	entry := &models.WhitelistEntry{
		Identifier:     identifier,
		IdentifierType: idType,
		FullName:       "Ana Torres",
		AssignedRole:   models.RoleBrigadista,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to seed whitelist entry: %v", err)
	}
	return entry
}

func seedAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	hash, _ := HashPassword("admin-pass-1")
	admin := &models.User{
		Email:          "admin@example.com",
		HashedPassword: hash,
		FullName:       "Admin",
		Role:           models.RoleAdmin,
		IsActive:       true,
		TokenVersion:   1,
	}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}
	return admin
}

func rc() RequestContext {
	return RequestContext{IP: "203.0.113.7", UserAgent: "test-agent"}
}

func TestGenerateAndValidate(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "ana@example.com", models.IdentifierEmail)

	resp, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", resp.Code)
	}

	// Plaintext must not be persisted.
	var stored models.ActivationCode
	if err := db.First(&stored, "id = ?", resp.CodeID).Error; err != nil {
		t.Fatalf("failed to load stored code: %v", err)
	}
	if stored.CodeHash == resp.Code {
		t.Fatal("plaintext code was persisted")
	}

	out, err := svc.Validate(ctx, &models.ValidateCodeRequest{Code: resp.Code}, rc())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !out.Valid {
		t.Fatalf("expected valid, got error %q", out.Error)
	}
	if out.WhitelistEntry == nil || out.WhitelistEntry.FullName != "Ana Torres" {
		t.Fatal("expected redacted whitelist preview")
	}
	if out.WhitelistEntry.Identifier != "" {
		t.Fatal("validate must not reveal the identifier")
	}
}

func TestValidateUnknownCode(t *testing.T) {
	svc, _, _ := newActivationFixture(t)

	out, err := svc.Validate(context.Background(), &models.ValidateCodeRequest{Code: "000000"}, rc())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out.Valid {
		t.Fatal("expected invalid")
	}
	if out.Error != "Invalid activation code" {
		t.Fatalf("unexpected error message %q", out.Error)
	}
}

func TestValidateExpiredCode(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "ana@example.com", models.IdentifierEmail)

	resp, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 1,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	svc.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	out, err := svc.Validate(ctx, &models.ValidateCodeRequest{Code: resp.Code}, rc())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out.Valid {
		t.Fatal("expected invalid")
	}
	if out.Error != "Activation code expired" {
		t.Fatalf("unexpected error message %q", out.Error)
	}
}

func TestCompleteActivation(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "ana@example.com", models.IdentifierEmail)

	resp, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	out, err := svc.Complete(ctx, &models.CompleteActivationRequest{
		Code:       resp.Code,
		Identifier: "ana@example.com",
		Password:   "secret-pass1",
	}, rc())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.AccessToken == "" {
		t.Fatal("expected access token")
	}
	if out.User.Role != models.RoleBrigadista {
		t.Fatalf("expected brigadista role, got %s", out.User.Role)
	}

	var code models.ActivationCode
	if err := db.First(&code, "id = ?", resp.CodeID).Error; err != nil {
		t.Fatalf("failed to load code: %v", err)
	}
	if !code.IsUsed || code.Status != models.CodeStatusUsed || code.UsedByUserID == nil {
		t.Fatal("code was not finalized")
	}

	var updated models.WhitelistEntry
	if err := db.First(&updated, "id = ?", entry.ID).Error; err != nil {
		t.Fatalf("failed to load whitelist entry: %v", err)
	}
	if !updated.IsActivated || updated.ActivatedUserID == nil {
		t.Fatal("whitelist entry was not activated")
	}

	// A used code cannot be redeemed twice, nor revoked after the fact.
	if _, err := svc.Complete(ctx, &models.CompleteActivationRequest{
		Code:       resp.Code,
		Identifier: "ana@example.com",
		Password:   "secret-pass1",
	}, rc()); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode on second redemption, got %v", err)
	}
	if err := svc.Revoke(ctx, resp.CodeID, admin.ID, "cleanup", rc()); !errors.Is(err, ErrCodeAlreadyUsed) {
		t.Fatalf("expected ErrCodeAlreadyUsed revoking a used code, got %v", err)
	}
}

func TestCompleteWeakPassword(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "ana@example.com", models.IdentifierEmail)

	resp, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Long enough to pass request binding but missing a digit.
	if _, err := svc.Complete(ctx, &models.CompleteActivationRequest{
		Code:       resp.Code,
		Identifier: "ana@example.com",
		Password:   "aaaaaaaa",
	}, rc()); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	// The rejection must not consume the code or create an account.
	var code models.ActivationCode
	if err := db.First(&code, "id = ?", resp.CodeID).Error; err != nil {
		t.Fatalf("failed to load code: %v", err)
	}
	if code.IsUsed || code.Status != models.CodeStatusActive {
		t.Fatalf("code should stay redeemable, got status %s", code.Status)
	}
	var users int64
	if err := db.Model(&models.User{}).Where("email = ?", "ana@example.com").Count(&users).Error; err != nil {
		t.Fatalf("failed to count users: %v", err)
	}
	if users != 0 {
		t.Fatal("no account should exist after a rejected password")
	}

	out, err := svc.Complete(ctx, &models.CompleteActivationRequest{
		Code:       resp.Code,
		Identifier: "ana@example.com",
		Password:   "segura-clave9",
	}, rc())
	if err != nil {
		t.Fatalf("Complete with strong password: %v", err)
	}
	if out.AccessToken == "" {
		t.Fatal("expected access token")
	}
}

func TestValidateNormalizesSeparators(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "ana@example.com", models.IdentifierEmail)

	resp, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Codes copied from the email often arrive as "123 456" or "123-456".
	for _, typed := range []string{
		resp.Code[:3] + " " + resp.Code[3:],
		resp.Code[:3] + "-" + resp.Code[3:],
		"  " + resp.Code + "  ",
	} {
		out, err := svc.Validate(ctx, &models.ValidateCodeRequest{Code: typed}, rc())
		if err != nil {
			t.Fatalf("Validate(%q): %v", typed, err)
		}
		if !out.Valid {
			t.Fatalf("Validate(%q): expected valid, got %q", typed, out.Error)
		}
	}

	// A code that is not six digits after stripping never matches.
	out, err := svc.Validate(ctx, &models.ValidateCodeRequest{Code: "12-34-56-78"}, rc())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out.Valid || out.Error != "Invalid activation code" {
		t.Fatalf("expected invalid-code outcome, got %+v", out)
	}
	if _, err := svc.Complete(ctx, &models.CompleteActivationRequest{
		Code:       "abc def",
		Identifier: "ana@example.com",
		Password:   "segura-clave9",
	}, rc()); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for malformed code, got %v", err)
	}
}

func TestCompleteIdentifierCaseInsensitive(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "ana@example.com", models.IdentifierEmail)

	resp, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	out, err := svc.Complete(ctx, &models.CompleteActivationRequest{
		Code:       resp.Code,
		Identifier: "ANA@Example.COM",
		Password:   "secret-pass1",
	}, rc())
	if err != nil {
		t.Fatalf("Complete with case-shifted identifier: %v", err)
	}
	if out.User.Email != "ana@example.com" {
		t.Fatalf("expected lowercased email, got %q", out.User.Email)
	}
}

func TestCompleteLockoutAfterFiveMismatches(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "ana@example.com", models.IdentifierEmail)

	resp, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for i := 0; i < models.MaxActivationAttempts; i++ {
		_, err := svc.Complete(ctx, &models.CompleteActivationRequest{
			Code:       resp.Code,
			Identifier: "wrong@example.com",
			Password:   "secret-pass1",
		}, rc())
		if !errors.Is(err, ErrIdentifierMismatch) {
			t.Fatalf("attempt %d: expected ErrIdentifierMismatch, got %v", i+1, err)
		}
	}

	var code models.ActivationCode
	if err := db.First(&code, "id = ?", resp.CodeID).Error; err != nil {
		t.Fatalf("failed to load code: %v", err)
	}
	if code.ActivationAttempts != models.MaxActivationAttempts {
		t.Fatalf("expected %d attempts, got %d", models.MaxActivationAttempts, code.ActivationAttempts)
	}
	if code.DisplayStatus() != models.CodeStatusLocked {
		t.Fatalf("expected locked status, got %s", code.DisplayStatus())
	}

	// The sixth attempt is rejected before any hash comparison: the code is
	// no longer a redemption candidate, even with the correct identifier.
	if _, err := svc.Complete(ctx, &models.CompleteActivationRequest{
		Code:       resp.Code,
		Identifier: "ana@example.com",
		Password:   "secret-pass1",
	}, rc()); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode after lockout, got %v", err)
	}

	// Validate still identifies the code and reports the lock.
	out, err := svc.Validate(ctx, &models.ValidateCodeRequest{Code: resp.Code}, rc())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out.Valid || out.Error != "Activation code locked" {
		t.Fatalf("expected locked message, got valid=%v error=%q", out.Valid, out.Error)
	}
}

func TestValidateNeverIncrementsAttempts(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "ana@example.com", models.IdentifierEmail)

	resp, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := svc.Validate(ctx, &models.ValidateCodeRequest{Code: resp.Code}, rc()); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	}

	var code models.ActivationCode
	if err := db.First(&code, "id = ?", resp.CodeID).Error; err != nil {
		t.Fatalf("failed to load code: %v", err)
	}
	if code.ActivationAttempts != 0 {
		t.Fatalf("validate advanced the attempt counter to %d", code.ActivationAttempts)
	}
}

func TestRevokeAndExtend(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "ana@example.com", models.IdentifierEmail)

	resp, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	detail, err := svc.Extend(ctx, resp.CodeID, admin.ID, 24, rc())
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if detail.ExpiresAt.Sub(resp.ExpiresAt) != 24*time.Hour {
		t.Fatalf("expected 24h extension, got %v", detail.ExpiresAt.Sub(resp.ExpiresAt))
	}

	if err := svc.Revoke(ctx, resp.CodeID, admin.ID, "issued by mistake", rc()); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	var code models.ActivationCode
	if err := db.First(&code, "id = ?", resp.CodeID).Error; err != nil {
		t.Fatalf("failed to load code: %v", err)
	}
	if code.DisplayStatus() != models.CodeStatusRevoked {
		t.Fatalf("expected revoked, got %s", code.DisplayStatus())
	}

	// Revoked codes disappear from the validation scan entirely.
	out, err := svc.Validate(ctx, &models.ValidateCodeRequest{Code: resp.Code}, rc())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out.Valid || out.Error != "Invalid activation code" {
		t.Fatalf("expected invalid after revoke, got valid=%v error=%q", out.Valid, out.Error)
	}

	// Used-or-revoked codes reject further mutation.
	if err := svc.Revoke(ctx, resp.CodeID, admin.ID, "twice", rc()); !errors.Is(err, ErrCodeRevoked) {
		t.Fatalf("expected ErrCodeRevoked, got %v", err)
	}
	if _, err := svc.Extend(ctx, resp.CodeID, admin.ID, 1, rc()); !errors.Is(err, ErrCodeRevoked) {
		t.Fatalf("expected ErrCodeRevoked on extend, got %v", err)
	}
}

func TestResendRevokesAndReissues(t *testing.T) {
	svc, db, email := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "ana@example.com", models.IdentifierEmail)

	first, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	second, err := svc.Resend(ctx, first.CodeID, admin.ID, "", rc())
	if err != nil {
		t.Fatalf("Resend: %v", err)
	}
	if !second.EmailSent {
		t.Fatal("expected resend email to be delivered")
	}
	if len(email.sent) != 1 || email.sent[0] != "ana@example.com" {
		t.Fatalf("unexpected recipients %v", email.sent)
	}

	var old models.ActivationCode
	if err := db.First(&old, "id = ?", first.CodeID).Error; err != nil {
		t.Fatalf("failed to load old code: %v", err)
	}
	if old.DisplayStatus() != models.CodeStatusRevoked {
		t.Fatalf("expected old code revoked, got %s", old.DisplayStatus())
	}

	out, err := svc.Validate(ctx, &models.ValidateCodeRequest{Code: second.Code}, rc())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !out.Valid {
		t.Fatalf("expected new code valid, got %q", out.Error)
	}
}

func TestResendRejectsNonEmailIdentifier(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "555-0101", models.IdentifierPhone)

	resp, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := svc.Resend(ctx, resp.CodeID, admin.ID, "", rc()); !errors.Is(err, ErrResendNotEmail) {
		t.Fatalf("expected ErrResendNotEmail, got %v", err)
	}
}

func TestGenerateRejectsActivatedEntry(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)
	entry := seedWhitelist(t, db, "ana@example.com", models.IdentifierEmail)

	userID := uuid.New()
	db.Model(entry).Updates(map[string]interface{}{
		"is_activated":      true,
		"activated_user_id": userID,
	})

	if _, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    entry.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc()); !errors.Is(err, ErrAlreadyActivated) {
		t.Fatalf("expected ErrAlreadyActivated, got %v", err)
	}
}

func TestStats(t *testing.T) {
	svc, db, _ := newActivationFixture(t)
	ctx := context.Background()
	admin := seedAdmin(t, db)

	first := seedWhitelist(t, db, "a@example.com", models.IdentifierEmail)
	seedWhitelist(t, db, "b@example.com", models.IdentifierEmail)

	resp, err := svc.Generate(ctx, &models.GenerateCodeRequest{
		WhitelistID:    first.ID,
		ExpiresInHours: 24,
	}, admin.ID, rc())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := svc.Complete(ctx, &models.CompleteActivationRequest{
		Code:       resp.Code,
		Identifier: "a@example.com",
		Password:   "secret-pass1",
	}, rc()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalWhitelistEntries != 2 || stats.ActivatedUsers != 1 || stats.PendingActivations != 1 {
		t.Fatalf("unexpected whitelist stats: %+v", stats)
	}
	if stats.TotalCodesGenerated != 1 || stats.UsedCodes != 1 {
		t.Fatalf("unexpected code stats: %+v", stats)
	}
	if stats.ActivationRate != 0.5 {
		t.Fatalf("expected activation rate 0.5, got %v", stats.ActivationRate)
	}
}
