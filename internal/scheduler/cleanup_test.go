package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"survey-service/internal/events"
	"survey-service/internal/models"
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
		&models.WhitelistEntry{},
		&models.ActivationCode{},
		&models.ActivationAuditLog{},
		&models.Document{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestScheduler(t *testing.T) (*Scheduler, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	s := New(
		repository.NewActivationRepository(db),
		repository.NewDocumentRepository(db),
		repository.NewAuditRepository(db),
		events.NewPublisher("", logger),
		logger,
	)
	return s, db
}

func seedCode(t *testing.T, db *gorm.DB, expiresAt time.Time, status models.CodeStatus) *models.ActivationCode {
	t.Helper()
	entry := &models.WhitelistEntry{
		Identifier:     fmt.Sprintf("%d@example.com", time.Now().UnixNano()),
		IdentifierType: models.IdentifierEmail,
		FullName:       "Seeded",
		AssignedRole:   models.RoleBrigadista,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to seed whitelist entry: %v", err)
	}
	code := &models.ActivationCode{
		CodeHash:    "$2a$10$0000000000000000000000000000000000000000000000000000",
		WhitelistID: entry.ID,
		Status:      status,
		ExpiresAt:   expiresAt,
	}
	if err := db.Create(code).Error; err != nil {
		t.Fatalf("failed to seed code: %v", err)
	}
	return code
}

func TestSweepExpiredCodes(t *testing.T) {
	s, db := newTestScheduler(t)
	now := time.Now()
	s.lastSweep = now.Add(-time.Hour)

	expired := seedCode(t, db, now.Add(-10*time.Minute), models.CodeStatusActive)
	// Still live, not active, and expired before the window: none should sweep.
	seedCode(t, db, now.Add(time.Hour), models.CodeStatusActive)
	seedCode(t, db, now.Add(-10*time.Minute), models.CodeStatusRevoked)
	seedCode(t, db, now.Add(-2*time.Hour), models.CodeStatusActive)

	s.sweepExpiredCodes()

	var entries []models.ActivationAuditLog
	if err := db.Where("event_type = ?", models.EventCodeExpired).Find(&entries).Error; err != nil {
		t.Fatalf("failed to list audit entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one expiry event, got %d", len(entries))
	}
	if entries[0].ActivationCodeID == nil || *entries[0].ActivationCodeID != expired.ID {
		t.Fatalf("expiry event references the wrong code")
	}

	// A second sweep over the advanced window finds nothing new.
	s.sweepExpiredCodes()
	var count int64
	db.Model(&models.ActivationAuditLog{}).Where("event_type = ?", models.EventCodeExpired).Count(&count)
	if count != 1 {
		t.Fatalf("expected no duplicate expiry events, got %d", count)
	}
}

func TestPurgeStaleDocuments(t *testing.T) {
	s, db := newTestScheduler(t)

	stale := &models.Document{
		DocumentID:       "doc-stale",
		UserID:           uuid.New(),
		ResponseClientID: "device-9-001",
		FileName:         "old.jpg",
		FileSize:         1024,
		MimeType:         "image/jpeg",
		DocumentType:     "photo",
		StorageKey:       "responses/device-9-001/doc-stale.jpg",
		Status:           models.DocumentPending,
	}
	if err := db.Create(stale).Error; err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}
	db.Model(stale).UpdateColumn("created_at", time.Now().Add(-72*time.Hour))

	fresh := *stale
	fresh.ID = uuid.New()
	fresh.DocumentID = "doc-fresh"
	if err := db.Create(&fresh).Error; err != nil {
		t.Fatalf("failed to seed fresh document: %v", err)
	}

	s.purgeStaleDocuments()

	var remaining []models.Document
	if err := db.Find(&remaining).Error; err != nil {
		t.Fatalf("failed to list documents: %v", err)
	}
	if len(remaining) != 1 || remaining[0].DocumentID != "doc-fresh" {
		t.Fatalf("unexpected surviving documents %+v", remaining)
	}
}
