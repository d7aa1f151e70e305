package services

import (
	"context"
	"testing"

	"survey-service/internal/config"
	"survey-service/internal/models"
	"survey-service/internal/providers"
	"survey-service/internal/repository"
)

func newWhitelistFixture(t *testing.T) (*WhitelistService, *models.User) {
	t.Helper()
	db := testDB(t)
	logger := testLogger()
	svc := NewWhitelistService(
		repository.NewWhitelistRepository(db),
		repository.NewUserRepository(db),
		providers.NewIDVerifier(config.IDCheckConfig{}, logger),
		logger,
	)
	return svc, seedAdmin(t, db)
}

func TestWhitelistCreateLowercasesEmail(t *testing.T) {
	svc, admin := newWhitelistFixture(t)

	entry, check, err := svc.Create(context.Background(), &models.CreateWhitelistRequest{
		Identifier:     "  Ana.Torres@Example.COM ",
		IdentifierType: "email",
		FullName:       "Ana Torres",
		AssignedRole:   "brigadista",
	}, admin.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entry.Identifier != "ana.torres@example.com" {
		t.Fatalf("expected normalized identifier, got %q", entry.Identifier)
	}
	if check != nil {
		t.Fatal("no registry check expected for email identifiers")
	}
}

func TestWhitelistCreatePreservesPhoneCase(t *testing.T) {
	svc, admin := newWhitelistFixture(t)

	entry, _, err := svc.Create(context.Background(), &models.CreateWhitelistRequest{
		Identifier:     "555-0101",
		IdentifierType: "phone",
		FullName:       "Luis",
		AssignedRole:   "brigadista",
	}, admin.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entry.IdentifierType != models.IdentifierPhone {
		t.Fatalf("unexpected identifier type %s", entry.IdentifierType)
	}
}

func TestWhitelistSupervisorMustBeEncargado(t *testing.T) {
	svc, admin := newWhitelistFixture(t)
	ctx := context.Background()

	// Admins qualify as supervisors.
	if _, _, err := svc.Create(ctx, &models.CreateWhitelistRequest{
		Identifier:           "a@example.com",
		IdentifierType:       "email",
		FullName:             "A",
		AssignedRole:         "brigadista",
		AssignedSupervisorID: &admin.ID,
	}, admin.ID); err != nil {
		t.Fatalf("Create with admin supervisor: %v", err)
	}
}

func TestWhitelistNotesStayEditable(t *testing.T) {
	svc, admin := newWhitelistFixture(t)
	ctx := context.Background()

	entry, _, err := svc.Create(ctx, &models.CreateWhitelistRequest{
		Identifier:     "b@example.com",
		IdentifierType: "email",
		FullName:       "B",
		AssignedRole:   "brigadista",
	}, admin.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.UpdateNotes(ctx, entry.ID, "northern district")
	if err != nil {
		t.Fatalf("UpdateNotes: %v", err)
	}
	if updated.Notes != "northern district" {
		t.Fatalf("notes not updated: %q", updated.Notes)
	}
}
