package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"survey-service/internal/models"
	"survey-service/internal/providers"
	"survey-service/internal/repository"
)

// ErrWhitelistImmutable guards identifier and role edits after activation.
var ErrWhitelistImmutable = errors.New("whitelist entry is activated and immutable")

// WhitelistService handles pre-registration of identities allowed to
// activate accounts.
type WhitelistService struct {
	whitelistRepo *repository.WhitelistRepository
	userRepo      *repository.UserRepository
	idVerifier    *providers.IDVerifier
	logger        *logrus.Logger
}

// NewWhitelistService creates a new whitelist service
func NewWhitelistService(
	whitelistRepo *repository.WhitelistRepository,
	userRepo *repository.UserRepository,
	idVerifier *providers.IDVerifier,
	logger *logrus.Logger,
) *WhitelistService {
	return &WhitelistService{
		whitelistRepo: whitelistRepo,
		userRepo:      userRepo,
		idVerifier:    idVerifier,
		logger:        logger,
	}
}

// Create pre-registers one identity. National-ID identifiers get an advisory
// registry check; an unreachable registry never blocks creation.
func (s *WhitelistService) Create(ctx context.Context, req *models.CreateWhitelistRequest, createdBy uuid.UUID) (*models.WhitelistEntry, *models.IDCheckResult, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if models.IdentifierType(req.IdentifierType) == models.IdentifierEmail {
		identifier = strings.ToLower(identifier)
	}

	if req.AssignedSupervisorID != nil {
		supervisor, err := s.userRepo.GetByID(ctx, *req.AssignedSupervisorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, fmt.Errorf("assigned supervisor not found")
			}
			return nil, nil, fmt.Errorf("failed to load supervisor: %w", err)
		}
		if supervisor.Role != models.RoleEncargado && supervisor.Role != models.RoleAdmin {
			return nil, nil, fmt.Errorf("assigned supervisor must be an encargado or admin")
		}
	}

	entry := &models.WhitelistEntry{
		Identifier:           identifier,
		IdentifierType:       models.IdentifierType(req.IdentifierType),
		FullName:             req.FullName,
		AssignedRole:         models.Role(req.AssignedRole),
		AssignedSupervisorID: req.AssignedSupervisorID,
		CreatedBy:            &createdBy,
		Notes:                req.Notes,
	}
	if err := s.whitelistRepo.Create(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to create whitelist entry: %w", err)
	}

	var check *models.IDCheckResult
	if entry.IdentifierType == models.IdentifierNationalID && s.idVerifier != nil && s.idVerifier.Enabled() {
		result := s.idVerifier.Check(ctx, identifier)
		check = &result
	}

	s.logger.WithFields(logrus.Fields{
		"whitelist_id": entry.ID,
		"role":         entry.AssignedRole,
	}).Info("Whitelist entry created")
	return entry, check, nil
}

// Get returns one whitelist entry.
func (s *WhitelistService) Get(ctx context.Context, id uuid.UUID) (*models.WhitelistEntry, error) {
	entry, err := s.whitelistRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWhitelistNotFound
		}
		return nil, fmt.Errorf("failed to load whitelist entry: %w", err)
	}
	return entry, nil
}

// List returns a page of entries, optionally filtered on activation state.
func (s *WhitelistService) List(ctx context.Context, activated *bool, page, limit int) ([]models.WhitelistEntry, models.Pagination, error) {
	page, limit = normalizePage(page, limit)
	entries, total, err := s.whitelistRepo.List(ctx, activated, page, limit)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list whitelist: %w", err)
	}
	return entries, paginate(page, limit, total), nil
}

// UpdateNotes edits the free-form notes. Identifier and role become
// immutable once the entry is activated; notes stay editable.
func (s *WhitelistService) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*models.WhitelistEntry, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.Notes = notes
	if err := s.whitelistRepo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update whitelist entry: %w", err)
	}
	return entry, nil
}
