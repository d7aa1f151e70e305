package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"survey-service/internal/config"
	"survey-service/internal/events"
	"survey-service/internal/metrics"
	"survey-service/internal/models"
	"survey-service/internal/providers"
	"survey-service/internal/repository"
	"survey-service/pkg/otp"
)

// Sentinel errors for the activation flow. Handlers map these onto specific
// HTTP statuses and error codes.
var (
	ErrWhitelistNotFound  = errors.New("whitelist entry not found")
	ErrAlreadyActivated   = errors.New("whitelist entry already activated")
	ErrCodeNotFound       = errors.New("activation code not found")
	ErrCodeAlreadyUsed    = errors.New("activation code already used")
	ErrCodeRevoked        = errors.New("activation code revoked")
	ErrInvalidCode        = errors.New("invalid or expired activation code")
	ErrIdentifierMismatch = errors.New("identifier does not match")
	ErrAccountExists      = errors.New("an account with this email already exists")
	ErrResendNotEmail     = errors.New("resend requires an email identifier")
)

// User-facing validation outcome messages.
const (
	msgCodeInvalid = "Invalid activation code"
	msgCodeExpired = "Activation code expired"
	msgCodeLocked  = "Activation code locked"
)

// RequestContext carries per-request audit context through the activation flow.
type RequestContext struct {
	IP        string
	UserAgent string
	DeviceID  string
}

// ActivationService implements the activation-code lifecycle: generation,
// public validation, redemption, and the admin mutations (revoke, extend,
// resend).
type ActivationService struct {
	config         *config.Config
	db             *gorm.DB
	activationRepo *repository.ActivationRepository
	whitelistRepo  *repository.WhitelistRepository
	userRepo       *repository.UserRepository
	auditRepo      *repository.AuditRepository
	emailProvider  providers.EmailProvider
	idVerifier     *providers.IDVerifier
	publisher      *events.Publisher
	metrics        *metrics.Metrics
	otpGenerator   *otp.Generator
	jwtService     *JWTService
	logger         *logrus.Logger
	now            func() time.Time
}

// NewActivationService creates a new activation service
func NewActivationService(
	cfg *config.Config,
	db *gorm.DB,
	activationRepo *repository.ActivationRepository,
	whitelistRepo *repository.WhitelistRepository,
	userRepo *repository.UserRepository,
	auditRepo *repository.AuditRepository,
	emailProvider providers.EmailProvider,
	idVerifier *providers.IDVerifier,
	publisher *events.Publisher,
	m *metrics.Metrics,
	jwtService *JWTService,
	logger *logrus.Logger,
) *ActivationService {
	return &ActivationService{
		config:         cfg,
		db:             db,
		activationRepo: activationRepo,
		whitelistRepo:  whitelistRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		emailProvider:  emailProvider,
		idVerifier:     idVerifier,
		publisher:      publisher,
		metrics:        m,
		otpGenerator:   otp.NewGenerator(cfg.Activation.CodeLength),
		jwtService:     jwtService,
		logger:         logger,
		now:            time.Now,
	}
}

// SetClock overrides the service clock. Tests use this to cross expiry
// boundaries without sleeping.
func (s *ActivationService) SetClock(now func() time.Time) {
	s.now = now
}

// Generate issues a new activation code for a whitelist entry. The plaintext
// code is returned to the caller and optionally emailed; only its bcrypt
// hash is persisted.
func (s *ActivationService) Generate(ctx context.Context, req *models.GenerateCodeRequest, adminID uuid.UUID, rc RequestContext) (*models.GenerateCodeResponse, error) {
	entry, err := s.whitelistRepo.GetByID(ctx, req.WhitelistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWhitelistNotFound
		}
		return nil, fmt.Errorf("failed to load whitelist entry: %w", err)
	}
	if entry.IsActivated {
		return nil, ErrAlreadyActivated
	}

	code, err := s.otpGenerator.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}
	codeHash, err := HashPassword(code)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	expiresAt := s.now().Add(time.Duration(req.ExpiresInHours) * time.Hour)
	activationCode := &models.ActivationCode{
		CodeHash:    codeHash,
		WhitelistID: entry.ID,
		Status:      models.CodeStatusActive,
		ExpiresAt:   expiresAt,
		GeneratedBy: &adminID,
	}
	if err := s.activationRepo.Create(ctx, activationCode); err != nil {
		return nil, fmt.Errorf("failed to save activation code: %w", err)
	}

	s.audit(ctx, &models.ActivationAuditLog{
		EventType:        models.EventCodeGenerated,
		ActivationCodeID: &activationCode.ID,
		WhitelistID:      &entry.ID,
		IPAddress:        rc.IP,
		UserAgent:        rc.UserAgent,
		Success:          true,
		Metadata:         mustJSON(map[string]interface{}{"expires_in_hours": req.ExpiresInHours, "generated_by": adminID}),
	})
	s.publisher.Publish(ctx, events.Event{
		Type:        "code_generated",
		CodeID:      &activationCode.ID,
		WhitelistID: &entry.ID,
	})
	s.metrics.CodesGenerated.Inc()

	resp := &models.GenerateCodeResponse{
		Code:           code,
		CodeID:         activationCode.ID,
		WhitelistEntry: whitelistInfo(entry, true),
		ExpiresAt:      expiresAt,
		ExpiresInHours: req.ExpiresInHours,
	}

	if req.SendEmail {
		resp.EmailSent, resp.EmailStatus = s.sendCodeEmail(ctx, entry, activationCode, code, expiresAt, req.CustomMessage, models.EventEmailSent, rc)
	}
	return resp, nil
}

func (s *ActivationService) sendCodeEmail(ctx context.Context, entry *models.WhitelistEntry, code *models.ActivationCode, plaintext string, expiresAt time.Time, customMessage, eventType string, rc RequestContext) (bool, string) {
	if entry.IdentifierType != models.IdentifierEmail {
		return false, "identifier is not an email address"
	}

	err := s.emailProvider.SendActivationEmail(ctx, entry.Identifier, entry.FullName, plaintext, expiresAt, customMessage)
	sent := err == nil
	status := "sent"
	if err != nil {
		status = err.Error()
		s.logger.WithError(err).WithField("whitelist_id", entry.ID).Warn("Failed to send activation email")
		s.metrics.EmailsSent.WithLabelValues("failed").Inc()
	} else {
		s.metrics.EmailsSent.WithLabelValues("sent").Inc()
	}

	s.audit(ctx, &models.ActivationAuditLog{
		EventType:        eventType,
		ActivationCodeID: &code.ID,
		WhitelistID:      &entry.ID,
		IPAddress:        rc.IP,
		Success:          sent,
		FailureReason:    failureReason(err),
	})
	return sent, status
}

// Validate checks a submitted code without consuming it. The outcome is
// classified in priority order: not found, expired, locked, valid. This path
// never advances the lockout counter.
func (s *ActivationService) Validate(ctx context.Context, req *models.ValidateCodeRequest, rc RequestContext) (*models.ValidateCodeResponse, error) {
	code := otp.Normalize(req.Code)
	now := s.now()

	// A code that is not the right shape after separator stripping cannot
	// match any hash; skip the scan.
	var match *models.ActivationCode
	if s.otpGenerator.Validate(code) {
		candidates, err := s.activationRepo.ListUnused(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load candidate codes: %w", err)
		}

		// No lookup key exists for the plaintext; verification is a scan
		// over every unused hash.
		for i := range candidates {
			if CheckPassword(candidates[i].CodeHash, code) {
				match = &candidates[i]
				break
			}
		}
	}

	resp := &models.ValidateCodeResponse{}
	var auditCode, auditWhitelist *uuid.UUID
	failure := ""

	switch {
	case match == nil:
		resp.Error = msgCodeInvalid
		failure = "code_not_found"
	case match.IsExpiredAt(now):
		resp.Error = msgCodeExpired
		failure = "code_expired"
		auditCode, auditWhitelist = &match.ID, &match.WhitelistID
	case match.IsLocked():
		resp.Error = msgCodeLocked
		failure = "code_locked"
		auditCode, auditWhitelist = &match.ID, &match.WhitelistID
	default:
		resp.Valid = true
		resp.ExpiresAt = &match.ExpiresAt
		resp.RemainingHours = match.ExpiresAt.Sub(now).Hours()
		info := whitelistInfo(match.Whitelist, false)
		resp.WhitelistEntry = &info
		resp.Requirements = &models.ActivationRequirements{
			MustProvideIdentifier:    true,
			MustCreateStrongPassword: true,
			PasswordMinLength:        MinPasswordLength,
			MustAgreeToTerms:         true,
		}
		auditCode, auditWhitelist = &match.ID, &match.WhitelistID
	}

	s.audit(ctx, &models.ActivationAuditLog{
		EventType:        models.EventCodeValidationAttempt,
		ActivationCodeID: auditCode,
		WhitelistID:      auditWhitelist,
		IPAddress:        rc.IP,
		UserAgent:        rc.UserAgent,
		DeviceID:         rc.DeviceID,
		Success:          resp.Valid,
		FailureReason:    failure,
	})
	if resp.Valid {
		s.audit(ctx, &models.ActivationAuditLog{
			EventType:        models.EventCodeValidationSuccess,
			ActivationCodeID: auditCode,
			WhitelistID:      auditWhitelist,
			IPAddress:        rc.IP,
			UserAgent:        rc.UserAgent,
			DeviceID:         rc.DeviceID,
			Success:          true,
		})
	}
	return resp, nil
}

// Complete redeems a code into a live user account. Only codes that are
// simultaneously unused, unexpired, and under the attempt threshold are
// candidates; an identifier mismatch is the single path that advances the
// lockout counter. User creation, code consumption, and whitelist activation
// commit as one transaction.
func (s *ActivationService) Complete(ctx context.Context, req *models.CompleteActivationRequest, rc RequestContext) (*models.CompleteActivationResponse, error) {
	code := otp.Normalize(req.Code)
	now := s.now()
	if !s.otpGenerator.Validate(code) {
		return nil, ErrInvalidCode
	}

	candidates, err := s.activationRepo.ListRedeemable(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate codes: %w", err)
	}

	var match *models.ActivationCode
	for i := range candidates {
		if CheckPassword(candidates[i].CodeHash, code) {
			match = &candidates[i]
			break
		}
	}

	if match == nil {
		s.audit(ctx, &models.ActivationAuditLog{
			EventType:     models.EventActivationFailed,
			IPAddress:     rc.IP,
			UserAgent:     rc.UserAgent,
			DeviceID:      rc.DeviceID,
			Success:       false,
			FailureReason: "invalid_or_expired_code",
		})
		s.metrics.ActivationAttempts.WithLabelValues("invalid_code").Inc()
		return nil, ErrInvalidCode
	}

	entry := match.Whitelist
	if !strings.EqualFold(strings.TrimSpace(req.Identifier), entry.Identifier) {
		return nil, s.failIdentifierMismatch(ctx, match, req.Identifier, rc)
	}

	if err := ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	email := strings.ToLower(entry.Identifier)
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if exists {
		s.audit(ctx, &models.ActivationAuditLog{
			EventType:        models.EventActivationFailed,
			ActivationCodeID: &match.ID,
			WhitelistID:      &match.WhitelistID,
			IPAddress:        rc.IP,
			UserAgent:        rc.UserAgent,
			Success:          false,
			FailureReason:    "account_exists",
		})
		s.metrics.ActivationAttempts.WithLabelValues("account_exists").Inc()
		return nil, ErrAccountExists
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:          email,
		HashedPassword: hashedPassword,
		FullName:       entry.FullName,
		Phone:          req.Phone,
		Role:           entry.AssignedRole,
		IsActive:       true,
		TokenVersion:   1,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		consumed, err := s.activationRepo.WithTx(tx).MarkUsed(ctx, match.ID, user.ID)
		if err != nil {
			return fmt.Errorf("failed to consume code: %w", err)
		}
		if !consumed {
			// Someone else redeemed this code between scan and commit.
			return ErrInvalidCode
		}
		if err := s.whitelistRepo.WithTx(tx).MarkActivated(ctx, entry.ID, user.ID); err != nil {
			return fmt.Errorf("failed to activate whitelist entry: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			s.metrics.ActivationAttempts.WithLabelValues("race_lost").Inc()
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	metadata := map[string]interface{}{"role": entry.AssignedRole}
	if entry.IdentifierType == models.IdentifierNationalID && s.idVerifier != nil && s.idVerifier.Enabled() {
		check := s.idVerifier.Check(ctx, entry.Identifier)
		metadata["id_check"] = check.Status
	}

	s.audit(ctx, &models.ActivationAuditLog{
		EventType:           models.EventActivationSuccess,
		ActivationCodeID:    &match.ID,
		WhitelistID:         &match.WhitelistID,
		IdentifierAttempted: req.Identifier,
		IPAddress:           rc.IP,
		UserAgent:           rc.UserAgent,
		DeviceID:            req.DeviceID,
		Success:             true,
		CreatedUserID:       &user.ID,
		Metadata:            mustJSON(metadata),
	})
	s.publisher.Publish(ctx, events.Event{
		Type:        "activation_success",
		CodeID:      &match.ID,
		WhitelistID: &match.WhitelistID,
		UserID:      &user.ID,
	})
	s.metrics.ActivationAttempts.WithLabelValues("success").Inc()

	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &models.CompleteActivationResponse{
		Success:     true,
		UserID:      user.ID,
		AccessToken: accessToken,
		User:        userInfo(user),
	}, nil
}

func (s *ActivationService) failIdentifierMismatch(ctx context.Context, match *models.ActivationCode, identifier string, rc RequestContext) error {
	if err := s.activationRepo.RecordFailedAttempt(ctx, match, rc.IP); err != nil {
		s.logger.WithError(err).WithField("code_id", match.ID).Error("Failed to record activation attempt")
	}

	s.audit(ctx, &models.ActivationAuditLog{
		EventType:           models.EventActivationFailed,
		ActivationCodeID:    &match.ID,
		WhitelistID:         &match.WhitelistID,
		IdentifierAttempted: identifier,
		IPAddress:           rc.IP,
		UserAgent:           rc.UserAgent,
		DeviceID:            rc.DeviceID,
		Success:             false,
		FailureReason:       "identifier_mismatch",
	})
	s.metrics.ActivationAttempts.WithLabelValues("identifier_mismatch").Inc()

	if match.IsLocked() {
		s.audit(ctx, &models.ActivationAuditLog{
			EventType:        models.EventCodeLocked,
			ActivationCodeID: &match.ID,
			WhitelistID:      &match.WhitelistID,
			IPAddress:        rc.IP,
			Success:          true,
			Metadata:         mustJSON(map[string]interface{}{"attempts": match.ActivationAttempts}),
		})
		s.publisher.Publish(ctx, events.Event{
			Type:        "code_locked",
			CodeID:      &match.ID,
			WhitelistID: &match.WhitelistID,
		})
	}
	return ErrIdentifierMismatch
}

// Revoke permanently disables a code. Used codes cannot be revoked.
func (s *ActivationService) Revoke(ctx context.Context, codeID, adminID uuid.UUID, reason string, rc RequestContext) error {
	code, err := s.activationRepo.GetByID(ctx, codeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("failed to load code: %w", err)
	}
	if code.Status == models.CodeStatusUsed || code.IsUsed {
		return ErrCodeAlreadyUsed
	}
	if code.Status == models.CodeStatusRevoked {
		return ErrCodeRevoked
	}

	if err := s.activationRepo.Revoke(ctx, codeID, reason); err != nil {
		return fmt.Errorf("failed to revoke code: %w", err)
	}

	s.audit(ctx, &models.ActivationAuditLog{
		EventType:        models.EventCodeRevoked,
		ActivationCodeID: &code.ID,
		WhitelistID:      &code.WhitelistID,
		IPAddress:        rc.IP,
		Success:          true,
		Metadata:         mustJSON(map[string]interface{}{"reason": reason, "revoked_by": adminID}),
	})
	s.publisher.Publish(ctx, events.Event{
		Type:        "code_revoked",
		CodeID:      &code.ID,
		WhitelistID: &code.WhitelistID,
	})
	s.metrics.CodesRevoked.Inc()
	return nil
}

// Extend pushes a code's expiry forward by the given number of hours.
// Extending does not clear a lock; a locked code stays locked.
func (s *ActivationService) Extend(ctx context.Context, codeID, adminID uuid.UUID, additionalHours int, rc RequestContext) (*models.ActivationCodeDetail, error) {
	code, err := s.activationRepo.GetByID(ctx, codeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to load code: %w", err)
	}
	if code.Status == models.CodeStatusUsed || code.IsUsed {
		return nil, ErrCodeAlreadyUsed
	}
	if code.Status == models.CodeStatusRevoked {
		return nil, ErrCodeRevoked
	}

	newExpiry := code.ExpiresAt.Add(time.Duration(additionalHours) * time.Hour)
	if err := s.activationRepo.Extend(ctx, codeID, newExpiry); err != nil {
		return nil, fmt.Errorf("failed to extend code: %w", err)
	}
	code.ExpiresAt = newExpiry

	s.audit(ctx, &models.ActivationAuditLog{
		EventType:        models.EventCodeExtended,
		ActivationCodeID: &code.ID,
		WhitelistID:      &code.WhitelistID,
		IPAddress:        rc.IP,
		Success:          true,
		Metadata:         mustJSON(map[string]interface{}{"additional_hours": additionalHours, "extended_by": adminID}),
	})

	detail := codeDetail(code, s.now())
	return &detail, nil
}

// Resend revokes a code and issues a fresh one to the same whitelist entry,
// delivered by email. Only email-identified entries can receive a resend.
func (s *ActivationService) Resend(ctx context.Context, codeID, adminID uuid.UUID, customMessage string, rc RequestContext) (*models.GenerateCodeResponse, error) {
	code, err := s.activationRepo.GetByID(ctx, codeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to load code: %w", err)
	}
	if code.Status == models.CodeStatusUsed || code.IsUsed {
		return nil, ErrCodeAlreadyUsed
	}
	entry := code.Whitelist
	if entry.IdentifierType != models.IdentifierEmail {
		return nil, ErrResendNotEmail
	}

	if code.Status != models.CodeStatusRevoked {
		if err := s.activationRepo.Revoke(ctx, codeID, "superseded by resend"); err != nil {
			return nil, fmt.Errorf("failed to revoke previous code: %w", err)
		}
		s.audit(ctx, &models.ActivationAuditLog{
			EventType:        models.EventCodeRevoked,
			ActivationCodeID: &code.ID,
			WhitelistID:      &code.WhitelistID,
			IPAddress:        rc.IP,
			Success:          true,
			Metadata:         mustJSON(map[string]interface{}{"reason": "superseded by resend", "revoked_by": adminID}),
		})
	}

	plaintext, err := s.otpGenerator.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}
	codeHash, err := HashPassword(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	expiresAt := s.now().Add(time.Duration(s.config.Activation.DefaultExpiryHours) * time.Hour)
	fresh := &models.ActivationCode{
		CodeHash:    codeHash,
		WhitelistID: entry.ID,
		Status:      models.CodeStatusActive,
		ExpiresAt:   expiresAt,
		GeneratedBy: &adminID,
	}
	if err := s.activationRepo.Create(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to save activation code: %w", err)
	}
	s.metrics.CodesGenerated.Inc()

	resp := &models.GenerateCodeResponse{
		Code:           plaintext,
		CodeID:         fresh.ID,
		WhitelistEntry: whitelistInfo(entry, true),
		ExpiresAt:      expiresAt,
		ExpiresInHours: s.config.Activation.DefaultExpiryHours,
	}
	resp.EmailSent, resp.EmailStatus = s.sendCodeEmail(ctx, entry, fresh, plaintext, expiresAt, customMessage, models.EventEmailResent, rc)
	return resp, nil
}

// Get returns the admin detail view of one code.
func (s *ActivationService) Get(ctx context.Context, codeID uuid.UUID) (*models.ActivationCodeDetail, error) {
	code, err := s.activationRepo.GetByID(ctx, codeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to load code: %w", err)
	}
	detail := codeDetail(code, s.now())
	return &detail, nil
}

// List returns a paginated, status-filtered admin listing.
func (s *ActivationService) List(ctx context.Context, status string, whitelistID *uuid.UUID, page, limit int) (*models.ActivationCodeList, error) {
	page, limit = normalizePage(page, limit)
	codes, total, err := s.activationRepo.List(ctx, status, whitelistID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list codes: %w", err)
	}

	now := s.now()
	items := make([]models.ActivationCodeDetail, 0, len(codes))
	for i := range codes {
		items = append(items, codeDetail(&codes[i], now))
	}
	return &models.ActivationCodeList{
		Items:      items,
		Pagination: paginate(page, limit, total),
	}, nil
}

// ListAudit returns a page of the activation audit trail.
func (s *ActivationService) ListAudit(ctx context.Context, filter repository.ActivationFilter, page, limit int) (*models.AuditLogList, error) {
	page, limit = normalizePage(page, limit)
	entries, total, err := s.auditRepo.ListActivation(ctx, filter, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	return &models.AuditLogList{
		Items:      entries,
		Pagination: paginate(page, limit, total),
	}, nil
}

// Stats aggregates the admin dashboard counters.
func (s *ActivationService) Stats(ctx context.Context) (*models.ActivationStats, error) {
	totalEntries, activated, err := s.whitelistRepo.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count whitelist entries: %w", err)
	}
	counts, totalCodes, err := s.activationRepo.StatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count codes: %w", err)
	}
	failed24h, err := s.auditRepo.CountFailedSince(ctx, s.now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to count failed attempts: %w", err)
	}

	stats := &models.ActivationStats{
		TotalWhitelistEntries: totalEntries,
		ActivatedUsers:        activated,
		PendingActivations:    totalEntries - activated,
		TotalCodesGenerated:   totalCodes,
		ActiveCodes:           counts[models.CodeStatusActive],
		UsedCodes:             counts[models.CodeStatusUsed],
		ExpiredCodes:          counts[models.CodeStatusExpired],
		LockedCodes:           counts[models.CodeStatusLocked],
		RevokedCodes:          counts[models.CodeStatusRevoked],
		FailedAttempts24h:     failed24h,
	}
	if totalEntries > 0 {
		stats.ActivationRate = float64(activated) / float64(totalEntries)
	}
	return stats, nil
}

// audit appends one audit row. Audit failures are logged, never propagated:
// the security trail must not break the flow it observes.
func (s *ActivationService) audit(ctx context.Context, entry *models.ActivationAuditLog) {
	if err := s.auditRepo.RecordActivation(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("event_type", entry.EventType).Error("Failed to write audit log")
	}
}

func whitelistInfo(entry *models.WhitelistEntry, includeIdentifier bool) models.WhitelistEntryInfo {
	info := models.WhitelistEntryInfo{
		FullName:     entry.FullName,
		AssignedRole: entry.AssignedRole,
	}
	if entry.AssignedSupervisor != nil {
		info.SupervisorName = entry.AssignedSupervisor.FullName
	}
	if includeIdentifier {
		info.ID = entry.ID
		info.Identifier = entry.Identifier
		info.IdentifierType = entry.IdentifierType
		info.Notes = entry.Notes
	}
	return info
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

func codeDetail(code *models.ActivationCode, now time.Time) models.ActivationCodeDetail {
	detail := models.ActivationCodeDetail{
		ID:             code.ID,
		WhitelistID:    code.WhitelistID,
		Status:         code.DisplayStatusAt(now),
		ExpiresAt:      code.ExpiresAt,
		IsUsed:         code.IsUsed,
		UsedAt:         code.UsedAt,
		FailedAttempts: code.ActivationAttempts,
		MaxAttempts:    models.MaxActivationAttempts,
		RevokedAt:      code.RevokedAt,
		RevokeReason:   code.RevokeReason,
		LastAttemptAt:  code.LastAttemptAt,
		GeneratedAt:    code.GeneratedAt,
	}
	if code.Whitelist != nil {
		detail.WhitelistEntry = whitelistInfo(code.Whitelist, true)
	}
	return detail
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func paginate(page, limit int, total int64) models.Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return models.Pagination{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

func failureReason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func mustJSON(v map[string]interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
