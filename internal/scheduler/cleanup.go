package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"survey-service/internal/events"
	"survey-service/internal/models"
	"survey-service/internal/repository"
)

// Scheduler runs periodic maintenance: it emits audit events for codes that
// crossed their expiry since the last sweep and purges upload records that
// were never confirmed.
type Scheduler struct {
	cron           *cron.Cron
	activationRepo *repository.ActivationRepository
	documentRepo   *repository.DocumentRepository
	auditRepo      *repository.AuditRepository
	publisher      *events.Publisher
	logger         *logrus.Logger
	lastSweep      time.Time
}

// New creates the maintenance scheduler
func New(
	activationRepo *repository.ActivationRepository,
	documentRepo *repository.DocumentRepository,
	auditRepo *repository.AuditRepository,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *Scheduler {
	return &Scheduler{
		cron:           cron.New(),
		activationRepo: activationRepo,
		documentRepo:   documentRepo,
		auditRepo:      auditRepo,
		publisher:      publisher,
		logger:         logger,
		lastSweep:      time.Now(),
	}
}

// Start registers and launches the cron jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("*/10 * * * *", s.sweepExpiredCodes); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 3 * * *", s.purgeStaleDocuments); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Maintenance scheduler started")
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// sweepExpiredCodes records one code_expired audit event per code that
// crossed its expiry inside the sweep window. Expiry itself is derived at
// read time; the sweep only makes it observable in the trail.
func (s *Scheduler) sweepExpiredCodes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	codes, err := s.activationRepo.ListNewlyExpired(ctx, s.lastSweep, now)
	if err != nil {
		s.logger.WithError(err).Error("Expired-code sweep failed")
		return
	}
	s.lastSweep = now

	for i := range codes {
		code := &codes[i]
		entry := &models.ActivationAuditLog{
			EventType:        models.EventCodeExpired,
			ActivationCodeID: &code.ID,
			WhitelistID:      &code.WhitelistID,
			IPAddress:        "system",
			Success:          true,
		}
		if err := s.auditRepo.RecordActivation(ctx, entry); err != nil {
			s.logger.WithError(err).WithField("code_id", code.ID).Error("Failed to audit code expiry")
			continue
		}
		s.publisher.Publish(ctx, events.Event{
			Type:        "code_expired",
			CodeID:      &code.ID,
			WhitelistID: &code.WhitelistID,
		})
	}

	if len(codes) > 0 {
		s.logger.WithField("count", len(codes)).Info("Swept expired activation codes")
	}
}

// purgeStaleDocuments removes pending upload rows older than 48 hours. The
// presigned URL expired long before, so the object was never written.
func (s *Scheduler) purgeStaleDocuments() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.documentRepo.DeleteStalePending(ctx, time.Now().Add(-48*time.Hour))
	if err != nil {
		s.logger.WithError(err).Error("Stale document purge failed")
		return
	}
	if removed > 0 {
		s.logger.WithField("count", removed).Info("Purged stale pending documents")
	}
}
