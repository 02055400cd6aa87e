package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"tenantry-backend/internal/dispatch"
	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/logger"
	"tenantry-backend/internal/repository"
)

const (
	maxReferenceAttempts = 3

	reasonCancelled   = "cancelled by user"
	reasonTimedOut    = "verification timed out"
	reasonUnreachable = "verification could not be dispatched"
)

type CreditCheckOptions struct {
	// SingleFlight rejects a request while the subject has a pending check.
	SingleFlight bool
	// PendingTimeout is how long a check may stay pending before ExpireStalePending fails it.
	PendingTimeout time.Duration
	Now            func() time.Time
}

type creditCheckService struct {
	checks     repository.CreditCheckRepository
	users      repository.UserRepository
	apps       repository.ApplicationRepository
	dispatcher Dispatcher
	emailSvc   EmailService
	opts       CreditCheckOptions

	newID        func() string
	newReference func(now time.Time) string
}

func NewCreditCheckService(
	checks repository.CreditCheckRepository,
	users repository.UserRepository,
	apps repository.ApplicationRepository,
	dispatcher Dispatcher,
	emailSvc EmailService,
	opts CreditCheckOptions,
) CreditCheckService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PendingTimeout <= 0 {
		opts.PendingTimeout = 30 * time.Minute
	}
	return &creditCheckService{
		checks:       checks,
		users:        users,
		apps:         apps,
		dispatcher:   dispatcher,
		emailSvc:     emailSvc,
		opts:         opts,
		newID:        uuid.NewString,
		newReference: NewReferenceID,
	}
}

// NewReferenceID builds the bureau correlation id: EQ-<unix millis>-<0..9999>.
func NewReferenceID(now time.Time) string {
	return fmt.Sprintf("EQ-%d-%d", now.UnixMilli(), rand.IntN(10000))
}

func (s *creditCheckService) now() time.Time {
	return s.opts.Now().UTC()
}

func (s *creditCheckService) RequestCreditCheck(ctx context.Context, req CreditCheckRequest) (*domain.CreditCheck, error) {
	logger.EnterMethod("creditCheckService.RequestCreditCheck", "subject_id", req.SubjectID)

	subject, err := s.users.GetByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.ExitMethodWithError("creditCheckService.RequestCreditCheck", ErrSubjectNotFound, "subject_id", req.SubjectID)
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("load subject: %w", err)
	}
	if !req.Consent.Provided {
		logger.ExitMethodWithError("creditCheckService.RequestCreditCheck", ErrConsentRequired, "subject_id", req.SubjectID)
		return nil, ErrConsentRequired
	}
	if req.LinkedApplicationID != nil {
		if err := s.checkLinkedApplication(ctx, subject.ID, *req.LinkedApplicationID); err != nil {
			logger.ExitMethodWithError("creditCheckService.RequestCreditCheck", err, "subject_id", req.SubjectID, "application_id", *req.LinkedApplicationID)
			return nil, err
		}
	}
	if s.opts.SingleFlight {
		pending, err := s.checks.HasPending(ctx, req.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("check pending requests: %w", err)
		}
		if pending {
			return nil, ErrCheckInProgress
		}
	}

	now := s.now()
	consent := req.Consent
	if consent.Date.IsZero() {
		consent.Date = now
	}
	check := &domain.CreditCheck{
		ID:                  s.newID(),
		SubjectID:           subject.ID,
		LinkedApplicationID: req.LinkedApplicationID,
		Consent:             consent,
		Status:              domain.CreditCheckStatusPending,
		RequestDate:         now,
	}

	for attempt := 1; ; attempt++ {
		check.ReferenceID = s.newReference(now)
		err = s.checks.Create(ctx, check)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateReference) || attempt == maxReferenceAttempts {
			logger.ExitMethodWithError("creditCheckService.RequestCreditCheck", err, "subject_id", req.SubjectID)
			return nil, fmt.Errorf("create credit check: %w", err)
		}
		logger.Warn("Reference id collision, regenerating", "reference_id", check.ReferenceID, "attempt", attempt)
	}

	log := logger.WithCreditCheck(check.ID, check.ReferenceID)
	log.Info("Credit check requested", "subject_id", check.SubjectID)

	task := dispatch.Task{
		CreditCheckID: check.ID,
		Request: domain.VerificationRequest{
			CreditCheckID: check.ID,
			ReferenceID:   check.ReferenceID,
			SubjectID:     check.SubjectID,
			Personal:      withSubjectName(req.Personal, subject),
		},
	}
	if err := s.dispatcher.Submit(task); err != nil {
		log.Error("Failed to dispatch verification", "error", err)
		if ferr := s.FailCreditCheck(ctx, check.ID, fmt.Sprintf("%s: %v", reasonUnreachable, err)); ferr != nil {
			log.Error("Failed to record dispatch failure", "error", ferr)
		}
		if latest, gerr := s.checks.GetByID(ctx, check.ID); gerr == nil {
			check = latest
		}
	}

	logger.ExitMethod("creditCheckService.RequestCreditCheck", "credit_check_id", check.ID, "status", check.Status)
	return check, nil
}

// checkLinkedApplication only lets a subject attach a check to their own application.
func (s *creditCheckService) checkLinkedApplication(ctx context.Context, subjectID, applicationID int32) error {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrApplicationNotFound
		}
		return fmt.Errorf("load application: %w", err)
	}
	if app.ApplicantID != subjectID {
		return ErrUnauthorized
	}
	return nil
}

func withSubjectName(p domain.PersonalInfo, subject *domain.User) domain.PersonalInfo {
	if p.FirstName == "" {
		p.FirstName = subject.FirstName
	}
	if p.LastName == "" {
		p.LastName = subject.LastName
	}
	return p
}

func (s *creditCheckService) CompleteCreditCheck(ctx context.Context, id string, outcome *domain.VerificationOutcome) error {
	logger.EnterMethod("creditCheckService.CompleteCreditCheck", "credit_check_id", id)

	check, err := s.checks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn("Completion for unknown credit check ignored", "credit_check_id", id)
			return nil
		}
		return fmt.Errorf("load credit check: %w", err)
	}
	log := logger.WithCreditCheck(check.ID, check.ReferenceID)
	if check.Status.IsTerminal() {
		log.Info("Completion ignored, check already resolved", "status", check.Status)
		return nil
	}

	if outcome == nil || outcome.Report == nil {
		_ = s.FailCreditCheck(ctx, id, ErrInvalidOutcome.Error())
		return ErrInvalidOutcome
	}
	if !domain.ValidScore(outcome.Score) {
		_ = s.FailCreditCheck(ctx, id, fmt.Sprintf("%s: %d", ErrInvalidScore.Error(), outcome.Score))
		return ErrInvalidScore
	}

	subject, err := s.users.GetByID(ctx, check.SubjectID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load subject: %w", err)
	}

	report := *outcome.Report
	report.Score = outcome.Score
	if subject != nil && report.SubjectName.FirstName == "" && report.SubjectName.LastName == "" {
		report.SubjectName = domain.SubjectName{FirstName: subject.FirstName, LastName: subject.LastName}
	}

	completedAt := s.now()
	applied, err := s.checks.MarkCompleted(ctx, id, outcome.Score, &report, completedAt)
	if err != nil {
		logger.ExitMethodWithError("creditCheckService.CompleteCreditCheck", err, "credit_check_id", id)
		return fmt.Errorf("mark credit check completed: %w", err)
	}
	if !applied {
		log.Info("Completion lost the race to another transition")
		return nil
	}
	log.Info("Credit check completed", "score", outcome.Score, "band", domain.BandForScore(outcome.Score))

	if check.LinkedApplicationID != nil {
		if err := s.apps.SetCreditCheckIncluded(ctx, *check.LinkedApplicationID); err != nil {
			log.Error("Failed to flag linked application", "application_id", *check.LinkedApplicationID, "error", err)
		}
	}
	if err := s.users.UpdateCreditScore(ctx, check.SubjectID, outcome.Score); err != nil {
		log.Error("Failed to update subject credit score", "subject_id", check.SubjectID, "error", err)
		return fmt.Errorf("update subject credit score: %w", err)
	}
	if subject != nil {
		if err := s.emailSvc.SendCreditCheckCompleted(ctx, subject.Email, subject.FullName(), check.ReferenceID, outcome.Score, domain.BandForScore(outcome.Score)); err != nil {
			log.Warn("Failed to send completion email", "error", err)
		}
	}

	logger.ExitMethod("creditCheckService.CompleteCreditCheck", "credit_check_id", id)
	return nil
}

func (s *creditCheckService) FailCreditCheck(ctx context.Context, id string, reason string) error {
	logger.EnterMethod("creditCheckService.FailCreditCheck", "credit_check_id", id, "reason", reason)

	applied, err := s.checks.MarkFailed(ctx, id, reason, s.now())
	if err != nil {
		return fmt.Errorf("mark credit check failed: %w", err)
	}
	if !applied {
		logger.Info("Failure ignored, check not pending", "credit_check_id", id)
		return nil
	}
	s.notifyFailure(ctx, id, reason)

	logger.ExitMethod("creditCheckService.FailCreditCheck", "credit_check_id", id)
	return nil
}

func (s *creditCheckService) notifyFailure(ctx context.Context, id, reason string) {
	check, err := s.checks.GetByID(ctx, id)
	if err != nil {
		return
	}
	subject, err := s.users.GetByID(ctx, check.SubjectID)
	if err != nil {
		return
	}
	if err := s.emailSvc.SendCreditCheckFailed(ctx, subject.Email, subject.FullName(), check.ReferenceID, reason); err != nil {
		logger.WarnContext(ctx, "Failed to send failure email", "credit_check_id", id, "error", err)
	}
}

func (s *creditCheckService) CancelCreditCheck(ctx context.Context, id string) (*domain.CreditCheck, error) {
	logger.EnterMethod("creditCheckService.CancelCreditCheck", "credit_check_id", id)

	applied, err := s.checks.MarkFailed(ctx, id, reasonCancelled, s.now())
	if err != nil {
		return nil, fmt.Errorf("cancel credit check: %w", err)
	}
	if !applied {
		logger.Info("Credit check not cancellable", "credit_check_id", id)
		return nil, nil
	}
	s.dispatcher.Cancel(id)

	check, err := s.checks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload credit check: %w", err)
	}
	logger.ExitMethod("creditCheckService.CancelCreditCheck", "credit_check_id", id)
	return check, nil
}

func (s *creditCheckService) IsRecentCheckAvailable(ctx context.Context, subjectID int32) (bool, error) {
	return s.checks.HasCompletedSince(ctx, subjectID, s.now().Add(-domain.RecentCheckWindow))
}

func (s *creditCheckService) GetCreditCheck(ctx context.Context, id string) (*domain.CreditCheck, error) {
	return nilIfNotFound(s.checks.GetByID(ctx, id))
}

func (s *creditCheckService) ListCreditChecks(ctx context.Context, subjectID int32) ([]domain.CreditCheck, error) {
	checks, err := s.checks.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if checks == nil {
		checks = []domain.CreditCheck{}
	}
	return checks, nil
}

func (s *creditCheckService) GetCreditCheckByApplication(ctx context.Context, applicationID int32) (*domain.CreditCheck, error) {
	return nilIfNotFound(s.checks.GetByApplicationID(ctx, applicationID))
}

// GetApplicationCreditCheck is GetCreditCheckByApplication for a viewer that
// must be the applicant or the application's landlord.
func (s *creditCheckService) GetApplicationCreditCheck(ctx context.Context, viewerID, applicationID int32) (*domain.CreditCheck, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	if !app.CanView(viewerID) {
		return nil, ErrUnauthorized
	}
	return s.GetCreditCheckByApplication(ctx, applicationID)
}

func (s *creditCheckService) GetMostRecentCreditCheck(ctx context.Context, subjectID int32) (*domain.CreditCheck, error) {
	return nilIfNotFound(s.checks.GetMostRecent(ctx, subjectID))
}

func (s *creditCheckService) ResolveByReference(ctx context.Context, referenceID string, outcome *domain.VerificationOutcome, failureReason string) error {
	check, err := s.checks.GetByReferenceID(ctx, referenceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReferenceNotFound
		}
		return err
	}
	if outcome == nil {
		if failureReason == "" {
			failureReason = "rejected by credit bureau"
		}
		return s.FailCreditCheck(ctx, check.ID, failureReason)
	}
	return s.CompleteCreditCheck(ctx, check.ID, outcome)
}

func (s *creditCheckService) ExpireStalePending(ctx context.Context) (int, error) {
	logger.EnterMethod("creditCheckService.ExpireStalePending", "timeout", s.opts.PendingTimeout.String())

	cutoff := s.now().Add(-s.opts.PendingTimeout)
	stale, err := s.checks.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale credit checks: %w", err)
	}

	expired := 0
	for _, check := range stale {
		applied, err := s.checks.MarkFailed(ctx, check.ID, reasonTimedOut, s.now())
		if err != nil {
			logger.Error("Failed to expire credit check", "credit_check_id", check.ID, "error", err)
			continue
		}
		if !applied {
			continue
		}
		s.dispatcher.Cancel(check.ID)
		s.notifyFailure(ctx, check.ID, reasonTimedOut)
		expired++
	}

	logger.ExitMethod("creditCheckService.ExpireStalePending", "expired", expired, "candidates", len(stale))
	return expired, nil
}

func nilIfNotFound(check *domain.CreditCheck, err error) (*domain.CreditCheck, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return check, nil
}
