package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/logger"
	"tenantry-backend/internal/repository"
)

const creditCheckColumns = `id, subject_id, linked_application_id, consent_provided, consent_date, status, reference_id, score, report, failure_reason, request_date, completed_date, updated_on`

type creditCheckRepository struct {
	db *sql.DB
}

func NewCreditCheckRepository(db *sql.DB) repository.CreditCheckRepository {
	return &creditCheckRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCreditCheck(row rowScanner) (*domain.CreditCheck, error) {
	c := &domain.CreditCheck{}
	var linkedApp, score sql.NullInt32
	var report []byte
	var completed sql.NullTime
	err := row.Scan(&c.ID, &c.SubjectID, &linkedApp, &c.Consent.Provided, &c.Consent.Date, &c.Status, &c.ReferenceID, &score, &report, &c.FailureReason, &c.RequestDate, &completed, &c.UpdatedOn)
	if err != nil {
		return nil, err
	}
	if linkedApp.Valid {
		c.LinkedApplicationID = &linkedApp.Int32
	}
	if score.Valid {
		c.Score = &score.Int32
	}
	if completed.Valid {
		c.CompletedDate = &completed.Time
	}
	if len(report) > 0 {
		c.Report = &domain.CreditReport{}
		if err := json.Unmarshal(report, c.Report); err != nil {
			return nil, fmt.Errorf("decode credit report %s: %w", c.ID, err)
		}
	}
	return c, nil
}

func (r *creditCheckRepository) Create(ctx context.Context, c *domain.CreditCheck) error {
	logger.EnterMethod("creditCheckRepository.Create", "subjectID", c.SubjectID, "referenceID", c.ReferenceID)

	query := `INSERT INTO credit_checks (id, subject_id, linked_application_id, consent_provided, consent_date, status, reference_id, request_date, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	logger.DatabaseCall("INSERT", "credit_checks", "creditCheckID", c.ID)

	c.UpdatedOn = c.RequestDate
	_, err := r.db.ExecContext(ctx, query, c.ID, c.SubjectID, c.LinkedApplicationID, c.Consent.Provided, c.Consent.Date, c.Status, c.ReferenceID, c.RequestDate, c.UpdatedOn)
	logger.DatabaseResult("INSERT", 1, err, "creditCheckID", c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			err = repository.ErrDuplicateReference
		}
		logger.ExitMethodWithError("creditCheckRepository.Create", err, "referenceID", c.ReferenceID)
		return err
	}
	logger.ExitMethod("creditCheckRepository.Create", "creditCheckID", c.ID)
	return nil
}

func (r *creditCheckRepository) GetByID(ctx context.Context, id string) (*domain.CreditCheck, error) {
	query := `SELECT ` + creditCheckColumns + ` FROM credit_checks WHERE id = $1`
	c, err := scanCreditCheck(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *creditCheckRepository) GetByReferenceID(ctx context.Context, referenceID string) (*domain.CreditCheck, error) {
	query := `SELECT ` + creditCheckColumns + ` FROM credit_checks WHERE reference_id = $1`
	c, err := scanCreditCheck(r.db.QueryRowContext(ctx, query, referenceID))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *creditCheckRepository) ListBySubject(ctx context.Context, subjectID int32) ([]domain.CreditCheck, error) {
	query := `SELECT ` + creditCheckColumns + ` FROM credit_checks WHERE subject_id = $1 ORDER BY request_date DESC, id DESC`
	return r.list(ctx, query, subjectID)
}

func (r *creditCheckRepository) GetByApplicationID(ctx context.Context, applicationID int32) (*domain.CreditCheck, error) {
	query := `SELECT ` + creditCheckColumns + ` FROM credit_checks WHERE linked_application_id = $1 ORDER BY request_date DESC, id DESC LIMIT 1`
	c, err := scanCreditCheck(r.db.QueryRowContext(ctx, query, applicationID))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *creditCheckRepository) GetMostRecent(ctx context.Context, subjectID int32) (*domain.CreditCheck, error) {
	query := `SELECT ` + creditCheckColumns + ` FROM credit_checks WHERE subject_id = $1 ORDER BY request_date DESC, id DESC LIMIT 1`
	c, err := scanCreditCheck(r.db.QueryRowContext(ctx, query, subjectID))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *creditCheckRepository) HasCompletedSince(ctx context.Context, subjectID int32, since time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM credit_checks WHERE subject_id = $1 AND status = 'completed' AND completed_date >= $2)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, subjectID, since).Scan(&exists)
	return exists, err
}

func (r *creditCheckRepository) HasPending(ctx context.Context, subjectID int32) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM credit_checks WHERE subject_id = $1 AND status = 'pending')`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(&exists)
	return exists, err
}

func (r *creditCheckRepository) MarkCompleted(ctx context.Context, id string, score int32, report *domain.CreditReport, completedAt time.Time) (bool, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return false, fmt.Errorf("encode credit report: %w", err)
	}

	// The status guard makes the first terminal write win.
	query := `UPDATE credit_checks SET status = 'completed', score = $1, report = $2, completed_date = $3, updated_on = $3
	          WHERE id = $4 AND status = 'pending'`
	logger.DatabaseCall("UPDATE", "credit_checks", "creditCheckID", id, "transition", "completed")
	res, err := r.db.ExecContext(ctx, query, score, payload, completedAt, id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return false, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err)
	return n == 1, err
}

func (r *creditCheckRepository) MarkFailed(ctx context.Context, id string, reason string, at time.Time) (bool, error) {
	query := `UPDATE credit_checks SET status = 'failed', failure_reason = $1, updated_on = $2
	          WHERE id = $3 AND status = 'pending'`
	logger.DatabaseCall("UPDATE", "credit_checks", "creditCheckID", id, "transition", "failed")
	res, err := r.db.ExecContext(ctx, query, reason, at, id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return false, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err)
	return n == 1, err
}

func (r *creditCheckRepository) ListPendingBefore(ctx context.Context, before time.Time) ([]domain.CreditCheck, error) {
	query := `SELECT ` + creditCheckColumns + ` FROM credit_checks WHERE status = 'pending' AND request_date < $1 ORDER BY request_date, id`
	return r.list(ctx, query, before)
}

func (r *creditCheckRepository) list(ctx context.Context, query string, args ...any) ([]domain.CreditCheck, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []domain.CreditCheck
	for rows.Next() {
		c, err := scanCreditCheck(rows)
		if err != nil {
			return nil, err
		}
		checks = append(checks, *c)
	}
	return checks, rows.Err()
}
