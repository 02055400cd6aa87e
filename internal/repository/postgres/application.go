package postgres

import (
	"context"
	"database/sql"
	"time"

	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/repository"
)

type applicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) repository.ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) GetByID(ctx context.Context, id int32) (*domain.Application, error) {
	a := &domain.Application{}
	query := `SELECT id, property_id, applicant_id, landlord_id, status, credit_check, created_on, updated_on FROM applications WHERE id = $1`
	var createdOn, updatedOn time.Time
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.PropertyID, &a.ApplicantID, &a.LandlordID, &a.Status, &a.CreditCheck, &createdOn, &updatedOn)
	if err != nil {
		return nil, notFound(err)
	}
	a.CreatedOn = createdOn.Format("2006-01-02")
	a.UpdatedOn = updatedOn.Format("2006-01-02")
	return a, nil
}

func (r *applicationRepository) SetCreditCheckIncluded(ctx context.Context, id int32) error {
	query := `UPDATE applications SET credit_check = TRUE, updated_on = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
