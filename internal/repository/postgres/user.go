package postgres

import (
	"context"
	"database/sql"
	"time"

	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/logger"
	"tenantry-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, first_name, last_name, role, credit_score, created_on, updated_on FROM users WHERE id = $1`
	var score sql.NullInt32
	var createdOn, updatedOn time.Time
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &score, &createdOn, &updatedOn)
	if err != nil {
		return nil, notFound(err)
	}
	if score.Valid {
		u.CreditScore = &score.Int32
	}
	u.CreatedOn = createdOn.Format("2006-01-02")
	u.UpdatedOn = updatedOn.Format("2006-01-02")
	return u, nil
}

func (r *userRepository) UpdateCreditScore(ctx context.Context, id int32, score int32) error {
	query := `UPDATE users SET credit_score = $1, updated_on = $2 WHERE id = $3`
	logger.DatabaseCall("UPDATE", "users", "userID", id)
	res, err := r.db.ExecContext(ctx, query, score, time.Now(), id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, nil)
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
