package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"applicant-screening/internal/common/database"
	"applicant-screening/internal/models"
)

type ApplicantRepository struct {
	db *database.PostgresClient
}

func NewApplicantRepository(db *database.PostgresClient) *ApplicantRepository {
	return &ApplicantRepository{db: db}
}

func (r *ApplicantRepository) Get(ctx context.Context, userID string) (*models.Applicant, error) {
	var a models.Applicant
	var name, email, jobID, department sql.NullString
	var status string
	err := r.db.DB.QueryRowContext(ctx, `
		SELECT id, name, email, job_id, department, status, updated_at
		FROM applicants
		WHERE id = $1`, userID).Scan(
		&a.ID, &name, &email, &jobID, &department, &status, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: applicant %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	a.Name = name.String
	a.Email = email.String
	a.JobID = jobID.String
	a.DepartmentID = department.String
	a.Status = models.ApplicantStatus(status)
	return &a, nil
}

// GetStatus returns the authoritative applicant status. An applicant with no
// row yet is still plain "Applicant".
func (r *ApplicantRepository) GetStatus(ctx context.Context, userID string) (models.ApplicantStatus, error) {
	var status string
	err := r.db.DB.QueryRowContext(ctx, `SELECT status FROM applicants WHERE id = $1`, userID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StatusApplicant, nil
		}
		return "", fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return models.ApplicantStatus(status), nil
}

// SetStatus writes a reviewer decision outside of a screening turn.
func (r *ApplicantRepository) SetStatus(ctx context.Context, userID string, status models.ApplicantStatus, source string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return writeStatus(ctx, tx, userID, status, source)
	})
}

func writeStatus(ctx context.Context, tx *sql.Tx, userID string, status models.ApplicantStatus, source string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO applicants (id, status, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
			SET status = EXCLUDED.status,
			    updated_at = EXCLUDED.updated_at`, userID, string(status)); err != nil {
		return fmt.Errorf("%w: update status: %v", ErrQueryFailed, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO applicant_status_history (user_id, status, source, changed_at)
		VALUES ($1, $2, $3, NOW())`, userID, string(status), source); err != nil {
		return fmt.Errorf("%w: status history: %v", ErrQueryFailed, err)
	}
	return nil
}

func bindJob(ctx context.Context, tx *sql.Tx, userID string, job *models.Job) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO applicants (id, job_id, department, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
			SET job_id = EXCLUDED.job_id,
			    department = EXCLUDED.department,
			    updated_at = EXCLUDED.updated_at`, userID, job.ID, job.Department); err != nil {
		return fmt.Errorf("%w: bind job: %v", ErrQueryFailed, err)
	}
	return nil
}
