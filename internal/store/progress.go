package store

import (
	"context"
	"database/sql"

	"applicant-screening/internal/common/database"
	"applicant-screening/internal/models"
)

const (
	SourceScreening = "screening"
	SourceReviewer  = "reviewer"
)

// ProgressUpdate is everything a single turn writes to Postgres. Nil or empty
// fields are left alone.
type ProgressUpdate struct {
	UserID     string
	Job        *models.Job
	Assessment *models.Assessment
	Status     models.ApplicantStatus
}

// ProgressRepository commits a turn's durable writes in one transaction.
type ProgressRepository struct {
	db *database.PostgresClient
}

func NewProgressRepository(db *database.PostgresClient) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Commit binds the job, upserts the assessment and records the status, in
// that order. Either all land or none do.
func (r *ProgressRepository) Commit(ctx context.Context, u ProgressUpdate) error {
	if u.Job == nil && u.Assessment == nil && u.Status == "" {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if u.Job != nil {
			if err := bindJob(ctx, tx, u.UserID, u.Job); err != nil {
				return err
			}
		}
		if u.Assessment != nil {
			if err := upsertAssessment(ctx, tx, u.Assessment); err != nil {
				return err
			}
		}
		if u.Status != "" {
			if err := writeStatus(ctx, tx, u.UserID, u.Status, SourceScreening); err != nil {
				return err
			}
		}
		return nil
	})
}
