package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"applicant-screening/internal/common/database"
	"applicant-screening/internal/models"
)

type AssessmentRepository struct {
	db *database.PostgresClient
}

func NewAssessmentRepository(db *database.PostgresClient) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

func (r *AssessmentRepository) Get(ctx context.Context, userID, jobID string) (*models.Assessment, error) {
	var a models.Assessment
	var counters, answers []byte
	var degreeURL, certificationURL, resumeURL sql.NullString
	err := r.db.DB.QueryRowContext(ctx, `
		SELECT user_id, job_id, counters, answers, total_score, disqualified,
		       degree_url, certification_url, resume_url, completed, updated_at
		FROM screening_assessments
		WHERE user_id = $1 AND job_id = $2`, userID, jobID).Scan(
		&a.UserID, &a.JobID, &counters, &answers, &a.TotalScore, &a.Disqualified,
		&degreeURL, &certificationURL, &resumeURL, &a.Completed, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: assessment %s/%s", ErrNotFound, userID, jobID)
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	if err := json.Unmarshal(counters, &a.Counters); err != nil {
		return nil, fmt.Errorf("decode counters: %w", err)
	}
	if err := json.Unmarshal(answers, &a.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	a.DegreeURL = degreeURL.String
	a.CertificationURL = certificationURL.String
	a.ResumeURL = resumeURL.String
	return &a, nil
}

// upsertAssessment writes the assessment keyed by (user_id, job_id).
func upsertAssessment(ctx context.Context, tx *sql.Tx, a *models.Assessment) error {
	counters, err := json.Marshal(a.Counters)
	if err != nil {
		return fmt.Errorf("encode counters: %w", err)
	}
	answers := a.Answers
	if answers == nil {
		answers = []models.Answer{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO screening_assessments (
			user_id, job_id, counters, answers, total_score, disqualified,
			degree_url, certification_url, resume_url, completed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (user_id, job_id) DO UPDATE
			SET counters = EXCLUDED.counters,
			    answers = EXCLUDED.answers,
			    total_score = EXCLUDED.total_score,
			    disqualified = EXCLUDED.disqualified,
			    degree_url = EXCLUDED.degree_url,
			    certification_url = EXCLUDED.certification_url,
			    resume_url = EXCLUDED.resume_url,
			    completed = EXCLUDED.completed,
			    updated_at = EXCLUDED.updated_at`,
		a.UserID, a.JobID, counters, answersJSON, a.TotalScore, a.Disqualified,
		nullable(a.DegreeURL), nullable(a.CertificationURL), nullable(a.ResumeURL), a.Completed,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert assessment: %v", ErrQueryFailed, err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
