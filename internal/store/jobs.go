package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"applicant-screening/internal/common/database"
	"applicant-screening/internal/models"
)

// JobRepository reads jobs and their requirement rows.
type JobRepository struct {
	db *database.PostgresClient
}

func NewJobRepository(db *database.PostgresClient) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	var department, workType, timeCommitment sql.NullString
	err := r.db.DB.QueryRowContext(ctx, `
		SELECT id, title, department, work_type, time_commitment, is_open
		FROM jobs
		WHERE id = $1`, jobID).Scan(
		&job.ID, &job.Title, &department, &workType, &timeCommitment, &job.Open,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	job.Department = department.String
	job.WorkType = workType.String
	job.TimeCommitment = timeCommitment.String
	return &job, nil
}

// ListOpenJobs returns open positions ordered by title.
func (r *JobRepository) ListOpenJobs(ctx context.Context) ([]models.Job, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT id, title, department, work_type, time_commitment, is_open
		FROM jobs
		WHERE is_open = true
		ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var job models.Job
		var department, workType, timeCommitment sql.NullString
		if err := rows.Scan(&job.ID, &job.Title, &department, &workType, &timeCommitment, &job.Open); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		job.Department = department.String
		job.WorkType = workType.String
		job.TimeCommitment = timeCommitment.String
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return jobs, nil
}

func (r *JobRepository) ListDegrees(ctx context.Context, jobID string) ([]models.DegreeRequirement, error) {
	names, err := r.names(ctx, `SELECT name FROM job_degrees WHERE job_id = $1 ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	out := make([]models.DegreeRequirement, 0, len(names))
	for _, n := range names {
		out = append(out, models.DegreeRequirement{Name: n})
	}
	return out, nil
}

func (r *JobRepository) ListExperience(ctx context.Context, jobID string) ([]models.ExperienceRequirement, error) {
	rows, err := r.db.DB.QueryContext(ctx, `SELECT field, years FROM job_experience WHERE job_id = $1 ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []models.ExperienceRequirement
	for rows.Next() {
		var e models.ExperienceRequirement
		if err := rows.Scan(&e.Field, &e.Years); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return out, nil
}

func (r *JobRepository) ListCertifications(ctx context.Context, jobID string) ([]models.CertificationRequirement, error) {
	names, err := r.names(ctx, `SELECT name FROM job_certifications WHERE job_id = $1 ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	out := make([]models.CertificationRequirement, 0, len(names))
	for _, n := range names {
		out = append(out, models.CertificationRequirement{Name: n})
	}
	return out, nil
}

func (r *JobRepository) ListHardSkills(ctx context.Context, jobID string) ([]models.SkillRequirement, error) {
	return r.skills(ctx, jobID, "hard")
}

func (r *JobRepository) ListSoftSkills(ctx context.Context, jobID string) ([]models.SkillRequirement, error) {
	return r.skills(ctx, jobID, "soft")
}

func (r *JobRepository) skills(ctx context.Context, jobID, kind string) ([]models.SkillRequirement, error) {
	names, err := r.names(ctx, `SELECT name FROM job_skills WHERE job_id = $1 AND kind = $2 ORDER BY id`, jobID, kind)
	if err != nil {
		return nil, err
	}
	out := make([]models.SkillRequirement, 0, len(names))
	for _, n := range names {
		out = append(out, models.SkillRequirement{Name: n})
	}
	return out, nil
}

func (r *JobRepository) names(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return out, nil
}
