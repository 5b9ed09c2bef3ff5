package store

import (
	"context"
	"fmt"

	"applicant-screening/internal/common/database"
)

// Schema is applied in order by Migrate. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id VARCHAR(255) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		department VARCHAR(255),
		work_type VARCHAR(100),
		time_commitment VARCHAR(255),
		is_open BOOLEAN DEFAULT true,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS job_degrees (
		id SERIAL PRIMARY KEY,
		job_id VARCHAR(255) REFERENCES jobs(id),
		name VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS job_experience (
		id SERIAL PRIMARY KEY,
		job_id VARCHAR(255) REFERENCES jobs(id),
		field VARCHAR(255) NOT NULL,
		years INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS job_certifications (
		id SERIAL PRIMARY KEY,
		job_id VARCHAR(255) REFERENCES jobs(id),
		name VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS job_skills (
		id SERIAL PRIMARY KEY,
		job_id VARCHAR(255) REFERENCES jobs(id),
		kind VARCHAR(10) NOT NULL CHECK (kind IN ('hard', 'soft')),
		name VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS applicants (
		id VARCHAR(255) PRIMARY KEY,
		name VARCHAR(255),
		email VARCHAR(255),
		job_id VARCHAR(255),
		department VARCHAR(255),
		status VARCHAR(100) NOT NULL DEFAULT 'Applicant',
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS applicant_status_history (
		id SERIAL PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		status VARCHAR(100) NOT NULL,
		source VARCHAR(50) NOT NULL,
		changed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS screening_assessments (
		user_id VARCHAR(255) NOT NULL,
		job_id VARCHAR(255) NOT NULL,
		counters JSONB NOT NULL,
		answers JSONB NOT NULL,
		total_score INTEGER NOT NULL DEFAULT 0,
		disqualified BOOLEAN NOT NULL DEFAULT false,
		degree_url TEXT,
		certification_url TEXT,
		resume_url TEXT,
		completed BOOLEAN NOT NULL DEFAULT false,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, job_id)
	)`,
	`CREATE TABLE IF NOT EXISTS chat_log (
		id UUID PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		sender VARCHAR(20) NOT NULL,
		stage VARCHAR(50) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_log_user_time ON chat_log (user_id, created_at, seq)`,
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *database.PostgresClient) error {
	for i, stmt := range Schema {
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
