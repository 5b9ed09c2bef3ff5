// Package requirements loads a job's requirement rows and turns them into the
// ordered screening question set.
package requirements

import (
	"context"
	"fmt"

	"applicant-screening/internal/common/errors"
	"applicant-screening/internal/common/logger"
	"applicant-screening/internal/models"

	"golang.org/x/sync/errgroup"
)

// Repository is the read side of the job requirement tables.
type Repository interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListDegrees(ctx context.Context, jobID string) ([]models.DegreeRequirement, error)
	ListExperience(ctx context.Context, jobID string) ([]models.ExperienceRequirement, error)
	ListCertifications(ctx context.Context, jobID string) ([]models.CertificationRequirement, error)
	ListHardSkills(ctx context.Context, jobID string) ([]models.SkillRequirement, error)
	ListSoftSkills(ctx context.Context, jobID string) ([]models.SkillRequirement, error)
}

type Loader struct {
	repo   Repository
	logger logger.Logger
}

func NewLoader(repo Repository, log logger.Logger) *Loader {
	return &Loader{
		repo:   repo,
		logger: logger.ForComponent(log, "requirements"),
	}
}

// Load fetches the job and all five requirement categories. A missing job or
// any failed read is a RequirementFetchError; a job with no requirement rows
// is valid.
func (l *Loader) Load(ctx context.Context, jobID string) (*models.JobRequirements, error) {
	job, err := l.repo.GetJob(ctx, jobID)
	if err != nil {
		l.logger.Error("job lookup failed", map[string]interface{}{
			"jobId": jobID,
			"error": err,
		})
		return nil, errors.NewRequirementFetchError(jobID, err)
	}
	if job == nil {
		return nil, errors.NewRequirementFetchError(jobID, fmt.Errorf("job not found"))
	}

	reqs := &models.JobRequirements{Job: *job}

	// The category reads are independent of each other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := l.repo.ListDegrees(gctx, jobID)
		if err != nil {
			return fmt.Errorf("degrees: %w", err)
		}
		reqs.Degrees = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.repo.ListExperience(gctx, jobID)
		if err != nil {
			return fmt.Errorf("experience: %w", err)
		}
		reqs.Experience = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.repo.ListCertifications(gctx, jobID)
		if err != nil {
			return fmt.Errorf("certifications: %w", err)
		}
		reqs.Certifications = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.repo.ListHardSkills(gctx, jobID)
		if err != nil {
			return fmt.Errorf("hard skills: %w", err)
		}
		reqs.HardSkills = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.repo.ListSoftSkills(gctx, jobID)
		if err != nil {
			return fmt.Errorf("soft skills: %w", err)
		}
		reqs.SoftSkills = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		l.logger.Error("requirement fetch failed", map[string]interface{}{
			"jobId": jobID,
			"error": err,
		})
		return nil, errors.NewRequirementFetchError(jobID, err)
	}

	l.logger.Debug("requirements loaded", map[string]interface{}{
		"jobId":          jobID,
		"degrees":        len(reqs.Degrees),
		"experience":     len(reqs.Experience),
		"certifications": len(reqs.Certifications),
		"hardSkills":     len(reqs.HardSkills),
		"softSkills":     len(reqs.SoftSkills),
	})
	return reqs, nil
}

// Count returns the number of questions BuildQuestions will produce.
func Count(reqs *models.JobRequirements) int {
	return len(reqs.Degrees) + len(reqs.Experience) + len(reqs.Certifications) +
		len(reqs.HardSkills) + len(reqs.SoftSkills) + 2
}
