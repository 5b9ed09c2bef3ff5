package requirements

import (
	"fmt"
	"strings"

	"applicant-screening/internal/models"
)

// BuildQuestions generates the question set in its fixed order: degrees,
// experience, certifications, hard skills, soft skills, then exactly one
// work_setup and one availability question.
func BuildQuestions(reqs *models.JobRequirements) []models.Question {
	questions := make([]models.Question, 0, Count(reqs))

	for _, d := range reqs.Degrees {
		questions = append(questions, models.Question{
			Category: models.CategoryDegree,
			Text:     fmt.Sprintf("Do you have a %s degree?", d.Name),
		})
	}
	for _, e := range reqs.Experience {
		questions = append(questions, models.Question{
			Category: models.CategoryExperience,
			Text:     fmt.Sprintf("Do you have at least %s of experience in %s?", years(e.Years), e.Field),
		})
	}
	for _, c := range reqs.Certifications {
		questions = append(questions, models.Question{
			Category: models.CategoryCertification,
			Text:     fmt.Sprintf("Do you hold a %s certification?", c.Name),
		})
	}
	for _, s := range reqs.HardSkills {
		questions = append(questions, models.Question{
			Category: models.CategoryHardSkill,
			Text:     fmt.Sprintf("Are you proficient in %s?", s.Name),
		})
	}
	for _, s := range reqs.SoftSkills {
		questions = append(questions, models.Question{
			Category: models.CategorySoftSkill,
			Text:     fmt.Sprintf("Would you say you have strong %s skills?", s.Name),
		})
	}

	questions = append(questions,
		models.Question{
			Category: models.CategoryWorkSetup,
			Text:     fmt.Sprintf("This position is %s. Are you comfortable with this work setup?", orDefault(reqs.Job.WorkType, "on-site")),
		},
		models.Question{
			Category: models.CategoryAvailability,
			Text:     fmt.Sprintf("This role requires availability %s. Are you available during this time?", orDefault(reqs.Job.TimeCommitment, "during regular business hours")),
		},
	)
	return questions
}

func years(n int) string {
	if n == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", n)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
