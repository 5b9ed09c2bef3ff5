// Package scoring folds yes/no answers into per-category counters.
package scoring

import (
	"applicant-screening/internal/models"
)

const (
	No  = 0
	Yes = 1
)

// Apply returns counters with one answer folded in. Quantitative categories
// add the value; gating categories are overwritten with value > 0. The input
// is never mutated, so applying the same answer to the same counters always
// yields the same result.
func Apply(counters models.Counters, category models.Category, value int) models.Counters {
	out := counters.Clone()
	switch category {
	case models.CategoryDegree:
		out.Degree += value
	case models.CategoryExperience:
		out.Experience += value
	case models.CategoryCertification:
		out.Certification += value
	case models.CategoryHardSkill:
		out.HardSkill += value
	case models.CategorySoftSkill:
		out.SoftSkill += value
	case models.CategoryWorkSetup:
		v := value > 0
		out.WorkSetup = &v
	case models.CategoryAvailability:
		v := value > 0
		out.Availability = &v
	}
	return out
}

// TotalScore sums the five quantitative counters only.
func TotalScore(counters models.Counters) int {
	return counters.Degree + counters.Experience + counters.Certification +
		counters.HardSkill + counters.SoftSkill
}

// IsDisqualified is true iff a gating counter has been answered "No".
func IsDisqualified(counters models.Counters) bool {
	if counters.WorkSetup != nil && !*counters.WorkSetup {
		return true
	}
	if counters.Availability != nil && !*counters.Availability {
		return true
	}
	return false
}

// DisqualifyingCategory names the gating category that failed, if any.
func DisqualifyingCategory(counters models.Counters) (models.Category, bool) {
	switch {
	case counters.WorkSetup != nil && !*counters.WorkSetup:
		return models.CategoryWorkSetup, true
	case counters.Availability != nil && !*counters.Availability:
		return models.CategoryAvailability, true
	}
	return "", false
}

// Record applies one answer and appends it to the log.
func Record(counters models.Counters, answers []models.Answer, q models.Question, value int) (models.Counters, []models.Answer) {
	answers = append(answers, models.Answer{
		QuestionText: q.Text,
		Category:     q.Category,
		Value:        value,
	})
	return Apply(counters, q.Category, value), answers
}

// Backfill records a synthetic "No" for every question from fromIndex on.
// Used when a gating answer ends the screening pass early.
func Backfill(questions []models.Question, fromIndex int, counters models.Counters, answers []models.Answer) (models.Counters, []models.Answer) {
	if fromIndex < 0 {
		fromIndex = 0
	}
	for i := fromIndex; i < len(questions); i++ {
		q := questions[i]
		answers = append(answers, models.Answer{
			QuestionText: q.Text,
			Category:     q.Category,
			Value:        No,
			Synthetic:    true,
		})
		counters = Apply(counters, q.Category, No)
	}
	return counters, answers
}
