// internal/models/application.go
package models

import "time"

// Applicant is the durable applicant record.
type Applicant struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	JobID        string          `json:"jobId,omitempty"`
	DepartmentID string          `json:"department,omitempty"`
	Status       ApplicantStatus `json:"status"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Job is an open position an applicant can screen for.
type Job struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Department     string `json:"department"`
	WorkType       string `json:"workType"`
	TimeCommitment string `json:"timeCommitment"`
	Open           bool   `json:"open"`
}

type DegreeRequirement struct {
	Name string `json:"name"`
}

type ExperienceRequirement struct {
	Field string `json:"field"`
	Years int    `json:"years"`
}

type CertificationRequirement struct {
	Name string `json:"name"`
}

type SkillRequirement struct {
	Name string `json:"name"`
}

// JobRequirements is everything the question generator needs for one job.
type JobRequirements struct {
	Job            Job                        `json:"job"`
	Degrees        []DegreeRequirement        `json:"degrees"`
	Experience     []ExperienceRequirement    `json:"experience"`
	Certifications []CertificationRequirement `json:"certifications"`
	HardSkills     []SkillRequirement         `json:"hardSkills"`
	SoftSkills     []SkillRequirement         `json:"softSkills"`
}

// Assessment is the screening-assessment record keyed by (UserID, JobID).
type Assessment struct {
	UserID           string    `json:"userId"`
	JobID            string    `json:"jobId"`
	Counters         Counters  `json:"counters"`
	Answers          []Answer  `json:"answers"`
	TotalScore       int       `json:"totalScore"`
	Disqualified     bool      `json:"disqualified"`
	DegreeURL        string    `json:"degreeUrl,omitempty"`
	CertificationURL string    `json:"certificationUrl,omitempty"`
	ResumeURL        string    `json:"resumeUrl,omitempty"`
	Completed        bool      `json:"completed"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
