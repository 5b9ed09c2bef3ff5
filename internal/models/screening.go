package models

// Stage is the conversation state machine's current step.
type Stage string

const (
	StageInitial            Stage = "initial"
	StageJobSelection       Stage = "job_selection"
	StageScreeningQuestions Stage = "screening_questions"
	StageFileUpload         Stage = "file_upload"
	StageResumeUpload       Stage = "resume_upload"
	StageAwaitingHR         Stage = "awaiting_hr"
	StageRejected           Stage = "rejected"
	StagePassedP1           Stage = "passed_p1"
	StagePassedP2           Stage = "passed_p2"
	StageFailed             Stage = "failed"
)

// AllStages lists every stage in lifecycle order.
var AllStages = []Stage{
	StageInitial,
	StageJobSelection,
	StageScreeningQuestions,
	StageFileUpload,
	StageResumeUpload,
	StageAwaitingHR,
	StageRejected,
	StagePassedP1,
	StagePassedP2,
	StageFailed,
}

func (s Stage) Valid() bool {
	switch s {
	case StageInitial, StageJobSelection, StageScreeningQuestions, StageFileUpload,
		StageResumeUpload, StageAwaitingHR, StageRejected, StagePassedP1, StagePassedP2, StageFailed:
		return true
	}
	return false
}

// Category tags a screening question.
type Category string

const (
	CategoryDegree        Category = "degree"
	CategoryExperience    Category = "experience"
	CategoryCertification Category = "certification"
	CategoryHardSkill     Category = "hardSkill"
	CategorySoftSkill     Category = "softSkill"
	CategoryWorkSetup     Category = "work_setup"
	CategoryAvailability  Category = "availability"
)

// QuantitativeCategories are summed into the total score, in question order.
var QuantitativeCategories = []Category{
	CategoryDegree,
	CategoryExperience,
	CategoryCertification,
	CategoryHardSkill,
	CategorySoftSkill,
}

func (c Category) Valid() bool {
	return c.Quantitative() || c.Gating()
}

func (c Category) Quantitative() bool {
	switch c {
	case CategoryDegree, CategoryExperience, CategoryCertification, CategoryHardSkill, CategorySoftSkill:
		return true
	}
	return false
}

// Gating categories disqualify on a "No".
func (c Category) Gating() bool {
	return c == CategoryWorkSetup || c == CategoryAvailability
}

// UploadDocument reports which proof document a "Yes" to this category demands.
func (c Category) UploadDocument() (DocumentType, bool) {
	switch c {
	case CategoryDegree:
		return DocumentDegree, true
	case CategoryCertification:
		return DocumentCertification, true
	}
	return "", false
}

// DocumentType names an evidentiary upload.
type DocumentType string

const (
	DocumentDegree        DocumentType = "degree"
	DocumentCertification DocumentType = "certification"
	DocumentResume        DocumentType = "resume"
)

func (d DocumentType) Valid() bool {
	switch d {
	case DocumentDegree, DocumentCertification, DocumentResume:
		return true
	}
	return false
}

// ApplicantStatus is the durable, externally visible mirror of Stage.
type ApplicantStatus string

const (
	StatusApplicant        ApplicantStatus = "Applicant"
	StatusPositionSelected ApplicantStatus = "P1 - Position selected"
	StatusInitialScreening ApplicantStatus = "P1 - Initial screening"
	StatusAwaitingHR       ApplicantStatus = "P1 - Awaiting for HR Action"
	StatusDisqualified     ApplicantStatus = "P1 - Disqualified"
	StatusP1Passed         ApplicantStatus = "P1 - PASSED"
	StatusP1Failed         ApplicantStatus = "P1 - FAILED"
	StatusP2Passed         ApplicantStatus = "P2 - PASSED"
	StatusP2Failed         ApplicantStatus = "P2 - FAILED"
)

func (s ApplicantStatus) Valid() bool {
	switch s {
	case StatusApplicant, StatusPositionSelected, StatusInitialScreening, StatusAwaitingHR,
		StatusDisqualified, StatusP1Passed, StatusP1Failed, StatusP2Passed, StatusP2Failed:
		return true
	}
	return false
}

// StatusForStage is total over Stage: every stage has exactly one status.
func StatusForStage(stage Stage) ApplicantStatus {
	switch stage {
	case StageJobSelection:
		return StatusPositionSelected
	case StageScreeningQuestions, StageFileUpload, StageResumeUpload:
		return StatusInitialScreening
	case StageAwaitingHR:
		return StatusAwaitingHR
	case StageRejected:
		return StatusDisqualified
	case StagePassedP1:
		return StatusP1Passed
	case StagePassedP2:
		return StatusP2Passed
	case StageFailed:
		return StatusP1Failed
	default:
		return StatusApplicant
	}
}

// MilestoneStage maps a reviewer-set status onto the stage it forces.
func MilestoneStage(status ApplicantStatus) (Stage, bool) {
	switch status {
	case StatusP1Passed:
		return StagePassedP1, true
	case StatusP2Passed:
		return StagePassedP2, true
	case StatusP1Failed, StatusP2Failed:
		return StageFailed, true
	}
	return "", false
}
