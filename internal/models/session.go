package models

import "time"

// Question is one generated screening question. Immutable once generated.
type Question struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
}

// RequiresUpload is a property of the (question, answer) pair: only a "Yes"
// to a degree or certification question demands proof.
func (q Question) RequiresUpload(value int) bool {
	if value <= 0 {
		return false
	}
	_, ok := q.Category.UploadDocument()
	return ok
}

// Answer is one entry of the append-only answers log.
type Answer struct {
	QuestionText string   `json:"questionText"`
	Category     Category `json:"category"`
	Value        int      `json:"value"` // 0 or 1
	Synthetic    bool     `json:"synthetic,omitempty"`
}

// Counters accumulates per-category results. Gating counters are nil until answered.
type Counters struct {
	Degree        int   `json:"degree"`
	Experience    int   `json:"experience"`
	Certification int   `json:"certification"`
	HardSkill     int   `json:"hardSkill"`
	SoftSkill     int   `json:"softSkill"`
	WorkSetup     *bool `json:"work_setup,omitempty"`
	Availability  *bool `json:"availability,omitempty"`
}

// Clone returns a deep copy so callers can compute candidate state without mutating.
func (c Counters) Clone() Counters {
	out := c
	if c.WorkSetup != nil {
		v := *c.WorkSetup
		out.WorkSetup = &v
	}
	if c.Availability != nil {
		v := *c.Availability
		out.Availability = &v
	}
	return out
}

// SessionState is the per-applicant conversation state.
type SessionState struct {
	UserID               string                  `json:"userId"`
	Stage                Stage                   `json:"stage"`
	SelectedJobID        string                  `json:"selectedJobId,omitempty"`
	QuestionSet          []Question              `json:"questionSet,omitempty"`
	CurrentQuestionIndex int                     `json:"currentQuestionIndex"`
	Answers              []Answer                `json:"answers,omitempty"`
	Counters             Counters                `json:"counters"`
	AwaitingUpload       *DocumentType           `json:"awaitingUpload,omitempty"`
	UploadedURLs         map[DocumentType]string `json:"uploadedUrls,omitempty"`
	UpdatedAt            time.Time               `json:"updatedAt"`
}

// NewSessionState returns the empty state an applicant starts in.
func NewSessionState(userID string) *SessionState {
	return &SessionState{
		UserID:       userID,
		Stage:        StageInitial,
		UploadedURLs: map[DocumentType]string{},
	}
}

// Clone deep-copies the state.
func (s *SessionState) Clone() *SessionState {
	out := *s
	out.QuestionSet = append([]Question(nil), s.QuestionSet...)
	out.Answers = append([]Answer(nil), s.Answers...)
	out.Counters = s.Counters.Clone()
	if s.AwaitingUpload != nil {
		d := *s.AwaitingUpload
		out.AwaitingUpload = &d
	}
	out.UploadedURLs = make(map[DocumentType]string, len(s.UploadedURLs))
	for k, v := range s.UploadedURLs {
		out.UploadedURLs[k] = v
	}
	return &out
}

// CurrentQuestion returns the question under the cursor, if any remain.
func (s *SessionState) CurrentQuestion() (Question, bool) {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.QuestionSet) {
		return Question{}, false
	}
	return s.QuestionSet[s.CurrentQuestionIndex], true
}

// QuestionsExhausted reports whether the cursor has reached the end.
func (s *SessionState) QuestionsExhausted() bool {
	return s.CurrentQuestionIndex >= len(s.QuestionSet)
}
