package conversation

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"applicant-screening/internal/common/errors"
	"applicant-screening/internal/common/logger"
	"applicant-screening/internal/common/observability"
	"applicant-screening/internal/models"
	"applicant-screening/internal/screening/requirements"
	"applicant-screening/internal/screening/uploadgate"
	"applicant-screening/internal/session"
	"applicant-screening/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser      = "user-1"
	schedulingURL = "https://calendar.example.com/book"
)

type fakeApplicants struct {
	mu       sync.Mutex
	statuses map[string]models.ApplicantStatus
	sets     []models.ApplicantStatus
	statErr  error
}

func (f *fakeApplicants) Get(ctx context.Context, userID string) (*models.Applicant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.Applicant{ID: userID, Name: "Jamie", Email: "jamie@example.com", Status: f.status(userID)}, nil
}

func (f *fakeApplicants) GetStatus(ctx context.Context, userID string) (models.ApplicantStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statErr != nil {
		return "", f.statErr
	}
	return f.status(userID), nil
}

func (f *fakeApplicants) SetStatus(ctx context.Context, userID string, status models.ApplicantStatus, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[userID] = status
	f.sets = append(f.sets, status)
	return nil
}

func (f *fakeApplicants) status(userID string) models.ApplicantStatus {
	if s, ok := f.statuses[userID]; ok {
		return s
	}
	return models.StatusApplicant
}

type fakeProgress struct {
	applicants  *fakeApplicants
	commits     []store.ProgressUpdate
	assessments map[string]models.Assessment
	err         error
}

func (f *fakeProgress) Commit(ctx context.Context, u store.ProgressUpdate) error {
	if f.err != nil {
		return f.err
	}
	f.commits = append(f.commits, u)
	if u.Assessment != nil {
		f.assessments[u.Assessment.JobID] = *u.Assessment
	}
	if u.Status != "" {
		f.applicants.mu.Lock()
		f.applicants.statuses[u.UserID] = u.Status
		f.applicants.mu.Unlock()
	}
	return nil
}

func (f *fakeProgress) statusWrites() []models.ApplicantStatus {
	var out []models.ApplicantStatus
	for _, c := range f.commits {
		if c.Status != "" {
			out = append(out, c.Status)
		}
	}
	return out
}

type fakeChatLog struct {
	entries   []models.ChatLogEntry
	appendErr error
}

func (f *fakeChatLog) Append(ctx context.Context, entry *models.ChatLogEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeChatLog) History(ctx context.Context, userID string, limit int) ([]models.ChatLogEntry, error) {
	var out []models.ChatLogEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeChatLog) Latest(ctx context.Context, userID string) (time.Time, error) {
	var last time.Time
	for _, e := range f.entries {
		if e.UserID == userID && e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	return last, nil
}

type fakeAssessments struct {
	progress *fakeProgress
}

func (f *fakeAssessments) Get(ctx context.Context, userID, jobID string) (*models.Assessment, error) {
	a, ok := f.progress.assessments[jobID]
	if !ok || a.UserID != userID {
		return nil, fmt.Errorf("%w: assessment %s/%s", store.ErrNotFound, userID, jobID)
	}
	return &a, nil
}

// failingSaves is a session store whose writes fail while reads still work.
type failingSaves struct {
	*session.RedisStore
	err error
}

func (f *failingSaves) Save(ctx context.Context, state *models.SessionState) error {
	return f.err
}

type fakeJobs struct {
	jobs []models.Job
	err  error
}

func (f *fakeJobs) ListOpenJobs(ctx context.Context) ([]models.Job, error) {
	return f.jobs, f.err
}

type fakeRequirements struct {
	byJob map[string]*models.JobRequirements
	err   error
}

func (f *fakeRequirements) Load(ctx context.Context, jobID string) (*models.JobRequirements, error) {
	if f.err != nil {
		return nil, errors.NewRequirementFetchError(jobID, f.err)
	}
	reqs, ok := f.byJob[jobID]
	if !ok {
		return nil, errors.NewRequirementFetchError(jobID, fmt.Errorf("job not found"))
	}
	return reqs, nil
}

type fakeBlob struct {
	uploads []models.DocumentType
	err     error
}

func (f *fakeBlob) Upload(ctx context.Context, ownerID string, file *models.FileUpload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, file.DocumentType)
	return fmt.Sprintf("https://blob.test/%s/%s/%s", ownerID, file.DocumentType, file.FileName), nil
}

type recordingNotifier struct {
	statuses []models.ApplicantStatus
	titles   []string
}

func (r *recordingNotifier) NotifyMilestone(ctx context.Context, applicant *models.Applicant, status models.ApplicantStatus, jobTitle string) (*models.Notification, error) {
	r.statuses = append(r.statuses, status)
	r.titles = append(r.titles, jobTitle)
	return &models.Notification{RecipientID: applicant.ID, Email: applicant.Email, Status: status}, nil
}

type recordingPublisher struct {
	events []models.StatusEvent
}

func (r *recordingPublisher) PublishStatusChange(ctx context.Context, event models.StatusEvent) error {
	r.events = append(r.events, event)
	return nil
}

type harness struct {
	t          *testing.T
	engine     *Engine
	mr         *miniredis.Miniredis
	sessions   *session.RedisStore
	applicants *fakeApplicants
	progress   *fakeProgress
	chat       *fakeChatLog
	jobs       *fakeJobs
	reqs       *fakeRequirements
	blob       *fakeBlob
	notifier   *recordingNotifier
	publisher  *recordingPublisher
}

func backendRequirements() *models.JobRequirements {
	return &models.JobRequirements{
		Job: models.Job{
			ID:         "job-1",
			Title:      "Backend Engineer",
			Department: "Engineering",
			WorkType:   "remote",
			Open:       true,
		},
		Degrees:    []models.DegreeRequirement{{Name: "Computer Science"}},
		HardSkills: []models.SkillRequirement{{Name: "Go"}},
	}
}

func analystRequirements() *models.JobRequirements {
	return &models.JobRequirements{
		Job:        models.Job{ID: "job-2", Title: "Data Analyst", Department: "Finance", Open: true},
		SoftSkills: []models.SkillRequirement{{Name: "communication"}},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewTestLogger(t)
	applicants := &fakeApplicants{statuses: map[string]models.ApplicantStatus{}}
	backend, analyst := backendRequirements(), analystRequirements()

	h := &harness{
		t:          t,
		mr:         mr,
		sessions:   session.NewRedisStore(rdb, "screening"),
		applicants: applicants,
		progress:   &fakeProgress{applicants: applicants, assessments: map[string]models.Assessment{}},
		chat:       &fakeChatLog{},
		jobs:       &fakeJobs{jobs: []models.Job{backend.Job, analyst.Job}},
		reqs: &fakeRequirements{byJob: map[string]*models.JobRequirements{
			backend.Job.ID: backend,
			analyst.Job.ID: analyst,
		}},
		blob:      &fakeBlob{},
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
	}

	h.engine = NewEngine(&Config{
		SchedulingURL: schedulingURL,
		TurnTimeout:   5 * time.Second,
		HistoryLimit:  200,
	}, Dependencies{
		Sessions:      h.sessions,
		Locks:         session.NewTurnLock(rdb, "screening", 15*time.Second),
		Applicants:    h.applicants,
		Progress:      h.progress,
		Assessments:   &fakeAssessments{progress: h.progress},
		ChatLog:       h.chat,
		Jobs:          h.jobs,
		Requirements:  h.reqs,
		Gate:          uploadgate.NewGate(h.blob, log),
		Notifier:      h.notifier,
		Publisher:     h.publisher,
		Observability: observability.NewNoop(),
		Logger:        log,
	})
	h.engine.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return h
}

func (h *harness) say(text string) *TurnResponse {
	h.t.Helper()
	resp, err := h.engine.Turn(context.Background(), testUser, TurnRequest{Message: text})
	require.NoError(h.t, err)
	return resp
}

func (h *harness) upload(doc models.DocumentType) *TurnResponse {
	h.t.Helper()
	resp, err := h.engine.Turn(context.Background(), testUser, TurnRequest{Upload: &models.FileUpload{
		DocumentType: doc,
		FileName:     string(doc) + ".pdf",
		ContentType:  "application/pdf",
		Body:         strings.NewReader("%PDF-1.4"),
		Size:         8,
	}})
	require.NoError(h.t, err)
	return resp
}

func (h *harness) state() *models.SessionState {
	h.t.Helper()
	st, err := h.sessions.Load(context.Background(), testUser)
	require.NoError(h.t, err)
	return st
}

// seed stores a Backend Engineer session positioned at stage and index.
func (h *harness) seed(stage models.Stage, index int) *models.SessionState {
	h.t.Helper()
	st := models.NewSessionState(testUser)
	st.Stage = stage
	st.SelectedJobID = "job-1"
	st.QuestionSet = requirements.BuildQuestions(backendRequirements())
	st.CurrentQuestionIndex = index
	require.NoError(h.t, h.sessions.Save(context.Background(), st))
	h.applicants.statuses[testUser] = models.StatusForStage(stage)
	return st
}

func TestTurn_InitialShowsOpenPositions(t *testing.T) {
	h := newHarness(t)

	resp := h.say("hello")

	assert.Nil(t, resp.Error)
	assert.Equal(t, models.StageInitial, resp.Stage)
	assert.Contains(t, resp.Response.Text, "open positions")
	require.Len(t, resp.Response.Buttons, 2)
	assert.Equal(t, "select_job:job-1", resp.Response.Buttons[0].Value)
	assert.Empty(t, h.progress.statusWrites())
}

func TestTurn_CompletesScreeningAndAwaitsHR(t *testing.T) {
	h := newHarness(t)

	resp := h.say("I'd like to apply for the Backend Engineer role")
	assert.Equal(t, models.StageJobSelection, resp.Stage)
	assert.Contains(t, resp.Response.Text, "Backend Engineer")
	assert.Contains(t, resp.Response.Text, "4 short questions")
	require.NotNil(t, h.progress.commits[len(h.progress.commits)-1].Job)
	assert.Equal(t, models.StatusPositionSelected, h.applicants.statuses[testUser])

	resp = h.say("yes")
	assert.Equal(t, models.StageScreeningQuestions, resp.Stage)
	assert.Equal(t, "Do you have a Computer Science degree?", resp.Response.Text)

	resp = h.say("Yes")
	assert.Equal(t, models.StageFileUpload, resp.Stage)
	require.Len(t, resp.Response.Buttons, 1)
	assert.Equal(t, "upload:degree", resp.Response.Buttons[0].Value)
	assert.Equal(t, 0, h.state().CurrentQuestionIndex)

	resp = h.upload(models.DocumentDegree)
	assert.Equal(t, models.StageScreeningQuestions, resp.Stage)
	assert.Equal(t, "Are you proficient in Go?", resp.Response.Text)
	st := h.state()
	assert.Equal(t, 1, st.CurrentQuestionIndex)
	assert.Nil(t, st.AwaitingUpload)
	assert.Equal(t, "https://blob.test/user-1/degree/degree.pdf", st.UploadedURLs[models.DocumentDegree])

	h.say("yes")
	h.say("yes")
	resp = h.say("yes")
	assert.Equal(t, models.StageResumeUpload, resp.Stage)
	assert.Equal(t, models.StatusInitialScreening, h.applicants.statuses[testUser])

	assessment := h.progress.assessments["job-1"]
	assert.Equal(t, 2, assessment.TotalScore)
	assert.False(t, assessment.Disqualified)
	assert.False(t, assessment.Completed)
	assert.NotEmpty(t, assessment.DegreeURL)
	assert.Len(t, assessment.Answers, 4)

	resp = h.upload(models.DocumentResume)
	assert.Equal(t, models.StageAwaitingHR, resp.Stage)
	assert.Contains(t, resp.Response.Text, "resume")
	assert.Equal(t, models.StatusAwaitingHR, h.applicants.statuses[testUser])
	assessment = h.progress.assessments["job-1"]
	assert.True(t, assessment.Completed)
	assert.NotEmpty(t, assessment.ResumeURL)

	assert.Equal(t, []models.ApplicantStatus{
		models.StatusPositionSelected,
		models.StatusInitialScreening,
		models.StatusAwaitingHR,
	}, h.progress.statusWrites())
	require.Len(t, h.publisher.events, 3)
	assert.Equal(t, models.StatusApplicant, h.publisher.events[0].OldStatus)
	assert.Equal(t, store.SourceScreening, h.publisher.events[2].Source)

	resp = h.say("any news?")
	assert.Equal(t, models.StageAwaitingHR, resp.Stage)
	assert.Contains(t, resp.Response.Text, "under review")
}

func TestTurn_GatingNoDisqualifiesAndBackfills(t *testing.T) {
	h := newHarness(t)
	h.seed(models.StageScreeningQuestions, 1)
	st := h.state()
	st.Counters.Degree = 1
	require.NoError(t, h.sessions.Save(context.Background(), st))

	h.say("yes")
	resp := h.say("No")

	assert.Equal(t, models.StageRejected, resp.Stage)
	assert.Contains(t, resp.Response.Text, "do not meet the requirements")
	assert.Equal(t, models.StatusDisqualified, h.applicants.statuses[testUser])

	final := h.state()
	require.Len(t, final.Answers, 3)
	last := final.Answers[2]
	assert.Equal(t, models.CategoryAvailability, last.Category)
	assert.Equal(t, 0, last.Value)
	assert.True(t, last.Synthetic)
	require.NotNil(t, final.Counters.Availability)
	assert.False(t, *final.Counters.Availability)

	assessment := h.progress.assessments["job-1"]
	assert.True(t, assessment.Disqualified)
	assert.True(t, assessment.Completed)
	assert.Equal(t, 2, assessment.TotalScore)
}

func TestTurn_UploadStageIgnoresOtherInput(t *testing.T) {
	stages := []struct {
		name    string
		stage   models.Stage
		index   int
		pending models.DocumentType
		wrong   models.DocumentType
		prompt  string
	}{
		{"degree proof", models.StageFileUpload, 0, models.DocumentDegree, models.DocumentResume, "diploma"},
		{"resume", models.StageResumeUpload, 4, models.DocumentResume, models.DocumentDegree, "resume"},
	}
	for _, sc := range stages {
		t.Run(sc.name, func(t *testing.T) {
			h := newHarness(t)
			st := h.seed(models.StageScreeningQuestions, sc.index)
			doc := sc.pending
			st.Stage = sc.stage
			st.AwaitingUpload = &doc
			require.NoError(t, h.sessions.Save(context.Background(), st))

			inputs := []struct {
				name string
				send func() *TurnResponse
			}{
				{"text message", func() *TurnResponse { return h.say("here you go") }},
				{"job title", func() *TurnResponse { return h.say("Data Analyst") }},
				{"job button value", func() *TurnResponse { return h.say("select_job:job-2") }},
				{"wrong document", func() *TurnResponse { return h.upload(sc.wrong) }},
			}
			for _, in := range inputs {
				resp := in.send()
				assert.Nil(t, resp.Error, in.name)
				assert.Equal(t, sc.stage, resp.Stage, in.name)
				assert.Contains(t, resp.Response.Text, sc.prompt, in.name)

				cur := h.state()
				assert.Equal(t, "job-1", cur.SelectedJobID, in.name)
				assert.Equal(t, sc.index, cur.CurrentQuestionIndex, in.name)
				require.NotNil(t, cur.AwaitingUpload, in.name)
				assert.Equal(t, sc.pending, *cur.AwaitingUpload, in.name)
			}
			assert.Empty(t, h.blob.uploads)
			assert.Empty(t, h.progress.statusWrites())
		})
	}
}

func TestTurn_UploadFailureKeepsGate(t *testing.T) {
	h := newHarness(t)
	st := h.seed(models.StageScreeningQuestions, 0)
	doc := models.DocumentDegree
	st.Stage = models.StageFileUpload
	st.AwaitingUpload = &doc
	require.NoError(t, h.sessions.Save(context.Background(), st))
	h.blob.err = stderrors.New("access denied")

	resp := h.upload(models.DocumentDegree)

	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrCodeUploadFailed, resp.Error.Code)
	assert.True(t, strings.HasPrefix(resp.Response.Text, errors.UploadRetryText))
	assert.Equal(t, models.StageFileUpload, h.state().Stage)
	assert.Equal(t, 0, h.state().CurrentQuestionIndex)
}

func TestTurn_UploadOutsideUploadStageIsNoop(t *testing.T) {
	h := newHarness(t)
	h.seed(models.StageScreeningQuestions, 1)

	resp := h.upload(models.DocumentDegree)

	assert.Nil(t, resp.Error)
	assert.Equal(t, "Are you proficient in Go?", resp.Response.Text)
	assert.Empty(t, h.blob.uploads)
}

func TestTurn_ReviewerDecisionTakesPriority(t *testing.T) {
	h := newHarness(t)
	h.seed(models.StageAwaitingHR, 4)
	ctx := context.Background()

	require.NoError(t, h.engine.StatusChanged(ctx, testUser, string(models.StatusP1Passed)))
	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, store.SourceReviewer, h.publisher.events[0].Source)
	assert.Equal(t, models.StatusAwaitingHR, h.publisher.events[0].OldStatus)

	// A job title would otherwise restart the cycle.
	resp := h.say("Data Analyst")

	assert.Equal(t, models.StagePassedP1, resp.Stage)
	assert.Contains(t, resp.Response.Text, "Congratulations")
	require.NotNil(t, resp.Response.NextMessage)
	require.Len(t, resp.Response.NextMessage.Buttons, 1)
	assert.Equal(t, schedulingURL, resp.Response.NextMessage.Buttons[0].URL)
	require.NotNil(t, resp.Reply.Secondary)

	assert.Equal(t, []models.ApplicantStatus{models.StatusP1Passed}, h.notifier.statuses)
	assert.Equal(t, []string{"Backend Engineer"}, h.notifier.titles)
	assert.Empty(t, h.progress.statusWrites())
	assert.Equal(t, models.StatusP1Passed, h.applicants.statuses[testUser])

	require.Len(t, h.chat.entries, 3)
	assert.Equal(t, models.SenderApplicant, h.chat.entries[0].Sender)
	for i := 1; i < len(h.chat.entries); i++ {
		assert.Equal(t, models.SenderBot, h.chat.entries[i].Sender)
		assert.True(t, h.chat.entries[i].Timestamp.After(h.chat.entries[i-1].Timestamp))
		assert.Equal(t, i, h.chat.entries[i].Seq)
	}
	assert.Contains(t, h.chat.entries[1].Message, "Congratulations")
	assert.Contains(t, h.chat.entries[2].Message, "schedule")

	resp = h.say("hello again")
	assert.Equal(t, models.StagePassedP1, resp.Stage)
	assert.Contains(t, resp.Response.Text, "already passed")
	assert.Len(t, h.notifier.statuses, 1)
}

func TestTurn_FailedDecisionShowsRegret(t *testing.T) {
	h := newHarness(t)
	h.seed(models.StageAwaitingHR, 4)
	h.applicants.statuses[testUser] = models.StatusP2Failed

	resp := h.say("hi")

	assert.Equal(t, models.StageFailed, resp.Stage)
	require.NotNil(t, resp.Response.NextMessage)
	assert.Contains(t, resp.Response.Text, "not to move forward")
	assert.Equal(t, []models.ApplicantStatus{models.StatusP2Failed}, h.notifier.statuses)
}

func TestTurn_PersistenceFailureDoesNotAdvance(t *testing.T) {
	h := newHarness(t)
	h.seed(models.StageJobSelection, 0)
	h.progress.err = stderrors.New("connection reset by peer")

	resp := h.say("yes")

	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrCodePersistenceFailed, resp.Error.Code)
	assert.Equal(t, errors.RetryLaterText, resp.Response.Text)
	assert.Equal(t, models.StageJobSelection, resp.Stage)
	assert.Equal(t, models.StageJobSelection, h.state().Stage)
	assert.Empty(t, h.publisher.events)
}

func TestTurn_StatusReadFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.seed(models.StageScreeningQuestions, 0)
	h.applicants.statErr = stderrors.New("timeout")

	resp := h.say("yes")

	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrCodePersistenceFailed, resp.Error.Code)
	assert.Equal(t, 0, h.state().CurrentQuestionIndex)
}

func TestTurn_UnrecognizedAnswerRepromptsQuestion(t *testing.T) {
	h := newHarness(t)
	h.seed(models.StageScreeningQuestions, 1)

	resp := h.say("maybe later")

	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrCodeInvalidTransition, resp.Error.Code)
	assert.True(t, strings.HasPrefix(resp.Response.Text, errors.NotUnderstoodText))
	assert.Contains(t, resp.Response.Text, "Are you proficient in Go?")
	assert.Len(t, resp.Response.Buttons, 2)
	assert.Equal(t, 1, h.state().CurrentQuestionIndex)
}

func TestTurn_ConcurrentTurnIsRefused(t *testing.T) {
	h := newHarness(t)
	h.seed(models.StageScreeningQuestions, 0)
	require.NoError(t, h.mr.Set("screening:turn:user-1:job-1:0", "held"))

	resp := h.say("yes")

	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrCodeTurnInProgress, resp.Error.Code)
	assert.Equal(t, 0, h.state().CurrentQuestionIndex)
	assert.Empty(t, h.state().Answers)
	assert.Empty(t, h.progress.commits)
}

func TestTurn_RequirementFetchFailureStaysInitial(t *testing.T) {
	h := newHarness(t)
	h.reqs.err = stderrors.New("relation job_degrees does not exist")

	resp := h.say("Backend Engineer")

	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrCodeRequirementFetchFailed, resp.Error.Code)
	assert.Equal(t, models.StageInitial, h.state().Stage)
}

func TestTurn_JobTitleRestartsFromRejected(t *testing.T) {
	h := newHarness(t)
	st := h.seed(models.StageRejected, 4)
	st.Answers = []models.Answer{{QuestionText: "q", Category: models.CategoryDegree, Value: 0}}
	require.NoError(t, h.sessions.Save(context.Background(), st))

	resp, err := h.engine.Turn(context.Background(), testUser, TurnRequest{
		Predefined: &PredefinedMessage{Action: ActionSelectJob, JobID: "job-2"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StageJobSelection, resp.Stage)
	cur := h.state()
	assert.Equal(t, "job-2", cur.SelectedJobID)
	assert.Empty(t, cur.Answers)
	assert.Len(t, cur.QuestionSet, 3)
	assert.Equal(t, models.StatusPositionSelected, h.applicants.statuses[testUser])
}

func TestTurn_DecliningReturnsToPositions(t *testing.T) {
	h := newHarness(t)
	h.seed(models.StageJobSelection, 0)

	resp := h.say("no thanks")

	assert.Equal(t, models.StageInitial, resp.Stage)
	assert.True(t, strings.HasPrefix(resp.Response.Text, "No problem."))
	assert.Len(t, resp.Response.Buttons, 2)
	assert.Equal(t, models.StatusApplicant, h.applicants.statuses[testUser])
}

func TestTurn_RejectsMalformedRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		req    TurnRequest
	}{
		{"missing user", "", TurnRequest{Message: "hi"}},
		{"empty request", testUser, TurnRequest{}},
		{"message and action", testUser, TurnRequest{Message: "hi", Predefined: &PredefinedMessage{Action: ActionStart}}},
		{"action without name", testUser, TurnRequest{Predefined: &PredefinedMessage{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.Turn(ctx, tt.userID, tt.req)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidRequest, errors.AsStandard(err).Code)
		})
	}
	assert.Empty(t, h.chat.entries)
}

func TestStatusChanged_RejectsUnknownStatus(t *testing.T) {
	h := newHarness(t)

	err := h.engine.StatusChanged(context.Background(), testUser, "Hired")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidStatus, errors.AsStandard(err).Code)
	assert.Empty(t, h.applicants.sets)
	assert.Empty(t, h.publisher.events)
}

func TestReset(t *testing.T) {
	t.Run("returns a rejected applicant to initial", func(t *testing.T) {
		h := newHarness(t)
		h.seed(models.StageRejected, 4)

		resp, err := h.engine.Reset(context.Background(), testUser)
		require.NoError(t, err)

		assert.Equal(t, models.StageInitial, resp.Stage)
		assert.Equal(t, models.StageInitial, h.state().Stage)
		assert.Equal(t, models.StatusApplicant, h.applicants.statuses[testUser])
	})

	t.Run("passed applicants keep their stage", func(t *testing.T) {
		h := newHarness(t)
		h.seed(models.StagePassedP1, 4)

		resp, err := h.engine.Reset(context.Background(), testUser)
		require.NoError(t, err)

		assert.Equal(t, models.StagePassedP1, resp.Stage)
		assert.Contains(t, resp.Response.Text, "already passed")
		assert.Equal(t, models.StatusP1Passed, h.applicants.statuses[testUser])
	})
}

func TestHistory_ReturnsConversationInOrder(t *testing.T) {
	h := newHarness(t)
	h.say("hello")
	h.say("Backend Engineer")

	entries, err := h.engine.History(context.Background(), testUser)
	require.NoError(t, err)

	require.Len(t, entries, 4)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, models.SenderBot, entries[1].Sender)
	assert.Equal(t, "Backend Engineer", entries[2].Message)
	assert.Equal(t, models.StageJobSelection, entries[3].Stage)

	_, err = h.engine.History(context.Background(), "")
	assert.Error(t, err)
}

func TestTurn_InboundLogFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.chat.appendErr = stderrors.New("disk full")

	resp := h.say("Backend Engineer")

	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrCodePersistenceFailed, resp.Error.Code)
	assert.Equal(t, models.StageInitial, h.state().Stage)
}

func TestSession_ReloadYieldsSamePrompt(t *testing.T) {
	h := newHarness(t)
	yes := true
	st := h.seed(models.StageScreeningQuestions, 3)
	st.Counters = models.Counters{Degree: 1, HardSkill: 1, WorkSetup: &yes}
	st.UploadedURLs[models.DocumentDegree] = "https://blob.test/degree.pdf"
	require.NoError(t, h.sessions.Save(context.Background(), st))

	reloaded := h.state()

	ctx := context.Background()
	assert.Equal(t, h.engine.currentPrompt(ctx, st), h.engine.currentPrompt(ctx, reloaded))
	assert.Equal(t, st.Counters, reloaded.Counters)
	assert.Contains(t, h.engine.currentPrompt(ctx, reloaded).Text, "available")
}

func TestTurn_RetriedGatingAnswerIsStable(t *testing.T) {
	h := newHarness(t)
	h.seed(models.StageScreeningQuestions, 2)

	h.progress.err = stderrors.New("deadlock detected")
	resp := h.say("no")
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.StageScreeningQuestions, h.state().Stage)

	h.progress.err = nil
	resp = h.say("no")
	require.Nil(t, resp.Error)
	assert.Equal(t, models.StageRejected, resp.Stage)

	final := h.state()
	assert.Len(t, final.Answers, 2)
	assert.Equal(t, 0, h.progress.assessments["job-1"].TotalScore)
	assert.True(t, h.progress.assessments["job-1"].Disqualified)
}

func TestTurn_SessionSaveFailureLeavesStatus(t *testing.T) {
	h := newHarness(t)
	st := h.seed(models.StageScreeningQuestions, 4)
	doc := models.DocumentResume
	st.Stage = models.StageResumeUpload
	st.AwaitingUpload = &doc
	require.NoError(t, h.sessions.Save(context.Background(), st))
	h.engine.sessions = &failingSaves{RedisStore: h.sessions, err: stderrors.New("READONLY replica")}

	resp := h.upload(models.DocumentResume)

	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrCodePersistenceFailed, resp.Error.Code)
	assert.Equal(t, models.StageResumeUpload, resp.Stage)
	assert.Equal(t, models.StageResumeUpload, h.state().Stage)
	assert.Equal(t, models.StatusInitialScreening, h.applicants.statuses[testUser])
	assert.Empty(t, h.progress.commits)
	assert.Empty(t, h.publisher.events)
}

func TestTurn_FailedCommitRollsBackSession(t *testing.T) {
	t.Run("stored session is put back", func(t *testing.T) {
		h := newHarness(t)
		h.seed(models.StageScreeningQuestions, 1)
		h.progress.err = stderrors.New("could not serialize access")

		resp := h.say("yes")

		require.NotNil(t, resp.Error)
		cur := h.state()
		assert.Equal(t, models.StageScreeningQuestions, cur.Stage)
		assert.Equal(t, 1, cur.CurrentQuestionIndex)
		assert.Empty(t, cur.Answers)
	})

	t.Run("first session is removed", func(t *testing.T) {
		h := newHarness(t)
		h.progress.err = stderrors.New("could not serialize access")

		resp := h.say("Backend Engineer")

		require.NotNil(t, resp.Error)
		assert.False(t, h.mr.Exists("screening:session:"+testUser))
		assert.Equal(t, models.StageInitial, h.state().Stage)
		assert.Equal(t, models.StatusApplicant, h.applicants.status(testUser))
	})
}

func TestTurn_ButtonValuesPostBackAsText(t *testing.T) {
	h := newHarness(t)

	positions := h.say("hi")
	require.NotEmpty(t, positions.Response.Buttons)

	resp := h.say(positions.Response.Buttons[0].Value)
	require.Nil(t, resp.Error)
	assert.Equal(t, models.StageJobSelection, resp.Stage)
	assert.Equal(t, "job-1", h.state().SelectedJobID)

	resp = h.say(resp.Response.Buttons[0].Value)
	require.Nil(t, resp.Error)
	assert.Equal(t, models.StageScreeningQuestions, resp.Stage)

	resp = h.say(resp.Response.Buttons[0].Value)
	require.Equal(t, models.StageFileUpload, resp.Stage)

	resp = h.say(resp.Response.Buttons[0].Value)
	assert.Nil(t, resp.Error)
	assert.Equal(t, models.StageFileUpload, resp.Stage)
	assert.Contains(t, resp.Response.Text, "diploma")
	assert.Equal(t, 0, h.state().CurrentQuestionIndex)
	assert.Empty(t, h.blob.uploads)

	assert.Equal(t, "select_job:job-1", h.chat.entries[2].Message)
}

func TestTurn_TimestampsIncreaseAcrossTurns(t *testing.T) {
	h := newHarness(t)

	h.say("hello")
	h.say("Backend Engineer")
	h.say("yes")

	require.Len(t, h.chat.entries, 6)
	for i := 1; i < len(h.chat.entries); i++ {
		assert.True(t, h.chat.entries[i].Timestamp.After(h.chat.entries[i-1].Timestamp),
			"entry %d (%q) must sort after entry %d", i, h.chat.entries[i].Message, i-1)
	}
	assert.Equal(t, 0, h.chat.entries[2].Seq)
}

func TestAssessment(t *testing.T) {
	h := newHarness(t)
	h.seed(models.StageScreeningQuestions, 1)
	h.say("yes")

	a, err := h.engine.Assessment(context.Background(), testUser, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, a.TotalScore)
	assert.Len(t, a.Answers, 1)

	_, err = h.engine.Assessment(context.Background(), testUser, "job-2")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.AsStandard(err).Code)

	_, err = h.engine.Assessment(context.Background(), testUser, "")
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.AsStandard(err).Code)
}
