package conversation_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"applicant-screening/internal/common/config"
	"applicant-screening/internal/common/database"
	"applicant-screening/internal/common/logger"
	"applicant-screening/internal/common/observability"
	"applicant-screening/internal/models"
	"applicant-screening/internal/screening/conversation"
	"applicant-screening/internal/screening/requirements"
	"applicant-screening/internal/screening/uploadgate"
	"applicant-screening/internal/session"
	"applicant-screening/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBlob struct{}

func (memoryBlob) Upload(ctx context.Context, ownerID string, file *models.FileUpload) (string, error) {
	return fmt.Sprintf("memory://%s/%s/%s", ownerID, file.DocumentType, file.FileName), nil
}

// TestScreeningAgainstRealStores runs a full screening pass through Postgres
// and Redis. Needs the services from configs/config.yaml.
func TestScreeningAgainstRealStores(t *testing.T) {
	if testing.Short() || os.Getenv("SCREENING_INTEGRATION") != "1" {
		t.Skip("set SCREENING_INTEGRATION=1 to run against real Postgres and Redis")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)
	log := logger.NewTestLogger(t)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	require.NoError(t, pg.Ping(ctx))
	t.Cleanup(func() { _ = pg.Close() })
	require.NoError(t, store.Migrate(ctx, pg))

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	require.NoError(t, rdb.Ping(ctx))
	t.Cleanup(func() { _ = rdb.Close() })

	suffix := uuid.NewString()[:8]
	jobID := "it-job-" + suffix
	userID := "it-user-" + suffix
	keyspace := "it-" + suffix
	title := "Integration Engineer " + suffix

	_, err = pg.DB.ExecContext(ctx, `INSERT INTO jobs (id, title, department, work_type, is_open) VALUES ($1, $2, 'QA', 'hybrid', true)`, jobID, title)
	require.NoError(t, err)
	_, err = pg.DB.ExecContext(ctx, `INSERT INTO job_skills (job_id, kind, name) VALUES ($1, 'hard', 'SQL')`, jobID)
	require.NoError(t, err)
	t.Cleanup(func() {
		c := context.Background()
		_, _ = pg.DB.ExecContext(c, `DELETE FROM job_skills WHERE job_id = $1`, jobID)
		_, _ = pg.DB.ExecContext(c, `DELETE FROM screening_assessments WHERE user_id = $1`, userID)
		_, _ = pg.DB.ExecContext(c, `DELETE FROM applicant_status_history WHERE user_id = $1`, userID)
		_, _ = pg.DB.ExecContext(c, `DELETE FROM chat_log WHERE user_id = $1`, userID)
		_, _ = pg.DB.ExecContext(c, `DELETE FROM applicants WHERE id = $1`, userID)
		_, _ = pg.DB.ExecContext(c, `DELETE FROM jobs WHERE id = $1`, jobID)
	})

	jobRepo := store.NewJobRepository(pg)
	applicants := store.NewApplicantRepository(pg)
	engine := conversation.NewEngine(&conversation.Config{
		SchedulingURL: cfg.Screening.SchedulingURL,
		TurnTimeout:   10 * time.Second,
		HistoryLimit:  200,
	}, conversation.Dependencies{
		Sessions:      session.NewRedisStore(rdb.Client, keyspace),
		Locks:         session.NewTurnLock(rdb.Client, keyspace, 5*time.Second),
		Applicants:    applicants,
		Progress:      store.NewProgressRepository(pg),
		Assessments:   store.NewAssessmentRepository(pg),
		ChatLog:       store.NewChatLogRepository(pg),
		Jobs:          store.NewCachedJobCatalog(jobRepo, rdb.Client, keyspace, time.Second, log),
		Requirements:  requirements.NewLoader(jobRepo, log),
		Gate:          uploadgate.NewGate(memoryBlob{}, log),
		Observability: observability.NewNoop(),
		Logger:        log,
	})

	say := func(text string) *conversation.TurnResponse {
		resp, err := engine.Turn(ctx, userID, conversation.TurnRequest{Message: text})
		require.NoError(t, err)
		require.Nil(t, resp.Error, "turn %q degraded: %+v", text, resp.Error)
		return resp
	}

	assert.Equal(t, models.StageJobSelection, say("I want the "+title+" job").Stage)
	assert.Equal(t, models.StageScreeningQuestions, say("yes").Stage)
	say("yes")
	say("yes")
	assert.Equal(t, models.StageResumeUpload, say("yes").Stage)

	resp, err := engine.Turn(ctx, userID, conversation.TurnRequest{Upload: &models.FileUpload{
		DocumentType: models.DocumentResume,
		FileName:     "cv.pdf",
		ContentType:  "application/pdf",
		Body:         strings.NewReader("%PDF"),
		Size:         4,
	}})
	require.NoError(t, err)
	assert.Equal(t, models.StageAwaitingHR, resp.Stage)

	status, err := applicants.GetStatus(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingHR, status)

	assessment, err := engine.Assessment(ctx, userID, jobID)
	require.NoError(t, err)
	assert.Equal(t, 1, assessment.TotalScore)
	assert.True(t, assessment.Completed)
	assert.Equal(t, "memory://"+userID+"/resume/cv.pdf", assessment.ResumeURL)

	require.NoError(t, engine.StatusChanged(ctx, userID, string(models.StatusP1Passed)))
	resp = say("hello")
	assert.Equal(t, models.StagePassedP1, resp.Stage)
	require.NotNil(t, resp.Response.NextMessage)

	history, err := engine.History(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "I want the "+title+" job", history[0].Message)
	assert.Equal(t, models.SenderBot, history[len(history)-1].Sender)
}
