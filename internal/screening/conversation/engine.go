// Package conversation is the screening state machine: one Turn per inbound
// chat message, driven by persisted session state and the authoritative
// applicant status.
package conversation

import (
	"context"
	stderrors "errors"
	"time"

	"applicant-screening/internal/common/errors"
	"applicant-screening/internal/common/logger"
	"applicant-screening/internal/common/metrics"
	"applicant-screening/internal/common/observability"
	"applicant-screening/internal/models"
	"applicant-screening/internal/notify"
	"applicant-screening/internal/screening/uploadgate"
	"applicant-screening/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type SessionStore interface {
	Load(ctx context.Context, userID string) (*models.SessionState, error)
	Save(ctx context.Context, state *models.SessionState) error
	Delete(ctx context.Context, userID string) error
}

type TurnLocker interface {
	Acquire(ctx context.Context, userID, jobID string, questionIndex int) (bool, func(), error)
}

type ApplicantStore interface {
	Get(ctx context.Context, userID string) (*models.Applicant, error)
	GetStatus(ctx context.Context, userID string) (models.ApplicantStatus, error)
	SetStatus(ctx context.Context, userID string, status models.ApplicantStatus, source string) error
}

type ProgressWriter interface {
	Commit(ctx context.Context, update store.ProgressUpdate) error
}

type ChatLog interface {
	Append(ctx context.Context, entry *models.ChatLogEntry) error
	History(ctx context.Context, userID string, limit int) ([]models.ChatLogEntry, error)
	Latest(ctx context.Context, userID string) (time.Time, error)
}

type AssessmentReader interface {
	Get(ctx context.Context, userID, jobID string) (*models.Assessment, error)
}

type JobCatalog interface {
	ListOpenJobs(ctx context.Context) ([]models.Job, error)
}

type RequirementLoader interface {
	Load(ctx context.Context, jobID string) (*models.JobRequirements, error)
}

// Dependencies wires the engine to its collaborators.
type Dependencies struct {
	Sessions      SessionStore
	Locks         TurnLocker
	Applicants    ApplicantStore
	Progress      ProgressWriter
	Assessments   AssessmentReader
	ChatLog       ChatLog
	Jobs          JobCatalog
	Requirements  RequirementLoader
	Gate          *uploadgate.Gate
	Notifier      notify.MilestoneNotifier
	Publisher     notify.StatusPublisher
	Observability *observability.Observability
	Logger        logger.Logger
}

type Engine struct {
	config       *Config
	sessions     SessionStore
	locks        TurnLocker
	applicants   ApplicantStore
	progress     ProgressWriter
	assessments  AssessmentReader
	chatLog      ChatLog
	jobs         JobCatalog
	requirements RequirementLoader
	gate         *uploadgate.Gate
	notifier     notify.MilestoneNotifier
	publisher    notify.StatusPublisher
	obs          *observability.Observability
	errHandler   *errors.ErrorHandler
	logger       logger.Logger
	now          func() time.Time
}

func NewEngine(cfg *Config, deps Dependencies) *Engine {
	log := logger.ForComponent(deps.Logger, "conversation")
	e := &Engine{
		config:       cfg,
		sessions:     deps.Sessions,
		locks:        deps.Locks,
		applicants:   deps.Applicants,
		progress:     deps.Progress,
		assessments:  deps.Assessments,
		chatLog:      deps.ChatLog,
		jobs:         deps.Jobs,
		requirements: deps.Requirements,
		gate:         deps.Gate,
		notifier:     deps.Notifier,
		publisher:    deps.Publisher,
		obs:          deps.Observability,
		errHandler:   errors.NewErrorHandler(log),
		logger:       log,
		now:          time.Now,
	}
	if e.notifier == nil {
		e.notifier = notify.Noop{}
	}
	if e.publisher == nil {
		e.publisher = notify.Noop{}
	}
	return e
}

// outcome is the result of evaluating one turn against a snapshot of state.
// Nothing in it is visible until commit succeeds.
type outcome struct {
	next      *models.SessionState
	reply     models.Reply
	progress  store.ProgressUpdate
	milestone models.ApplicantStatus
	persisted models.ApplicantStatus
	label     string
}

// turnClock hands out strictly increasing timestamps so display order
// survives clock resolution. Its base is never earlier than the applicant's
// last logged entry, so a turn cannot sort before the previous turn's replies.
type turnClock struct {
	base time.Time
	seq  int
}

func (c *turnClock) next() (time.Time, int) {
	ts := c.base.Add(time.Duration(c.seq) * time.Millisecond)
	seq := c.seq
	c.seq++
	return ts, seq
}

func (e *Engine) clockBase(ctx context.Context, userID string) time.Time {
	now := e.now().UTC()
	last, err := e.chatLog.Latest(ctx, userID)
	if err != nil {
		e.logger.Warn("chat log high-water mark unavailable", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
		return now
	}
	if floor := last.UTC().Add(time.Millisecond); now.Before(floor) {
		return floor
	}
	return now
}

// Turn runs one conversation step for userID. Request validation failures are
// returned as errors; every other failure degrades into a generic chat
// message in the response, with Error set.
func (e *Engine) Turn(ctx context.Context, userID string, req TurnRequest) (*TurnResponse, error) {
	if userID == "" {
		return nil, errors.NewInvalidRequestError("applicant id is required")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	req = req.normalized()

	if e.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.TurnTimeout)
		defer cancel()
	}
	ctx, span := e.obs.StartSpan(ctx, "screening.turn", attribute.String("userId", userID))
	defer span.End()

	start := time.Now()
	log := e.logger.WithFields(map[string]interface{}{"userId": userID})

	state, err := e.sessions.Load(ctx, userID)
	if err != nil {
		return e.degrade(ctx, userID, models.StageInitial, errors.NewPersistenceError("load session", err), nil, start), nil
	}
	fromStage := state.Stage
	span.SetAttributes(attribute.String("stage", string(fromStage)))

	clock := &turnClock{base: e.clockBase(ctx, userID)}
	ts, seq := clock.next()
	inbound := &models.ChatLogEntry{
		UserID:    userID,
		Message:   req.logText(),
		Sender:    models.SenderApplicant,
		Stage:     fromStage,
		Timestamp: ts,
		Seq:       seq,
	}
	if err := e.chatLog.Append(ctx, inbound); err != nil {
		return e.degrade(ctx, userID, fromStage, errors.NewPersistenceError("append inbound chat log", err), nil, start), nil
	}

	release, state, err := e.acquireTurn(ctx, state)
	if err != nil {
		return e.degrade(ctx, userID, fromStage, err, clock, start), nil
	}
	defer release()

	out, err := e.evaluate(ctx, state, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return e.degradeWithPrompt(ctx, state, err, clock, start), nil
	}

	if err := e.commit(ctx, state, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return e.degrade(ctx, userID, fromStage, err, clock, start), nil
	}

	final := state
	if out.next != nil {
		final = out.next
	}
	e.writeOutbound(ctx, userID, final.Stage, out.reply, clock)
	e.afterCommit(ctx, userID, final, out, log)

	if final.Stage != fromStage {
		metrics.ScreeningTransitionsTotal.WithLabelValues(string(fromStage), string(final.Stage)).Inc()
		log.Info("stage transition", map[string]interface{}{
			"from":          string(fromStage),
			"to":            string(final.Stage),
			"questionIndex": final.CurrentQuestionIndex,
		})
	}
	e.recordTurn(ctx, fromStage, out.label, start)

	return &TurnResponse{
		Response: out.reply.BotMessage(),
		Stage:    final.Stage,
		Reply:    out.reply,
	}, nil
}

// acquireTurn takes the re-entrancy guard for the current question and
// re-reads the session under it, so a request that loaded state before a
// concurrent turn committed is refused instead of double-counting.
func (e *Engine) acquireTurn(ctx context.Context, state *models.SessionState) (func(), *models.SessionState, error) {
	noop := func() {}
	if e.locks == nil {
		return noop, state, nil
	}
	ok, release, err := e.locks.Acquire(ctx, state.UserID, state.SelectedJobID, state.CurrentQuestionIndex)
	if err != nil {
		e.logger.Warn("turn lock unavailable, continuing without it", map[string]interface{}{
			"userId": state.UserID,
			"error":  err,
		})
		return noop, state, nil
	}
	if !ok {
		return noop, state, errors.NewTurnInProgressError(state.UserID, state.CurrentQuestionIndex)
	}

	fresh, err := e.sessions.Load(ctx, state.UserID)
	if err != nil {
		release()
		return noop, state, errors.NewPersistenceError("reload session", err)
	}
	if !fresh.UpdatedAt.Equal(state.UpdatedAt) || fresh.Stage != state.Stage || fresh.CurrentQuestionIndex != state.CurrentQuestionIndex {
		release()
		return noop, state, errors.NewTurnInProgressError(state.UserID, state.CurrentQuestionIndex)
	}
	return release, fresh, nil
}

// commit makes the outcome durable. The session document is written first
// and the relational writes (job binding, assessment upsert, status) follow
// in one transaction; if that transaction fails the session is put back, so
// stage and status never diverge from a failed turn.
func (e *Engine) commit(ctx context.Context, prev *models.SessionState, out *outcome) error {
	out.progress.UserID = prev.UserID
	if out.next != nil {
		if err := e.sessions.Save(ctx, out.next); err != nil {
			return errors.NewPersistenceError("save session", err)
		}
	}
	if err := e.progress.Commit(ctx, out.progress); err != nil {
		if out.next != nil {
			e.restoreSession(ctx, prev)
		}
		return errors.NewPersistenceError("commit screening progress", err)
	}
	return nil
}

// restoreSession rolls the session document back to prev. A session that was
// never stored is removed instead. Runs on a fresh deadline: the turn's own
// context may be what failed the commit.
func (e *Engine) restoreSession(ctx context.Context, prev *models.SessionState) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	var err error
	if prev.UpdatedAt.IsZero() {
		err = e.sessions.Delete(ctx, prev.UserID)
	} else {
		err = e.sessions.Save(ctx, prev.Clone())
	}
	if err != nil {
		e.logger.Error("session rollback failed, stage may lead status until the next transition", map[string]interface{}{
			"userId": prev.UserID,
			"stage":  string(prev.Stage),
			"error":  err,
		})
	}
}

func (e *Engine) writeOutbound(ctx context.Context, userID string, stage models.Stage, reply models.Reply, clock *turnClock) {
	if clock == nil {
		return
	}
	for _, msg := range reply.Messages() {
		ts, seq := clock.next()
		entry := &models.ChatLogEntry{
			UserID:    userID,
			Message:   msg.Text,
			Sender:    models.SenderBot,
			Stage:     stage,
			Timestamp: ts,
			Seq:       seq,
		}
		if err := e.chatLog.Append(ctx, entry); err != nil {
			e.logger.Warn("outbound chat log write failed", map[string]interface{}{
				"userId": userID,
				"seq":    seq,
				"error":  err,
			})
		}
	}
}

// afterCommit runs side effects that must never fail the turn.
func (e *Engine) afterCommit(ctx context.Context, userID string, final *models.SessionState, out *outcome, log logger.Logger) {
	if out.milestone != "" {
		applicant, err := e.applicants.Get(ctx, userID)
		if err != nil {
			log.Warn("milestone notification skipped", map[string]interface{}{"error": err})
		} else if _, err := e.notifier.NotifyMilestone(ctx, applicant, out.milestone, e.jobTitle(ctx, final.SelectedJobID)); err != nil {
			log.Warn("milestone notification failed", map[string]interface{}{"error": err})
		}
	}

	if out.progress.Status != "" {
		event := models.StatusEvent{
			UserID:     userID,
			JobID:      final.SelectedJobID,
			OldStatus:  out.persisted,
			NewStatus:  out.progress.Status,
			Source:     store.SourceScreening,
			OccurredAt: e.now().UTC().Format(time.RFC3339),
		}
		if err := e.publisher.PublishStatusChange(ctx, event); err != nil {
			log.Warn("status event publish failed", map[string]interface{}{"error": err})
		}
	}
}

func (e *Engine) jobTitle(ctx context.Context, jobID string) string {
	if jobID == "" {
		return ""
	}
	jobs, err := e.jobs.ListOpenJobs(ctx)
	if err != nil {
		return ""
	}
	for _, j := range jobs {
		if j.ID == jobID {
			return j.Title
		}
	}
	return ""
}

// degradeWithPrompt answers a failed turn with the generic text for its error
// and, where the applicant can act on it, the prompt they were last shown.
func (e *Engine) degradeWithPrompt(ctx context.Context, state *models.SessionState, err error, clock *turnClock, start time.Time) *TurnResponse {
	stdErr, text := e.errHandler.Handle(err, map[string]interface{}{
		"userId": state.UserID,
		"stage":  string(state.Stage),
	})

	msg := models.BotMessage{Text: text}
	switch stdErr.Code {
	case errors.ErrCodeInvalidTransition, errors.ErrCodeUploadFailed, errors.ErrCodeTurnInProgress:
		msg = withNotice(text, e.currentPrompt(ctx, state))
	}
	reply := models.Single(msg)
	e.writeOutbound(ctx, state.UserID, state.Stage, reply, clock)
	e.recordTurn(ctx, state.Stage, outcomeLabel(stdErr.Code), start)

	return &TurnResponse{
		Response: reply.BotMessage(),
		Stage:    state.Stage,
		Error:    stdErr,
		Reply:    reply,
	}
}

func (e *Engine) degrade(ctx context.Context, userID string, stage models.Stage, err error, clock *turnClock, start time.Time) *TurnResponse {
	stdErr, text := e.errHandler.Handle(err, map[string]interface{}{
		"userId": userID,
		"stage":  string(stage),
	})
	reply := models.Single(models.BotMessage{Text: text})
	e.writeOutbound(ctx, userID, stage, reply, clock)
	e.recordTurn(ctx, stage, outcomeLabel(stdErr.Code), start)

	return &TurnResponse{
		Response: reply.BotMessage(),
		Stage:    stage,
		Error:    stdErr,
		Reply:    reply,
	}
}

func outcomeLabel(code errors.ErrorCode) string {
	switch code {
	case errors.ErrCodeInvalidTransition:
		return "invalid"
	case errors.ErrCodeTurnInProgress:
		return "busy"
	default:
		return "error"
	}
}

func (e *Engine) recordTurn(ctx context.Context, stage models.Stage, label string, start time.Time) {
	elapsed := time.Since(start)
	metrics.ScreeningTurnsTotal.WithLabelValues(string(stage), label).Inc()
	metrics.ScreeningTurnDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	e.obs.RecordTurn(ctx, string(stage), label, elapsed)
}

// StatusChanged is the out-of-band surface HR tooling uses to flip an
// applicant's status. The engine observes it at the top of the next turn.
func (e *Engine) StatusChanged(ctx context.Context, userID, status string) error {
	if userID == "" {
		return errors.NewInvalidRequestError("applicant id is required")
	}
	newStatus := models.ApplicantStatus(status)
	if !newStatus.Valid() {
		return errors.NewInvalidStatusError(status)
	}

	old, err := e.applicants.GetStatus(ctx, userID)
	if err != nil {
		return errors.NewPersistenceError("read status", err)
	}
	if err := e.applicants.SetStatus(ctx, userID, newStatus, store.SourceReviewer); err != nil {
		return errors.NewPersistenceError("set status", err)
	}

	e.logger.Info("applicant status changed", map[string]interface{}{
		"userId":    userID,
		"oldStatus": string(old),
		"newStatus": status,
	})

	event := models.StatusEvent{
		UserID:     userID,
		OldStatus:  old,
		NewStatus:  newStatus,
		Source:     store.SourceReviewer,
		OccurredAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.publisher.PublishStatusChange(ctx, event); err != nil {
		e.logger.Warn("status event publish failed", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
	}
	return nil
}

// Reset abandons the current application cycle through the same path as a
// reset button, so the applicant status follows the session back to initial.
// Passed applicants cannot reset.
func (e *Engine) Reset(ctx context.Context, userID string) (*TurnResponse, error) {
	resp, err := e.Turn(ctx, userID, TurnRequest{Predefined: &PredefinedMessage{Action: ActionReset}})
	if err != nil {
		return nil, err
	}
	e.logger.Info("session reset requested", map[string]interface{}{
		"userId": userID,
		"stage":  string(resp.Stage),
	})
	return resp, nil
}

// History returns the applicant's conversation in display order.
func (e *Engine) History(ctx context.Context, userID string) ([]models.ChatLogEntry, error) {
	if userID == "" {
		return nil, errors.NewInvalidRequestError("applicant id is required")
	}
	entries, err := e.chatLog.History(ctx, userID, e.config.HistoryLimit)
	if err != nil {
		return nil, errors.NewPersistenceError("read chat history", err)
	}
	return entries, nil
}

// Assessment returns the written-through score sheet for one application,
// for reviewers deciding on an applicant.
func (e *Engine) Assessment(ctx context.Context, userID, jobID string) (*models.Assessment, error) {
	if userID == "" || jobID == "" {
		return nil, errors.NewInvalidRequestError("applicant id and job id are required")
	}
	a, err := e.assessments.Get(ctx, userID, jobID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewResourceNotFoundError("assessment", userID+"/"+jobID)
		}
		return nil, errors.NewPersistenceError("read assessment", err)
	}
	return a, nil
}

// isNoPendingUpload reports the upload gate's no-op signal.
func isNoPendingUpload(err error) bool {
	return stderrors.Is(err, uploadgate.ErrNoPendingUpload)
}
