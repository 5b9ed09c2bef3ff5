package conversation

import (
	"context"

	"applicant-screening/internal/common/errors"
	"applicant-screening/internal/common/metrics"
	"applicant-screening/internal/models"
	"applicant-screening/internal/screening/requirements"
	"applicant-screening/internal/screening/scoring"
	"applicant-screening/internal/screening/uploadgate"
)

// evaluate decides the turn's outcome without side effects. The status guard
// runs before any trigger: a reviewer decision always wins over the
// locally computed transition.
func (e *Engine) evaluate(ctx context.Context, state *models.SessionState, req TurnRequest) (*outcome, error) {
	persisted, err := e.applicants.GetStatus(ctx, state.UserID)
	if err != nil {
		return nil, errors.NewPersistenceError("read applicant status", err)
	}

	if out := e.statusGuard(state, persisted); out != nil {
		out.persisted = persisted
		return out, nil
	}

	out, err := e.dispatch(ctx, state, req)
	if err != nil {
		return nil, err
	}
	out.persisted = persisted
	syncStatus(state, out, persisted)
	return out, nil
}

func (e *Engine) statusGuard(state *models.SessionState, persisted models.ApplicantStatus) *outcome {
	target, ok := models.MilestoneStage(persisted)
	if !ok || target == state.Stage {
		return nil
	}
	next := state.Clone()
	next.Stage = target
	next.AwaitingUpload = nil

	e.logger.Info("reviewer decision observed", map[string]interface{}{
		"userId": state.UserID,
		"status": string(persisted),
		"from":   string(state.Stage),
	})
	return &outcome{
		next:      next,
		reply:     e.milestoneReply(persisted),
		milestone: persisted,
		label:     "milestone",
	}
}

// syncStatus mirrors a stage change into the applicant status.
func syncStatus(prev *models.SessionState, out *outcome, persisted models.ApplicantStatus) {
	if out.next == nil || out.progress.Status != "" {
		return
	}
	if out.next.Stage == prev.Stage && out.progress.Job == nil {
		return
	}
	if desired := models.StatusForStage(out.next.Stage); desired != persisted {
		out.progress.Status = desired
	}
}

func (e *Engine) dispatch(ctx context.Context, state *models.SessionState, req TurnRequest) (*outcome, error) {
	if req.Upload != nil && state.Stage != models.StageFileUpload && state.Stage != models.StageResumeUpload {
		return e.onUpload(ctx, state, req)
	}

	if req.Predefined != nil && req.Predefined.Action == ActionReset {
		return e.onReset(ctx, state)
	}

	// A bare upload button carries no file; the prompt is shown again.
	if req.Predefined != nil && req.Predefined.Action == ActionUpload {
		return &outcome{reply: models.Single(e.currentPrompt(ctx, state)), label: "noop"}, nil
	}

	if req.Upload == nil && canRestart(state) {
		job, ok, err := e.findJob(ctx, state, req)
		if err != nil {
			return nil, err
		}
		if ok {
			return e.selectJob(ctx, state, job)
		}
	}

	if req.Predefined != nil && req.Predefined.Action == ActionStart && state.Stage != models.StageInitial {
		return &outcome{reply: models.Single(e.currentPrompt(ctx, state)), label: "noop"}, nil
	}

	switch state.Stage {
	case models.StageInitial:
		return e.onInitial(ctx)
	case models.StageJobSelection:
		return e.onJobSelection(ctx, state, req)
	case models.StageScreeningQuestions:
		return e.onAnswer(state, req)
	case models.StageFileUpload, models.StageResumeUpload:
		return e.onUpload(ctx, state, req)
	case models.StageAwaitingHR, models.StageRejected, models.StagePassedP1, models.StagePassedP2, models.StageFailed:
		return &outcome{reply: models.Single(e.currentPrompt(ctx, state)), label: "noop"}, nil
	}
	return nil, errors.NewInvalidTransitionError(string(state.Stage), req.logText())
}

// findJob resolves a job-title match. The catalog is required in the initial
// stage; elsewhere a catalog outage only disables restarting.
func (e *Engine) findJob(ctx context.Context, state *models.SessionState, req TurnRequest) (models.Job, bool, error) {
	if req.Predefined != nil && req.Predefined.Action != ActionSelectJob {
		return models.Job{}, false, nil
	}
	jobs, err := e.jobs.ListOpenJobs(ctx)
	if err != nil {
		if state.Stage == models.StageInitial || req.Predefined != nil {
			return models.Job{}, false, errors.NewPersistenceError("list open jobs", err)
		}
		e.logger.Warn("job catalog unavailable, skipping title match", map[string]interface{}{
			"userId": state.UserID,
			"error":  err,
		})
		return models.Job{}, false, nil
	}
	job, ok := matchJob(req, jobs)
	return job, ok, nil
}

// selectJob starts a fresh screening cycle for job. Any in-progress question
// sequence is discarded.
func (e *Engine) selectJob(ctx context.Context, state *models.SessionState, job models.Job) (*outcome, error) {
	reqs, err := e.requirements.Load(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	next := models.NewSessionState(state.UserID)
	next.Stage = models.StageJobSelection
	next.SelectedJobID = reqs.Job.ID
	next.QuestionSet = requirements.BuildQuestions(reqs)

	e.logger.Info("job selected", map[string]interface{}{
		"userId":      state.UserID,
		"jobId":       reqs.Job.ID,
		"questions":   len(next.QuestionSet),
		"restartedAt": string(state.Stage),
		"previousJob": state.SelectedJobID,
	})

	out := &outcome{
		next:  next,
		reply: models.Single(jobSummaryMessage(reqs)),
		label: "job_selected",
	}
	out.progress.Job = &reqs.Job
	return out, nil
}

func (e *Engine) onInitial(ctx context.Context) (*outcome, error) {
	msg, err := e.positionsMessage(ctx)
	if err != nil {
		return nil, err
	}
	return &outcome{reply: models.Single(msg), label: "noop"}, nil
}

func (e *Engine) onJobSelection(ctx context.Context, state *models.SessionState, req TurnRequest) (*outcome, error) {
	value, ok := parseAnswer(req)
	if !ok {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), req.logText())
	}

	if value == scoring.No {
		msg, err := e.positionsMessage(ctx)
		if err != nil {
			return nil, err
		}
		return &outcome{
			next:  models.NewSessionState(state.UserID),
			reply: models.Single(withNotice("No problem.", msg)),
			label: "declined",
		}, nil
	}

	next := state.Clone()
	next.CurrentQuestionIndex = 0
	return e.advance(next, "started"), nil
}

// onAnswer scores the current question and decides between disqualification,
// the upload gate and the next question.
func (e *Engine) onAnswer(state *models.SessionState, req TurnRequest) (*outcome, error) {
	q, ok := state.CurrentQuestion()
	if !ok {
		return e.advance(state.Clone(), "answered"), nil
	}
	value, ok := parseAnswer(req)
	if !ok {
		return nil, errors.NewInvalidTransitionError(string(state.Stage), req.logText())
	}

	next := state.Clone()
	next.Counters, next.Answers = scoring.Record(next.Counters, next.Answers, q, value)

	if scoring.IsDisqualified(next.Counters) {
		category, _ := scoring.DisqualifyingCategory(next.Counters)
		next.Counters, next.Answers = scoring.Backfill(next.QuestionSet, next.CurrentQuestionIndex+1, next.Counters, next.Answers)
		next.CurrentQuestionIndex = len(next.QuestionSet)
		next.Stage = models.StageRejected
		next.AwaitingUpload = nil
		metrics.ScreeningDisqualificationsTotal.WithLabelValues(string(category)).Inc()

		e.logger.Info("applicant disqualified", map[string]interface{}{
			"userId":     state.UserID,
			"jobId":      state.SelectedJobID,
			"category":   string(category),
			"totalScore": scoring.TotalScore(next.Counters),
		})

		out := &outcome{next: next, reply: models.Single(rejectionMessage()), label: "disqualified"}
		out.progress.Assessment = assessmentFor(next)
		return out, nil
	}

	if q.RequiresUpload(value) {
		doc, _ := q.Category.UploadDocument()
		msg := e.gate.Suspend(next, doc)
		out := &outcome{next: next, reply: models.Single(msg), label: "awaiting_upload"}
		out.progress.Assessment = assessmentFor(next)
		return out, nil
	}

	next.CurrentQuestionIndex++
	return e.advance(next, "answered"), nil
}

// onUpload feeds a file to the gate. Anything that does not satisfy the
// pending document is a logged no-op that re-shows the current prompt.
func (e *Engine) onUpload(ctx context.Context, state *models.SessionState, req TurnRequest) (*outcome, error) {
	next := state.Clone()
	if _, err := e.gate.Resume(ctx, next, req.Upload); err != nil {
		if isNoPendingUpload(err) {
			return &outcome{reply: models.Single(e.currentPrompt(ctx, state)), label: "noop"}, nil
		}
		return nil, err
	}

	if req.Upload.DocumentType == models.DocumentResume {
		next.Stage = models.StageAwaitingHR
		out := &outcome{next: next, reply: models.Single(resumeReceivedMessage()), label: "resume_uploaded"}
		out.progress.Assessment = assessmentFor(next)
		return out, nil
	}
	return e.advance(next, "uploaded"), nil
}

func (e *Engine) onReset(ctx context.Context, state *models.SessionState) (*outcome, error) {
	if state.Stage == models.StagePassedP1 || state.Stage == models.StagePassedP2 {
		return &outcome{reply: models.Single(e.currentPrompt(ctx, state)), label: "noop"}, nil
	}
	msg, err := e.positionsMessage(ctx)
	if err != nil {
		return nil, err
	}
	return &outcome{
		next:  models.NewSessionState(state.UserID),
		reply: models.Single(msg),
		label: "reset",
	}, nil
}

// advance asks the question under the cursor, or the resume once the
// questions are exhausted. Scores are written through either way.
func (e *Engine) advance(next *models.SessionState, label string) *outcome {
	var msg models.BotMessage
	if next.QuestionsExhausted() {
		msg = e.gate.Suspend(next, models.DocumentResume)
	} else {
		next.Stage = models.StageScreeningQuestions
		q, _ := next.CurrentQuestion()
		msg = questionMessage(q)
	}
	out := &outcome{next: next, reply: models.Single(msg), label: label}
	out.progress.Assessment = assessmentFor(next)
	return out
}

func assessmentFor(state *models.SessionState) *models.Assessment {
	return &models.Assessment{
		UserID:           state.UserID,
		JobID:            state.SelectedJobID,
		Counters:         state.Counters,
		Answers:          state.Answers,
		TotalScore:       scoring.TotalScore(state.Counters),
		Disqualified:     scoring.IsDisqualified(state.Counters),
		DegreeURL:        state.UploadedURLs[models.DocumentDegree],
		CertificationURL: state.UploadedURLs[models.DocumentCertification],
		ResumeURL:        state.UploadedURLs[models.DocumentResume],
		Completed:        state.Stage == models.StageRejected || state.Stage == models.StageAwaitingHR,
	}
}

func (e *Engine) positionsMessage(ctx context.Context) (models.BotMessage, error) {
	jobs, err := e.jobs.ListOpenJobs(ctx)
	if err != nil {
		return models.BotMessage{}, errors.NewPersistenceError("list open jobs", err)
	}
	return openPositionsMessage(jobs), nil
}

// currentPrompt re-renders what the applicant was last asked in this stage.
func (e *Engine) currentPrompt(ctx context.Context, state *models.SessionState) models.BotMessage {
	switch state.Stage {
	case models.StageInitial:
		msg, err := e.positionsMessage(ctx)
		if err != nil {
			return models.BotMessage{Text: "Tell me which position you are interested in."}
		}
		return msg
	case models.StageJobSelection:
		return proceedPrompt()
	case models.StageScreeningQuestions:
		if q, ok := state.CurrentQuestion(); ok {
			return questionMessage(q)
		}
		return uploadgate.Prompt(models.DocumentResume)
	case models.StageFileUpload:
		if doc, ok := uploadgate.Pending(state); ok {
			return uploadgate.Prompt(doc)
		}
		return models.BotMessage{Text: "Please upload the requested document."}
	case models.StageResumeUpload:
		return uploadgate.Prompt(models.DocumentResume)
	case models.StageAwaitingHR:
		return underReviewMessage()
	case models.StageRejected:
		return rejectionMessage()
	case models.StagePassedP1, models.StagePassedP2:
		return withNotice(passedReminder(state.Stage), e.schedulingMessage())
	case models.StageFailed:
		return e.milestoneReply(models.StatusP1Failed).Primary
	}
	return models.BotMessage{Text: "Tell me which position you are interested in."}
}
