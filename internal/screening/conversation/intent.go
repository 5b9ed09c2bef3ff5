package conversation

import (
	"strings"

	"applicant-screening/internal/models"
	"applicant-screening/internal/screening/scoring"
)

// parseAnswer maps a turn onto Yes/No. Containment only; "yes" wins.
func parseAnswer(req TurnRequest) (int, bool) {
	text := req.Message
	if req.Predefined != nil {
		if req.Predefined.Action != ActionAnswer {
			return 0, false
		}
		text = req.Predefined.Value
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "yes"):
		return scoring.Yes, true
	case strings.Contains(lower, "no"):
		return scoring.No, true
	}
	return 0, false
}

// matchJob finds the open job the turn refers to: an explicit select_job
// action by id, or the longest job title contained in the message text.
func matchJob(req TurnRequest, jobs []models.Job) (models.Job, bool) {
	if req.Predefined != nil {
		if req.Predefined.Action != ActionSelectJob {
			return models.Job{}, false
		}
		id := req.Predefined.JobID
		if id == "" {
			id = req.Predefined.Value
		}
		for _, j := range jobs {
			if j.ID == id {
				return j, true
			}
		}
		return models.Job{}, false
	}

	lower := strings.ToLower(req.Message)
	if strings.TrimSpace(lower) == "" {
		return models.Job{}, false
	}
	var best models.Job
	bestLen := 0
	for _, j := range jobs {
		title := strings.ToLower(strings.TrimSpace(j.Title))
		if title == "" || !strings.Contains(lower, title) {
			continue
		}
		if len(title) > bestLen {
			best = j
			bestLen = len(title)
		}
	}
	return best, bestLen > 0
}

// canRestart reports whether a job-title match may start a new cycle. A
// pending upload accepts nothing but the upload, and a passed applicant's
// cycle is final.
func canRestart(state *models.SessionState) bool {
	if state.AwaitingUpload != nil {
		return false
	}
	switch state.Stage {
	case models.StageFileUpload, models.StageResumeUpload, models.StagePassedP1, models.StagePassedP2:
		return false
	}
	return true
}

// buttonAction decodes a button value typed or pasted back as free text,
// e.g. "select_job:job-1" or "upload:degree".
func buttonAction(text string) (*PredefinedMessage, bool) {
	action, arg, ok := strings.Cut(strings.TrimSpace(text), ":")
	if !ok || arg == "" {
		return nil, false
	}
	switch action {
	case ActionSelectJob:
		return &PredefinedMessage{Action: ActionSelectJob, JobID: arg}, true
	case ActionUpload:
		return &PredefinedMessage{Action: ActionUpload, Value: arg}, true
	}
	return nil, false
}
