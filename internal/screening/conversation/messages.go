package conversation

import (
	"fmt"
	"strings"

	"applicant-screening/internal/models"
	"applicant-screening/internal/screening/requirements"
)

func yesNoButtons() []models.Button {
	return []models.Button{
		{Text: "Yes", Value: "yes"},
		{Text: "No", Value: "no"},
	}
}

func openPositionsMessage(jobs []models.Job) models.BotMessage {
	if len(jobs) == 0 {
		return models.BotMessage{Text: "There are no open positions at the moment. Please check back later."}
	}
	buttons := make([]models.Button, 0, len(jobs))
	for _, j := range jobs {
		buttons = append(buttons, models.Button{Text: j.Title, Value: ActionSelectJob + ":" + j.ID})
	}
	return models.BotMessage{
		Text:    "Welcome! Here are our open positions. Type the job title or pick one below to get started.",
		Buttons: buttons,
	}
}

func jobSummaryMessage(reqs *models.JobRequirements) models.BotMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", reqs.Job.Title)
	if reqs.Job.Department != "" {
		fmt.Fprintf(&b, " (%s)", reqs.Job.Department)
	}
	if reqs.Job.WorkType != "" {
		fmt.Fprintf(&b, "\nWork setup: %s", reqs.Job.WorkType)
	}
	if reqs.Job.TimeCommitment != "" {
		fmt.Fprintf(&b, "\nSchedule: %s", reqs.Job.TimeCommitment)
	}
	fmt.Fprintf(&b, "\nThe screening has %d short questions. Would you like to proceed with your application?", requirements.Count(reqs))
	return models.BotMessage{Text: b.String(), Buttons: yesNoButtons()}
}

func proceedPrompt() models.BotMessage {
	return models.BotMessage{
		Text:    "Would you like to proceed with your application for this position?",
		Buttons: yesNoButtons(),
	}
}

func questionMessage(q models.Question) models.BotMessage {
	return models.BotMessage{Text: q.Text, Buttons: yesNoButtons()}
}

func rejectionMessage() models.BotMessage {
	return models.BotMessage{
		Text: "Thank you for your time. Unfortunately, based on your answers you do not meet the requirements for this position. You are welcome to apply for another open position.",
	}
}

func underReviewMessage() models.BotMessage {
	return models.BotMessage{Text: "Your application is currently under review by our HR team. We'll get back to you soon."}
}

func resumeReceivedMessage() models.BotMessage {
	return models.BotMessage{Text: "Thank you! We've received your resume. Your application is now under review by our HR team."}
}

func (e *Engine) schedulingMessage() models.BotMessage {
	return models.BotMessage{
		Text: "Please schedule your interview using the link below.",
		Buttons: []models.Button{
			{Text: "Schedule interview", Value: "schedule", URL: e.config.SchedulingURL},
		},
	}
}

// milestoneReply is the ordered pair shown when a reviewer decision is observed.
func (e *Engine) milestoneReply(status models.ApplicantStatus) models.Reply {
	switch status {
	case models.StatusP1Passed:
		return models.Pair(
			models.BotMessage{Text: "Congratulations! You have passed the initial screening for this position."},
			e.schedulingMessage(),
		)
	case models.StatusP2Passed:
		return models.Pair(
			models.BotMessage{Text: "Congratulations! You have passed the second stage of our hiring process."},
			e.schedulingMessage(),
		)
	default:
		return models.Pair(
			models.BotMessage{Text: "Thank you for your interest in this position. After careful review, we have decided not to move forward with your application."},
			models.BotMessage{Text: "We appreciate the time you invested and encourage you to apply for future openings."},
		)
	}
}

func passedReminder(stage models.Stage) string {
	if stage == models.StagePassedP2 {
		return "You have already passed the second stage."
	}
	return "You have already passed the initial screening."
}

// withNotice prefixes a re-shown prompt with a notice, keeping its buttons.
func withNotice(notice string, prompt models.BotMessage) models.BotMessage {
	if prompt.Text != "" {
		prompt.Text = notice + " " + prompt.Text
	} else {
		prompt.Text = notice
	}
	return prompt
}
