package conversation

import (
	"strings"

	"applicant-screening/internal/common/errors"
	"applicant-screening/internal/models"
	"applicant-screening/internal/screening/uploadgate"
)

// Predefined actions sent by chat buttons.
const (
	ActionStart     = "start"
	ActionSelectJob = "select_job"
	ActionAnswer    = "answer"
	ActionReset     = "reset"
	ActionUpload    = uploadgate.UploadAction
)

// TurnRequest is one inbound turn: free text, a button action, or a file.
type TurnRequest struct {
	Message    string             `json:"message,omitempty"`
	Predefined *PredefinedMessage `json:"predefinedMessage,omitempty"`
	Upload     *models.FileUpload `json:"-"`
}

type PredefinedMessage struct {
	Action string `json:"action"`
	Value  string `json:"value,omitempty"`
	JobID  string `json:"jobId,omitempty"`
}

// TurnResponse carries the outbound message. Error is set when the turn was
// degraded to a generic message; the applicant still gets Response.
type TurnResponse struct {
	Response models.BotMessage     `json:"response"`
	Stage    models.Stage          `json:"stage"`
	Error    *errors.StandardError `json:"error,omitempty"`

	Reply models.Reply `json:"-"`
}

func (r TurnRequest) validate() error {
	set := 0
	if strings.TrimSpace(r.Message) != "" {
		set++
	}
	if r.Predefined != nil {
		set++
		if r.Predefined.Action == "" {
			return errors.NewInvalidRequestError("predefinedMessage.action is required")
		}
	}
	if r.Upload != nil {
		set++
	}
	if set != 1 {
		return errors.NewInvalidRequestError("exactly one of message, predefinedMessage or upload is required")
	}
	return nil
}

// normalized turns a button value sent as free text into the action it
// stands for, so every button can be posted back as a plain message.
func (r TurnRequest) normalized() TurnRequest {
	if r.Predefined != nil || r.Upload != nil {
		return r
	}
	if action, ok := buttonAction(r.Message); ok {
		return TurnRequest{Predefined: action}
	}
	return r
}

// logText is what the inbound chat-log entry records for this turn.
func (r TurnRequest) logText() string {
	switch {
	case r.Upload != nil:
		name := r.Upload.FileName
		if name == "" {
			name = string(r.Upload.DocumentType)
		}
		return "[uploaded " + string(r.Upload.DocumentType) + ": " + name + "]"
	case r.Predefined != nil:
		if r.Predefined.Value != "" {
			return r.Predefined.Value
		}
		if r.Predefined.JobID != "" {
			return r.Predefined.Action + ":" + r.Predefined.JobID
		}
		return r.Predefined.Action
	default:
		return strings.TrimSpace(r.Message)
	}
}
