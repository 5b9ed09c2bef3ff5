// Package uploadgate suspends question progression until the applicant
// supplies the proof document a "Yes" answer demands.
package uploadgate

import (
	"context"
	stderrors "errors"
	"fmt"

	"applicant-screening/internal/blob"
	"applicant-screening/internal/common/errors"
	"applicant-screening/internal/common/logger"
	"applicant-screening/internal/common/metrics"
	"applicant-screening/internal/models"
)

// ErrNoPendingUpload is returned when the upload does not satisfy the
// pending document, or nothing is pending. The caller treats it as a no-op.
var ErrNoPendingUpload = stderrors.New("no pending upload")

// UploadAction is the button value the chat client turns into a file picker.
const UploadAction = "upload"

type Gate struct {
	store  blob.Store
	logger logger.Logger
}

func NewGate(store blob.Store, log logger.Logger) *Gate {
	return &Gate{
		store:  store,
		logger: logger.ForComponent(log, "uploadgate"),
	}
}

// Suspend blocks the session on doc. The question index is left where it is.
func (g *Gate) Suspend(state *models.SessionState, doc models.DocumentType) models.BotMessage {
	d := doc
	state.AwaitingUpload = &d
	if doc == models.DocumentResume {
		state.Stage = models.StageResumeUpload
	} else {
		state.Stage = models.StageFileUpload
	}
	return Prompt(doc)
}

// Pending reports the document the session is blocked on.
func Pending(state *models.SessionState) (models.DocumentType, bool) {
	if state.AwaitingUpload == nil {
		return "", false
	}
	return *state.AwaitingUpload, true
}

// Resume stores a matching upload, records its URL and clears the block.
// For degree and certification proofs the question index advances by exactly
// one; the resume is terminal and leaves the index alone. On any error the
// state is untouched.
func (g *Gate) Resume(ctx context.Context, state *models.SessionState, upload *models.FileUpload) (string, error) {
	pending, ok := Pending(state)
	if !ok || upload == nil || upload.DocumentType != pending {
		fields := map[string]interface{}{
			"userId":  state.UserID,
			"stage":   string(state.Stage),
			"pending": string(pending),
		}
		if upload != nil {
			fields["documentType"] = string(upload.DocumentType)
		}
		g.logger.Info("no pending upload for message", fields)
		if upload != nil {
			metrics.ScreeningUploadsTotal.WithLabelValues(string(upload.DocumentType), "rejected").Inc()
		}
		return "", ErrNoPendingUpload
	}

	url, err := g.store.Upload(ctx, state.UserID, upload)
	if err != nil {
		metrics.ScreeningUploadsTotal.WithLabelValues(string(pending), "failed").Inc()
		if errors.AsStandard(err).Code != errors.ErrCodeUploadFailed {
			err = errors.NewUploadError(string(pending), err)
		}
		return "", err
	}
	if url == "" {
		metrics.ScreeningUploadsTotal.WithLabelValues(string(pending), "failed").Inc()
		return "", errors.NewUploadError(string(pending), fmt.Errorf("blob store returned no url"))
	}

	if state.UploadedURLs == nil {
		state.UploadedURLs = map[models.DocumentType]string{}
	}
	state.UploadedURLs[pending] = url
	state.AwaitingUpload = nil
	if pending != models.DocumentResume {
		state.CurrentQuestionIndex++
	}
	metrics.ScreeningUploadsTotal.WithLabelValues(string(pending), "success").Inc()

	g.logger.Info("upload accepted", map[string]interface{}{
		"userId":        state.UserID,
		"documentType":  string(pending),
		"questionIndex": state.CurrentQuestionIndex,
	})
	return url, nil
}

// Prompt is the upload request with its single upload-capable action.
func Prompt(doc models.DocumentType) models.BotMessage {
	var text string
	switch doc {
	case models.DocumentDegree:
		text = "Great! Please upload a copy of your diploma or transcript to verify your degree."
	case models.DocumentCertification:
		text = "Great! Please upload a copy of your certificate."
	case models.DocumentResume:
		text = "Thank you for answering all the questions. Please upload your resume to complete your application."
	default:
		text = "Please upload the requested document."
	}
	return models.BotMessage{
		Text: text,
		Buttons: []models.Button{
			{Text: "Upload file", Value: UploadAction + ":" + string(doc)},
		},
	}
}
