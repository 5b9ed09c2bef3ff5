// Package notify delivers milestone emails and status-change events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"applicant-screening/internal/common/config"
	"applicant-screening/internal/common/errors"
	"applicant-screening/internal/common/logger"
	"applicant-screening/internal/models"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// MilestoneNotifier emails the applicant when a reviewer decision lands.
type MilestoneNotifier interface {
	NotifyMilestone(ctx context.Context, applicant *models.Applicant, status models.ApplicantStatus, jobTitle string) (*models.Notification, error)
}

// StatusPublisher announces status changes to downstream HR tooling.
type StatusPublisher interface {
	PublishStatusChange(ctx context.Context, event models.StatusEvent) error
}

type SESNotifier struct {
	client        SESService
	enabled       bool
	fromEmail     string
	schedulingURL string
	logger        logger.Logger
}

func NewSESNotifier(client SESService, cfg *config.Config, log logger.Logger) *SESNotifier {
	return &SESNotifier{
		client:        client,
		enabled:       cfg.Notifications.Email.Enabled,
		fromEmail:     cfg.Notifications.Email.FromEmail,
		schedulingURL: cfg.Screening.SchedulingURL,
		logger:        logger.ForComponent(log, "notify.ses"),
	}
}

// NotifyMilestone sends the email for a milestone status. Non-milestone
// statuses, a disabled channel and applicants without an address are no-ops
// that return a nil notification.
func (n *SESNotifier) NotifyMilestone(ctx context.Context, applicant *models.Applicant, status models.ApplicantStatus, jobTitle string) (*models.Notification, error) {
	if !n.enabled || applicant == nil || applicant.Email == "" {
		return nil, nil
	}
	subject, body, ok := n.render(applicant, status, jobTitle)
	if !ok {
		return nil, nil
	}

	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{applicant.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: sdkaws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: sdkaws.String(body)},
			},
		},
		Source: sdkaws.String(n.fromEmail),
	})
	if err != nil {
		return nil, errors.NewNotificationSendFailedError("email", err)
	}

	notification := &models.Notification{
		ID:          uuid.New().String(),
		RecipientID: applicant.ID,
		Email:       applicant.Email,
		Status:      status,
		JobTitle:    jobTitle,
		Subject:     subject,
		Body:        body,
		Channel:     "email",
		SentAt:      time.Now().UTC().Format(time.RFC3339),
	}
	n.logger.Info("milestone email sent", map[string]interface{}{
		"notificationId": notification.ID,
		"userId":         applicant.ID,
		"status":         string(status),
	})
	return notification, nil
}

func (n *SESNotifier) render(applicant *models.Applicant, status models.ApplicantStatus, jobTitle string) (string, string, bool) {
	name := applicant.Name
	if name == "" {
		name = "there"
	}
	position := jobTitle
	if position == "" {
		position = "the position"
	}

	switch status {
	case models.StatusP1Passed, models.StatusP2Passed:
		subject := fmt.Sprintf("Your application for %s: next steps", position)
		body := fmt.Sprintf("Hi %s,\n\nCongratulations! You have passed the %s stage for %s.\nPlease book your interview here: %s\n",
			name, stagePhase(status), position, n.schedulingURL)
		return subject, body, true
	case models.StatusP1Failed, models.StatusP2Failed:
		subject := fmt.Sprintf("Your application for %s", position)
		body := fmt.Sprintf("Hi %s,\n\nThank you for your interest in %s. After careful review we will not be moving forward with your application.\n",
			name, position)
		return subject, body, true
	}
	return "", "", false
}

func stagePhase(status models.ApplicantStatus) string {
	if status == models.StatusP2Passed {
		return "second"
	}
	return "first"
}

type SNSPublisher struct {
	client   SNSService
	enabled  bool
	topicARN string
	logger   logger.Logger
}

func NewSNSPublisher(client SNSService, cfg *config.Config, log logger.Logger) *SNSPublisher {
	return &SNSPublisher{
		client:   client,
		enabled:  cfg.Notifications.StatusEvents.Enabled,
		topicARN: cfg.Notifications.StatusEvents.TopicARN,
		logger:   logger.ForComponent(log, "notify.sns"),
	}
}

func (p *SNSPublisher) PublishStatusChange(ctx context.Context, event models.StatusEvent) error {
	if !p.enabled {
		return nil
	}
	if event.OccurredAt == "" {
		event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: sdkaws.String(p.topicARN),
		Message:  sdkaws.String(string(payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"status": {
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(string(event.NewStatus)),
			},
		},
	})
	if err != nil {
		return errors.NewNotificationSendFailedError("sns", err)
	}

	fields := map[string]interface{}{
		"userId":    event.UserID,
		"newStatus": string(event.NewStatus),
	}
	if out != nil && out.MessageId != nil {
		fields["messageId"] = *out.MessageId
	}
	p.logger.Debug("status event published", fields)
	return nil
}

// Noop satisfies both interfaces and does nothing.
type Noop struct{}

func (Noop) NotifyMilestone(context.Context, *models.Applicant, models.ApplicantStatus, string) (*models.Notification, error) {
	return nil, nil
}

func (Noop) PublishStatusChange(context.Context, models.StatusEvent) error {
	return nil
}
