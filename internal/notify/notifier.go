// internal/notify/notifier.go
package notify

import (
	"context"
	"encoding/json"
	"time"

	"carelink-workers/internal/common/logger"
	"carelink-workers/internal/common/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Service interfaces kept narrow so tests can mock the transports.
type PushService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type EmailService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Notifier delivers one intent to every device of one user. Delivery is
// fire-and-forget from the caller's perspective: per-token failures are
// logged and counted, never returned, so a failed push can never fail the
// domain event that triggered it.
type Notifier struct {
	devices   *DeviceDirectory
	users     *UserDirectory
	push      PushService
	email     EmailService
	fromEmail string
	audit     *AuditWriter
	logger    logger.Logger
}

func NewNotifier(devices *DeviceDirectory, users *UserDirectory, push PushService, email EmailService, fromEmail string, audit *AuditWriter, log logger.Logger) *Notifier {
	return &Notifier{
		devices:   devices,
		users:     users,
		push:      push,
		email:     email,
		fromEmail: fromEmail,
		audit:     audit,
		logger:    log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

type pushMessage struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notify resolves the user's devices and multicasts the intent to all of
// them. Zero registered devices is a normal no-op; the transport is never
// called for such a user.
func (n *Notifier) Notify(ctx context.Context, intent Intent) {
	log := n.logger.WithFields(map[string]interface{}{
		"userId":    intent.UserID,
		"eventType": intent.EventType(),
	})

	tokens := n.devices.ResolveDevices(ctx, intent.UserID)

	pushed := 0
	if len(tokens) == 0 {
		log.Info("no registered devices, skipping push", nil)
	} else if n.push != nil {
		payload, _ := json.Marshal(pushMessage{
			Title: intent.Title,
			Body:  intent.Body,
			Data:  intent.Data,
		})
		for _, token := range tokens {
			_, err := n.push.Publish(ctx, &sns.PublishInput{
				TargetArn: aws.String(token),
				Message:   aws.String(string(payload)),
			})
			if err != nil {
				// Stale tokens are expected; keep going with the rest.
				log.Warn("push send failed", map[string]interface{}{
					"token": token,
					"error": err.Error(),
				})
				metrics.NotificationSendFailures.WithLabelValues("push").Inc()
				continue
			}
			pushed++
		}
	}

	emailed := false
	if intent.Email && n.email != nil {
		emailed = n.sendEmail(ctx, log, intent)
	}

	metrics.NotificationsSent.WithLabelValues(intent.EventType()).Inc()

	n.audit.Record(ctx, AuditEntry{
		UserID:    intent.UserID,
		EventType: intent.EventType(),
		Title:     intent.Title,
		Tokens:    len(tokens),
		Pushed:    pushed,
		Emailed:   emailed,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (n *Notifier) sendEmail(ctx context.Context, log logger.Logger, intent Intent) bool {
	addr := n.users.Email(ctx, intent.UserID)
	if addr == "" {
		return false
	}

	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{addr},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(intent.Title)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(intent.Body)},
			},
		},
		Source: aws.String(n.fromEmail),
	})
	if err != nil {
		log.Warn("email send failed", map[string]interface{}{"error": err.Error()})
		metrics.NotificationSendFailures.WithLabelValues("email").Inc()
		return false
	}
	return true
}
