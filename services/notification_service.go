package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/findmenow/config"
	"github.com/techagentng/findmenow/models"
)

// Notifier tells moderators that a report is waiting for review.
type Notifier interface {
	ReportPending(ctx context.Context, r *models.Report) error
}

// Mailer is the part of the Mailgun client the notifier uses.
type Mailer interface {
	NewMessage(from, subject, text string, to ...string) *mailgun.Message
	Send(ctx context.Context, m *mailgun.Message) (string, string, error)
}

type mailgunNotifier struct {
	mg      Mailer
	from    string
	to      []string
	baseURL string
	log     *logrus.Logger
}

// NewNotificationService returns a Mailgun-backed Notifier, or a no-op one when mail is not configured.
func NewNotificationService(conf *config.Config, log *logrus.Logger) Notifier {
	if conf.MailgunApiKey == "" || conf.MgDomain == "" || len(conf.ModeratorEmails) == 0 {
		return noopNotifier{}
	}
	return NewMailgunNotifier(mailgun.NewMailgun(conf.MgDomain, conf.MailgunApiKey), conf, log)
}

func NewMailgunNotifier(mg Mailer, conf *config.Config, log *logrus.Logger) Notifier {
	return &mailgunNotifier{
		mg:      mg,
		from:    conf.MgEmailFrom,
		to:      conf.ModeratorEmails,
		baseURL: conf.BaseUrl,
		log:     log,
	}
}

func (n *mailgunNotifier) ReportPending(ctx context.Context, r *models.Report) error {
	subject := fmt.Sprintf("New missing person report: %s", r.FullName)
	body := fmt.Sprintf("A report is waiting for review.\n\n%s\n\nReview it at %s/api/v1/admin/reports/pending",
		shareText(r), n.baseURL)

	m := n.mg.NewMessage(n.from, subject, body, n.to...)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, id, err := n.mg.Send(ctx, m)
	if err != nil {
		return fmt.Errorf("send moderator email: %w", err)
	}
	n.log.WithFields(logrus.Fields{"report_id": r.ID, "message_id": id}).Info("moderators notified")
	return nil
}

type noopNotifier struct{}

func (noopNotifier) ReportPending(context.Context, *models.Report) error { return nil }
