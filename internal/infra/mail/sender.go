package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/homelistingai/leadflow/internal/infra/metrics"
	"github.com/homelistingai/leadflow/internal/infra/queue"
)

//go:embed templates/step.html
var templateFS embed.FS

var stepTemplate = template.Must(template.ParseFS(templateFS, "templates/step.html"))

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	s := &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
	s.send = func(m *gomail.Message) error {
		return gomail.NewDialer(s.Host, s.Port, s.User, s.Password).DialAndSend(m)
	}
	return s
}

// SendStep renders one sequence email. {{lead.name}} and {{lead.email}} in the
// subject or content are replaced with the lead's values.
func (s *EmailSender) SendStep(to, leadName, subject, content, sequenceName string) error {
	if s.Host == "" {
		return errors.New("smtp host not configured")
	}
	r := strings.NewReplacer("{{lead.name}}", leadName, "{{lead.email}}", to)

	var body bytes.Buffer
	err := stepTemplate.Execute(&body, StepEmailData{
		Body:         r.Replace(content),
		SequenceName: sequenceName,
	})
	if err != nil {
		return fmt.Errorf("render step template: %w", err)
	}

	if subject == "" {
		subject = sequenceName
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", r.Replace(subject))
	m.SetBody("text/html", body.String())

	if err := s.send(m); err != nil {
		return fmt.Errorf("send smtp email: %w", err)
	}
	return nil
}

// StepMailer is the queue.StepHandler for outreach steps. Only email steps
// are delivered; other channels are acknowledged and logged for the agent.
type StepMailer struct {
	sender *EmailSender
	log    logrus.FieldLogger
}

func NewStepMailer(sender *EmailSender, log logrus.FieldLogger) *StepMailer {
	return &StepMailer{sender: sender, log: log.WithField("component", "step_mailer")}
}

func (m *StepMailer) HandleStepDue(_ context.Context, p queue.StepDuePayload) error {
	if !strings.EqualFold(p.Channel, "email") {
		m.log.WithFields(logrus.Fields{
			"tenant":      p.Tenant,
			"followup_id": p.FollowUpID,
			"channel":     p.Channel,
		}).Info("📋 Non-email step left for the agent")
		metrics.RecordStepDelivery(p.Channel, "skipped")
		return nil
	}
	if p.LeadEmail == "" {
		metrics.RecordStepDelivery(p.Channel, "failed")
		return fmt.Errorf("lead %s has no email", p.LeadID)
	}
	if err := m.sender.SendStep(p.LeadEmail, p.LeadName, p.Subject, p.Content, p.SequenceName); err != nil {
		metrics.RecordStepDelivery(p.Channel, "failed")
		return err
	}
	metrics.RecordStepDelivery(p.Channel, "sent")
	return nil
}
