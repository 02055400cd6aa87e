package service

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/logger"
)

type sendGridEmailService struct {
	apiKey    string
	host      string
	fromEmail string
	fromName  string
}

// NewSendGridEmailService sends through the SendGrid v3 API. An empty host uses
// the public endpoint.
func NewSendGridEmailService(apiKey, host, fromEmail, fromName string) EmailService {
	return &sendGridEmailService{
		apiKey:    apiKey,
		host:      host,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridEmailService) send(toEmail, toName, subject, plainText, htmlBody string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail(toName, toEmail), plainText, htmlBody)

	request := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	logger.ExternalServiceCall("sendgrid", "mail.send", "subject", subject)
	response, err := sendgrid.API(request)
	if err != nil {
		logger.ExternalServiceResult("sendgrid", "mail.send", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		err := fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("sendgrid", "mail.send", err)
		return err
	}
	logger.ExternalServiceResult("sendgrid", "mail.send", nil, "status_code", response.StatusCode)
	return nil
}

func (s *sendGridEmailService) SendCreditCheckCompleted(ctx context.Context, email, name, referenceID string, score int32, band domain.ScoreBand) error {
	subject := fmt.Sprintf("Your credit check %s is ready", referenceID)
	body := fmt.Sprintf("Hello %s,\n\nYour credit check (reference %s) is complete.\n\nScore: %d (%s)\n\nYou can view the full report from your tenant dashboard.\n\nBest regards,\nThe Tenantry Team", name, referenceID, score, band)
	htmlBody := fmt.Sprintf("<p>Hello %s,</p><p>Your credit check (reference <strong>%s</strong>) is complete.</p><p>Score: <strong>%d</strong> (%s)</p><p>You can view the full report from your tenant dashboard.</p>",
		html.EscapeString(name), html.EscapeString(referenceID), score, html.EscapeString(string(band)))
	return s.send(email, name, subject, body, htmlBody)
}

func (s *sendGridEmailService) SendCreditCheckFailed(ctx context.Context, email, name, referenceID, reason string) error {
	subject := fmt.Sprintf("Your credit check %s could not be completed", referenceID)
	body := fmt.Sprintf("Hello %s,\n\nYour credit check (reference %s) did not complete.\n\nReason: %s\n\nYou can request a new check from your tenant dashboard.\n\nBest regards,\nThe Tenantry Team", name, referenceID, reason)
	htmlBody := fmt.Sprintf("<p>Hello %s,</p><p>Your credit check (reference <strong>%s</strong>) did not complete.</p><p>Reason: %s</p>",
		html.EscapeString(name), html.EscapeString(referenceID), html.EscapeString(reason))
	return s.send(email, name, subject, body, htmlBody)
}

type logEmailService struct{}

// NewLogEmailService records notifications in the log instead of sending them.
func NewLogEmailService() EmailService {
	return logEmailService{}
}

func (logEmailService) SendCreditCheckCompleted(ctx context.Context, email, name, referenceID string, score int32, band domain.ScoreBand) error {
	logger.InfoContext(ctx, "Credit check completion notice", "to", email, "reference_id", referenceID, "score", score, "band", band)
	return nil
}

func (logEmailService) SendCreditCheckFailed(ctx context.Context, email, name, referenceID, reason string) error {
	logger.InfoContext(ctx, "Credit check failure notice", "to", email, "reference_id", referenceID, "reason", reason)
	return nil
}
