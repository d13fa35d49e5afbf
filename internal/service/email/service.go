package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/resend/resend-go/v3"

	"github.com/travel-guide-ai/travelmate-notifications/internal/config"
	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
)

// Service renders and sends notification emails through Resend.
type Service struct {
	client       *resend.Client
	config       *config.Config
	templatePath string
}

func NewService(cfg *config.Config) *Service {
	client := resend.NewClient(cfg.ResendAPIKey)
	templatePath := "internal/service/templates/email"
	return &Service{
		client:       client,
		config:       cfg,
		templatePath: templatePath,
	}
}

func (s *Service) Send(ctx context.Context, notif *domain.Notification, contact *domain.ContactInfo) error {
	if contact == nil || contact.Email == "" {
		return errors.New("recipient has no email address")
	}

	actionURL := notif.Data.ActionURL
	if actionURL != "" {
		actionURL = fmt.Sprintf("https://%s%s", s.config.Domain, actionURL)
	}

	data := struct {
		Title     string
		Name      string
		Message   string
		ActionURL string
	}{
		Title:     notif.Title,
		Name:      contact.FullName,
		Message:   notif.Message,
		ActionURL: actionURL,
	}

	body, err := s.render("notification.html", data)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("TravelMate <%s>", s.config.FromEmail),
		To:      []string{contact.Email},
		Html:    body,
		Subject: notif.Title,
	}

	_, err = s.client.Emails.Send(params)
	return err
}

func (s *Service) render(templateName string, data any) (string, error) {
	tmpl, err := template.ParseFiles(
		filepath.Join(s.templatePath, "layout.html"),
		filepath.Join(s.templatePath, templateName),
	)
	if err != nil {
		return "", fmt.Errorf("failed to parse email templates: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return body.String(), nil
}
