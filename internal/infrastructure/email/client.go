// Package email provides the email client for sending transactional emails.
package email

import (
	"fmt"

	"github.com/resendlabs/resend-go"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/email/templates"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
)

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendLeadNotification(snapshot *lead.Snapshot) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client    *resend.Client
	toEmail   string
	fromEmail string
	fromName  string
}

// NewService creates a new email service client, returning the Service interface.
func NewService() (Service, error) {
	if config.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}
	if config.LeadNotifyEmail == "" {
		return nil, fmt.Errorf("LEAD_NOTIFY_EMAIL environment variable is required")
	}

	return &ResendClient{
		client:    resend.NewClient(config.ResendAPIKey),
		toEmail:   config.LeadNotifyEmail,
		fromEmail: config.EmailFrom,
		fromName:  config.EmailFromName,
	}, nil
}

// SendLeadNotification emails the sales inbox a summary of a persisted lead.
func (c *ResendClient) SendLeadNotification(snapshot *lead.Snapshot) error {
	subject := fmt.Sprintf("Nuevo lead %s (interés %d/100)", snapshot.LeadCode, snapshot.InterestScore)

	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Preheader: subject,
		Content:   templates.GetLeadNotificationContent(NotificationProps(snapshot)),
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{c.toEmail},
		Subject: subject,
		Html:    htmlContent,
	}

	if _, err := c.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send lead notification via Resend: %w", err)
	}
	return nil
}

// NotificationProps maps a snapshot onto the email template.
func NotificationProps(snapshot *lead.Snapshot) templates.LeadNotificationProps {
	return templates.LeadNotificationProps{
		LeadCode:      snapshot.LeadCode,
		Name:          snapshot.Name,
		Phone:         snapshot.Phone,
		InterestScore: snapshot.InterestScore,
		VisitCount:    snapshot.VisitCount,
		TimeOnSite:    snapshot.TotalTimeFormatted,
		FloorPlan:     snapshot.FloorPlans.MostViewed,
		FloorPlanTime: lead.FormatDuration(snapshot.FloorPlans.MostViewedSeconds),
		PagesViewed:   snapshot.PagesViewed,
		LeisureItems:  snapshot.LeisureItemsClicked,
		Referrer:      snapshot.Environment.Referrer,
		UTMSource:     snapshot.Environment.UTMSource,
		UTMCampaign:   snapshot.Environment.UTMCampaign,
	}
}
