// Package notifier gửi email báo lỗi cho chủ automation account khi run của project thất bại.
package notifier

import (
	"context"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"

	automodels "shorts_farm/internal/api/automation/models"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/logger"
)

// SMTPConfig thông tin máy chủ gửi mail
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	// BaseURL link tới project trong email, có thể rỗng
	BaseURL string
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier gửi email qua SMTP
type EmailNotifier struct {
	cfg    SMTPConfig
	sender mailSender
}

// NewEmailNotifier tạo notifier. Host rỗng thì trả về nil, pipeline bỏ qua thông báo
func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	if cfg.Host == "" {
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &EmailNotifier{
		cfg:    cfg,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// NotifyFailure gửi email tới OwnerEmail của account. Không có email thì bỏ qua
func (n *EmailNotifier) NotifyFailure(ctx context.Context, project *models.Project, account *automodels.Account, message string) error {
	if account == nil || account.OwnerEmail == "" {
		logger.GetAppLogger().WithFields(map[string]interface{}{
			"projectId": project.ID.Hex(),
		}).Debug("✉️ [NOTIFY] Account không có email, bỏ qua")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := n.buildMessage(project, account, message)
	if err := n.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send failure email: %w", err)
	}
	logger.GetAppLogger().WithFields(map[string]interface{}{
		"projectId": project.ID.Hex(),
		"accountId": account.ID.Hex(),
		"to":        account.OwnerEmail,
	}).Info("✉️ [NOTIFY] Đã gửi email báo lỗi")
	return nil
}

func (n *EmailNotifier) renderBody(project *models.Project, account *automodels.Account, message string) string {
	body := fmt.Sprintf(
		`<p>The video for <b>%s</b> on account <b>%s</b> could not be created.</p><p>Reason: %s</p>`,
		html.EscapeString(project.Topic), html.EscapeString(account.DisplayName), html.EscapeString(message),
	)
	if n.cfg.BaseURL != "" {
		link := fmt.Sprintf("%s/projects/%s", n.cfg.BaseURL, project.ID.Hex())
		body += fmt.Sprintf(`<p><a href="%s">Open project</a></p>`, link)
	}
	return body
}

func (n *EmailNotifier) buildMessage(project *models.Project, account *automodels.Account, message string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("%s <%s>", n.cfg.FromName, n.cfg.FromEmail))
	msg.SetHeader("To", account.OwnerEmail)
	msg.SetHeader("Subject", fmt.Sprintf("[%s] Video generation failed", account.DisplayName))
	msg.SetBody("text/html", n.renderBody(project, account, message))
	return msg
}
