package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/frontdesk/internal/config"
	"github.com/wolfman30/frontdesk/internal/notify"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

// BuildEmailSender picks the mail transport from EMAIL_PROVIDER. "auto" prefers
// SendGrid, then SES, then the logging stub. It returns the chosen provider and,
// when it fell back to the stub, why.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub", "missing config"
	}

	pref := strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	sendGrid := func() notify.EmailSender {
		s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if s == nil {
			return nil
		}
		return s
	}
	ses := func() notify.EmailSender {
		if awsCfg == nil || cfg.SESFromEmail == "" {
			return nil
		}
		s := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if s == nil {
			return nil
		}
		return s
	}

	switch pref {
	case "sendgrid":
		if s := sendGrid(); s != nil {
			return s, "sendgrid", ""
		}
		return notify.NewStubEmailSender(logger), "stub", "SENDGRID_API_KEY not set"
	case "ses":
		if s := ses(); s != nil {
			return s, "ses", ""
		}
		return notify.NewStubEmailSender(logger), "stub", "SES_FROM_EMAIL or AWS config missing"
	case "stub":
		return notify.NewStubEmailSender(logger), "stub", "EMAIL_PROVIDER=stub"
	default:
		if s := sendGrid(); s != nil {
			return s, "sendgrid", ""
		}
		if s := ses(); s != nil {
			return s, "ses", ""
		}
		return notify.NewStubEmailSender(logger), "stub", "no email provider configured"
	}
}
