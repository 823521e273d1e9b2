package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/memobox/training-push/internal/config"
)

// MailSender is the slice of the SendGrid client the email dispatcher uses.
// Satisfied by *sendgrid.Client.
type MailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailDispatcher sends one batched SendGrid call per language and
// notification type, carrying one personalization per recipient. Batching
// bounds provider round-trips to the number of language/type groups per tick
// instead of the number of recipients.
type EmailDispatcher struct {
	Sender  MailSender
	Resolve func(language, emailType string) (*config.SendGridData, error)
	Logger  *slog.Logger
}

// Dispatch sends every non-empty language batch in parallel. Empty batches
// are skipped without touching the provider. Per-language failures are
// captured in the results; the raw provider error never escapes this layer.
func (d *EmailDispatcher) Dispatch(ctx context.Context, sets map[string][]EmailNotification) []DispatchResult {
	var mu sync.Mutex
	var wg sync.WaitGroup
	var results []DispatchResult

	for lang, items := range sets {
		if len(items) == 0 {
			continue
		}
		wg.Add(1)
		go func(lang string, items []EmailNotification) {
			defer wg.Done()
			r := d.dispatchLanguage(ctx, lang, items)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(lang, items)
	}
	wg.Wait()

	return results
}

func (d *EmailDispatcher) dispatchLanguage(ctx context.Context, language string, items []EmailNotification) DispatchResult {
	result := DispatchResult{
		Language:        language,
		Success:         true,
		NotificationIDs: keys(items),
	}

	var errs []string
	for emailType, group := range groupByType(items) {
		status, err := d.sendGroup(ctx, language, emailType, group)
		result.StatusCode = status
		if err != nil {
			result.Success = false
			errs = append(errs, err.Error())
		}
	}
	result.Message = strings.Join(errs, "; ")
	return result
}

// sendGroup builds and sends one SendGrid V3 mail for a language/type group.
func (d *EmailDispatcher) sendGroup(ctx context.Context, language, emailType string, items []EmailNotification) (int, error) {
	data, err := d.Resolve(language, emailType)
	if err != nil {
		return 0, fmt.Errorf("resolve template: %w", err)
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(data.Name, data.Email))
	m.SetTemplateID(data.TemplateID)
	for _, item := range items {
		p := mail.NewPersonalization()
		p.AddTos(mail.NewEmail(item.Name, item.Email))
		p.SetDynamicTemplateData("subject", data.Subject)
		p.SetDynamicTemplateData("name", item.Name)
		m.AddPersonalizations(p)
	}

	resp, err := d.Sender.SendWithContext(ctx, m)
	if err != nil {
		return 0, fmt.Errorf("sendgrid send %s/%s: %w", language, emailType, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("sendgrid send %s/%s: status %d", language, emailType, resp.StatusCode)
	}
	d.Logger.Info("sendgrid batch accepted",
		"language", language, "type", emailType,
		"recipients", len(items), "status", resp.StatusCode)
	return resp.StatusCode, nil
}

// SendOne sends a single transactional email outside the scheduling loop.
// data is merged into the template's dynamic data alongside the configured
// subject.
func (d *EmailDispatcher) SendOne(ctx context.Context, language, emailType, to string, data map[string]any) (*rest.Response, error) {
	tmpl, err := d.Resolve(language, emailType)
	if err != nil {
		return nil, fmt.Errorf("resolve template: %w", err)
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(tmpl.Name, tmpl.Email))
	m.SetTemplateID(tmpl.TemplateID)
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", to))
	for k, v := range data {
		p.SetDynamicTemplateData(k, v)
	}
	p.SetDynamicTemplateData("subject", tmpl.Subject)
	m.AddPersonalizations(p)

	resp, err := d.Sender.SendWithContext(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("sendgrid send to %s: %w", to, err)
	}
	return resp, nil
}

func groupByType(items []EmailNotification) map[string][]EmailNotification {
	groups := make(map[string][]EmailNotification)
	for _, item := range items {
		groups[item.NotificationType] = append(groups[item.NotificationType], item)
	}
	return groups
}
