package notifications

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	gomail "gopkg.in/gomail.v2"

	"github.com/ledgerline/backend/pkg/config"
	pkgerrors "github.com/ledgerline/backend/pkg/errors"
	"github.com/ledgerline/backend/pkg/logger"
)

type smtpDispatcher struct {
	cfg  config.SMTPConfig
	logg *logger.Logger
}

// NewSMTPDispatcher returns the gomail-backed dispatcher.
func NewSMTPDispatcher(cfg config.SMTPConfig, logg *logger.Logger) (Dispatcher, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &smtpDispatcher{cfg: cfg, logg: logg}, nil
}

func (d *smtpDispatcher) SendInvoice(ctx context.Context, email InvoiceEmail) error {
	if strings.TrimSpace(email.To) == "" {
		return pkgerrors.New(pkgerrors.CodeNotification, "recipient email is empty")
	}

	from := email.FromEmail
	if from == "" {
		from = d.cfg.DefaultFrom
	}
	if from == "" {
		return pkgerrors.New(pkgerrors.CodeNotification, "sender email is not configured")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", subjectFor(email))
	msg.SetBody("text/plain", plainBody(email))
	msg.AddAlternative("text/html", htmlBody(email))

	if len(email.Attachment) > 0 {
		name := fmt.Sprintf("invoice-%s.pdf", email.InvoiceNumber)
		msg.Attach(name,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(email.Attachment))
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
		)
	}

	dialer := gomail.NewDialer(d.cfg.Host, d.cfg.Port, d.cfg.Username, d.cfg.Password)

	done := make(chan error, 1)
	go func() {
		done <- dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeNotification, ctx.Err(), "sending invoice email")
	case err := <-done:
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotification, err, "sending invoice email")
		}
	}

	d.logg.Info(ctx, "invoice notification sent")
	return nil
}

func subjectFor(email InvoiceEmail) string {
	company := email.CompanyName
	if company == "" {
		return fmt.Sprintf("Invoice %s", email.InvoiceNumber)
	}
	return fmt.Sprintf("Invoice %s from %s", email.InvoiceNumber, company)
}

func plainBody(email InvoiceEmail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice %s\n", email.InvoiceNumber)
	fmt.Fprintf(&b, "Amount due: %s\n", email.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Due date: %s\n", email.DueDate.Format("January 2, 2006"))
	if email.PaymentURL != "" {
		fmt.Fprintf(&b, "\nPay online: %s\n", email.PaymentURL)
	}
	return b.String()
}

func htmlBody(email InvoiceEmail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Invoice <strong>%s</strong></p>", email.InvoiceNumber)
	fmt.Fprintf(&b, "<p>Amount due: <strong>%s</strong><br>", email.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Due date: %s</p>", email.DueDate.Format("January 2, 2006"))
	if email.PaymentURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Pay this invoice online</a></p>`, email.PaymentURL)
	}
	return b.String()
}
