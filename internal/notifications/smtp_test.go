package notifications

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/backend/pkg/config"
	"github.com/ledgerline/backend/pkg/logger"
)

func TestNewSMTPDispatcherRequiresHost(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	if _, err := NewSMTPDispatcher(config.SMTPConfig{}, logg); err == nil {
		t.Fatal("expected error for missing host")
	}
	if _, err := NewSMTPDispatcher(config.SMTPConfig{Host: "smtp.test"}, nil); err == nil {
		t.Fatal("expected error for missing logger")
	}
}

func TestEmailBodies(t *testing.T) {
	email := InvoiceEmail{
		To:            "customer@test",
		InvoiceNumber: "INV-ABC123",
		Amount:        decimal.NewFromFloat(149.50),
		DueDate:       time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		PaymentURL:    "https://pay.test/link",
	}

	plain := plainBody(email)
	for _, want := range []string{"INV-ABC123", "149.50", "March 15, 2026", "https://pay.test/link"} {
		if !strings.Contains(plain, want) {
			t.Fatalf("plain body missing %q: %s", want, plain)
		}
	}

	html := htmlBody(email)
	if !strings.Contains(html, `href="https://pay.test/link"`) {
		t.Fatalf("html body missing payment link: %s", html)
	}

	noLink := email
	noLink.PaymentURL = ""
	if strings.Contains(plainBody(noLink), "Pay online") {
		t.Fatal("plain body should omit pay line without a link")
	}
}

func TestSubjectIncludesCompanyWhenPresent(t *testing.T) {
	email := InvoiceEmail{InvoiceNumber: "INV-1", CompanyName: "Acme"}
	if got := subjectFor(email); got != "Invoice INV-1 from Acme" {
		t.Fatalf("unexpected subject %q", got)
	}
	email.CompanyName = ""
	if got := subjectFor(email); got != "Invoice INV-1" {
		t.Fatalf("unexpected subject %q", got)
	}
}
