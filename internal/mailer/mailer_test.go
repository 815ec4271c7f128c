package mailer

import (
	"context"
	"testing"
)

func TestSMTPMailer_DisabledMode(t *testing.T) {
	m := NewSMTPMailer("", "membership@collectiva.local")

	if m.Enabled() {
		t.Fatalf("mailer without smtp address must be disabled")
	}

	if err := m.Send(context.Background(), "to@example.org", "subject", "body"); err != nil {
		t.Fatalf("disabled mailer must silently drop mail, got %v", err)
	}
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m := NewSMTPMailer("localhost:2525", "membership@collectiva.local")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Send(ctx, "to@example.org", "subject", "body"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
