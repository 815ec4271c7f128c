// Package mailer отвечает за отправку писем участникам.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Sender описывает способность отправить письмо. Сбои отправки логируются
// вызывающей стороной и никогда не прерывают породивший отправку процесс.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer отправляет письма через SMTP-релей. Пустой адрес релея
// переводит отправку в выключенный режим: письма молча отбрасываются.
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer создаёт отправитель писем через указанный SMTP-адрес.
func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from}
}

// Enabled сообщает, настроена ли реальная отправка писем.
func (m *SMTPMailer) Enabled() bool {
	return m.addr != ""
}

// Send отправляет текстовое письмо указанному получателю.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.Enabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
