// Package paypal предоставляет клиент проверки IPN-уведомлений PayPal.
package paypal

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// paymentStatusCompleted — статус платежа в IPN, означающий успешное списание.
const paymentStatusCompleted = "Completed"

// Notification содержит разобранные поля IPN-уведомления.
type Notification struct {
	PaymentStatus string
	ReceiverEmail string
	InvoiceID     int64
	TransactionID string
}

// ParseNotification разбирает тело IPN-запроса. Поле custom несёт
// идентификатор счёта, присвоенный при его создании.
func ParseNotification(body []byte) (*Notification, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse ipn body: %w", err)
	}

	invoiceID, err := strconv.ParseInt(values.Get("custom"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse custom field: %w", err)
	}

	return &Notification{
		PaymentStatus: values.Get("payment_status"),
		ReceiverEmail: values.Get("receiver_email"),
		InvoiceID:     invoiceID,
		TransactionID: values.Get("txn_id"),
	}, nil
}

// CompletedFor сообщает, подтверждает ли уведомление завершённый платёж в
// адрес указанного получателя.
func (n *Notification) CompletedFor(receiverEmail string) bool {
	return n.PaymentStatus == paymentStatusCompleted && n.ReceiverEmail == receiverEmail
}

// Verifier выполняет обратную проверку IPN-уведомления на сервере PayPal.
// Проверка идемпотентна, поэтому запрос повторяется при сетевых сбоях.
type Verifier struct {
	serverURL  string
	httpClient *retryablehttp.Client
}

// NewVerifier создаёт клиент проверки IPN для указанного адреса сервера PayPal.
func NewVerifier(serverURL string) *Verifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	return &Verifier{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: client,
	}
}

// Verify отправляет исходное тело уведомления обратно на сервер PayPal с
// командой _notify-validate и сообщает, признано ли уведомление подлинным.
func (v *Verifier) Verify(ctx context.Context, body []byte) (bool, error) {
	if v == nil || v.serverURL == "" {
		return false, fmt.Errorf("paypal verifier not configured")
	}

	payload := "cmd=_notify-validate&" + string(body)

	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", v.serverURL, strings.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	answer, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}

	return strings.TrimSpace(string(answer)) == "VERIFIED", nil
}
