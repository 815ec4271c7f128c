// Package handler содержит HTTP-обработчики API сервиса collectiva.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bbqsrc/collectiva/internal/gateway"
	"github.com/bbqsrc/collectiva/internal/middleware"
	"github.com/bbqsrc/collectiva/internal/model"
	"github.com/bbqsrc/collectiva/internal/paypal"
	"github.com/bbqsrc/collectiva/internal/repository"
	"github.com/bbqsrc/collectiva/internal/service"
	"github.com/bbqsrc/collectiva/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterMember(ctx context.Context, input model.MemberInput) (*model.Member, int64, error)
	UpdateMember(ctx context.Context, input model.MemberInput) (*model.Member, error)
	VerifyMember(ctx context.Context, hash string) (*model.Member, error)
	MemberForRenewal(ctx context.Context, hash string) (*model.Member, error)
	RenewMember(ctx context.Context, hash string) (*model.Member, int64, error)
	PayForInvoice(ctx context.Context, payment model.Payment) (*model.Invoice, error)
	PayPalChargeSuccess(ctx context.Context, invoiceID int64, transactionID string) error
	AcceptPayment(ctx context.Context, reference string) error
	UnconfirmedPayments(ctx context.Context) ([]model.UnconfirmedPayment, error)
	AuthenticateAdmin(ctx context.Context, username, password string) (int64, error)
}

// IPNVerifier описывает обратную проверку IPN-уведомления на сервере PayPal.
type IPNVerifier interface {
	Verify(ctx context.Context, body []byte) (bool, error)
}

// Handler реализует HTTP-обработчики API сервиса collectiva.
type Handler struct {
	service        Service
	verifier       IPNVerifier
	paypalEmail    string
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, verifier IPNVerifier, paypalEmail string, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		verifier:       verifier,
		paypalEmail:    paypalEmail,
		logger:         logger,
		authMiddleware: auth,
	}
}

type addressRequest struct {
	Address  string `json:"address"`
	Suburb   string `json:"suburb"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Postcode string `json:"postcode"`
}

type memberRequest struct {
	FirstName            string         `json:"firstName"`
	LastName             string         `json:"lastName"`
	Email                string         `json:"email"`
	Gender               string         `json:"gender"`
	DateOfBirth          string         `json:"dateOfBirth"`
	PrimaryPhoneNumber   string         `json:"primaryPhoneNumber"`
	SecondaryPhoneNumber string         `json:"secondaryPhoneNumber"`
	MembershipType       string         `json:"membershipType"`
	ResidentialAddress   addressRequest `json:"residentialAddress"`
	PostalAddress        addressRequest `json:"postalAddress"`
}

type errorsResponse struct {
	Errors []string `json:"errors"`
}

type memberResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	GivenNames     string `json:"givenNames"`
	Surname        string `json:"surname"`
	MembershipType string `json:"membershipType"`
	Verified       bool   `json:"verified"`
	ExpiresOn      string `json:"expiresOn"`
}

type registerResponse struct {
	InvoiceID int64          `json:"invoiceId"`
	Member    memberResponse `json:"member"`
}

func toAddressInput(a addressRequest) model.AddressInput {
	return model.AddressInput{
		Street:   a.Address,
		Suburb:   a.Suburb,
		State:    a.State,
		Country:  a.Country,
		Postcode: a.Postcode,
	}
}

// toMemberInput собирает входные данные участника. Пустой почтовый адрес
// заменяется адресом проживания до валидации.
func toMemberInput(req memberRequest) model.MemberInput {
	postal := req.PostalAddress
	if postal.Address == "" && postal.Suburb == "" && postal.Postcode == "" {
		postal = req.ResidentialAddress
	}

	return model.MemberInput{
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Email:                req.Email,
		Gender:               req.Gender,
		DateOfBirth:          req.DateOfBirth,
		PrimaryPhoneNumber:   req.PrimaryPhoneNumber,
		SecondaryPhoneNumber: req.SecondaryPhoneNumber,
		MembershipType:       req.MembershipType,
		ResidentialAddress:   toAddressInput(req.ResidentialAddress),
		PostalAddress:        toAddressInput(postal),
	}
}

func toMemberResponse(m *model.Member) memberResponse {
	return memberResponse{
		ID:             m.ID,
		Email:          m.Email,
		GivenNames:     m.GivenNames,
		Surname:        m.Surname,
		MembershipType: string(m.MembershipType),
		Verified:       m.Verified != nil,
		ExpiresOn:      m.ExpiresOn.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// RegisterMember обрабатывает заявку на вступление: валидация, создание
// участника и счёта для взноса.
func (h *Handler) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	input := toMemberInput(req)
	if fields := validation.ValidateMember(input); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: fields})
		return
	}

	member, invoiceID, err := h.service.RegisterMember(r.Context(), input)
	if err != nil {
		if errors.Is(err, repository.ErrMemberExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.writeServiceError(w, err, "register member")
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		InvoiceID: invoiceID,
		Member:    toMemberResponse(member),
	})
}

// UpdateMember обновляет данные существующего участника.
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	input := toMemberInput(req)
	if fields := validation.ValidateMember(input); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: fields})
		return
	}

	member, err := h.service.UpdateMember(r.Context(), input)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.writeServiceError(w, err, "update member")
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

// VerifyMember подтверждает адрес электронной почты участника по хешу из
// письма. Неизвестный хеш не раскрывается: ответ 400 без деталей.
func (h *Handler) VerifyMember(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if hash == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	member, err := h.service.VerifyMember(r.Context(), hash)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.writeServiceError(w, err, "verify member")
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

// MemberForRenewal возвращает данные участника по хешу продления для
// предзаполнения формы.
func (h *Handler) MemberForRenewal(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if hash == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	member, err := h.service.MemberForRenewal(r.Context(), hash)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.writeServiceError(w, err, "member for renewal")
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

type renewRequest struct {
	RenewalHash string `json:"renewalHash"`
}

// RenewMember продлевает членство по хешу продления и создаёт счёт для
// взноса за продление.
func (h *Handler) RenewMember(w http.ResponseWriter, r *http.Request) {
	var req renewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RenewalHash == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	member, invoiceID, err := h.service.RenewMember(r.Context(), req.RenewalHash)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.writeServiceError(w, err, "renew member")
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		InvoiceID: invoiceID,
		Member:    toMemberResponse(member),
	})
}

type paymentRequest struct {
	InvoiceID   int64   `json:"invoiceId"`
	TotalAmount float64 `json:"totalAmount"`
	PaymentType string  `json:"paymentType"`
	StripeToken string  `json:"stripeToken"`
}

type invoiceResponse struct {
	ID            int64   `json:"id"`
	Reference     string  `json:"reference"`
	TotalAmount   float64 `json:"totalAmount"`
	PaymentType   string  `json:"paymentType"`
	PaymentStatus string  `json:"paymentStatus"`
}

func toInvoiceResponse(inv *model.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:            inv.ID,
		Reference:     inv.Reference,
		TotalAmount:   float64(inv.TotalAmountInCents) / 100,
		PaymentType:   string(inv.PaymentType),
		PaymentStatus: string(inv.PaymentStatus),
	}
}

// PayForInvoice проводит оплату счёта выбранным способом.
func (h *Handler) PayForInvoice(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	invoice, err := h.service.PayForInvoice(r.Context(), model.Payment{
		InvoiceID:   req.InvoiceID,
		TotalAmount: req.TotalAmount,
		PaymentType: model.PaymentType(req.PaymentType),
		StripeToken: req.StripeToken,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvoiceNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		if errors.Is(err, service.ErrInvoiceAlreadyPaid) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.writeServiceError(w, err, "pay for invoice")
		return
	}

	writeJSON(w, http.StatusOK, toInvoiceResponse(invoice))
}

// PayPalIPN обрабатывает асинхронное уведомление PayPal о платеже.
// Уведомление сначала проверяется обратным запросом на сервер PayPal.
// Ответ не содержит деталей: PayPal важен только код состояния.
func (h *Handler) PayPalIPN(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	verified, err := h.verifier.Verify(r.Context(), body)
	if err != nil {
		h.logger.Error("ipn verification error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !verified {
		h.logger.Warn("ipn notification rejected by paypal")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	notification, err := paypal.ParseNotification(body)
	if err != nil {
		h.logger.Warn("malformed ipn notification", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !notification.CompletedFor(h.paypalEmail) {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.service.PayPalChargeSuccess(r.Context(), notification.InvoiceID, notification.TransactionID); err != nil {
		var rerr *service.ReconcileError
		if errors.As(err, &rerr) {
			h.logger.Error("ipn reconciliation failed",
				zap.Int64("invoiceID", rerr.InvoiceID), zap.String("transactionID", rerr.TransactionID))
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("ipn processing error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminLogin выполняет аутентификацию администратора и установку cookie.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	adminID, err := h.service.AuthenticateAdmin(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("admin login error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, adminID)
	w.WriteHeader(http.StatusOK)
}

type unconfirmedPaymentResponse struct {
	GivenNames    string  `json:"givenNames"`
	Surname       string  `json:"surname"`
	Reference     string  `json:"reference"`
	PaymentType   string  `json:"paymentType"`
	TotalAmount   float64 `json:"totalAmount"`
	PaymentStatus string  `json:"paymentStatus"`
}

// UnconfirmedPayments возвращает платежи, ожидающие ручного подтверждения.
func (h *Handler) UnconfirmedPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.UnconfirmedPayments(r.Context())
	if err != nil {
		h.logger.Error("unconfirmed payments error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(payments) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]unconfirmedPaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, unconfirmedPaymentResponse{
			GivenNames:    p.GivenNames,
			Surname:       p.Surname,
			Reference:     p.Reference,
			PaymentType:   string(p.PaymentType),
			TotalAmount:   float64(p.TotalAmountInCents) / 100,
			PaymentStatus: string(p.PaymentStatus),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// AcceptPayment подтверждает получение платежа по референсу счёта.
func (h *Handler) AcceptPayment(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.AcceptPayment(r.Context(), reference); err != nil {
		if errors.Is(err, service.ErrPaymentNotAccepted) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("accept payment error", zap.Error(err), zap.String("reference", reference))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// writeServiceError отображает ошибку бизнес-логики в HTTP-ответ. Ошибки
// валидации и отказы платёжного шлюза возвращаются клиенту, остальное
// логируется и скрывается за непрозрачным 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, op string) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: verr.Fields})
		return
	}

	var cerr *gateway.ChargeCardError
	if errors.As(err, &cerr) {
		writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: []string{cerr.Message}})
		return
	}

	h.logger.Error(op+" error", zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
