// Package service реализует бизнес-логику сервиса collectiva.
package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bbqsrc/collectiva/internal/gateway"
	"github.com/bbqsrc/collectiva/internal/mailer"
	"github.com/bbqsrc/collectiva/internal/model"
	"github.com/bbqsrc/collectiva/internal/repository"
	"github.com/bbqsrc/collectiva/internal/validation"
)

// membershipPeriod определяет срок действия членства с момента вступления
// или продления.
const membershipPeriod = 1 // years

// ErrMemberCreation возвращается при любом сбое создания участника; причина
// логируется и не раскрывается вызывающей стороне.
var (
	ErrMemberCreation = errors.New("failed to create member")
	// ErrInvoiceCreation возвращается при любом сбое создания счёта.
	ErrInvoiceCreation = errors.New("failed to create invoice")
	// ErrInvoiceAlreadyPaid возвращается при попытке повторно оплатить счёт.
	ErrInvoiceAlreadyPaid = errors.New("invoice already paid")
	// ErrPaymentNotAccepted возвращается, если ручное подтверждение платежа не изменило ни одной строки.
	ErrPaymentNotAccepted = errors.New("failed to accept payment")
	// ErrListing возвращается при сбое выборки неподтверждённых платежей.
	ErrListing = errors.New("failed to fetch unconfirmed payments")
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль администратора.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError содержит теги полей, не прошедших валидацию.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

// ReconcileError означает, что внешнее подтверждение платежа не удалось
// сопоставить со счётом. Содержит данные для диагностики оператором.
type ReconcileError struct {
	InvoiceID     int64
	TransactionID string
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("failed to reconcile invoice %d with transaction %q", e.InvoiceID, e.TransactionID)
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	FindOrCreateAddress(ctx context.Context, a model.AddressInput) (int64, error)
	CreateMember(ctx context.Context, m *model.Member) error
	UpdateMember(ctx context.Context, m *model.Member) error
	GetMemberByEmail(ctx context.Context, email string) (*model.Member, error)
	GetMemberByVerificationHash(ctx context.Context, hash string) (*model.Member, error)
	GetMemberByRenewalHash(ctx context.Context, hash string) (*model.Member, error)
	MarkVerified(ctx context.Context, memberID string) (bool, error)
	AssignRenewalHash(ctx context.Context, memberID, hash string) error
	RenewMembership(ctx context.Context, memberID string, expiresOn time.Time) error
	ListExpiring(ctx context.Context, before, reminderBefore time.Time, limit int) ([]model.Member, error)

	CreateInvoice(ctx context.Context, memberEmail string, paymentDate time.Time) (int64, error)
	UpdateInvoiceReference(ctx context.Context, invoiceID int64, reference string) error
	UpdateInvoicePayment(ctx context.Context, invoiceID, amountCents int64, paymentDate time.Time, paymentType model.PaymentType, status model.PaymentStatus, transactionID *string) error
	SettleInvoice(ctx context.Context, invoiceID int64, transactionID string) (int64, error)
	AcceptPayment(ctx context.Context, reference string) (int64, error)
	GetInvoice(ctx context.Context, invoiceID int64) (*model.Invoice, error)
	UnconfirmedPayments(ctx context.Context) ([]model.UnconfirmedPayment, error)

	CreateAdminUser(ctx context.Context, username string, passwordHash []byte) (int64, error)
	GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error)
}

// Service содержит бизнес-логику сервиса collectiva.
type Service struct {
	repo      Repository
	charger   gateway.CardCharger
	mailer    mailer.Sender
	logger    *zap.Logger
	publicURL string
}

// NewService создаёт новый сервис с указанными репозиторием, платёжным
// шлюзом и отправителем писем.
func NewService(repo Repository, charger gateway.CardCharger, sender mailer.Sender, publicURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		charger:   charger,
		mailer:    sender,
		logger:    logger,
		publicURL: publicURL,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterMember создаёт участника, пустой счёт для взноса и асинхронно
// отправляет письмо с подтверждением адреса. Возвращает участника и
// идентификатор счёта.
func (s *Service) RegisterMember(ctx context.Context, input model.MemberInput) (*model.Member, int64, error) {
	member, err := s.buildMember(ctx, input)
	if err != nil {
		return nil, 0, err
	}

	member.ID = uuid.NewString()
	member.Status = model.MemberStatusNew
	member.VerificationHash = uuid.NewString()
	now := time.Now()
	member.MemberSince = now
	member.ExpiresOn = now.AddDate(membershipPeriod, 0, 0)

	if err := s.repo.CreateMember(ctx, member); err != nil {
		if errors.Is(err, repository.ErrMemberExists) {
			return nil, 0, err
		}
		s.logger.Error("failed to create member", zap.Error(err), zap.String("email", member.Email))
		return nil, 0, ErrMemberCreation
	}

	invoiceID, err := s.CreateEmptyInvoice(ctx, member.Email, member.MembershipType)
	if err != nil {
		return nil, 0, err
	}

	s.notify(member, verificationEmail)

	return member, invoiceID, nil
}

// UpdateMember обновляет данные существующего участника по email.
func (s *Service) UpdateMember(ctx context.Context, input model.MemberInput) (*model.Member, error) {
	member, err := s.buildMember(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateMember(ctx, member); err != nil {
		return nil, err
	}

	return s.repo.GetMemberByEmail(ctx, member.Email)
}

// buildMember разрешает адреса и собирает доменную сущность из входных
// данных. Пустой почтовый адрес заменяется адресом проживания.
func (s *Service) buildMember(ctx context.Context, input model.MemberInput) (*model.Member, error) {
	dob, err := time.Parse(validation.DateOfBirthLayout, input.DateOfBirth)
	if err != nil {
		return nil, &ValidationError{Fields: []string{"dateOfBirth"}}
	}

	residentialID, err := s.repo.FindOrCreateAddress(ctx, input.ResidentialAddress)
	if err != nil {
		s.logger.Error("failed to resolve residential address", zap.Error(err), zap.String("email", input.Email))
		return nil, ErrMemberCreation
	}

	postalID := residentialID
	if !isAddressEmpty(input.PostalAddress) {
		postalID, err = s.repo.FindOrCreateAddress(ctx, input.PostalAddress)
		if err != nil {
			s.logger.Error("failed to resolve postal address", zap.Error(err), zap.String("email", input.Email))
			return nil, ErrMemberCreation
		}
	}

	return &model.Member{
		Email:                input.Email,
		GivenNames:           input.FirstName,
		Surname:              input.LastName,
		Gender:               input.Gender,
		DateOfBirth:          dob,
		PrimaryPhoneNumber:   input.PrimaryPhoneNumber,
		SecondaryPhoneNumber: input.SecondaryPhoneNumber,
		MembershipType:       model.MembershipType(input.MembershipType),
		ResidentialAddressID: residentialID,
		PostalAddressID:      postalID,
	}, nil
}

func isAddressEmpty(a model.AddressInput) bool {
	return a.Street == "" && a.Suburb == "" && a.Postcode == ""
}

// VerifyMember отмечает участника верифицированным по одноразовому хешу из
// письма. Повторная верификация безопасна и возвращает участника без
// изменений. После первой верификации асинхронно отправляется
// приветственное письмо.
func (s *Service) VerifyMember(ctx context.Context, hash string) (*model.Member, error) {
	member, err := s.repo.GetMemberByVerificationHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	changed, err := s.repo.MarkVerified(ctx, member.ID)
	if err != nil {
		s.logger.Error("failed to verify member", zap.Error(err), zap.String("memberID", member.ID))
		return nil, fmt.Errorf("verify member: %w", err)
	}

	if changed {
		now := time.Now()
		member.Verified = &now
		s.notify(member, welcomeEmail)
	}

	return member, nil
}

// MemberForRenewal возвращает участника по хешу продления.
func (s *Service) MemberForRenewal(ctx context.Context, hash string) (*model.Member, error) {
	return s.repo.GetMemberByRenewalHash(ctx, hash)
}

// RenewMember продлевает членство по хешу продления, гасит хеш и создаёт
// пустой счёт для взноса за продление.
func (s *Service) RenewMember(ctx context.Context, hash string) (*model.Member, int64, error) {
	member, err := s.repo.GetMemberByRenewalHash(ctx, hash)
	if err != nil {
		return nil, 0, err
	}

	expiresOn := member.ExpiresOn
	if now := time.Now(); expiresOn.Before(now) {
		expiresOn = now
	}
	expiresOn = expiresOn.AddDate(membershipPeriod, 0, 0)

	if err := s.repo.RenewMembership(ctx, member.ID, expiresOn); err != nil {
		s.logger.Error("failed to renew membership", zap.Error(err), zap.String("memberID", member.ID))
		return nil, 0, fmt.Errorf("renew membership: %w", err)
	}
	member.ExpiresOn = expiresOn
	member.RenewalHash = nil

	invoiceID, err := s.CreateEmptyInvoice(ctx, member.Email, member.MembershipType)
	if err != nil {
		return nil, 0, err
	}

	return member, invoiceID, nil
}

// RegisterAdmin создаёт администратора с указанными учётными данными.
func (s *Service) RegisterAdmin(ctx context.Context, username, password string) (int64, error) {
	return s.repo.CreateAdminUser(ctx, username, hashPassword(username, password))
}

// AuthenticateAdmin проверяет учётные данные администратора и возвращает его
// идентификатор.
func (s *Service) AuthenticateAdmin(ctx context.Context, username, password string) (int64, error) {
	u, err := s.repo.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}

	if !hmac.Equal(hashPassword(username, password), u.PasswordHash) {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

func hashPassword(username, password string) []byte {
	sum := sha256.Sum256([]byte(username + ":" + password))
	return sum[:]
}
