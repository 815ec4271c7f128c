// Package model содержит доменные сущности сервиса collectiva.
package model

import "time"

// MembershipType описывает категорию членства.
type MembershipType string

const (
	MembershipFull                   MembershipType = "full"
	MembershipPermanentResident      MembershipType = "permanentResident"
	MembershipSupporter              MembershipType = "supporter"
	MembershipInternationalSupporter MembershipType = "internationalSupporter"
)

// IsValid сообщает, входит ли значение в перечень допустимых категорий членства.
func (t MembershipType) IsValid() bool {
	switch t {
	case MembershipFull, MembershipPermanentResident, MembershipSupporter, MembershipInternationalSupporter:
		return true
	}
	return false
}

// MemberStatus описывает жизненный цикл участника. Участники не удаляются,
// а переводятся в статусы, исключаемые из активных выборок.
type MemberStatus string

const (
	MemberStatusNew       MemberStatus = "new"
	MemberStatusResigned  MemberStatus = "resigned"
	MemberStatusSuspended MemberStatus = "suspended"
	MemberStatusExpelled  MemberStatus = "expelled"
)

// Address представляет почтовый адрес. Дедупликация выполняется точным
// совпадением всех полей.
type Address struct {
	ID       int64
	Street   string
	Suburb   string
	State    string
	Country  string
	Postcode string
}

// Member представляет зарегистрированного участника.
type Member struct {
	ID                   string
	Email                string
	GivenNames           string
	Surname              string
	Gender               string
	DateOfBirth          time.Time
	PrimaryPhoneNumber   string
	SecondaryPhoneNumber string
	MembershipType       MembershipType
	Status               MemberStatus
	ResidentialAddressID int64
	PostalAddressID      int64
	Verified             *time.Time
	VerificationHash     string
	RenewalHash          *string
	MemberSince          time.Time
	ExpiresOn            time.Time
	LastRenewalReminder  *time.Time
}

// PaymentType описывает способ оплаты счёта.
type PaymentType string

const (
	PaymentTypeStripe       PaymentType = "stripe"
	PaymentTypePayPal       PaymentType = "paypal"
	PaymentTypeDeposit      PaymentType = "deposit"
	PaymentTypeCheque       PaymentType = "cheque"
	PaymentTypeNoContribute PaymentType = "noContribute"
)

// PaymentStatus описывает состояние оплаты счёта.
type PaymentStatus string

const (
	// PaymentStatusEmpty присваивается только что созданному счёту без выбранного способа оплаты.
	PaymentStatusEmpty   PaymentStatus = ""
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// Invoice представляет платёжное обязательство участника за вступление или продление.
type Invoice struct {
	ID                 int64
	MemberEmail        string
	TotalAmountInCents int64
	PaymentDate        time.Time
	PaymentType        PaymentType
	Reference          string
	PaymentStatus      PaymentStatus
	TransactionID      *string
}

// UnconfirmedPayment описывает платёж, ожидающий ручного подтверждения,
// вместе с именем участника.
type UnconfirmedPayment struct {
	GivenNames         string
	Surname            string
	Reference          string
	PaymentType        PaymentType
	TotalAmountInCents int64
	PaymentStatus      PaymentStatus
}

// AdminUser представляет администратора, подтверждающего платежи вручную.
type AdminUser struct {
	ID           int64
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}
