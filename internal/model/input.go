package model

// AddressInput содержит поля адреса из формы регистрации или продления.
type AddressInput struct {
	Street   string
	Suburb   string
	State    string
	Country  string
	Postcode string
}

// MemberInput содержит данные заявки на вступление или обновление участника.
// Дата рождения передаётся строкой в формате DD/MM/YYYY.
type MemberInput struct {
	FirstName            string
	LastName             string
	Email                string
	Gender               string
	DateOfBirth          string
	PrimaryPhoneNumber   string
	SecondaryPhoneNumber string
	MembershipType       string
	ResidentialAddress   AddressInput
	PostalAddress        AddressInput
}

// Payment содержит данные запроса на оплату счёта.
type Payment struct {
	InvoiceID   int64
	TotalAmount float64
	PaymentType PaymentType
	StripeToken string
}
