// Package validation содержит функции валидации входных данных участников и платежей.
//
// Валидаторы возвращают список тегов полей, не прошедших проверку; пустой
// список означает корректные данные. Валидаторы не возвращают ошибок и не
// паникуют.
package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/bbqsrc/collectiva/internal/model"
)

const (
	// localCountry определяет страну, для которой действует локальный формат индекса.
	localCountry = "Australia"
	// countryPlaceholder — значение-заглушка из формы выбора страны.
	countryPlaceholder = "Select Country"
	// adultAge — минимальный возраст участника в годах.
	adultAge = 16
	// DateOfBirthLayout — формат даты рождения во входных данных.
	DateOfBirthLayout = "02/01/2006"

	maxFieldLength = 255
)

var (
	nameRe             = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)
	phoneRe            = regexp.MustCompile(`^\+?[0-9][0-9 ()-]*$`)
	domesticPostcodeRe = regexp.MustCompile(`^[0-9]{4}$`)
	intlPostcodeRe     = regexp.MustCompile(`^[a-zA-Z0-9]{1,16}$`)
)

// ValidateMember проверяет данные заявки участника и возвращает теги
// некорректных полей.
func ValidateMember(m model.MemberInput) []string {
	var errs []string

	if !IsValidName(m.FirstName) {
		errs = append(errs, "firstName")
	}
	if !IsValidName(m.LastName) {
		errs = append(errs, "lastName")
	}
	if !IsValidEmail(m.Email) {
		errs = append(errs, "email")
	}
	// Пол — необязательное поле.
	if m.Gender != "" && !IsValidName(m.Gender) {
		errs = append(errs, "gender")
	}
	if !IsValidPhone(m.PrimaryPhoneNumber) {
		errs = append(errs, "primaryPhoneNumber")
	}
	if m.SecondaryPhoneNumber != "" && !IsValidPhone(m.SecondaryPhoneNumber) {
		errs = append(errs, "secondaryPhoneNumber")
	}
	if !IsValidDateOfBirth(m.DateOfBirth) {
		errs = append(errs, "dateOfBirth")
	}
	if !model.MembershipType(m.MembershipType).IsValid() {
		errs = append(errs, "membershipType")
	}
	if !IsValidAddress(m.ResidentialAddress) {
		errs = append(errs, "residentialAddress")
	}
	if !IsValidAddress(m.PostalAddress) {
		errs = append(errs, "postalAddress")
	}

	return errs
}

// IsValidName проверяет имя: непустое, не длиннее 255 символов, только
// буквы, цифры и пробелы.
func IsValidName(name string) bool {
	if name == "" || len(name) > maxFieldLength {
		return false
	}
	return nameRe.MatchString(name)
}

// IsValidEmail проверяет синтаксическую корректность адреса электронной почты.
func IsValidEmail(email string) bool {
	if email == "" || len(email) > maxFieldLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// IsValidPhone проверяет телефонный номер. Допускаются международные форматы
// с разделителями "+", пробелами, дефисами и скобками.
func IsValidPhone(phone string) bool {
	if phone == "" || len(phone) > maxFieldLength {
		return false
	}
	if !phoneRe.MatchString(phone) {
		return false
	}

	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 3
}

// IsValidDateOfBirth проверяет дату рождения в формате DD/MM/YYYY.
// Дата не может быть в будущем, участнику должно быть не меньше 16 лет.
// Ровно 16 лет на день проверки — допустимо.
func IsValidDateOfBirth(dateOfBirth string) bool {
	dob, err := time.Parse(DateOfBirthLayout, dateOfBirth)
	if err != nil {
		return false
	}

	cutoff := time.Now().AddDate(-adultAge, 0, 0)
	return !dob.After(cutoff)
}

// IsValidAddress проверяет адрес: улица, пригород и страна непустые и не
// длиннее 255 символов, страна не равна заглушке формы, индекс соответствует
// локальному либо международному профилю в зависимости от страны.
func IsValidAddress(a model.AddressInput) bool {
	if a.Street == "" || len(a.Street) > maxFieldLength {
		return false
	}
	if a.Suburb == "" || len(a.Suburb) > maxFieldLength {
		return false
	}
	if a.Country == "" || len(a.Country) > maxFieldLength {
		return false
	}
	if strings.EqualFold(a.Country, countryPlaceholder) {
		return false
	}
	return IsValidPostcode(a.Country, a.Postcode)
}

// IsValidPostcode проверяет почтовый индекс: четыре цифры для локальной
// страны, до 16 букв и цифр для остальных.
func IsValidPostcode(country, postcode string) bool {
	if strings.EqualFold(country, localCountry) {
		return domesticPostcodeRe.MatchString(postcode)
	}
	return intlPostcodeRe.MatchString(postcode)
}
