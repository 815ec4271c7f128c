package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/bbqsrc/collectiva/internal/model"
)

func validMemberInput() model.MemberInput {
	return model.MemberInput{
		FirstName:          "Sherlock",
		LastName:           "Holmes",
		Email:              "sherlock@holmes.co.uk",
		Gender:             "horse radish",
		DateOfBirth:        "22/12/1900",
		PrimaryPhoneNumber: "0396291146",
		MembershipType:     "full",
		ResidentialAddress: model.AddressInput{
			Street:   "222b Baker St",
			Suburb:   "London",
			State:    "NA",
			Country:  "England",
			Postcode: "E16AN",
		},
		PostalAddress: model.AddressInput{
			Street:   "303 Collins St",
			Suburb:   "Melbourne",
			State:    "VIC",
			Country:  "Australia",
			Postcode: "3000",
		},
	}
}

func TestValidateMember_Valid(t *testing.T) {
	if errs := ValidateMember(validMemberInput()); len(errs) != 0 {
		t.Fatalf("ValidateMember() = %v, want no errors", errs)
	}
}

func TestValidateMember_OptionalFieldsOmitted(t *testing.T) {
	m := validMemberInput()
	m.Gender = ""
	m.SecondaryPhoneNumber = ""

	if errs := ValidateMember(m); len(errs) != 0 {
		t.Fatalf("ValidateMember() = %v, want no errors", errs)
	}
}

func TestValidateMember_CollectsFieldTags(t *testing.T) {
	m := validMemberInput()
	m.FirstName = ""
	m.Email = "not-an-email"
	m.MembershipType = "platinum"

	errs := ValidateMember(m)
	want := map[string]bool{"firstName": true, "email": true, "membershipType": true}
	if len(errs) != len(want) {
		t.Fatalf("ValidateMember() = %v, want tags %v", errs, want)
	}
	for _, tag := range errs {
		if !want[tag] {
			t.Fatalf("unexpected tag %q in %v", tag, errs)
		}
	}
}

func TestIsValidName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "alpha", input: "aaa", valid: true},
		{name: "alphanumeric with spaces", input: "Flo the 1st", valid: true},
		{name: "empty", input: "", valid: false},
		{name: "too long", input: strings.Repeat("a", 256), valid: false},
		{name: "special characters", input: "Flo the 1st<", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidName(tt.input); got != tt.valid {
				t.Fatalf("IsValidName(%q) = %v, want %v", tt.input, got, tt.valid)
			}
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	valid := []string{
		"+61472817381",
		"0328171381",
		"0428171331",
		"04-2817-133-1",
		"04 2817 1331",
		"+1555-555-5555",
		"+1(555)555-5555",
		"+65 2345 7908",
		"+18-1111-1111111",
	}
	for _, number := range valid {
		if !IsValidPhone(number) {
			t.Fatalf("IsValidPhone(%q) = false, want true", number)
		}
	}

	invalid := []string{"", "words?", "---", "call me"}
	for _, number := range invalid {
		if IsValidPhone(number) {
			t.Fatalf("IsValidPhone(%q) = true, want false", number)
		}
	}
}

func TestIsValidDateOfBirth(t *testing.T) {
	if !IsValidDateOfBirth("22/12/1900") {
		t.Fatalf("expected 22/12/1900 to be valid")
	}

	exactlySixteen := time.Now().AddDate(-16, 0, 0).Format(DateOfBirthLayout)
	if !IsValidDateOfBirth(exactlySixteen) {
		t.Fatalf("expected exactly 16 years old to be valid")
	}

	almostSixteen := time.Now().AddDate(-16, 0, 1).Format(DateOfBirthLayout)
	if IsValidDateOfBirth(almostSixteen) {
		t.Fatalf("expected 16 years minus one day to be invalid")
	}

	future := time.Now().AddDate(0, 0, 7).Format(DateOfBirthLayout)
	invalid := []string{"", "21 Dec 2015", "222/12/1900", future}
	for _, input := range invalid {
		if IsValidDateOfBirth(input) {
			t.Fatalf("IsValidDateOfBirth(%q) = true, want false", input)
		}
	}
}

func TestIsValidAddress(t *testing.T) {
	base := model.AddressInput{
		Street:   "221b Baker St",
		Suburb:   "London",
		State:    "VIC",
		Country:  "Australia",
		Postcode: "1234",
	}

	if !IsValidAddress(base) {
		t.Fatalf("expected base address to be valid")
	}

	tests := []struct {
		name   string
		mutate func(a *model.AddressInput)
	}{
		{name: "empty street", mutate: func(a *model.AddressInput) { a.Street = "" }},
		{name: "street too long", mutate: func(a *model.AddressInput) { a.Street = strings.Repeat("a", 256) }},
		{name: "empty suburb", mutate: func(a *model.AddressInput) { a.Suburb = "" }},
		{name: "empty country", mutate: func(a *model.AddressInput) { a.Country = "" }},
		{name: "placeholder country", mutate: func(a *model.AddressInput) { a.Country = "Select Country" }},
		{name: "domestic postcode with letters", mutate: func(a *model.AddressInput) { a.Postcode = "30A0" }},
		{name: "domestic postcode too long", mutate: func(a *model.AddressInput) { a.Postcode = "30001" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base
			tt.mutate(&a)
			if IsValidAddress(a) {
				t.Fatalf("expected address to be invalid")
			}
		})
	}
}

func TestIsValidPostcode_InternationalProfile(t *testing.T) {
	tests := []struct {
		name     string
		country  string
		postcode string
		valid    bool
	}{
		{name: "domestic four digits", country: "Australia", postcode: "3000", valid: true},
		{name: "domestic wrong length", country: "Australia", postcode: "300", valid: false},
		{name: "international alphanumeric", country: "England", postcode: "E16AN", valid: true},
		{name: "international too long", country: "England", postcode: strings.Repeat("A", 17), valid: false},
		{name: "international punctuation", country: "England", postcode: ".-0123", valid: false},
		{name: "international empty", country: "England", postcode: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidPostcode(tt.country, tt.postcode); got != tt.valid {
				t.Fatalf("IsValidPostcode(%q, %q) = %v, want %v", tt.country, tt.postcode, got, tt.valid)
			}
		})
	}
}
