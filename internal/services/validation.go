package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/contactbook/apiserver/types"
	"github.com/go-playground/validator/v10"
)

const (
	nameMinLength  = 2
	maxFieldLength = 255
)

var (
	validate    = validator.New()
	e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

// ValidateContact checks every field of c. The result is empty when c is valid.
func ValidateContact(c types.Contact) FieldErrors {
	errs := FieldErrors{}
	validateName(errs, c.Name)
	validateLastname(errs, deref(c.Lastname))
	validateEmail(errs, c.Email)
	validatePhone(errs, deref(c.Phone))
	return errs
}

// ValidatePatch checks only the fields present in p.
func ValidatePatch(p types.ContactPatch) FieldErrors {
	errs := FieldErrors{}
	if p.Name.Set {
		validateName(errs, p.Name.Value)
	}
	if p.Lastname.Set {
		validateLastname(errs, p.Lastname.Value)
	}
	if p.Email.Set {
		validateEmail(errs, p.Email.Value)
	}
	if p.Phone.Set {
		validatePhone(errs, p.Phone.Value)
	}
	return errs
}

func validateName(errs FieldErrors, name string) {
	if strings.TrimSpace(name) == "" {
		errs.add("name", "The name cannot be blank")
		return
	}
	length := utf8.RuneCountInString(name)
	if length < nameMinLength {
		errs.add("name", "Name must be at least 2 characters")
	}
	if length > maxFieldLength {
		errs.add("name", "Name cannot exceed 255 characters")
	}
}

func validateLastname(errs FieldErrors, lastname string) {
	if utf8.RuneCountInString(lastname) > maxFieldLength {
		errs.add("lastname", "Lastname cannot exceed 255 characters")
	}
}

func validateEmail(errs FieldErrors, email string) {
	if strings.TrimSpace(email) == "" {
		errs.add("email", "The email cannot be blank")
		return
	}
	if err := validate.Var(email, "email"); err != nil {
		errs.add("email", fmt.Sprintf("The email %q is not a valid email.", email))
	}
	if utf8.RuneCountInString(email) > maxFieldLength {
		errs.add("email", "Email cannot exceed 255 characters")
	}
}

func validatePhone(errs FieldErrors, phone string) {
	if phone == "" {
		return
	}
	if !e164Pattern.MatchString(phone) {
		errs.add("phone", fmt.Sprintf("The phone %q is not a valid E.164 number.", phone))
	}
	if utf8.RuneCountInString(phone) > maxFieldLength {
		errs.add("phone", "Phone cannot exceed 255 characters")
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
