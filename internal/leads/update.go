package leads

import (
	"errors"
	"strings"

	"contract-sender/pkg/utils"
)

var validate = utils.NewValidator()

// ErrInvalidUpdate wraps validator failures so callers can map them to 400.
var ErrInvalidUpdate = errors.New("leads: invalid update")

// Update is the inline edit form for one lead.
type Update struct {
	CompanyName   string `json:"company_name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"max=200"`
	Phone         string `json:"phone" validate:"omitempty,msisdn"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address" validate:"max=300"`
	PostalCode    string `json:"postal_code" validate:"max=16"`
	City          string `json:"city" validate:"max=100"`
	OrgNumber     string `json:"org_number" validate:"omitempty,orgnr"`
	Notes         string `json:"notes" validate:"max=2000"`
}

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "leads: invalid update: " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidUpdate }

// Normalize trims every field.
func (u Update) Normalize() Update {
	u.CompanyName = strings.TrimSpace(u.CompanyName)
	u.ContactPerson = strings.TrimSpace(u.ContactPerson)
	u.Phone = strings.TrimSpace(u.Phone)
	u.Email = strings.TrimSpace(u.Email)
	u.Address = strings.TrimSpace(u.Address)
	u.PostalCode = strings.TrimSpace(u.PostalCode)
	u.City = strings.TrimSpace(u.City)
	u.OrgNumber = strings.ReplaceAll(strings.TrimSpace(u.OrgNumber), " ", "")
	u.Notes = strings.TrimSpace(u.Notes)
	return u
}

func (u Update) Validate() error {
	if err := validate.Struct(u); err != nil {
		return &ValidationError{Fields: utils.ValidationMessages(err)}
	}
	return nil
}

// FormFrom seeds an edit form from the lead's current values.
func FormFrom(l Lead) Update {
	return Update{
		CompanyName:   l.CompanyName,
		ContactPerson: l.ContactPerson,
		Phone:         l.Phone,
		Email:         l.Email,
		Address:       l.Address,
		PostalCode:    l.PostalCode,
		City:          l.City,
		OrgNumber:     l.OrgNumber,
		Notes:         l.Notes,
	}
}

// Apply patches l with u. Identity and pipeline linkage are untouched.
func Apply(l *Lead, u Update) {
	l.CompanyName = u.CompanyName
	l.ContactPerson = u.ContactPerson
	l.Phone = u.Phone
	l.Email = u.Email
	l.Address = u.Address
	l.PostalCode = u.PostalCode
	l.City = u.City
	l.OrgNumber = u.OrgNumber
	l.Notes = u.Notes
}
