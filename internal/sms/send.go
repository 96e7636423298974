package sms

import (
	"errors"
	"strings"
	"time"

	"contract-sender/internal/leads"
	"contract-sender/internal/smstemplate"
	"contract-sender/pkg/utils"
)

var validate = utils.NewValidator()

var ErrInvalidSend = errors.New("sms: invalid send request")

// SendRequest is what the console submits: a template, the selections that
// feed its defaults, and the destination number.
type SendRequest struct {
	PhoneNumber string                       `json:"phone_number" validate:"required,msisdn"`
	Template    string                       `json:"message" validate:"required,max=1600"`
	Overrides   map[smstemplate.Field]string `json:"overrides,omitempty"`
	Lead        *leads.Lead                  `json:"lead,omitempty"`
	Product     *smstemplate.Product         `json:"product,omitempty"`
	Terms       *smstemplate.Terms           `json:"terms,omitempty"`
}

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "sms: invalid send request: " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSend }

func (r SendRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &ValidationError{Fields: utils.ValidationMessages(err)}
	}
	return nil
}

// Context returns the render context for r at now.
func (r SendRequest) Context(now time.Time) smstemplate.Context {
	return smstemplate.Context{
		Overrides: r.Overrides,
		Product:   r.Product,
		Lead:      r.Lead,
		Terms:     r.Terms,
		Phone:     r.PhoneNumber,
		Now:       now,
	}
}

// Outbound is the body posted to the backend's send endpoint.
type Outbound struct {
	PhoneNumber     string `json:"phone_number"`
	Message         string `json:"message"`
	OriginalMessage string `json:"original_message"`
	LeadID          string `json:"lead_id,omitempty"`
	CompanyName     string `json:"company_name,omitempty"`
	OrgNumber       string `json:"org_number,omitempty"`
	ProductID       string `json:"product_id,omitempty"`
	TermsID         string `json:"terms_id,omitempty"`
}

// Build validates r and renders the outbound payload. Validation failures
// never produce a payload.
func (r SendRequest) Build(now time.Time) (Outbound, smstemplate.Rendered, error) {
	if err := r.Validate(); err != nil {
		return Outbound{}, smstemplate.Rendered{}, err
	}
	rendered := smstemplate.Render(r.Template, r.Context(now))
	out := Outbound{
		PhoneNumber:     smstemplate.FormatPhone(r.PhoneNumber),
		Message:         rendered.Body,
		OriginalMessage: r.Template,
	}
	if r.Lead != nil {
		out.LeadID = r.Lead.ID
		out.CompanyName = r.Lead.CompanyName
		out.OrgNumber = r.Lead.OrgNumber
	}
	if r.Product != nil {
		out.ProductID = r.Product.ID
	}
	if r.Terms != nil {
		out.TermsID = r.Terms.ID
	}
	return out, rendered, nil
}
