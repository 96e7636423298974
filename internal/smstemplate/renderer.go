// Package smstemplate fills bracketed placeholders in outbound SMS bodies.
//
// Every placeholder resolves, in order, to a non-empty override, a non-empty
// contextual default, or its own literal text. An unfilled placeholder stays
// visible in the preview instead of collapsing to an empty string.
package smstemplate

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"contract-sender/internal/leads"
)

// Field is the underlying value a placeholder reads. Several placeholders
// may share one field.
type Field string

const (
	FieldPrice        Field = "price"
	FieldProductName  Field = "product_name"
	FieldCustomerName Field = "customer_name"
	FieldCompanyName  Field = "company_name"
	FieldOrgNumber    Field = "orgnr"
	FieldTerms        Field = "terms"
	FieldPhone        Field = "phone"
	FieldEmail        Field = "email"
	FieldDate         Field = "date"
)

// Placeholders maps every recognised token to its field.
var Placeholders = map[string]Field{
	"[price]":         FieldPrice,
	"[Price]":         FieldPrice,
	"[product_name]":  FieldProductName,
	"[customer_name]": FieldCustomerName,
	"[company_name]":  FieldCompanyName,
	"[Company]":       FieldCompanyName,
	"[orgnr]":         FieldOrgNumber,
	"[Orgnr]":         FieldOrgNumber,
	"[terms]":         FieldTerms,
	"[Terms]":         FieldTerms,
	"[phone]":         FieldPhone,
	"[email]":         FieldEmail,
	"[date]":          FieldDate,
}

// DateLayout is the display format for [date].
const DateLayout = "02.01.2006"

type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Terms struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Context is everything a render may draw on. All parts are optional.
type Context struct {
	Overrides map[Field]string `json:"overrides,omitempty"`
	Product   *Product         `json:"product,omitempty"`
	Lead      *leads.Lead      `json:"lead,omitempty"`
	Terms     *Terms           `json:"terms,omitempty"`
	// Phone overrides the lead's phone as the default for [phone].
	Phone string    `json:"phone,omitempty"`
	Now   time.Time `json:"-"`
}

type Rendered struct {
	Body     string `json:"body"`
	Length   int    `json:"length"`
	Segments int    `json:"segments"`
}

// Render substitutes every placeholder in one pass; replacement text is
// never rescanned.
func Render(template string, ctx Context) Rendered {
	pairs := make([]string, 0, len(Placeholders)*2)
	for token, field := range Placeholders {
		pairs = append(pairs, token, resolve(token, field, ctx))
	}
	body := strings.NewReplacer(pairs...).Replace(template)
	return Rendered{Body: body, Length: utf8.RuneCountInString(body), Segments: Segments(body)}
}

func resolve(token string, f Field, ctx Context) string {
	if v := strings.TrimSpace(ctx.Overrides[f]); v != "" {
		return v
	}
	if v := defaultFor(f, ctx); v != "" {
		return v
	}
	return token
}

func defaultFor(f Field, ctx Context) string {
	switch f {
	case FieldPrice:
		if ctx.Product != nil && ctx.Product.Price > 0 {
			return strconv.FormatFloat(ctx.Product.Price, 'f', -1, 64)
		}
	case FieldProductName:
		if ctx.Product != nil {
			return strings.TrimSpace(ctx.Product.Name)
		}
	case FieldCustomerName:
		if ctx.Lead != nil {
			return ctx.Lead.ContactName()
		}
	case FieldCompanyName:
		if ctx.Lead != nil {
			return strings.TrimSpace(ctx.Lead.CompanyName)
		}
	case FieldOrgNumber:
		if ctx.Lead != nil {
			return strings.TrimSpace(ctx.Lead.OrgNumber)
		}
	case FieldTerms:
		if ctx.Terms != nil {
			return strings.TrimSpace(ctx.Terms.URL)
		}
	case FieldPhone:
		if ctx.Phone != "" {
			return FormatPhone(ctx.Phone)
		}
		if ctx.Lead != nil {
			return FormatPhone(ctx.Lead.Phone)
		}
	case FieldEmail:
		if ctx.Lead != nil {
			return strings.TrimSpace(ctx.Lead.Email)
		}
	case FieldDate:
		if !ctx.Now.IsZero() {
			return ctx.Now.Format(DateLayout)
		}
	}
	return ""
}

// FormatPhone normalises a Norwegian-style number to E.164: spaces and
// dashes are dropped, a leading 00 becomes +, bare 8-digit numbers get +47.
// Anything else is returned compacted but otherwise unchanged.
func FormatPhone(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "+"):
		return s
	case strings.HasPrefix(s, "00"):
		return "+" + s[2:]
	case len(s) == 8 && digits(s):
		return "+47" + s
	case len(s) == 10 && strings.HasPrefix(s, "47") && digits(s):
		return "+" + s
	}
	return s
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
