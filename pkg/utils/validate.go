package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports json field names and knows
// the custom tags used by request payloads:
//
//	orgnr  nine-digit organisation number with a valid mod-11 check digit
//	msisdn phone number of 8 to 15 digits, optional leading + or 00
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("orgnr", func(fl validator.FieldLevel) bool {
		return ValidOrgNumber(fl.Field().String())
	})
	_ = v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		return validMSISDN(fl.Field().String())
	})
	return v
}

var orgWeights = [8]int{3, 2, 7, 6, 5, 4, 3, 2}

// ValidOrgNumber checks a nine-digit organisation number. Spaces are ignored.
func ValidOrgNumber(s string) bool {
	s = strings.ReplaceAll(s, " ", "")
	if len(s) != 9 {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		if i < 8 {
			sum += int(s[i]-'0') * orgWeights[i]
		}
	}
	check := 11 - sum%11
	if check == 11 {
		check = 0
	}
	if check == 10 {
		return false
	}
	return int(s[8]-'0') == check
}

func validMSISDN(s string) bool {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "00"):
		s = s[2:]
	}
	if len(s) < 8 || len(s) > 15 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidationMessages flattens validator errors into human-readable lines.
// Non-validation errors yield their Error() text.
func ValidationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, validationMessage(fe))
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "invalid email format"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "url":
		return fe.Field() + " must be a valid URL"
	case "orgnr":
		return fe.Field() + " must be a valid 9-digit organisation number"
	case "msisdn":
		return fe.Field() + " must be a valid phone number"
	default:
		return fe.Field() + " is invalid"
	}
}
