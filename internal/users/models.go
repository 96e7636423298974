package users

import "strings"

// Account is a roster entry, independent of call activity.
type Account struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"displayName,omitempty"`
	Role        string `json:"role,omitempty"`
	Disabled    bool   `json:"disabled"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// DisplayName is "First Last" when both parts exist, else the fallback
// display name, else "Unknown".
func (a Account) DisplayName() string {
	first := strings.TrimSpace(a.FirstName)
	last := strings.TrimSpace(a.LastName)
	if first != "" && last != "" {
		return first + " " + last
	}
	if n := strings.TrimSpace(a.Name); n != "" {
		return n
	}
	return "Unknown"
}

// Active filters out disabled accounts, preserving order.
func Active(in []Account) []Account {
	out := make([]Account, 0, len(in))
	for _, a := range in {
		if !a.Disabled {
			out = append(out, a)
		}
	}
	return out
}
