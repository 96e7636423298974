package leads

import (
	"strings"

	"contract-sender/internal/timestamp"
)

// Lead is a sales prospect. ID is the organisation number when the lead
// came from a registry lookup, otherwise the backend's lead id.
type Lead struct {
	ID            string `json:"id"`
	CompanyName   string `json:"company_name"`
	ContactPerson string `json:"contact_person,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	City          string `json:"city,omitempty"`
	OrgNumber     string `json:"org_number,omitempty"`
	Notes         string `json:"notes,omitempty"`

	// PipelineItemID links the lead to its position record in a pipeline
	// stage. Leads without it cannot be moved.
	PipelineItemID string `json:"pipeline_item_id,omitempty"`
	StageID        string `json:"stage_id,omitempty"`

	CreatedAt timestamp.Value `json:"created_at,omitempty"`
	UpdatedAt timestamp.Value `json:"updated_at,omitempty"`
}

// ContactName returns the contact person, falling back to the company name.
func (l Lead) ContactName() string {
	if n := strings.TrimSpace(l.ContactPerson); n != "" {
		return n
	}
	return strings.TrimSpace(l.CompanyName)
}

// Company is the registry lookup result for one organisation number.
type Company struct {
	OrgNumber     string `json:"org_number"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	City          string `json:"city,omitempty"`
	IndustryCode  string `json:"industry_code,omitempty"`
	Industry      string `json:"industry,omitempty"`
	Employees     int    `json:"employees,omitempty"`
}

// Lead maps a registry result into an unassigned lead keyed by org number.
func (c Company) Lead() Lead {
	return Lead{
		ID:            c.OrgNumber,
		CompanyName:   c.Name,
		ContactPerson: c.ContactPerson,
		Phone:         c.Phone,
		Email:         c.Email,
		Address:       c.Address,
		PostalCode:    c.PostalCode,
		City:          c.City,
		OrgNumber:     c.OrgNumber,
	}
}
