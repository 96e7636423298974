package telephony

import (
	"context"
	"encoding/json"
)

// Provider is the provider-agnostic call control surface. The actual
// telephony vendor sits behind the CRM backend; no vendor SDK is used here.
type Provider interface {
	MakeCall(ctx context.Context, req CallRequest) (Call, error)
	EndCall(ctx context.Context, callID string) error
}

// CallRequest starts an outbound call. Numbers are E.164 where possible.
type CallRequest struct {
	To   string `json:"to_number"`
	From string `json:"from_number,omitempty"`

	// Metadata travels with the call (lead id, company name) so the call
	// log can be attributed later.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Call is the handle returned by the provider.
type Call struct {
	ID     string `json:"call_id"`
	Status string `json:"status,omitempty"`
	To     string `json:"to_number,omitempty"`
	From   string `json:"from_number,omitempty"`
}

// UnmarshalJSON accepts either call_id or id for the identifier.
func (c *Call) UnmarshalJSON(b []byte) error {
	type plain Call
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*c = Call(aux.plain)
	if c.ID == "" {
		c.ID = aux.AltID
	}
	return nil
}
