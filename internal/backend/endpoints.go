package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"contract-sender/internal/calls"
	"contract-sender/internal/leads"
	"contract-sender/internal/pipeline"
	"contract-sender/internal/reporting"
	"contract-sender/internal/sms"
	"contract-sender/internal/telephony"
	"contract-sender/internal/users"
)

var (
	_ reporting.Repository = (*Client)(nil)
	_ pipeline.Backend     = (*Client)(nil)
	_ sms.Source           = (*Client)(nil)
	_ telephony.Provider   = (*Client)(nil)
)

// GET /calls/call-logs/all?limit=N
func (c *Client) ListCallLogs(ctx context.Context, limit int) ([]calls.Record, error) {
	path := "/calls/call-logs/all"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[calls.Record](raw, "calls", "call_logs")
}

// ListCalls serves reporting with the configured limit.
func (c *Client) ListCalls(ctx context.Context) ([]calls.Record, error) {
	return c.ListCallLogs(ctx, c.CallLogLimit)
}

// GET /users. The roster is returned unfiltered; callers drop disabled users.
func (c *Client) ListUsers(ctx context.Context) ([]users.Account, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/users", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[users.Account](raw, "users")
}

// GET /sms/records (admin view).
func (c *Client) ListSMSRecords(ctx context.Context) ([]sms.Record, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/sms/records", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[sms.Record](raw, "sms_records")
}

// GET /sms/my-records
func (c *Client) ListMySMSRecords(ctx context.Context) ([]sms.Record, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/sms/my-records", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[sms.Record](raw, "sms_records")
}

// DELETE /sms/:id (soft delete on the server).
func (c *Client) DeleteSMS(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("sms id is required")
	}
	return c.doRequest(ctx, http.MethodDelete, "/sms/"+escape(id), nil, nil)
}

// POST /sms/send
func (c *Client) SendSMS(ctx context.Context, msg sms.Outbound) (sms.Record, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodPost, "/sms/send", msg, &raw); err != nil {
		return sms.Record{}, err
	}
	rec, err := decodeOne[sms.Record](raw, "record", "sms")
	if err != nil {
		return sms.Record{}, err
	}
	if rec.PhoneNumber == "" {
		rec.PhoneNumber = msg.PhoneNumber
	}
	if rec.ProcessedMessage == "" {
		rec.ProcessedMessage = msg.Message
		rec.OriginalMessage = msg.OriginalMessage
	}
	return rec, nil
}

// GET /sms-settings
func (c *Client) SMSSettings(ctx context.Context) (sms.Settings, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/sms-settings", nil, &raw); err != nil {
		return sms.Settings{}, err
	}
	return decodeOne[sms.Settings](raw, "settings")
}

// GET /pipelines
func (c *Client) ListPipelines(ctx context.Context) ([]pipeline.Pipeline, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/pipelines", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[pipeline.Pipeline](raw, "pipelines")
}

// PUT /pipelines
func (c *Client) UpdatePipeline(ctx context.Context, p pipeline.Pipeline) error {
	return c.doRequest(ctx, http.MethodPut, "/pipelines", p, nil)
}

// GET /pipelines/:id/items
func (c *Client) ListPipelineItems(ctx context.Context, pipelineID string) ([]pipeline.Item, error) {
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/pipelines/"+escape(pipelineID)+"/items", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[pipeline.Item](raw)
}

type moveRequest struct {
	StageID string `json:"stage_id"`
}

// PUT /pipelines/:id/items/:itemId/move
func (c *Client) MovePipelineItem(ctx context.Context, pipelineID, itemID, stageID string) error {
	path := "/pipelines/" + escape(pipelineID) + "/items/" + escape(itemID) + "/move"
	return c.doRequest(ctx, http.MethodPut, path, moveRequest{StageID: stageID}, nil)
}

type bulkFetchRequest struct {
	IDs []string `json:"ids"`
}

// POST /leads-collection/bulk-fetch
func (c *Client) BulkFetchLeads(ctx context.Context, ids []string) ([]leads.Lead, error) {
	if len(ids) == 0 {
		return []leads.Lead{}, nil
	}
	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodPost, "/leads-collection/bulk-fetch", bulkFetchRequest{IDs: ids}, &raw); err != nil {
		return nil, err
	}
	return decodeList[leads.Lead](raw, "leads")
}

// PUT /leads-collection/:id
func (c *Client) UpdateLead(ctx context.Context, leadID string, u leads.Update) error {
	return c.doRequest(ctx, http.MethodPut, "/leads-collection/"+escape(leadID), u, nil)
}

// GET /leads/company-info?org_number=
func (c *Client) CompanyInfo(ctx context.Context, orgNumber string) (leads.Company, error) {
	var raw json.RawMessage
	path := "/leads/company-info?org_number=" + url.QueryEscape(orgNumber)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return leads.Company{}, err
	}
	return decodeOne[leads.Company](raw, "company")
}

type makeCallRequest struct {
	To       string            `json:"to_number"`
	From     string            `json:"from_number,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// POST /calls/make
func (c *Client) MakeCall(ctx context.Context, req telephony.CallRequest) (telephony.Call, error) {
	var raw json.RawMessage
	body := makeCallRequest{To: req.To, From: req.From, Metadata: req.Metadata}
	if err := c.doRequest(ctx, http.MethodPost, "/calls/make", body, &raw); err != nil {
		return telephony.Call{}, err
	}
	return decodeOne[telephony.Call](raw, "call")
}

// POST /calls/end/:id
func (c *Client) EndCall(ctx context.Context, callID string) error {
	if callID == "" {
		return errors.New("call id is required")
	}
	return c.doRequest(ctx, http.MethodPost, "/calls/end/"+escape(callID), nil, nil)
}
