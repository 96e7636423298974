package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contract-sender/internal/leads"
	"contract-sender/internal/sms"
	"contract-sender/internal/telephony"

	"github.com/stretchr/testify/assert"
)

func newTestClient(url string) *Client {
	return NewClient(url, 5*time.Second)
}

func TestListCallLogs_ForwardsTokenAndLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calls/call-logs/all", r.URL.Path)
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "250", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Write([]byte(`{"data":[{"id":"c1","user_id":"u1","status":"completed","start_time":{"_seconds":1717234200},"duration":125,"cost":12.5},{"id":"c2","start_time":"garbage"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := WithToken(context.Background(), "test-token")
	records, err := client.ListCallLogs(ctx, 250)

	assert.NoError(t, err)
	assert.Len(t, records, 2)
	start, ok := records[0].Start()
	assert.True(t, ok)
	assert.Equal(t, int64(1717234200), start.Unix())
	assert.Equal(t, 125.0, records[0].DurationSeconds())
	_, ok = records[1].Start()
	assert.False(t, ok)
}

func TestListCalls_UsesConfiguredLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10000", r.URL.Query().Get("limit"))
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).ListCalls(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestStaticTokenFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cli-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"users":[{"id":"u1","email":"a@b.no","disabled":true}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.Token = "cli-token"
	roster, err := client.ListUsers(context.Background())
	assert.NoError(t, err)
	assert.Len(t, roster, 1)
	assert.True(t, roster[0].Disabled)
}

func TestAPIError_CarriesServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"Stage is locked"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).MovePipelineItem(context.Background(), "p1", "i1", "s2")
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Stage is locked", apiErr.Message)
	assert.True(t, IsStatus(err, http.StatusConflict))
}

func TestAPIError_PlainTextBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListPipelines(context.Background())
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestMovePipelineItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pipelines/p1/items/i1/move", r.URL.Path)
		assert.Equal(t, "PUT", r.Method)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "s2", body["stage_id"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	assert.NoError(t, newTestClient(server.URL).MovePipelineItem(context.Background(), "p1", "i1", "s2"))
}

func TestListPipelinesAndItems(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pipelines", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pipelines":[{"id":"p1","assigned_user_id":"u1","is_active":true,"stages":[{"id":"s1","name":"New","order":1}]}]}`))
	})
	mux.HandleFunc("/pipelines/p1/items", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"items":[{"id":"i1","stage_id":"s1","lead_id":"l1","position":1}]}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)
	ps, err := client.ListPipelines(context.Background())
	assert.NoError(t, err)
	assert.Len(t, ps, 1)
	assert.True(t, ps[0].Active)
	assert.Equal(t, "s1", ps[0].Stages[0].ID)

	items, err := client.ListPipelineItems(context.Background(), "p1")
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "l1", items[0].LeadID)
}

func TestBulkFetchLeads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leads-collection/bulk-fetch", r.URL.Path)
		assert.Equal(t, "POST", r.Method)
		var body bulkFetchRequest
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, []string{"l1", "l2"}, body.IDs)
		w.Write([]byte(`{"leads":[{"id":"l1","company_name":"Acme"},{"id":"l2","company_name":"Beta"}]}`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).BulkFetchLeads(context.Background(), []string{"l1", "l2"})
	assert.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "Beta", out[1].CompanyName)

	empty, err := newTestClient("http://unused.invalid").BulkFetchLeads(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateLead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leads-collection/l1", r.URL.Path)
		assert.Equal(t, "PUT", r.Method)
		var body leads.Update
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "Acme AS", body.CompanyName)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).UpdateLead(context.Background(), "l1", leads.Update{CompanyName: "Acme AS"})
	assert.NoError(t, err)
}

func TestCompanyInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leads/company-info", r.URL.Path)
		assert.Equal(t, "923609016", r.URL.Query().Get("org_number"))
		w.Write([]byte(`{"data":{"org_number":"923609016","name":"Acme AS","city":"Oslo"}}`))
	}))
	defer server.Close()

	co, err := newTestClient(server.URL).CompanyInfo(context.Background(), "923609016")
	assert.NoError(t, err)
	assert.Equal(t, "Acme AS", co.Name)
	assert.Equal(t, "923609016", co.Lead().ID)
}

func TestSMSEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sms/send", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		var body sms.Outbound
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "+4791234567", body.PhoneNumber)
		w.Write([]byte(`{"success":true,"record":{"id":"r1","message_id":"m1","status":"sent"}}`))
	})
	mux.HandleFunc("/sms/my-records", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records":[{"id":"r1","contract_confirmed":true}]}`))
	})
	mux.HandleFunc("/sms/records", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"r1"},{"id":"r2"}]`))
	})
	mux.HandleFunc("/sms/r2", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/sms-settings", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"settings":{"calling_number":"+4722000000"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	client := newTestClient(server.URL)
	ctx := context.Background()

	rec, err := client.SendSMS(ctx, sms.Outbound{PhoneNumber: "+4791234567", Message: "Hei", OriginalMessage: "Hei"})
	assert.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, "+4791234567", rec.PhoneNumber)
	assert.Equal(t, "Hei", rec.ProcessedMessage)

	mine, err := client.ListMySMSRecords(ctx)
	assert.NoError(t, err)
	assert.True(t, mine[0].ContractConfirmed)

	all, err := client.ListSMSRecords(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	assert.NoError(t, client.DeleteSMS(ctx, "r2"))
	assert.Error(t, client.DeleteSMS(ctx, ""))

	settings, err := client.SMSSettings(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "+4722000000", settings.CallingNumber)
}

func TestCallControl(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/calls/make", func(w http.ResponseWriter, r *http.Request) {
		var body makeCallRequest
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "+4791234567", body.To)
		assert.Equal(t, "l1", body.Metadata["lead_id"])
		w.Write([]byte(`{"id":"call-9","status":"queued"}`))
	})
	mux.HandleFunc("/calls/end/call-9", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	client := newTestClient(server.URL)

	call, err := client.MakeCall(context.Background(), telephony.CallRequest{To: "+4791234567", Metadata: map[string]string{"lead_id": "l1"}})
	assert.NoError(t, err)
	assert.Equal(t, "call-9", call.ID)
	assert.NoError(t, client.EndCall(context.Background(), "call-9"))
}

func TestDecodeList_RejectsUnknownEnvelope(t *testing.T) {
	_, err := decodeList[leads.Lead](json.RawMessage(`{"weird":[]}`))
	assert.Error(t, err)

	out, err := decodeList[leads.Lead](json.RawMessage(`null`))
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).ListUsers(context.Background())
	assert.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
