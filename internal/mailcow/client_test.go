package mailcow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- Configuration ----------

func TestClient_IsConfigured(t *testing.T) {
	assert.False(t, NewClient("", "").IsConfigured())
	assert.False(t, NewClient("https://mail.example.com/api/v1", "").IsConfigured())
	assert.False(t, NewClient("", "key").IsConfigured())
	assert.True(t, NewClient("https://mail.example.com/api/v1", "key").IsConfigured())
}

func TestClient_Unconfigured_ReturnsErrNotConfigured(t *testing.T) {
	client := NewClient("", "")
	_, err := client.ListDomains(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// ---------- Domains ----------

func TestClient_CreateDomain_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/add/domain", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		var payload map[string]any
		err := json.NewDecoder(r.Body).Decode(&payload)
		require.NoError(t, err)
		assert.Equal(t, "example.com", payload["domain"])
		assert.Equal(t, "1", payload["active"])
		// 10 GB per-mailbox quota crosses the wire in MB.
		assert.Equal(t, float64(10240), payload["maxquota"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"type":"success","msg":["domain_added","example.com"]}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	err := client.CreateDomain(context.Background(), CreateDomainParams{
		Domain:             "example.com",
		MaxAliases:         400,
		MaxMailboxes:       100,
		MaxQuotaPerMailbox: 10 * 1024 * 1024 * 1024,
		TotalQuota:         100 * 1024 * 1024 * 1024,
		DefaultQuota:       5 * 1024 * 1024 * 1024,
		Active:             true,
	})
	require.NoError(t, err)
}

func TestClient_CreateDomain_UpstreamErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"type":"error","msg":"domain already exists"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	err := client.CreateDomain(context.Background(), CreateDomainParams{Domain: "example.com"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "domain already exists", apiErr.Message)
}

func TestClient_GetDomain_NotFoundReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	info, err := client.GetDomain(context.Background(), "missing.example.com")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestClient_GetDomain_ParsesStringlyTypedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get/domain/example.com", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"domain_name": "example.com",
			"description": "primary",
			"max_quota_for_domain": "107374182400",
			"bytes_total": "1048576",
			"max_num_mboxes_for_domain": 100,
			"active": "1"
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	info, err := client.GetDomain(context.Background(), "example.com")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "example.com", info.Domain)
	assert.Equal(t, int64(107374182400), int64(info.Quota))
	assert.Equal(t, int64(1048576), int64(info.QuotaUsed))
	assert.Equal(t, int64(100), int64(info.MaxMailboxes))
	assert.True(t, bool(info.Active))
}

func TestClient_DeleteDomain_SendsIDArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/delete/domain", r.URL.Path)
		var ids []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
		assert.Equal(t, []string{"example.com"}, ids)
		w.Write([]byte(`[{"type":"success","msg":"deleted"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	require.NoError(t, client.DeleteDomain(context.Background(), "example.com"))
}

func TestClient_UpdateDomain_PartialPatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/edit/domain", r.URL.Path)
		var payload struct {
			Items []string       `json:"items"`
			Attr  map[string]any `json:"attr"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []string{"example.com"}, payload.Items)
		// Only the set field travels; unset fields are absent so the
		// remote record keeps its values.
		assert.Equal(t, map[string]any{"active": "0"}, payload.Attr)
		w.Write([]byte(`[{"type":"success","msg":"edited"}]`))
	}))
	defer srv.Close()

	inactive := false
	client := NewClient(srv.URL, "test-key")
	err := client.UpdateDomain(context.Background(), "example.com", DomainPatch{Active: &inactive})
	require.NoError(t, err)
}

// ---------- Mailboxes ----------

func TestClient_GetMailbox_SingleObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"local_part":"alice","domain":"example.com","quota":"5368709120","quota_used":"1024","active":1,"messages":"42"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	mbox, err := client.GetMailbox(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, mbox)
	assert.Equal(t, "alice@example.com", mbox.Email())
	assert.Equal(t, int64(5368709120), int64(mbox.Quota))
	assert.True(t, bool(mbox.Active))
}

func TestClient_GetMailbox_ArrayResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"local_part":"alice","domain":"example.com","quota":100,"active":"1"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	mbox, err := client.GetMailbox(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, mbox)
	assert.Equal(t, "alice", mbox.Username)
}

func TestClient_GetMailbox_AbsentReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	mbox, err := client.GetMailbox(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Nil(t, mbox)
}

func TestClient_SetMailboxPassword_SendsBothFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Attr map[string]any `json:"attr"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "s3cret", payload.Attr["password"])
		assert.Equal(t, "s3cret", payload.Attr["password2"])
		w.Write([]byte(`[{"type":"success","msg":"edited"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	require.NoError(t, client.SetMailboxPassword(context.Background(), "alice@example.com", "s3cret"))
}

// ---------- Aliases ----------

func TestClient_FindAlias(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get/alias/all", r.URL.Path)
		w.Write([]byte(`[
			{"id":"7","address":"sales@example.com","goto":"alice@example.com, bob@example.com","active":"1"},
			{"id":"8","address":"@example.com","goto":"catch@example.com","active":"1"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	alias, err := client.FindAlias(context.Background(), "sales@example.com")
	require.NoError(t, err)
	require.NotNil(t, alias)
	assert.Equal(t, int64(7), int64(alias.ID))
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, alias.TargetAddresses())
	assert.False(t, alias.IsCatchAll())

	catchAll, err := client.FindAlias(context.Background(), "@example.com")
	require.NoError(t, err)
	require.NotNil(t, catchAll)
	assert.True(t, catchAll.IsCatchAll())

	missing, err := client.FindAlias(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// ---------- Auth failures ----------

func TestClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad-key")
	_, err := client.ListDomains(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "unauthorized")
}

// ---------- Helpers ----------

func TestJoinTargets(t *testing.T) {
	assert.Equal(t, "a@x.com,b@x.com", JoinTargets([]string{"a@x.com", " b@x.com "}))
	assert.Equal(t, "", JoinTargets(nil))
}

func TestBool10(t *testing.T) {
	assert.Equal(t, "1", bool10(true))
	assert.Equal(t, "0", bool10(false))
}
