package mailcow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is an error reported by the mail control plane. Message
// carries the upstream text verbatim for operator diagnosis.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("mailcow: %s (status %d)", e.Message, e.StatusCode)
	}
	return "mailcow: " + e.Message
}

// ErrNotConfigured is returned when a call is attempted without a base
// URL and API key. Callers are expected to check IsConfigured first and
// skip remote calls entirely.
var ErrNotConfigured = errors.New("mailcow: not configured")

// Client talks to the Mailcow admin API. Endpoints follow the patterns
// GET get/{res}/all|{id}, POST add/{res}, POST edit/{res} with an
// items/attr patch payload, and POST delete/{res} with an id array.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured reports whether the client has both an endpoint and a
// key. When false, every call returns ErrNotConfigured.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// statusItem is one element of the success/error envelope Mailcow wraps
// mutating responses in.
type statusItem struct {
	Type string `json:"type"`
	Msg  any    `json:"msg"`
}

func (si statusItem) message() string {
	switch m := si.Msg.(type) {
	case string:
		return m
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(m)
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (json.RawMessage, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	url := c.baseURL + "/" + strings.TrimPrefix(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "invalid API key or unauthorized access"}
	case http.StatusNotFound:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "resource not found: " + endpoint}
	}

	// Mutating endpoints answer with an array of status objects; any
	// error item fails the whole call with the upstream message.
	var items []statusItem
	if json.Unmarshal(respBody, &items) == nil {
		for _, item := range items {
			if item.Type == "error" || item.Type == "danger" {
				return nil, &APIError{StatusCode: resp.StatusCode, Message: item.message()}
			}
		}
	}

	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

// remoteNotFound reports whether err is the control plane's 404.
func remoteNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ---------- Health ----------

// Status returns the raw container status report.
func (c *Client) Status(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "get/status/containers", nil)
}

// HealthCheck reports whether the control plane is reachable and the
// key is accepted.
func (c *Client) HealthCheck(ctx context.Context) bool {
	_, err := c.Status(ctx)
	return err == nil
}

// ---------- Domains ----------

func (c *Client) ListDomains(ctx context.Context) ([]DomainInfo, error) {
	raw, err := c.do(ctx, http.MethodGet, "get/domain/all", nil)
	if err != nil {
		return nil, err
	}
	var domains []DomainInfo
	if err := json.Unmarshal(raw, &domains); err != nil {
		return nil, fmt.Errorf("decode domain list: %w", err)
	}
	out := domains[:0]
	for _, d := range domains {
		if d.Domain != "" {
			out = append(out, d)
		}
	}
	return out, nil
}

// GetDomain fetches a single domain. A nil result with nil error means
// the domain does not exist remotely.
func (c *Client) GetDomain(ctx context.Context, domain string) (*DomainInfo, error) {
	raw, err := c.do(ctx, http.MethodGet, "get/domain/"+domain, nil)
	if err != nil {
		if remoteNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var info DomainInfo
	if err := json.Unmarshal(raw, &info); err != nil || info.Domain == "" {
		return nil, nil
	}
	return &info, nil
}

func (c *Client) CreateDomain(ctx context.Context, params CreateDomainParams) error {
	payload := map[string]any{
		"domain":               params.Domain,
		"description":          params.Description,
		"aliases":              params.MaxAliases,
		"mailboxes":            params.MaxMailboxes,
		"maxquota":             toMB(params.MaxQuotaPerMailbox),
		"quota":                toMB(params.TotalQuota),
		"defquota":             toMB(params.DefaultQuota),
		"active":               bool10(params.Active),
		"restart_sogo":         "1",
		"backupmx":             "0",
		"relay_all_recipients": "0",
		"relay_unknown_only":   "0",
		"gal":                  "1",
	}
	_, err := c.do(ctx, http.MethodPost, "add/domain", payload)
	return err
}

func (c *Client) UpdateDomain(ctx context.Context, domain string, patch DomainPatch) error {
	payload := map[string]any{
		"items": []string{domain},
		"attr":  patch.attr(),
	}
	_, err := c.do(ctx, http.MethodPost, "edit/domain", payload)
	return err
}

func (c *Client) DeleteDomain(ctx context.Context, domain string) error {
	_, err := c.do(ctx, http.MethodPost, "delete/domain", []string{domain})
	return err
}

// ---------- Mailboxes ----------

// ListMailboxes returns all mailboxes, or only those of a domain when
// one is given.
func (c *Client) ListMailboxes(ctx context.Context, domain string) ([]MailboxInfo, error) {
	endpoint := "get/mailbox/all"
	if domain != "" {
		endpoint = "get/mailbox/" + domain
	}
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var mailboxes []MailboxInfo
	if err := json.Unmarshal(raw, &mailboxes); err != nil {
		return nil, fmt.Errorf("decode mailbox list: %w", err)
	}
	out := mailboxes[:0]
	for _, m := range mailboxes {
		if m.Username != "" {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetMailbox fetches a single mailbox by address. A nil result with nil
// error means the mailbox does not exist remotely.
func (c *Client) GetMailbox(ctx context.Context, email string) (*MailboxInfo, error) {
	raw, err := c.do(ctx, http.MethodGet, "get/mailbox/"+email, nil)
	if err != nil {
		if remoteNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	// Single-mailbox responses may be an object or a one-element array.
	var info MailboxInfo
	if err := json.Unmarshal(raw, &info); err == nil && info.Username != "" {
		return &info, nil
	}
	var list []MailboxInfo
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0].Username != "" {
		return &list[0], nil
	}
	return nil, nil
}

func (c *Client) CreateMailbox(ctx context.Context, params CreateMailboxParams) error {
	payload := map[string]any{
		"local_part":      params.LocalPart,
		"domain":          params.Domain,
		"name":            params.Name,
		"password":        params.Password,
		"password2":       params.Password,
		"quota":           toMB(params.QuotaBytes),
		"active":          bool10(params.Active),
		"force_pw_update": "0",
		"tls_enforce_in":  "0",
		"tls_enforce_out": "0",
	}
	_, err := c.do(ctx, http.MethodPost, "add/mailbox", payload)
	return err
}

func (c *Client) UpdateMailbox(ctx context.Context, email string, patch MailboxPatch) error {
	payload := map[string]any{
		"items": []string{email},
		"attr":  patch.attr(),
	}
	_, err := c.do(ctx, http.MethodPost, "edit/mailbox", payload)
	return err
}

func (c *Client) DeleteMailbox(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "delete/mailbox", []string{email})
	return err
}

func (c *Client) SetMailboxQuota(ctx context.Context, email string, quotaBytes int64) error {
	return c.UpdateMailbox(ctx, email, MailboxPatch{QuotaBytes: &quotaBytes})
}

func (c *Client) SetMailboxPassword(ctx context.Context, email, password string) error {
	return c.UpdateMailbox(ctx, email, MailboxPatch{Password: &password})
}

func (c *Client) SetMailboxActive(ctx context.Context, email string, active bool) error {
	return c.UpdateMailbox(ctx, email, MailboxPatch{Active: &active})
}

// ---------- Aliases ----------

// ListAliases returns all aliases, or only those of a domain when one
// is given.
func (c *Client) ListAliases(ctx context.Context, domain string) ([]AliasInfo, error) {
	endpoint := "get/alias/all"
	if domain != "" {
		endpoint = "get/alias/domain/" + domain
	}
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var aliases []AliasInfo
	if err := json.Unmarshal(raw, &aliases); err != nil {
		return nil, fmt.Errorf("decode alias list: %w", err)
	}
	out := aliases[:0]
	for _, a := range aliases {
		if a.Address != "" {
			out = append(out, a)
		}
	}
	return out, nil
}

// FindAlias looks up an alias by address. A nil result with nil error
// means no alias with that address exists remotely.
func (c *Client) FindAlias(ctx context.Context, address string) (*AliasInfo, error) {
	aliases, err := c.ListAliases(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range aliases {
		if aliases[i].Address == address {
			return &aliases[i], nil
		}
	}
	return nil, nil
}

func (c *Client) CreateAlias(ctx context.Context, address, targets string, active bool) error {
	payload := map[string]any{
		"address":      address,
		"goto":         targets,
		"active":       bool10(active),
		"sogo_visible": "1",
	}
	_, err := c.do(ctx, http.MethodPost, "add/alias", payload)
	return err
}

func (c *Client) UpdateAlias(ctx context.Context, aliasID string, patch AliasPatch) error {
	payload := map[string]any{
		"items": []string{aliasID},
		"attr":  patch.attr(),
	}
	_, err := c.do(ctx, http.MethodPost, "edit/alias", payload)
	return err
}

func (c *Client) DeleteAlias(ctx context.Context, aliasID string) error {
	_, err := c.do(ctx, http.MethodPost, "delete/alias", []string{aliasID})
	return err
}

// CreateCatchAll creates a catch-all alias for a domain.
func (c *Client) CreateCatchAll(ctx context.Context, domain, targets string) error {
	return c.CreateAlias(ctx, "@"+domain, targets, true)
}

// ---------- DKIM ----------

func (c *Client) GetDKIM(ctx context.Context, domain string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "get/dkim/"+domain, nil)
}

func (c *Client) CreateDKIM(ctx context.Context, domain string, keyLength int) error {
	payload := map[string]any{
		"domains":       domain,
		"dkim_selector": "dkim",
		"key_size":      keyLength,
	}
	_, err := c.do(ctx, http.MethodPost, "add/dkim", payload)
	return err
}

func (c *Client) DeleteDKIM(ctx context.Context, domain string) error {
	_, err := c.do(ctx, http.MethodPost, "delete/dkim", []string{domain})
	return err
}

// ---------- Logs and rate limits ----------

// GetLogs retrieves recent entries of one of the server log streams
// (postfix, dovecot, rspamd-history, ...).
func (c *Client) GetLogs(ctx context.Context, logType string, count int) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("get/logs/%s/%d", logType, count), nil)
}

// GetRatelimit fetches the control plane's own rate limit for a
// mailbox, or for all mailboxes when the address is empty.
func (c *Client) GetRatelimit(ctx context.Context, mailbox string) (json.RawMessage, error) {
	endpoint := "get/rl-mbox/all"
	if mailbox != "" {
		endpoint = "get/rl-mbox/" + mailbox
	}
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

// SetRatelimit sets the control plane's rate limit for a mailbox. A
// value of 0 removes the limit. Frame is one of s, m, h, d.
func (c *Client) SetRatelimit(ctx context.Context, mailbox string, value int, frame string) error {
	payload := map[string]any{
		"items": []string{mailbox},
		"attr": map[string]any{
			"rl_value": value,
			"rl_frame": frame,
		},
	}
	_, err := c.do(ctx, http.MethodPost, "edit/rl-mbox", payload)
	return err
}
