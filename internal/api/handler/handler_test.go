package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NeonAnubis/afrimail-backend/internal/core"
	"github.com/NeonAnubis/afrimail-backend/internal/mailcow"
)

func TestDomainCreate_RejectsBadDomain(t *testing.T) {
	h := NewDomain(core.NewDomainService(nil, mailcow.NewClient("", "")))

	rec := httptest.NewRecorder()
	h.Create(rec, newJSONRequest(t, http.MethodPost, "/api/v1/domains", `{"domain":"not a domain"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDomainCreate_RejectsMissingDomain(t *testing.T) {
	h := NewDomain(core.NewDomainService(nil, mailcow.NewClient("", "")))

	rec := httptest.NewRecorder()
	h.Create(rec, newJSONRequest(t, http.MethodPost, "/api/v1/domains", `{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMailboxCreate_RejectsMissingPassword(t *testing.T) {
	h := NewMailbox(core.NewMailboxService(nil, mailcow.NewClient("", "")))

	rec := httptest.NewRecorder()
	h.Create(rec, newJSONRequest(t, http.MethodPost, "/api/v1/mailboxes",
		`{"local_part":"info","domain":"example.com"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAliasCreate_RejectsEmptyTargets(t *testing.T) {
	h := NewAlias(core.NewAliasService(nil, mailcow.NewClient("", "")))

	rec := httptest.NewRecorder()
	h.Create(rec, newJSONRequest(t, http.MethodPost, "/api/v1/aliases",
		`{"address":"sales@example.com","targets":[]}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAliasCreate_RejectsNonEmailTarget(t *testing.T) {
	h := NewAlias(core.NewAliasService(nil, mailcow.NewClient("", "")))

	rec := httptest.NewRecorder()
	h.Create(rec, newJSONRequest(t, http.MethodPost, "/api/v1/aliases",
		`{"address":"sales@example.com","targets":["not-an-email"]}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendingListViolations_RejectsBadResolvedFilter(t *testing.T) {
	h := NewSending(core.NewSendingLimitService(nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sending/violations?resolved=banana", nil)
	h.ListViolations(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendingSuspend_RequiresReason(t *testing.T) {
	h := NewSending(core.NewSendingLimitService(nil))

	rec := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/v1/sending/limits/usr_1/suspend", `{}`)
	req = withChiURLParam(req, "userID", "usr_1")
	h.Suspend(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeSendCheck_RejectsBadRecipient(t *testing.T) {
	h := &Me{sending: core.NewSendingLimitService(nil)}

	rec := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/v1/me/send-check", `{"recipient_email":"nope"}`)
	req = withUserClaims(req, "usr_1", "user@example.com")
	h.SendCheck(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMailcowStatus_Unconfigured(t *testing.T) {
	h := NewMailcow(mailcow.NewClient("", ""))

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mailcow/status", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMailcowSetRatelimit_RejectsBadFrame(t *testing.T) {
	h := NewMailcow(mailcow.NewClient("http://mailcow.local", "key"))

	rec := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPut, "/api/v1/mailcow/ratelimits/a@b.com",
		`{"value":10,"frame":"week"}`)
	req = withChiURLParam(req, "email", "a@b.com")
	h.SetRatelimit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTierDelete_MissingName(t *testing.T) {
	h := NewTier(core.NewSendingTierService(nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tiers/", nil)
	req = withChiURLParam(req, "name", "")
	h.Delete(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupCreate_RejectsMissingName(t *testing.T) {
	h := NewGroup(core.NewUserGroupService(nil))

	rec := httptest.NewRecorder()
	h.Create(rec, newJSONRequest(t, http.MethodPost, "/api/v1/groups", `{"color":"red"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupAddMembers_RejectsEmptyList(t *testing.T) {
	h := NewGroup(core.NewUserGroupService(nil))

	rec := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/v1/groups/grp_1/members", `{"user_ids":[]}`)
	req = withChiURLParam(req, "id", "grp_1")
	h.AddMembers(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTemplateCreate_RejectsMissingName(t *testing.T) {
	h := NewTemplate(core.NewUserTemplateService(nil))

	rec := httptest.NewRecorder()
	h.Create(rec, newJSONRequest(t, http.MethodPost, "/api/v1/templates", `{"quota_bytes":1024}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStorageSetPresets_RejectsEmptyList(t *testing.T) {
	h := NewStorage(core.NewStorageService(nil))

	rec := httptest.NewRecorder()
	h.SetPresets(rec, newJSONRequest(t, http.MethodPut, "/api/v1/storage/presets", `{"presets":[]}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivityInactive_RejectsNonNumericDays(t *testing.T) {
	h := NewActivity(core.NewLoginActivityService(nil))

	rec := httptest.NewRecorder()
	h.Inactive(rec, httptest.NewRequest(http.MethodGet, "/api/v1/activity/inactive?days=soon", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivityInactive_RejectsOutOfRangeDays(t *testing.T) {
	h := NewActivity(core.NewLoginActivityService(nil))

	rec := httptest.NewRecorder()
	h.Inactive(rec, httptest.NewRequest(http.MethodGet, "/api/v1/activity/inactive?days=3", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
