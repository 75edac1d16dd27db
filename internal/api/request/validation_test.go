package request

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createTierBody struct {
	Name        string `json:"name" validate:"required,tiername"`
	DisplayName string `json:"display_name" validate:"required"`
}

func decodeBody(t *testing.T, body string, v any) error {
	t.Helper()
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))
	return Decode(r, v)
}

func TestDecode_ReportsWireFieldNames(t *testing.T) {
	var v createTierBody
	err := decodeBody(t, `{"name": "pro"}`, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display_name is required")
	assert.NotContains(t, err.Error(), "DisplayName")
}

func TestDecode_TierNameSlug(t *testing.T) {
	var v createTierBody
	err := decodeBody(t, `{"name": "Pro Tier!", "display_name": "Pro"}`, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name must be a lowercase slug")

	v = createTierBody{}
	require.NoError(t, decodeBody(t, `{"name": "pro-2", "display_name": "Pro"}`, &v))
}

func TestDecode_CollectsAllFailures(t *testing.T) {
	var v struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=12"`
	}
	err := decodeBody(t, `{"email": "not-an-email", "password": "short"}`, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid email address")
	assert.Contains(t, err.Error(), "password must be at least 12 characters")
}

func TestDecode_InvalidJSON(t *testing.T) {
	var v createTierBody
	err := decodeBody(t, `{"name":`, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}
