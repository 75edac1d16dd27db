package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestWriteServiceError_Validation(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, core.Validationf("daily limit must not be negative"), true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "daily limit must not be negative", decodeError(t, rec))
}

func TestWriteServiceError_InvalidCredentials(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, core.ErrInvalidCredentials, false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeError(t, rec))
}

func TestWriteServiceError_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, fmt.Errorf("%w: domain xyz", core.ErrNotFound), true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteServiceError_Conflict(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, fmt.Errorf("%w: mailbox a@b.com", core.ErrConflict), true)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWriteServiceError_UpstreamAdminSeesDetail(t *testing.T) {
	err := &core.UpstreamError{Op: "create domain example.com", Err: errors.New("api returned 500")}

	rec := httptest.NewRecorder()
	WriteServiceError(rec, err, true)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "create domain example.com: api returned 500", decodeError(t, rec))
}

func TestWriteServiceError_UpstreamUserSeesGenericMessage(t *testing.T) {
	err := &core.UpstreamError{Op: "create domain example.com", Err: errors.New("api returned 500")}

	rec := httptest.NewRecorder()
	WriteServiceError(rec, err, false)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "failed to reach mail server", decodeError(t, rec))
}

func TestWriteServiceError_UnknownErrorIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, errors.New("connection reset"), true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWritePaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	WritePaginated(rec, http.StatusOK, []string{"a", "b"}, "b", true)

	var body PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "b", body.NextCursor)
	assert.True(t, body.HasMore)
}
