package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NeonAnubis/afrimail-backend/internal/mailcow"
)

// newTestControlPlane runs a fake mail control plane and returns a
// configured client pointed at it.
func newTestControlPlane(t *testing.T, handler http.HandlerFunc) *mailcow.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return mailcow.NewClient(srv.URL, "test-key")
}

// unconfiguredControlPlane returns a client with no endpoint, the
// local-only degradation mode.
func unconfiguredControlPlane() *mailcow.Client {
	return mailcow.NewClient("", "")
}

func writeSuccessEnvelope(w http.ResponseWriter) {
	json.NewEncoder(w).Encode([]map[string]any{{"type": "success", "msg": "ok"}})
}

func writeErrorEnvelope(w http.ResponseWriter, msg string) {
	json.NewEncoder(w).Encode([]map[string]any{{"type": "error", "msg": msg}})
}
