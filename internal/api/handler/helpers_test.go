package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	mw "github.com/NeonAnubis/afrimail-backend/internal/api/middleware"
	"github.com/NeonAnubis/afrimail-backend/internal/core"
)

func newJSONRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func withUserClaims(r *http.Request, userID, email string) *http.Request {
	claims := &core.Claims{Email: email}
	claims.Subject = userID
	return r.WithContext(mw.WithClaims(r.Context(), claims))
}
