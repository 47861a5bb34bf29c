package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-backend/internal/auth"
	"shop-backend/internal/config"
	"shop-backend/internal/mail"
	"shop-backend/internal/storetest"
)

type testServer struct {
	app   *App
	mails *mail.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s, reg := storetest.New(t)
	rec := &mail.Recorder{}
	cfg := &config.Config{
		JWTSecret: "test-secret",
		Auth:      config.AuthConfig{VerifyURL: "http://shop.test/email-verify"},
	}
	app := New(Deps{
		Config:    cfg,
		Store:     s,
		Registry:  reg,
		Blacklist: auth.NewSQLBlacklist(s),
		Mailer:    rec,
	})
	return &testServer{app: app, mails: rec}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			reader = strings.NewReader(s)
		} else {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(b)
		}
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.app.Fiber.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func (ts *testServer) login(t *testing.T, email, password string) auth.LoginResult {
	t.Helper()
	status, body := ts.do(t, "POST", "/login/", "", map[string]string{"email": email, "password": password})
	require.Equal(t, 200, status, string(body))
	var res auth.LoginResult
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	status, body := ts.do(t, "GET", "/health", "", nil)
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRegisterVerifyLoginLogout(t *testing.T) {
	ts := newTestServer(t)
	reg := map[string]string{"email": "petr@example.com", "username": "petr", "password": "heslo123"}

	status, body := ts.do(t, "POST", "/register/", "", reg)
	require.Equal(t, 201, status, string(body))
	assert.JSONEq(t, `{"email":"petr@example.com","username":"petr"}`, string(body))

	status, body = ts.do(t, "POST", "/login/", "", map[string]string{"email": reg["email"], "password": reg["password"]})
	assert.Equal(t, 401, status)
	assert.Contains(t, string(body), auth.MsgUnverified)

	msg, ok := ts.mails.Last()
	require.True(t, ok)
	_, token, _ := strings.Cut(msg.Body, "?token=")

	status, body = ts.do(t, "GET", "/email-verify/?token="+token, "", nil)
	require.Equal(t, 200, status)
	assert.JSONEq(t, `{"email":"Overeno"}`, string(body))

	status, body = ts.do(t, "GET", "/email-verify/?token=broken", "", nil)
	assert.Equal(t, 400, status)
	assert.Contains(t, string(body), auth.MsgVerifyBadToken)

	res := ts.login(t, reg["email"], reg["password"])
	assert.Equal(t, "petr", res.Username)

	status, _ = ts.do(t, "POST", "/logout/", "", map[string]string{"refresh": res.Tokens.Refresh})
	assert.Equal(t, 401, status)

	status, _ = ts.do(t, "POST", "/logout/", res.Tokens.Access, map[string]string{"refresh": res.Tokens.Refresh})
	assert.Equal(t, 204, status)

	status, body = ts.do(t, "POST", "/logout/", res.Tokens.Access, map[string]string{"refresh": res.Tokens.Refresh})
	assert.Equal(t, 400, status)
	assert.Contains(t, string(body), auth.MsgBadRefresh)
}

func TestRegister_FieldErrors(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, "POST", "/register", "", map[string]string{"email": "x@example.com", "username": "no-dash", "password": "heslo123"})
	assert.Equal(t, 400, status)
	assert.Contains(t, string(body), auth.MsgUsernameChars)
}

func TestTokenEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, "POST", "/api/token/", "", map[string]string{"email": "admin@localhost", "password": "changeme"})
	require.Equal(t, 200, status, string(body))
	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(body, &pair))

	status, body = ts.do(t, "POST", "/api/token/refresh/", "", map[string]string{"refresh": pair.Refresh})
	require.Equal(t, 200, status, string(body))
	assert.Contains(t, string(body), `"access"`)

	status, _ = ts.do(t, "POST", "/api/token/refresh/", "", map[string]string{"refresh": pair.Access})
	assert.Equal(t, 401, status)
}

func TestImportNeedsAuth(t *testing.T) {
	ts := newTestServer(t)
	batch := `[{"Product":{"id":1,"nazev":"Lednice","cena":"12990","mena":"CZK"}}, {"WrongModel":{"id":1}}]`

	status, _ := ts.do(t, "PUT", "/import/", "", batch)
	assert.Equal(t, 401, status)

	admin := ts.login(t, "admin@localhost", "changeme")
	status, body := ts.do(t, "PUT", "/import/", admin.Tokens.Access, batch)
	require.Equal(t, 200, status, string(body))

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out, 2)
	assert.Contains(t, out, "0")
	assert.Contains(t, out, "NEULOZENO, wrong_model_name 1")

	status, body = ts.do(t, "GET", "/detail/product/1/", "", nil)
	require.Equal(t, 200, status)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, "Lednice", rec["nazev"])
	assert.Equal(t, "12990", rec["cena"])
}

func TestStaffOnlyRoutes(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.login(t, "admin@localhost", "changeme")

	status, _ := ts.do(t, "PUT", "/import/", admin.Tokens.Access, `[{"Product":{"nazev":"A"}},{"Product":{"nazev":"B"}}]`)
	require.Equal(t, 200, status)

	// a verified non-staff user
	status, _ = ts.do(t, "POST", "/register", "", map[string]string{"email": "eva@example.com", "username": "eva", "password": "heslo123"})
	require.Equal(t, 201, status)
	msg, _ := ts.mails.Last()
	_, token, _ := strings.Cut(msg.Body, "?token=")
	status, _ = ts.do(t, "GET", "/email-verify?token="+token, "", nil)
	require.Equal(t, 200, status)
	eva := ts.login(t, "eva@example.com", "heslo123")

	status, _ = ts.do(t, "GET", "/admin/kinds", "", nil)
	assert.Equal(t, 401, status)
	status, _ = ts.do(t, "GET", "/admin/kinds", eva.Tokens.Access, nil)
	assert.Equal(t, 403, status)

	status, body := ts.do(t, "GET", "/admin/kinds", admin.Tokens.Access, nil)
	require.Equal(t, 200, status)
	var kinds struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &kinds))
	require.Len(t, kinds.Data, 8)
	assert.Equal(t, "AttributeName", kinds.Data[0].Name)

	status, _ = ts.do(t, "GET", "/admin/kinds/product", admin.Tokens.Access, nil)
	assert.Equal(t, 200, status)

	status, body = ts.do(t, "POST", "/admin/products/publish", admin.Tokens.Access, map[string]any{"ids": []int{1, 2}})
	require.Equal(t, 200, status, string(body))
	assert.JSONEq(t, `{"updated":2}`, string(body))

	status, _ = ts.do(t, "POST", "/admin/products/publish", admin.Tokens.Access, map[string]any{"ids": []int{}})
	assert.Equal(t, 400, status)

	status, _ = ts.do(t, "DELETE", "/detail/product/1/", eva.Tokens.Access, nil)
	assert.Equal(t, 403, status)
	status, _ = ts.do(t, "DELETE", "/detail/product/1/", admin.Tokens.Access, nil)
	assert.Equal(t, 204, status)
	status, _ = ts.do(t, "GET", "/detail/product/1/", "", nil)
	assert.Equal(t, 404, status)
}
