package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Requests(t *testing.T) {
	type seen struct {
		method, path, query, auth, ctype string
		body                             map[string]any
	}
	var last seen

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = seen{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization"), ctype: r.Header.Get("Content-Type")}
		last.body = nil
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &last.body)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/login":
			_, _ = io.WriteString(w, `{"token":"tok","user":{"username":"alice","balanceCents":500,"role":"player"}}`)
		case "/api/cases/csgo_1/open":
			_, _ = io.WriteString(w, `{"item":{"id":"i1","name":"AK-47","tier":"rare"},"balanceCents":100}`)
		case "/api/wallet/deposit":
			_, _ = io.WriteString(w, `{"balanceCents":1500}`)
		case "/api/inventory/i1/sell":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":"item belongs to another user"}`)
		case "/api/register":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid request","fields":{"password":"must be at least 8","email":"invalid email format"}}`)
		case "/api/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			_, _ = io.WriteString(w, `[]`)
		}
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL + "/", HTTP: srv.Client()}
	ctx := context.Background()

	auth, err := c.Login(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", auth.Token)
	assert.Equal(t, models.RolePlayer, auth.User.Role)
	assert.Empty(t, last.auth)
	assert.Equal(t, "application/json", last.ctype)
	assert.Equal(t, "alice@example.com", last.body["email"])

	c.Token = auth.Token
	res, err := c.Open(ctx, "csgo_1")
	require.NoError(t, err)
	assert.Equal(t, "AK-47", res.Item.ItemName)
	assert.Equal(t, "Bearer tok", last.auth)
	assert.Equal(t, http.MethodPost, last.method)

	bal, err := c.Deposit(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), bal)
	assert.EqualValues(t, 1000, last.body["amountCents"])

	_, err = c.Inventory(ctx, "rare")
	require.NoError(t, err)
	assert.Equal(t, "/api/inventory", last.path)
	assert.Equal(t, "filter=rare", last.query)

	_, err = c.History(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "limit=5", last.query)

	_, err = c.Sell(ctx, "i1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "item belongs to another user", apiErr.Error())

	err = c.Register(ctx, "x", "y", "z")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "invalid request\n  email: invalid email format\n  password: must be at least 8", apiErr.Error())

	require.NoError(t, c.Logout(ctx))
}

func TestNewHTTPClient(t *testing.T) {
	c, err := NewHTTPClient("")
	require.NoError(t, err)
	assert.Nil(t, c.Transport)

	_, err = NewHTTPClient(filepath.Join(t.TempDir(), "missing.crt"))
	assert.ErrorContains(t, err, "read CA cert")

	bad := filepath.Join(t.TempDir(), "bad.crt")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0o600))
	_, err = NewHTTPClient(bad)
	assert.ErrorContains(t, err, "parse CA cert")
}
