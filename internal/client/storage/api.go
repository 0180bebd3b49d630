package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/HorosCase/internal/models"
)

// NewHTTPClient returns an HTTP client that trusts only the CA in caPath.
// An empty caPath uses the system roots.
func NewHTTPClient(caPath string) (*http.Client, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	if caPath == "" {
		return client, nil
	}
	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: caPool, MinVersion: tls.VersionTLS12},
	}
	return client, nil
}

// Client calls the case-opening API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Token is sent as a bearer credential when set.
	Token string
}

func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %s", k, fields[k])
	}
	return b.String()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error, Fields: e.Fields}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Register starts a registration; the server sends a verification code.
func (c *Client) Register(ctx context.Context, email, username, password string) error {
	return c.do(ctx, http.MethodPost, "/api/register", map[string]string{
		"email": email, "username": username, "password": password,
	}, nil)
}

// VerifyCode completes a registration.
func (c *Client) VerifyCode(ctx context.Context, email, code string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/verify-code", map[string]string{"email": email, "code": code}, &out)
	return out, err
}

// Login opens a session.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

// Logout revokes the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// Me returns the caller's profile.
func (c *Client) Me(ctx context.Context) (models.Profile, error) {
	var out models.Profile
	err := c.do(ctx, http.MethodGet, "/api/verify", nil, &out)
	return out, err
}

// Cases lists the catalog, optionally for one game.
func (c *Client) Cases(ctx context.Context, game string) ([]models.Case, error) {
	path := "/api/cases"
	if game != "" {
		path += "?game=" + url.QueryEscape(game)
	}
	var out []models.Case
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Open opens one case.
func (c *Client) Open(ctx context.Context, caseID string) (OpenResult, error) {
	var out OpenResult
	err := c.do(ctx, http.MethodPost, "/api/cases/"+url.PathEscape(caseID)+"/open", nil, &out)
	return out, err
}

// Inventory lists the caller's items.
func (c *Client) Inventory(ctx context.Context, filter string) ([]models.InventoryItem, error) {
	path := "/api/inventory"
	if filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	var out []models.InventoryItem
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Sell sells an item.
func (c *Client) Sell(ctx context.Context, itemID string) (SellResult, error) {
	var out SellResult
	err := c.do(ctx, http.MethodPost, "/api/inventory/"+url.PathEscape(itemID)+"/sell", nil, &out)
	return out, err
}

// Gift gives an item to another user.
func (c *Client) Gift(ctx context.Context, itemID, recipient string) (models.InventoryItem, error) {
	var out models.InventoryItem
	err := c.do(ctx, http.MethodPost, "/api/inventory/"+url.PathEscape(itemID)+"/gift", map[string]string{"recipient": recipient}, &out)
	return out, err
}

// Deposit adds funds and returns the new balance.
func (c *Client) Deposit(ctx context.Context, amountCents int64) (int64, error) {
	var out struct {
		BalanceCents int64 `json:"balanceCents"`
	}
	err := c.do(ctx, http.MethodPost, "/api/wallet/deposit", map[string]int64{"amountCents": amountCents}, &out)
	return out.BalanceCents, err
}

// History returns the newest ledger entries.
func (c *Client) History(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	path := "/api/wallet/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []models.LedgerEntry
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Stats returns the admin counters.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var out models.Stats
	err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, &out)
	return out, err
}

// ResetCounter zeroes an admin counter.
func (c *Client) ResetCounter(ctx context.Context, counter string) error {
	return c.do(ctx, http.MethodPost, "/api/admin/stats/reset", map[string]string{"counter": counter}, nil)
}

// Fairness returns the draw fairness report of a case.
func (c *Client) Fairness(ctx context.Context, caseID string) (models.FairnessReport, error) {
	var out models.FairnessReport
	err := c.do(ctx, http.MethodGet, "/api/admin/cases/"+url.PathEscape(caseID)+"/fairness", nil, &out)
	return out, err
}
