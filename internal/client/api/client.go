// Package api implements the REST client used by the CLI. It remembers the
// token pair from login and transparently retries a request once after
// refreshing tokens when the server answers 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spendkeeper/spendkeeper/internal/common"
)

// User mirrors the sanitized user representation returned by the server.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Expense mirrors the server's expense representation.
type Expense struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	SpentAt     time.Time `json:"spent_at"`
	ReceiptKey  string    `json:"receipt_key,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// IsLoggedIn reports whether the client holds a token pair.
func (c *Client) IsLoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken != ""
}

func (c *Client) setTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

func (c *Client) tokens() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

// Register creates a new account. It does not log in.
func (c *Client) Register(ctx context.Context, email, password string) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/register",
		map[string]string{"email": email, "password": password}, false, &out)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login authenticates and stores the returned token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		User         User   `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login",
		map[string]string{"email": email, "password": password}, false, &out)
	if err != nil {
		return nil, err
	}
	c.setTokens(out.AccessToken, out.RefreshToken)
	return &out.User, nil
}

// Refresh rotates the stored token pair. The old refresh token is consumed
// by the server whether or not this call succeeds in storing the result.
func (c *Client) Refresh(ctx context.Context) error {
	_, refresh := c.tokens()
	if refresh == "" {
		return common.ErrorUnauthorized
	}

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/refresh",
		map[string]string{"refresh_token": refresh}, false, &out)
	if err != nil {
		return err
	}
	c.setTokens(out.AccessToken, out.RefreshToken)
	return nil
}

// Logout invalidates the session server-side and drops the stored tokens.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, true, nil)
	c.setTokens("", "")
	return err
}

// ListExpenses returns the authenticated user's expenses.
func (c *Client) ListExpenses(ctx context.Context) ([]Expense, error) {
	var out []Expense
	if err := c.do(ctx, http.MethodGet, "/expenses", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddExpense creates a new expense record.
func (c *Client) AddExpense(ctx context.Context, amount float64, category, description string) (*Expense, error) {
	var out struct {
		Expense Expense `json:"expense"`
	}
	err := c.do(ctx, http.MethodPost, "/expenses",
		map[string]any{"amount": amount, "category": category, "description": description}, true, &out)
	if err != nil {
		return nil, err
	}
	return &out.Expense, nil
}

// do performs one request. For authed calls a 401 triggers a single token
// refresh followed by one replay; a second 401 surfaces as
// common.ErrorUnauthorized.
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, payload, authed)
	if err != nil {
		return err
	}

	if authed && resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := c.Refresh(ctx); err != nil {
			return common.ErrorUnauthorized
		}
		resp, err = c.send(ctx, method, path, payload, authed)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return common.ErrorUnauthorized
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, authed bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		access, _ := c.tokens()
		req.Header.Set(common.AuthorizationHeaderName, common.BearerSchema+access)
	}
	return c.http.Do(req)
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("server error: %s", body.Error)
}
