package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendkeeper/spendkeeper/internal/common"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second), srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestLogin_StoresTokens(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice@example.com", body["email"])
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at1",
			"refresh_token": "rt1",
			"user":          map[string]string{"id": "u1", "email": "alice@example.com"},
		})
	}))

	user, err := c.Login(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, c.IsLoggedIn())
}

func TestLogin_BadCredentials(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}))

	_, err := c.Login(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)
	assert.False(t, c.IsLoggedIn())
}

func TestRegister(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/register", r.URL.Path)
		writeJSON(w, http.StatusCreated, map[string]any{
			"user": map[string]string{"id": "u1", "email": "a@b.c", "username": "a"},
		})
	}))

	user, err := c.Register(context.Background(), "a@b.c", "longenough")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.False(t, c.IsLoggedIn(), "register must not log in")
}

func TestAuthedRequest_CarriesBearer(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []Expense{})
	}))
	c.setTokens("at1", "rt1")

	_, err := c.ListExpenses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer at1", gotAuth)
}

func TestAuthedRequest_RefreshAndReplayOn401(t *testing.T) {
	var refreshCalls int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/expenses":
			if r.Header.Get("Authorization") != "Bearer at2" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			writeJSON(w, http.StatusOK, []Expense{{ID: "e1", Amount: 1.5, Category: "food"}})
		case "/auth/refresh":
			refreshCalls++
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "rt1", body["refresh_token"])
			writeJSON(w, http.StatusOK, map[string]string{
				"access_token":  "at2",
				"refresh_token": "rt2",
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	c.setTokens("at1", "rt1")

	list, err := c.ListExpenses(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "e1", list[0].ID)
	assert.Equal(t, 1, refreshCalls, "exactly one refresh")

	access, refresh := c.tokens()
	assert.Equal(t, "at2", access)
	assert.Equal(t, "rt2", refresh)
}

func TestAuthedRequest_RefreshFails(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}))
	c.setTokens("stale", "stale")

	_, err := c.ListExpenses(context.Background())
	assert.True(t, errors.Is(err, common.ErrorUnauthorized), "got %v", err)
}

func TestRefresh_WithoutTokens(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	err := c.Refresh(context.Background())
	assert.True(t, errors.Is(err, common.ErrorUnauthorized), "got %v", err)
}

func TestAddExpense(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/expenses", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 9.99, body["amount"])
		writeJSON(w, http.StatusCreated, map[string]any{
			"expense": Expense{ID: "e1", Amount: 9.99, Category: "food"},
		})
	}))
	c.setTokens("at1", "rt1")

	e, err := c.AddExpense(context.Background(), 9.99, "food", "lunch")
	require.NoError(t, err)
	assert.Equal(t, "e1", e.ID)
}

func TestLogout_DropsTokens(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	}))
	c.setTokens("at1", "rt1")

	require.NoError(t, c.Logout(context.Background()))
	assert.False(t, c.IsLoggedIn())
}

func TestServerErrorMessage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already exists"})
	}))

	_, err := c.Register(context.Background(), "dup@example.com", "longenough")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
