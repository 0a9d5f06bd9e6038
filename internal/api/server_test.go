package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paie/internal/core"
	"paie/internal/ledger/memory"
	"paie/internal/services"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	svc := services.NewLedgerService(memory.New(), nil, nil)
	s := NewServer(":0", svc, opts)
	ts := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		ts.Close()
		s.rateLimiter.Stop()
	})
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func decode[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v), body)
	return v
}

func TestAPI_Root(t *testing.T) {
	ts := newTestServer(t, Options{})
	code, body := do(t, ts, http.MethodGet, "/api/", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"message":"API de gestion des paies des ouvriers"}`, body)
}

func TestAPI_WorkerLifecycle(t *testing.T) {
	ts := newTestServer(t, Options{})

	code, body := do(t, ts, http.MethodPost, "/api/workers", `{"name":"Jean Dupont"}`)
	require.Equal(t, http.StatusOK, code, body)
	w := decode[core.Worker](t, body)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "", w.Position)
	assert.Equal(t, "", w.Phone)
	assert.False(t, w.CreatedAt.IsZero())

	code, body = do(t, ts, http.MethodGet, "/api/workers/"+w.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Jean Dupont", decode[core.Worker](t, body).Name)

	code, body = do(t, ts, http.MethodPost, "/api/transactions",
		`{"worker_id":"`+w.ID+`","type":"due","amount":100,"description":"Semaine 1"}`)
	require.Equal(t, http.StatusOK, code, body)
	due := decode[core.Transaction](t, body)
	assert.Equal(t, int64(10000), due.Amount.Cents)

	code, body = do(t, ts, http.MethodPost, "/api/transactions",
		`{"worker_id":"`+w.ID+`","type":"paid","amount":40,"description":""}`)
	require.Equal(t, http.StatusOK, code, body)

	code, body = do(t, ts, http.MethodGet, "/api/workers/"+w.ID+"/balance", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"total_due":100`)
	assert.Contains(t, body, `"total_paid":40`)
	assert.Contains(t, body, `"balance":60`)

	code, body = do(t, ts, http.MethodGet, "/api/workers-balances", "")
	require.Equal(t, http.StatusOK, code)
	balances := decode[[]core.WorkerBalance](t, body)
	require.Len(t, balances, 1)
	assert.Equal(t, int64(6000), balances[0].Balance.Cents)
	require.Len(t, balances[0].Transactions, 2)
	assert.Equal(t, core.TransactionPaid, balances[0].Transactions[0].Type, "newest first")

	code, body = do(t, ts, http.MethodGet, "/api/workers/"+w.ID+"/transactions", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]core.Transaction](t, body), 2)

	code, body = do(t, ts, http.MethodDelete, "/api/transactions/"+due.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"message":"Transaction supprimée avec succès"}`, body)

	code, body = do(t, ts, http.MethodDelete, "/api/workers/"+w.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"message":"Ouvrier et ses transactions supprimés avec succès"}`, body)

	_, body = do(t, ts, http.MethodGet, "/api/transactions", "")
	assert.JSONEq(t, `[]`, body, "cascade should remove remaining transactions")
	_, body = do(t, ts, http.MethodGet, "/api/workers-balances", "")
	assert.JSONEq(t, `[]`, body)
}

func TestAPI_Errors(t *testing.T) {
	ts := newTestServer(t, Options{})
	_, body := do(t, ts, http.MethodPost, "/api/workers", `{"name":"Marie"}`)
	w := decode[core.Worker](t, body)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantCode   int
		wantDetail string
	}{
		{"unknown worker", http.MethodGet, "/api/workers/ghost", "", 404, "Ouvrier non trouvé"},
		{"balance of unknown worker", http.MethodGet, "/api/workers/ghost/balance", "", 404, "Ouvrier non trouvé"},
		{"delete unknown worker", http.MethodDelete, "/api/workers/ghost", "", 404, "Ouvrier non trouvé"},
		{"delete unknown transaction", http.MethodDelete, "/api/transactions/ghost", "", 404, "Transaction non trouvée"},
		{"transaction for unknown worker", http.MethodPost, "/api/transactions", `{"worker_id":"ghost","type":"due","amount":1}`, 404, "Ouvrier non trouvé"},
		{"empty name", http.MethodPost, "/api/workers", `{"name":"  "}`, 422, "Le nom est requis"},
		{"malformed json", http.MethodPost, "/api/workers", `{"name":`, 422, "Corps de requête invalide"},
		{"wrong field type", http.MethodPost, "/api/workers", `{"name":12}`, 422, "Corps de requête invalide"},
		{"missing amount", http.MethodPost, "/api/transactions", `{"worker_id":"` + w.ID + `","type":"due"}`, 422, "Montant invalide"},
		{"non numeric amount", http.MethodPost, "/api/transactions", `{"worker_id":"` + w.ID + `","type":"due","amount":"abc"}`, 422, "Montant invalide"},
		{"negative amount", http.MethodPost, "/api/transactions", `{"worker_id":"` + w.ID + `","type":"due","amount":-5}`, 422, "Le montant doit être positif"},
		{"bad type", http.MethodPost, "/api/transactions", `{"worker_id":"` + w.ID + `","type":"bonus","amount":5}`, 422, "Le type doit être 'due' ou 'paid'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, ts, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, code, body)
			assert.Equal(t, tt.wantDetail, decode[detailResponse](t, body).Detail)
		})
	}
}

func TestAPI_CORS(t *testing.T) {
	t.Run("open by default", func(t *testing.T) {
		ts := newTestServer(t, Options{})
		req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/workers", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")
	})

	t.Run("restricted origins", func(t *testing.T) {
		ts := newTestServer(t, Options{CORSAllowedOrigins: "https://paie.example.com/, https://admin.example.com"})
		for origin, want := range map[string]string{
			"https://paie.example.com": "https://paie.example.com",
			"https://evil.example.com": "",
		} {
			req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/", nil)
			req.Header.Set("Origin", origin)
			resp, err := ts.Client().Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, want, resp.Header.Get("Access-Control-Allow-Origin"), origin)
		}
	})
}

func TestAPI_HealthReadyMetrics(t *testing.T) {
	ts := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("disk gone") }})

	code, body := do(t, ts, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"status":"ok"`)

	code, body = do(t, ts, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "disk gone")

	do(t, ts, http.MethodGet, "/api/workers/ghost", "")
	code, body = do(t, ts, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `paie_api_ledger_operations_total{operation="get_worker",outcome="not_found"} 1`)
	assert.Contains(t, body, `route="GET /api/workers/{id}"`)
}

func TestAPI_RateLimitAppliesToMutations(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 1})

	code, _ := do(t, ts, http.MethodPost, "/api/workers", `{"name":"A"}`)
	require.Equal(t, http.StatusOK, code)
	code, body := do(t, ts, http.MethodPost, "/api/workers", `{"name":"B"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, body, "detail")

	code, _ = do(t, ts, http.MethodGet, "/api/workers", "")
	assert.Equal(t, http.StatusOK, code, "reads are not metered")
}
