package commands_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/farereceipts/internal/config"
	"github.com/cleared-dev/farereceipts/internal/model"
)

const transactionsJSON = `{"transactions": [
	{
		"id": "tx_coffee",
		"amount": -350,
		"created": "2024-05-10T08:30:00Z",
		"settled": "2024-05-11T06:00:00Z",
		"notes": "",
		"merchant": {"id": "merch_1", "name": "Coffee Shop"}
	},
	{
		"id": "tx_check",
		"amount": 0,
		"created": "2024-05-09T08:30:00Z",
		"settled": "2024-05-09T09:00:00Z",
		"notes": "Active card check",
		"merchant": {"id": "merch_tfl", "name": "Transport for London"}
	},
	{
		"id": "tx_fare",
		"amount": -280,
		"created": "2024-05-11T03:00:00Z",
		"settled": "2024-05-11T06:12:00Z",
		"notes": "Travel charge for Friday, 10 May",
		"merchant": {"id": "merch_tfl", "name": "Transport for London"}
	},
	{
		"id": "tx_pending",
		"amount": -150,
		"created": "2024-05-12T03:00:00Z",
		"settled": "",
		"notes": "Travel charge for Saturday, 11 May",
		"merchant": {"id": "merch_tfl", "name": "Transport for London"}
	}
]}`

// fakeBank serves the account API endpoints used by a run.
type fakeBank struct {
	mu            sync.Mutex
	authenticated bool
	accountsJSON  string
	uploadStatus  int
	uploads       []model.Receipt
	requests      int
}

func newFakeBank() *fakeBank {
	return &fakeBank{
		authenticated: true,
		accountsJSON: `{"accounts": [
			{"id": "acc_joint", "type": "uk_retail_joint", "description": "joint"},
			{"id": "acc_1", "type": "uk_retail", "description": "user_1"}
		]}`,
		uploadStatus: http.StatusOK,
	}
}

func (b *fakeBank) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests++

	if r.Header.Get("Authorization") != "Bearer tok-123" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch r.URL.Path {
	case "/ping/whoami":
		_, _ = io.WriteString(w, `{"authenticated": `+boolJSON(b.authenticated)+`, "user_id": "user_1"}`)
	case "/accounts":
		_, _ = io.WriteString(w, b.accountsJSON)
	case "/transactions":
		if r.URL.Query().Get("account_id") != "acc_1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, transactionsJSON)
	case "/transaction-receipts/":
		var rcpt model.Receipt
		if err := json.NewDecoder(r.Body).Decode(&rcpt); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.uploads = append(b.uploads, rcpt)
		w.WriteHeader(b.uploadStatus)
		_, _ = io.WriteString(w, `{}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func boolJSON(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// setupRun writes a fare export and a config pointing at the fake bank, and
// returns the config path.
func setupRun(t *testing.T, bankURL string, mutate func(*config.Config)) string {
	t.Helper()
	dir := t.TempDir()

	faresDir := filepath.Join(dir, "TFL_CSV", "2024")
	require.NoError(t, os.MkdirAll(faresDir, 0o755))
	csv := "Date,Start Time,Journey/Action,Charge\n" +
		"10/05/2024,07:58,Station A,£2.80\n" +
		"09/05/2024,18:02,Bus journey,£1.75\n"
	require.NoError(t, os.WriteFile(filepath.Join(faresDir, "may.csv"), []byte(csv), 0o644))

	cfg := config.Default()
	cfg.Bank.BaseURL = bankURL
	cfg.Auth.ClientID = ""
	cfg.Auth.ClientSecret = ""
	cfg.Fares.Dir = filepath.Join(dir, "TFL_CSV")
	cfg.History.DatabasePath = filepath.Join(dir, "history.db")
	cfg.Logging.Format = "text"
	if mutate != nil {
		mutate(cfg)
	}

	path := filepath.Join(dir, "farereceipts.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func TestReconcile_EndToEnd(t *testing.T) {
	bank := newFakeBank()
	srv := httptest.NewServer(bank)
	defer srv.Close()
	cfgPath := setupRun(t, srv.URL, nil)

	out, logs, err := runFarereceipts(t, "tok-123\n", "--config", cfgPath)
	require.NoError(t, err, logs)

	require.Len(t, bank.uploads, 1)
	rcpt := bank.uploads[0]
	assert.Equal(t, "tx_fare", rcpt.TransactionID)
	assert.Equal(t, int64(280), rcpt.Total)
	assert.Equal(t, "GBP", rcpt.Currency)
	assert.Len(t, rcpt.ExternalID, 32)
	require.Len(t, rcpt.Items, 1)
	assert.Equal(t, "Station A", rcpt.Items[0].Description)
	assert.Equal(t, int64(280), rcpt.Items[0].UnitPrice)
	assert.Equal(t, 20, rcpt.Items[0].Tax)

	assert.Contains(t, out, "If you already have a token")
	assert.Contains(t, out, "Uploaded 1 receipt(s) totalling £2.80")
	assert.Contains(t, out, "Skipped 3 transaction(s)")
	assert.Contains(t, logs, "Uploaded receipt")
	assert.Contains(t, logs, "files=1")

	hist, _, err := runFarereceipts(t, "", "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, hist, "RUN")
	lines := strings.Split(strings.TrimSpace(hist), "\n")
	assert.Len(t, lines, 2, "header plus one run")

	detail, _, err := runFarereceipts(t, "", "--config", cfgPath, "history", "--run", "1")
	require.NoError(t, err)
	assert.Contains(t, detail, "tx_fare")
	assert.Contains(t, detail, "2024-05-10")
	assert.Contains(t, detail, rcpt.ExternalID)
}

func TestReconcile_RerunUploadsAgain(t *testing.T) {
	bank := newFakeBank()
	srv := httptest.NewServer(bank)
	defer srv.Close()
	cfgPath := setupRun(t, srv.URL, nil)

	_, _, err := runFarereceipts(t, "tok-123\n", "--config", cfgPath)
	require.NoError(t, err)
	_, _, err = runFarereceipts(t, "tok-123\n", "--config", cfgPath)
	require.NoError(t, err)

	require.Len(t, bank.uploads, 2)
	assert.Equal(t, bank.uploads[0].TransactionID, bank.uploads[1].TransactionID)
	assert.NotEqual(t, bank.uploads[0].ExternalID, bank.uploads[1].ExternalID)
}

func TestReconcile_DryRun(t *testing.T) {
	bank := newFakeBank()
	srv := httptest.NewServer(bank)
	defer srv.Close()
	cfgPath := setupRun(t, srv.URL, nil)

	out, _, err := runFarereceipts(t, "tok-123\n", "--config", cfgPath, "--dry-run")
	require.NoError(t, err)
	assert.Empty(t, bank.uploads)
	assert.Contains(t, out, "Dry run: would upload 1 receipt(s) totalling £2.80")
}

func TestReconcile_UploadFailureAborts(t *testing.T) {
	bank := newFakeBank()
	bank.uploadStatus = http.StatusInternalServerError
	srv := httptest.NewServer(bank)
	defer srv.Close()
	cfgPath := setupRun(t, srv.URL, nil)

	out, _, err := runFarereceipts(t, "tok-123\n", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "receipt upload failed")
	assert.Contains(t, out, "Failed 1 upload(s)")

	hist, _, err := runFarereceipts(t, "", "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, hist, "receipt upload failed")
}

func TestReconcile_NotAuthenticated(t *testing.T) {
	bank := newFakeBank()
	bank.authenticated = false
	srv := httptest.NewServer(bank)
	defer srv.Close()
	cfgPath := setupRun(t, srv.URL, nil)

	_, _, err := runFarereceipts(t, "tok-123\n", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authenticated")
	assert.Empty(t, bank.uploads)
}

func TestReconcile_NoPersonalAccount(t *testing.T) {
	bank := newFakeBank()
	bank.accountsJSON = `{"accounts": [{"id": "acc_joint", "type": "uk_retail_joint"}]}`
	srv := httptest.NewServer(bank)
	defer srv.Close()
	cfgPath := setupRun(t, srv.URL, nil)

	_, _, err := runFarereceipts(t, "tok-123\n", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not find a personal account")
}

func TestReconcile_MissingFaresDir(t *testing.T) {
	bank := newFakeBank()
	srv := httptest.NewServer(bank)
	defer srv.Close()
	cfgPath := setupRun(t, srv.URL, func(c *config.Config) {
		c.Fares.Dir = filepath.Join(t.TempDir(), "missing")
	})

	_, _, err := runFarereceipts(t, "tok-123\n", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading fare statements")
	assert.Zero(t, bank.requests, "nothing is sent to the bank")
}

func TestReconcile_BadFareRowIsFatal(t *testing.T) {
	bank := newFakeBank()
	srv := httptest.NewServer(bank)
	defer srv.Close()

	faresDir := t.TempDir()
	csv := "Date,Start Time,Journey/Action,Charge\n10/05/2024,07:58,Station A,2.80\n"
	require.NoError(t, os.WriteFile(filepath.Join(faresDir, "bad.csv"), []byte(csv), 0o644))
	cfgPath := setupRun(t, srv.URL, func(c *config.Config) { c.Fares.Dir = faresDir })

	_, _, err := runFarereceipts(t, "tok-123\n", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.Zero(t, bank.requests)
}

func TestVersion(t *testing.T) {
	out, _, err := runFarereceipts(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "farereceipts version")
}
