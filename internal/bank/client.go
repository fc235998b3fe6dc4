// Package bank talks to the bank's account API: authentication, account and
// transaction listings, and transaction receipt uploads.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cleared-dev/farereceipts/internal/model"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.monzo.com"

// ErrNotAuthenticated is returned when the whoami check does not confirm the token.
var ErrNotAuthenticated = errors.New("OAuth2 flow seems to have failed: token not authenticated")

// APIError is a non-2xx response from the API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client is an authenticated API client. The http.Client is expected to add
// the bearer token, e.g. one returned by oauth2.NewClient.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a Client for baseURL.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// Whoami checks that the token is accepted. It returns the authenticated user id.
func (c *Client) Whoami(ctx context.Context) (string, error) {
	var resp whoamiResponse
	if err := c.do(ctx, http.MethodGet, "ping/whoami", nil, nil, &resp); err != nil {
		return "", fmt.Errorf("testing API call: %w", err)
	}
	if resp.Authenticated == nil || !*resp.Authenticated {
		return "", ErrNotAuthenticated
	}
	return resp.UserID, nil
}

// ListAccounts returns the accounts visible to the token.
func (c *Client) ListAccounts(ctx context.Context) ([]model.Account, error) {
	var resp accountsResponse
	if err := c.do(ctx, http.MethodGet, "accounts", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("could not retrieve accounts information: %w", err)
	}
	if len(resp.Accounts) == 0 {
		return nil, errors.New("could not retrieve accounts information: no accounts returned")
	}

	accts := make([]model.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		accts = append(accts, a.toModel())
	}
	return accts, nil
}

// ListTransactions returns every transaction of an account with merchants
// expanded. The listing is not paginated.
func (c *Client) ListTransactions(ctx context.Context, accountID string) ([]model.Transaction, error) {
	query := url.Values{}
	query.Set("expand[]", "merchant")
	query.Set("account_id", accountID)

	var resp transactionsResponse
	if err := c.do(ctx, http.MethodGet, "transactions", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("could not list past transactions: %w", err)
	}
	if resp.Transactions == nil {
		return nil, errors.New("could not list past transactions: response has no transactions")
	}

	txns := make([]model.Transaction, 0, len(resp.Transactions))
	for _, t := range resp.Transactions {
		txns = append(txns, t.toModel())
	}
	return txns, nil
}

// UploadReceipt submits a receipt for a transaction.
func (c *Client) UploadReceipt(ctx context.Context, r model.Receipt) error {
	if err := c.do(ctx, http.MethodPut, "transaction-receipts/", nil, r, nil); err != nil {
		return fmt.Errorf("failed to upload receipt: %w", err)
	}
	return nil
}

// Source returns the transaction source for one account.
func (c *Client) Source(accountID string) *AccountSource {
	return &AccountSource{client: c, accountID: accountID}
}

// AccountSource lists the transactions of a single account.
type AccountSource struct {
	client    *Client
	accountID string
}

// Transactions lists the account's transactions.
func (s *AccountSource) Transactions(ctx context.Context) ([]model.Transaction, error) {
	return s.client.ListTransactions(ctx, s.accountID)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + "/" + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
