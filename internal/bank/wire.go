package bank

import (
	"encoding/json"
	"time"

	"github.com/cleared-dev/farereceipts/internal/model"
)

type whoamiResponse struct {
	Authenticated *bool  `json:"authenticated"`
	ClientID      string `json:"client_id"`
	UserID        string `json:"user_id"`
}

type accountsResponse struct {
	Accounts []wireAccount `json:"accounts"`
}

type wireAccount struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Closed      bool   `json:"closed"`
}

type transactionsResponse struct {
	Transactions []wireTransaction `json:"transactions"`
}

type wireTransaction struct {
	ID       string        `json:"id"`
	Amount   int64         `json:"amount"`
	Created  string        `json:"created"`
	Settled  string        `json:"settled"`
	Notes    string        `json:"notes"`
	Merchant *wireMerchant `json:"merchant"`
}

// wireMerchant is either an expanded merchant object or, when the listing was
// not expanded, a bare merchant id string.
type wireMerchant struct {
	ID   string  `json:"id"`
	Name *string `json:"name"`
}

func (m *wireMerchant) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &m.ID)
	}
	type plain wireMerchant
	return json.Unmarshal(data, (*plain)(m))
}

func (a wireAccount) toModel() model.Account {
	return model.Account{
		ID:          a.ID,
		Type:        model.AccountType(a.Type),
		Description: a.Description,
		Closed:      a.Closed,
	}
}

func (t wireTransaction) toModel() model.Transaction {
	txn := model.Transaction{
		ID:        t.ID,
		Amount:    t.Amount,
		SettledAt: parseSettled(t.Settled),
		Note:      t.Notes,
	}
	if created, err := time.Parse(time.RFC3339Nano, t.Created); err == nil {
		txn.Created = created
	}
	if t.Merchant != nil && t.Merchant.Name != nil {
		name := *t.Merchant.Name
		txn.Merchant = &name
	}
	return txn
}

// parseSettled returns nil for unsettled transactions (empty string) and for
// timestamps whose date part cannot be read.
func parseSettled(s string) *time.Time {
	if s == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &ts
	}
	if len(s) < len(time.DateOnly) {
		return nil
	}
	d, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)])
	if err != nil {
		return nil
	}
	return &d
}
