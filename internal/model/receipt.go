package model

// Receipt is the transaction receipt document accepted by the bank.
// JSON field names are part of the bank's API contract.
type Receipt struct {
	ExternalID    string        `json:"external_id"`
	ReceiptID     string        `json:"receipt_id"`
	TransactionID string        `json:"transaction_id"`
	Total         int64         `json:"total"`
	Currency      string        `json:"currency"`
	Payments      []Payment     `json:"payments"`
	Taxes         []Tax         `json:"taxes"`
	Items         []ReceiptItem `json:"items"`
}

// ReceiptItem is one line of a receipt.
type ReceiptItem struct {
	Description string        `json:"description"`
	Quantity    int           `json:"quantity"`
	SubItems    []ReceiptItem `json:"sub_items"`
	UnitPrice   int64         `json:"unit_price"`
	Currency    string        `json:"currency"`
	Tax         int           `json:"tax"`
	LocalID     string        `json:"local_id"`
}

// Payment describes how a receipt was paid. Fare receipts never carry any.
type Payment struct {
	Type     string `json:"type"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Tax is a tax line on a receipt. Fare receipts never carry any.
type Tax struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}
