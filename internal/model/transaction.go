package model

import "time"

// Transaction is a bank transaction as reported by the account API.
// Fields that the API may omit are pointers.
type Transaction struct {
	ID        string
	Amount    int64 // minor units, negative = debit
	Created   time.Time
	SettledAt *time.Time // nil while unsettled
	Note      string
	Merchant  *string // merchant name, nil when the bank has none
}

// SettledDate returns the calendar date of SettledAt in the timestamp's own
// zone, or false if the transaction has not settled.
func (t Transaction) SettledDate() (time.Time, bool) {
	if t.SettledAt == nil {
		return time.Time{}, false
	}
	s := *t.SettledAt
	return time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC), true
}

// MerchantName returns the merchant name or "" when absent.
func (t Transaction) MerchantName() string {
	if t.Merchant == nil {
		return ""
	}
	return *t.Merchant
}

// FareLineItem is a single charge from a fare statement.
type FareLineItem struct {
	Description string
	Amount      int64 // minor units, non-negative
}

// MatchResult pairs a transaction with the fares of one travel date.
// The fare amounts are not required to add up to the transaction amount.
type MatchResult struct {
	Transaction Transaction
	TravelDate  time.Time
	NotedMonth  time.Month // month named in the note, not checked by matching
	Fares       []FareLineItem
}
