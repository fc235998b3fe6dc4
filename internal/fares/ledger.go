// Package fares holds the fare ledger: fare statement line items bucketed by
// travel date.
package fares

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/cleared-dev/farereceipts/internal/model"
)

const (
	statementDateFormat = "2/1/2006"
	ledgerKeyFormat     = "2006-01-02"
)

// amountPattern matches "£D.DD": a leading currency symbol, whole pounds and
// exactly two decimal digits.
var amountPattern = regexp.MustCompile(`^£(\d+)\.(\d{2})$`)

// Row is one fare statement line before parsing.
type Row struct {
	Date        string // DD/MM/YYYY
	Description string
	Amount      string // £D.DD
	Line        int    // line in the source file, 0 when unknown
}

// ParseError reports a statement field that does not have the expected shape.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("parsing %s %q", e.Field, e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Ledger maps travel dates to the fares charged on that date. Fares for the
// same date accumulate in insertion order; nothing is ever removed.
type Ledger struct {
	byDate map[string][]model.FareLineItem
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{byDate: make(map[string][]model.FareLineItem)}
}

// Ingest parses a statement row and appends its fare to the row's date.
func (l *Ledger) Ingest(row Row) error {
	date, err := ParseDate(row.Date)
	if err != nil {
		return err
	}
	amount, err := ParseAmount(row.Amount)
	if err != nil {
		return err
	}
	l.Add(date, model.FareLineItem{Description: row.Description, Amount: amount})
	return nil
}

// Add appends a fare to the bucket for date. Only the calendar date is used.
func (l *Ledger) Add(date time.Time, fare model.FareLineItem) {
	key := date.Format(ledgerKeyFormat)
	l.byDate[key] = append(l.byDate[key], fare)
}

// Fares returns the fares recorded for the calendar date of date, or nil.
func (l *Ledger) Fares(date time.Time) []model.FareLineItem {
	return l.byDate[date.Format(ledgerKeyFormat)]
}

// Dates returns every date with at least one fare, oldest first.
func (l *Ledger) Dates() []time.Time {
	dates := make([]time.Time, 0, len(l.byDate))
	for key := range l.byDate {
		d, err := time.Parse(ledgerKeyFormat, key)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Len returns the number of distinct dates in the ledger.
func (l *Ledger) Len() int {
	return len(l.byDate)
}

// ParseDate parses a statement date (DD/MM/YYYY) into a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(statementDateFormat, s)
	if err != nil {
		return time.Time{}, &ParseError{Field: "date", Value: s, Err: err}
	}
	return d, nil
}

// ParseAmount converts "£D.DD" to minor units by dropping the currency symbol
// and the decimal point, so "£4.50" becomes 450. No rounding is involved.
func ParseAmount(s string) (int64, error) {
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, &ParseError{Field: "amount", Value: s}
	}
	pence, err := strconv.ParseInt(m[1]+m[2], 10, 64)
	if err != nil {
		return 0, &ParseError{Field: "amount", Value: s, Err: err}
	}
	return pence, nil
}
