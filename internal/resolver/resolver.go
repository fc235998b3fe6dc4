// Package resolver decides which fare ledger date a bank transaction pays for.
//
// A transit transaction settles up to a few days after travel, and its note
// only carries the travel weekday, day of month and month. The resolver walks
// back from the settlement date, one day at a time, and takes the first date
// whose day of month equals the noted day. The month is not compared: a
// travel date in another month with the same day inside the window would be
// taken as a match.
package resolver

import (
	"errors"
	"fmt"
	"time"

	"github.com/cleared-dev/farereceipts/internal/fares"
	"github.com/cleared-dev/farereceipts/internal/model"
)

// DefaultWindowDays is the largest settlement lag, in days, searched by default.
const DefaultWindowDays = 2

var (
	// ErrUnsettled is returned for transactions without a settlement date.
	ErrUnsettled = errors.New("transaction not settled")
	// ErrNotFound is returned when no ledger date matches the transaction.
	ErrNotFound = errors.New("no travel found")
)

// Options configures a Resolver.
type Options struct {
	// WindowDays is the largest offset from the settlement date tried.
	WindowDays int
	// NotePrefixLength is the number of bytes before the travel date in a note.
	NotePrefixLength int
}

// DefaultOptions returns the settlement window and note layout used by the bank.
func DefaultOptions() Options {
	return Options{
		WindowDays:       DefaultWindowDays,
		NotePrefixLength: DefaultNotePrefixLength,
	}
}

// Resolver looks transactions up in a fare ledger. The ledger is only read.
type Resolver struct {
	ledger *fares.Ledger
	opts   Options
}

// New creates a Resolver over ledger.
func New(ledger *fares.Ledger, opts Options) *Resolver {
	if opts.WindowDays < 0 {
		opts.WindowDays = 0
	}
	if opts.NotePrefixLength < 0 {
		opts.NotePrefixLength = 0
	}
	return &Resolver{ledger: ledger, opts: opts}
}

// Resolve matches a transaction to the fares of its travel date.
//
// Errors: ErrUnsettled when the transaction has not settled, *NoteFormatError
// when the note carries no travel date, ErrNotFound when no date in the window
// matches or the matching date has no fares.
func (r *Resolver) Resolve(txn model.Transaction) (model.MatchResult, error) {
	settled, ok := txn.SettledDate()
	if !ok {
		return model.MatchResult{}, ErrUnsettled
	}

	note, err := ParseNote(txn.Note, r.opts.NotePrefixLength)
	if err != nil {
		return model.MatchResult{}, err
	}

	date, items, err := r.ResolveDate(settled, note)
	if err != nil {
		return model.MatchResult{}, err
	}

	return model.MatchResult{
		Transaction: txn,
		TravelDate:  date,
		NotedMonth:  note.Month,
		Fares:       items,
	}, nil
}

// ResolveDate returns the ledger date for a travel note and settlement date,
// together with its fares. The smallest matching offset wins; if that date has
// no fares the result is ErrNotFound even when a larger offset would match.
func (r *Resolver) ResolveDate(settled time.Time, note TravelNote) (time.Time, []model.FareLineItem, error) {
	settledDate := time.Date(settled.Year(), settled.Month(), settled.Day(), 0, 0, 0, 0, time.UTC)

	for offset := 0; offset <= r.opts.WindowDays; offset++ {
		candidate := settledDate.AddDate(0, 0, -offset)
		if candidate.Day() != note.Day {
			continue
		}
		items := r.ledger.Fares(candidate)
		if len(items) == 0 {
			return time.Time{}, nil, fmt.Errorf("%w for %s: no fares on %s", ErrNotFound, note, candidate.Format(time.DateOnly))
		}
		return candidate, items, nil
	}

	return time.Time{}, nil, fmt.Errorf("%w for %s: not within %d days of settlement on %s",
		ErrNotFound, note, r.opts.WindowDays, settledDate.Format(time.DateOnly))
}
