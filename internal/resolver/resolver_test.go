package resolver

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/farereceipts/internal/fares"
	"github.com/cleared-dev/farereceipts/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func ledgerWith(dates ...time.Time) *fares.Ledger {
	l := fares.NewLedger()
	for _, d := range dates {
		l.Add(d, model.FareLineItem{Description: "fare " + d.Format(time.DateOnly), Amount: 280})
	}
	return l
}

func note(day int, month time.Month) TravelNote {
	return TravelNote{Weekday: time.Monday, Day: day, Month: month}
}

func TestResolveDate_Offsets(t *testing.T) {
	tests := []struct {
		name    string
		settled time.Time
		day     int
		want    time.Time
	}{
		{"same day", date(2024, 5, 10), 10, date(2024, 5, 10)},
		{"one day lag", date(2024, 5, 11), 10, date(2024, 5, 10)},
		{"two day lag", date(2024, 5, 12), 10, date(2024, 5, 10)},
		{"across month", date(2024, 6, 1), 31, date(2024, 5, 31)},
		{"across year", date(2025, 1, 2), 31, date(2024, 12, 31)},
		{"leap day", date(2024, 3, 1), 29, date(2024, 2, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(ledgerWith(tt.want), DefaultOptions())
			got, items, err := r.ResolveDate(tt.settled, note(tt.day, tt.want.Month()))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, items, 1)
		})
	}
}

func TestResolveDate_OutsideWindow(t *testing.T) {
	r := New(ledgerWith(date(2024, 5, 9)), DefaultOptions())
	_, _, err := r.ResolveDate(date(2024, 5, 12), note(9, time.May))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResolveDate_MatchWithoutBucket(t *testing.T) {
	// Settled on the 10th, travel on the 9th: offset 1 matches, but the ledger
	// only has the 8th.
	r := New(ledgerWith(date(2023, 3, 8)), DefaultOptions())
	_, _, err := r.ResolveDate(date(2023, 3, 10), note(9, time.March))
	require.ErrorIs(t, err, ErrNotFound)

	// With a bucket on the 9th that date is returned.
	r = New(ledgerWith(date(2023, 3, 8), date(2023, 3, 9)), DefaultOptions())
	got, _, err := r.ResolveDate(date(2023, 3, 10), note(9, time.March))
	require.NoError(t, err)
	assert.Equal(t, date(2023, 3, 9), got)
}

func TestResolveDate_SmallestOffsetWins(t *testing.T) {
	// With a window wide enough for the day of month to repeat, both the 31st
	// of May (offset 0) and the 31st of March (offset 61) carry day 31.
	opts := Options{WindowDays: 70, NotePrefixLength: DefaultNotePrefixLength}

	r := New(ledgerWith(date(2024, 5, 31), date(2024, 3, 31)), opts)
	got, _, err := r.ResolveDate(date(2024, 5, 31), note(31, time.May))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 5, 31), got)

	// The first match stops the search even when it has no fares.
	r = New(ledgerWith(date(2024, 3, 31)), opts)
	_, _, err = r.ResolveDate(date(2024, 5, 31), note(31, time.March))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveDate_MonthNotCompared(t *testing.T) {
	// The note says April but the day of month lines up with the 10th of May.
	r := New(ledgerWith(date(2024, 5, 10)), DefaultOptions())
	got, _, err := r.ResolveDate(date(2024, 5, 11), note(10, time.April))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 5, 10), got)
}

func TestResolveDate_IgnoresSettlementTime(t *testing.T) {
	r := New(ledgerWith(date(2024, 5, 10)), DefaultOptions())
	got, _, err := r.ResolveDate(time.Date(2024, 5, 11, 23, 59, 59, 0, time.UTC), note(10, time.May))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 5, 10), got)
}

func TestResolve(t *testing.T) {
	merchant := "Transport for London"
	settled := time.Date(2024, 5, 11, 6, 12, 0, 0, time.UTC)
	txn := model.Transaction{
		ID:        "tx_1",
		Amount:    -280,
		SettledAt: &settled,
		Note:      "Travel charge for Friday, 10 May",
		Merchant:  &merchant,
	}

	r := New(ledgerWith(date(2024, 5, 10)), DefaultOptions())
	got, err := r.Resolve(txn)
	require.NoError(t, err)
	assert.Equal(t, "tx_1", got.Transaction.ID)
	assert.Equal(t, date(2024, 5, 10), got.TravelDate)
	assert.Equal(t, time.May, got.NotedMonth)
	require.Len(t, got.Fares, 1)
	assert.Equal(t, int64(280), got.Fares[0].Amount)
}

func TestResolve_Errors(t *testing.T) {
	settled := date(2024, 5, 11)
	r := New(ledgerWith(date(2024, 5, 10)), DefaultOptions())

	_, err := r.Resolve(model.Transaction{ID: "tx_unsettled", Note: "Travel charge for Friday, 10 May"})
	assert.ErrorIs(t, err, ErrUnsettled)

	_, err = r.Resolve(model.Transaction{ID: "tx_note", SettledAt: &settled, Note: "Coffee"})
	var nerr *NoteFormatError
	assert.ErrorAs(t, err, &nerr)

	_, err = r.Resolve(model.Transaction{ID: "tx_missing", SettledAt: &settled, Note: "Travel charge for Monday, 6 May"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_NegativeWindow(t *testing.T) {
	r := New(ledgerWith(date(2024, 5, 10)), Options{WindowDays: -3, NotePrefixLength: DefaultNotePrefixLength})
	_, _, err := r.ResolveDate(date(2024, 5, 11), note(10, time.May))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_NegativeNotePrefix(t *testing.T) {
	settled := time.Date(2024, 5, 11, 6, 0, 0, 0, time.UTC)
	r := New(ledgerWith(date(2024, 5, 10)), Options{WindowDays: DefaultWindowDays, NotePrefixLength: -1})

	got, err := r.Resolve(model.Transaction{ID: "tx_1", SettledAt: &settled, Note: "Friday, 10 May"})
	require.NoError(t, err)
	assert.Equal(t, date(2024, 5, 10), got.TravelDate)
}
