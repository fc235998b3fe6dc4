package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSettledDate(t *testing.T) {
	bst := time.FixedZone("BST", 3600)
	settled := time.Date(2024, 5, 11, 0, 30, 0, 0, bst)

	tests := []struct {
		name    string
		txn     Transaction
		want    time.Time
		settled bool
	}{
		{"unsettled", Transaction{ID: "tx_1"}, time.Time{}, false},
		{"utc", Transaction{SettledAt: ptr(time.Date(2024, 5, 11, 23, 59, 0, 0, time.UTC))}, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), true},
		{"keeps own zone", Transaction{SettledAt: &settled}, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.txn.SettledDate()
			assert.Equal(t, tt.settled, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMerchantName(t *testing.T) {
	name := "Transport for London"
	assert.Equal(t, "", Transaction{}.MerchantName())
	assert.Equal(t, name, Transaction{Merchant: &name}.MerchantName())
}

func TestFormatMinor(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{650, "6.50"},
		{0, "0.00"},
		{5, "0.05"},
		{-45, "-0.45"},
		{123456, "1234.56"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMinor(tt.amount), "FormatMinor(%d)", tt.amount)
	}
}

func ptr[T any](v T) *T { return &v }
