// Package receipt turns matched fares into bank transaction receipts.
package receipt

import (
	"github.com/cleared-dev/farereceipts/internal/id"
	"github.com/cleared-dev/farereceipts/internal/model"
)

const (
	// DefaultCurrency is the only currency fares are charged in.
	DefaultCurrency = "GBP"
	// DefaultTax is the fixed tax rate carried on every item. It is passed
	// through unchanged and never used in a calculation.
	DefaultTax = 20
)

// Builder creates receipts. It holds no state between calls.
type Builder struct {
	currency string
	tax      int
	newID    func() string
}

// Option customises a Builder.
type Option func(*Builder)

// WithCurrency sets the currency written on receipts and items.
func WithCurrency(currency string) Option {
	return func(b *Builder) { b.currency = currency }
}

// WithTax sets the tax value written on every item.
func WithTax(tax int) Option {
	return func(b *Builder) { b.tax = tax }
}

// WithIDGenerator replaces the external id generator.
func WithIDGenerator(newID func() string) Option {
	return func(b *Builder) { b.newID = newID }
}

// NewBuilder returns a Builder writing GBP receipts with the default tax.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		currency: DefaultCurrency,
		tax:      DefaultTax,
		newID:    id.NewExternalID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build creates a receipt for txn with one item per fare. The total is the
// magnitude of the transaction amount; item prices are not reconciled
// against it.
func (b *Builder) Build(txn model.Transaction, fares []model.FareLineItem) model.Receipt {
	items := make([]model.ReceiptItem, 0, len(fares))
	for _, fare := range fares {
		items = append(items, model.ReceiptItem{
			Description: fare.Description,
			Quantity:    1,
			SubItems:    []model.ReceiptItem{},
			UnitPrice:   fare.Amount,
			Currency:    b.currency,
			Tax:         b.tax,
		})
	}

	return model.Receipt{
		ExternalID:    b.newID(),
		TransactionID: txn.ID,
		Total:         abs(txn.Amount),
		Currency:      b.currency,
		Payments:      []model.Payment{},
		Taxes:         []model.Tax{},
		Items:         items,
	}
}

// ItemsTotal sums the item prices of r.
func ItemsTotal(r model.Receipt) int64 {
	var total int64
	for _, item := range r.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
