package reconcile

import "time"

// Status is what happened to one transaction during a run.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
	StatusDryRun   Status = "dry_run"
)

// SkipReason says why a transaction got no receipt.
type SkipReason string

const (
	SkipNotTransit SkipReason = "not_transit"
	SkipCardCheck  SkipReason = "card_check"
	SkipUnsettled  SkipReason = "unsettled"
	SkipBadNote    SkipReason = "bad_note"
	SkipNoTravel   SkipReason = "no_travel"
	SkipUnresolved SkipReason = "unresolved"
)

// Outcome records the handling of a single transaction.
type Outcome struct {
	TransactionID string
	Amount        int64
	Status        Status
	Reason        SkipReason // set when skipped
	TravelDate    time.Time  // zero unless matched
	ExternalID    string
	Total         int64
	Items         int
	Err           error
}

// Report lists outcomes in the order the transactions were supplied.
// A run aborted on an upload failure holds the outcomes up to and including
// the failed one.
type Report struct {
	Outcomes []Outcome
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Filter returns the outcomes with the given status.
func (r *Report) Filter(status Status) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// Count returns the number of outcomes with the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Uploaded returns the external ids of the receipts accepted by the bank.
func (r *Report) Uploaded() []string {
	var ids []string
	for _, o := range r.Filter(StatusUploaded) {
		ids = append(ids, o.ExternalID)
	}
	return ids
}

// ReceiptedTotal sums the receipt totals of uploaded receipts.
func (r *Report) ReceiptedTotal() int64 {
	var total int64
	for _, o := range r.Filter(StatusUploaded) {
		total += o.Total
	}
	return total
}

// SkipCounts tallies skipped transactions by reason.
func (r *Report) SkipCounts() map[SkipReason]int {
	counts := make(map[SkipReason]int)
	for _, o := range r.Filter(StatusSkipped) {
		counts[o.Reason]++
	}
	return counts
}
