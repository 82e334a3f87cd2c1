package request

type Status string

const (
	StatusDraft          Status = "DRAFT"
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusQueued         Status = "QUEUED"
	StatusRunning        Status = "RUNNING"
	StatusDone           Status = "DONE"
	StatusFailed         Status = "FAILED"
)

// StartableStatuses are the only states from which a workflow may be triggered.
var StartableStatuses = []Status{StatusDraft, StatusPendingPayment}

// InFlightStatuses are the states a stale sweep may expire.
var InFlightStatuses = []Status{StatusQueued, StatusRunning}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingPayment, StatusQueued, StatusRunning, StatusDone, StatusFailed:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

func (s Status) IsStartable() bool {
	return s == StatusDraft || s == StatusPendingPayment
}

func (s Status) String() string {
	return string(s)
}

// Strings converts statuses for use as SQL array arguments.
func Strings(in []Status) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentWaived  PaymentStatus = "WAIVED"
)
