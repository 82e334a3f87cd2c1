package lifecycle

import (
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("request not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("request cannot be started in its current status")
	ErrMissingFiles    = errors.New("job file and at least one applicant file are required")
	ErrValidation      = errors.New("validation failed")
	ErrPaymentRequired = errors.New("payment required")
	ErrBadSignature    = errors.New("invalid signature")
	ErrTriggerFailure  = errors.New("workflow could not be started")
)

// PaymentRequiredError carries the billing decision back to the caller.
type PaymentRequiredError struct {
	Reason          string
	RequiresPayment bool
}

func (e *PaymentRequiredError) Error() string {
	if e.Reason == "" {
		return ErrPaymentRequired.Error()
	}
	return ErrPaymentRequired.Error() + ": " + e.Reason
}

func (e *PaymentRequiredError) Is(target error) bool {
	return target == ErrPaymentRequired
}
