package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStateChanged means a compare-and-set update matched nothing:
	// the booking moved out of the expected state between load and
	// write.
	ErrStateChanged = errors.New("booking state changed concurrently")

	ErrPaymentNotFound = errors.New("no completed payment for booking")
)
