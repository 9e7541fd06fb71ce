/**
 * @description
 * Sentinel errors shared across the service. Business conditions that are
 * expected during normal operation (an account short on funds, a mandate
 * pointing at a vanished client) are modelled as values so callers can
 * branch with errors.Is instead of string matching.
 */

package domain

import "errors"

var (
	// ErrAccountNotFound means the mandate's source IBAN resolves to no account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrClientNotFound means the mandate's owning client no longer exists.
	ErrClientNotFound = errors.New("client not found")

	// ErrUserNotFound means the client has no user to notify.
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientBalance means the debit would take the balance below zero.
	// This is an expected business condition, not a failure.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// IsNotFound reports whether err is one of the not-found sentinels. Such
// failures are fatal for a single tick but retried on the next one, and they
// count toward automatic mandate deactivation.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
