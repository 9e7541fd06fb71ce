/**
 * @description
 * This file defines the direct debit mandate model and the due-date policy.
 * A mandate is a standing authorization to debit a source account on a
 * recurring schedule in favour of a named creditor.
 *
 * @notes
 * - Amounts use shopspring/decimal so balance arithmetic is exact; financial
 *   values must never go through float64.
 * - The due-date policy is a pure function on the mandate so it can be tested
 *   without any collaborator.
 */

package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Periodicity is the recurrence interval of a mandate.
type Periodicity string

const (
	PeriodicityDaily   Periodicity = "DAILY"
	PeriodicityWeekly  Periodicity = "WEEKLY"
	PeriodicityMonthly Periodicity = "MONTHLY"
	PeriodicityYearly  Periodicity = "YEARLY"
)

// Mandate represents a recurring direct debit agreement.
// Mandates are never deleted; a cancelled mandate is deactivated and kept.
type Mandate struct {
	ID                  string          `json:"id"`
	ClientID            string          `json:"client_id"`
	SourceIBAN          string          `json:"source_iban"`
	DestinationIBAN     string          `json:"destination_iban"`
	Amount              decimal.Decimal `json:"amount"`
	CreditorName        string          `json:"creditor_name"`
	StartDate           time.Time       `json:"start_date"`
	Periodicity         Periodicity     `json:"periodicity"`
	Active              bool            `json:"active"`
	LastExecuted        time.Time       `json:"last_executed"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
}

// IsDue reports whether the mandate must be executed at the given instant.
// The next execution is due strictly after lastExecuted + period has fully
// elapsed; equality is not due. An unknown periodicity is never due rather
// than an error, so a bad record cannot trigger a charge.
func (m Mandate) IsDue(now time.Time) bool {
	switch m.Periodicity {
	case PeriodicityDaily:
		return m.LastExecuted.AddDate(0, 0, 1).Before(now)
	case PeriodicityWeekly:
		return m.LastExecuted.AddDate(0, 0, 7).Before(now)
	case PeriodicityMonthly:
		return addMonthsClamped(m.LastExecuted, 1).Before(now)
	case PeriodicityYearly:
		return addMonthsClamped(m.LastExecuted, 12).Before(now)
	default:
		return false
	}
}

// addMonthsClamped advances t by the given number of months, clamping the
// day-of-month to the target month's last day. A mandate anchored on Jan 31
// is next due on the last day of February, not rolled over into March the
// way time.AddDate normalizes the overflow.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	// Day 1 never overflows, so Date only has to normalize the month here.
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(target.Year(), target.Month(), t.Location()); day > last {
		day = last
	}
	hour, min, sec := t.Clock()
	return time.Date(target.Year(), target.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Validate checks the structural invariants of a mandate before any money
// moves: a positive amount and two distinct, well-formed IBANs.
func (m Mandate) Validate() error {
	if !m.Amount.IsPositive() {
		return fmt.Errorf("%w: amount %s must be positive", ErrInvalidMandate, m.Amount)
	}
	if !ValidIBAN(m.SourceIBAN) {
		return fmt.Errorf("%w: malformed source IBAN %q", ErrInvalidMandate, m.SourceIBAN)
	}
	if !ValidIBAN(m.DestinationIBAN) {
		return fmt.Errorf("%w: malformed destination IBAN %q", ErrInvalidMandate, m.DestinationIBAN)
	}
	if m.SourceIBAN == m.DestinationIBAN {
		return fmt.Errorf("%w: source and destination IBAN are the same account", ErrInvalidMandate)
	}
	return nil
}

// ErrInvalidMandate marks a mandate that violates its structural invariants.
var ErrInvalidMandate = errors.New("invalid mandate")

// ValidIBAN reports whether s passes the ISO 13616 structure and mod-97
// checksum test: two letters, two check digits, up to 30 alphanumerics,
// and the rearranged number must be congruent to 1 modulo 97.
func ValidIBAN(s string) bool {
	if len(s) < 15 || len(s) > 34 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case i < 2 && !(c >= 'A' && c <= 'Z'):
			return false
		case i >= 2 && i < 4 && !(c >= '0' && c <= '9'):
			return false
		case !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9'):
			return false
		}
	}
	// Move the country code and check digits to the end, then compute the
	// remainder incrementally so the number never overflows.
	rearranged := s[4:] + s[:4]
	rem := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		if c >= '0' && c <= '9' {
			rem = (rem*10 + int(c-'0')) % 97
		} else {
			v := int(c-'A') + 10
			rem = (rem*100 + v) % 97
		}
	}
	return rem == 1
}
