/**
 * @description
 * This file defines the movement model: the immutable ledger record of a
 * financial event. A movement embeds exactly one payload describing what
 * happened (direct debit charge, payroll credit, card payment or transfer).
 *
 * @notes
 * - Movements are append-only. There is no update path in this service; once
 *   written, a movement is only ever soft-deleted by back-office tooling.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement is one immutable ledger record. Exactly one of the payload
// pointers is non-nil.
type Movement struct {
	ID            uuid.UUID          `json:"id"`
	ClientID      string             `json:"client_id"`
	DirectDebit   *DirectDebitCharge `json:"direct_debit,omitempty"`
	PayrollCredit *PayrollCredit     `json:"payroll_credit,omitempty"`
	CardPayment   *CardPayment       `json:"card_payment,omitempty"`
	Transfer      *Transfer          `json:"transfer,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	IsDeleted     bool               `json:"is_deleted"`
}

// DirectDebitCharge records one execution of a mandate.
type DirectDebitCharge struct {
	MandateID       string          `json:"mandate_id"`
	SourceIBAN      string          `json:"source_iban"`
	DestinationIBAN string          `json:"destination_iban"`
	Amount          decimal.Decimal `json:"amount"`
	CreditorName    string          `json:"creditor_name"`
	ExecutedAt      time.Time       `json:"executed_at"`
}

// PayrollCredit records an incoming salary payment.
type PayrollCredit struct {
	SourceIBAN      string          `json:"source_iban"`
	DestinationIBAN string          `json:"destination_iban"`
	Amount          decimal.Decimal `json:"amount"`
	EmployerName    string          `json:"employer_name"`
	EmployerCIF     string          `json:"employer_cif"`
}

// CardPayment records a point-of-sale card charge.
type CardPayment struct {
	CardNumber string          `json:"card_number"`
	SourceIBAN string          `json:"source_iban"`
	Amount     decimal.Decimal `json:"amount"`
	Merchant   string          `json:"merchant"`
}

// Transfer records an account-to-account transfer.
type Transfer struct {
	SourceIBAN      string          `json:"source_iban"`
	DestinationIBAN string          `json:"destination_iban"`
	Amount          decimal.Decimal `json:"amount"`
	Concept         string          `json:"concept"`
}

// NewDirectDebitMovement builds the ledger record for one mandate execution,
// owned by the debited account's client and timestamped with the tick's
// captured time.
func NewDirectDebitMovement(m Mandate, clientID string, executedAt time.Time) Movement {
	return Movement{
		ID:       uuid.New(),
		ClientID: clientID,
		DirectDebit: &DirectDebitCharge{
			MandateID:       m.ID,
			SourceIBAN:      m.SourceIBAN,
			DestinationIBAN: m.DestinationIBAN,
			Amount:          m.Amount,
			CreditorName:    m.CreditorName,
			ExecutedAt:      executedAt,
		},
		CreatedAt: executedAt,
		UpdatedAt: executedAt,
	}
}
