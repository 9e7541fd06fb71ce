/**
 * @description
 * MongoDB-backed ledger writer. Movements are append-only: this repository
 * exposes a single insert and no update path, which is what makes the
 * ledger trustworthy as the record of what actually happened.
 */

package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vervebank/directdebit-service/internal/domain"
)

// MovementRepository appends movements to the ledger collection.
type MovementRepository struct {
	collection *mongo.Collection
}

// NewMovementRepository creates a movement repository over the "movements"
// collection of the given database.
func NewMovementRepository(client *mongo.Client, dbName string) *MovementRepository {
	return &MovementRepository{collection: client.Database(dbName).Collection("movements")}
}

type movementDoc struct {
	ID            string            `bson:"_id"`
	ClientID      string            `bson:"client_id"`
	DirectDebit   *directDebitDoc   `bson:"direct_debit,omitempty"`
	PayrollCredit *payrollCreditDoc `bson:"payroll_credit,omitempty"`
	CardPayment   *cardPaymentDoc   `bson:"card_payment,omitempty"`
	Transfer      *transferDoc      `bson:"transfer,omitempty"`
	CreatedAt     time.Time         `bson:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at"`
	IsDeleted     bool              `bson:"is_deleted"`
}

type directDebitDoc struct {
	MandateID       string    `bson:"mandate_id"`
	SourceIBAN      string    `bson:"source_iban"`
	DestinationIBAN string    `bson:"destination_iban"`
	Amount          string    `bson:"amount"`
	CreditorName    string    `bson:"creditor_name"`
	ExecutedAt      time.Time `bson:"executed_at"`
}

type payrollCreditDoc struct {
	SourceIBAN      string `bson:"source_iban"`
	DestinationIBAN string `bson:"destination_iban"`
	Amount          string `bson:"amount"`
	EmployerName    string `bson:"employer_name"`
	EmployerCIF     string `bson:"employer_cif"`
}

type cardPaymentDoc struct {
	CardNumber string `bson:"card_number"`
	SourceIBAN string `bson:"source_iban"`
	Amount     string `bson:"amount"`
	Merchant   string `bson:"merchant"`
}

type transferDoc struct {
	SourceIBAN      string `bson:"source_iban"`
	DestinationIBAN string `bson:"destination_iban"`
	Amount          string `bson:"amount"`
	Concept         string `bson:"concept"`
}

func toMovementDoc(m domain.Movement) movementDoc {
	doc := movementDoc{
		ID:        m.ID.String(),
		ClientID:  m.ClientID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		IsDeleted: m.IsDeleted,
	}
	if p := m.DirectDebit; p != nil {
		doc.DirectDebit = &directDebitDoc{
			MandateID:       p.MandateID,
			SourceIBAN:      p.SourceIBAN,
			DestinationIBAN: p.DestinationIBAN,
			Amount:          p.Amount.String(),
			CreditorName:    p.CreditorName,
			ExecutedAt:      p.ExecutedAt,
		}
	}
	if p := m.PayrollCredit; p != nil {
		doc.PayrollCredit = &payrollCreditDoc{
			SourceIBAN:      p.SourceIBAN,
			DestinationIBAN: p.DestinationIBAN,
			Amount:          p.Amount.String(),
			EmployerName:    p.EmployerName,
			EmployerCIF:     p.EmployerCIF,
		}
	}
	if p := m.CardPayment; p != nil {
		doc.CardPayment = &cardPaymentDoc{
			CardNumber: p.CardNumber,
			SourceIBAN: p.SourceIBAN,
			Amount:     p.Amount.String(),
			Merchant:   p.Merchant,
		}
	}
	if p := m.Transfer; p != nil {
		doc.Transfer = &transferDoc{
			SourceIBAN:      p.SourceIBAN,
			DestinationIBAN: p.DestinationIBAN,
			Amount:          p.Amount.String(),
			Concept:         p.Concept,
		}
	}
	return doc
}

// Append inserts one movement. There is deliberately no update counterpart.
func (r *MovementRepository) Append(ctx context.Context, movement domain.Movement) error {
	if _, err := r.collection.InsertOne(ctx, toMovementDoc(movement)); err != nil {
		return fmt.Errorf("appending movement %s: %w", movement.ID, err)
	}
	return nil
}
