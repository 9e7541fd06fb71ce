/**
 * @description
 * MongoDB-backed mandate store. Mandates live in a single collection; the
 * batch job reads the active ones and writes back the last-executed
 * timestamp, the failure counter and the active flag.
 *
 * @notes
 * - Amounts are persisted as canonical decimal strings so no precision is
 *   lost crossing the driver. The document shape is private to this package;
 *   the rest of the service only sees domain.Mandate.
 */

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vervebank/directdebit-service/internal/domain"
)

// MandateRepository handles mandate persistence.
type MandateRepository struct {
	collection *mongo.Collection
}

// NewMandateRepository creates a mandate repository over the "mandates"
// collection of the given database.
func NewMandateRepository(client *mongo.Client, dbName string) *MandateRepository {
	return &MandateRepository{collection: client.Database(dbName).Collection("mandates")}
}

type mandateDoc struct {
	ID                  string    `bson:"_id"`
	ClientID            string    `bson:"client_id"`
	SourceIBAN          string    `bson:"source_iban"`
	DestinationIBAN     string    `bson:"destination_iban"`
	Amount              string    `bson:"amount"`
	CreditorName        string    `bson:"creditor_name"`
	StartDate           time.Time `bson:"start_date"`
	Periodicity         string    `bson:"periodicity"`
	Active              bool      `bson:"active"`
	LastExecuted        time.Time `bson:"last_executed"`
	ConsecutiveFailures int       `bson:"consecutive_failures"`
}

func toMandateDoc(m domain.Mandate) mandateDoc {
	return mandateDoc{
		ID:                  m.ID,
		ClientID:            m.ClientID,
		SourceIBAN:          m.SourceIBAN,
		DestinationIBAN:     m.DestinationIBAN,
		Amount:              m.Amount.String(),
		CreditorName:        m.CreditorName,
		StartDate:           m.StartDate,
		Periodicity:         string(m.Periodicity),
		Active:              m.Active,
		LastExecuted:        m.LastExecuted,
		ConsecutiveFailures: m.ConsecutiveFailures,
	}
}

func (d mandateDoc) toDomain() (domain.Mandate, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return domain.Mandate{}, fmt.Errorf("mandate %s has unparseable amount %q: %w", d.ID, d.Amount, err)
	}
	return domain.Mandate{
		ID:                  d.ID,
		ClientID:            d.ClientID,
		SourceIBAN:          d.SourceIBAN,
		DestinationIBAN:     d.DestinationIBAN,
		Amount:              amount,
		CreditorName:        d.CreditorName,
		StartDate:           d.StartDate,
		Periodicity:         domain.Periodicity(d.Periodicity),
		Active:              d.Active,
		LastExecuted:        d.LastExecuted,
		ConsecutiveFailures: d.ConsecutiveFailures,
	}, nil
}

// ListActive returns all active mandates in the collection's natural order.
func (r *MandateRepository) ListActive(ctx context.Context) ([]domain.Mandate, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("listing active mandates: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mandateDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding mandates: %w", err)
	}

	mandates := make([]domain.Mandate, 0, len(docs))
	for _, doc := range docs {
		m, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		mandates = append(mandates, m)
	}
	return mandates, nil
}

// Update replaces the stored mandate with the given state.
func (r *MandateRepository) Update(ctx context.Context, id string, mandate domain.Mandate) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": id}, toMandateDoc(mandate))
	if err != nil {
		return fmt.Errorf("updating mandate %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("updating mandate %s: no document matched", id)
	}
	return nil
}
