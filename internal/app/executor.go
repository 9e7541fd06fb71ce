/**
 * @description
 * The debit executor: the per-mandate execution protocol for recurring
 * direct debits. For one mandate it resolves the source account, applies an
 * atomic conditional debit, appends the ledger movement, resolves the owning
 * client and user, and notifies the user.
 *
 * Key features:
 * - Expected business conditions (insufficient balance, broken references)
 *   come back as typed outcomes, never as panics.
 * - The balance write is a single conditional update ("debit if balance is
 *   sufficient") so two concurrent debits on the same account cannot both
 *   read the pre-debit balance and lose an update.
 * - The notification is best-effort: a delivery failure does not undo the
 *   debit or the ledger record.
 *
 * @dependencies
 * - internal/domain: mandate, movement and error models.
 * - The collaborator interfaces defined below, implemented by internal/store
 *   and pkg/rabbitmq.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vervebank/directdebit-service/internal/domain"
)

// AccountGateway exposes the account store. DebitIfSufficient must be
// atomic: it debits amount and returns the new balance only when the
// current balance covers it, otherwise it returns
// domain.ErrInsufficientBalance without changing anything.
type AccountGateway interface {
	GetByIBAN(ctx context.Context, iban string) (*domain.Account, error)
	DebitIfSufficient(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error)
}

// LedgerWriter appends movements to the append-only ledger.
type LedgerWriter interface {
	Append(ctx context.Context, movement domain.Movement) error
}

// IdentityResolver resolves a mandate's owning client and that client's user.
type IdentityResolver interface {
	GetClientByID(ctx context.Context, clientID string) (*domain.Client, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
}

// Notifier delivers an asynchronous event to a user. Delivery is
// fire-and-forget; the caller does not depend on it succeeding.
type Notifier interface {
	NotifyUser(ctx context.Context, userID string, event domain.NotificationEvent) error
}

// OutcomeKind classifies the result of executing one mandate.
type OutcomeKind int

const (
	// OutcomeExecuted: the debit happened, the movement is in the ledger.
	OutcomeExecuted OutcomeKind = iota
	// OutcomeSkippedInsufficientBalance: balance < amount, nothing changed,
	// the mandate will be retried next tick.
	OutcomeSkippedInsufficientBalance
	// OutcomeFailed: the execution broke before completing; Err says why.
	OutcomeFailed
)

// Outcome is the per-mandate result consumed by the batch job. Only an
// Executed outcome permits advancing the mandate's last-executed timestamp.
type Outcome struct {
	Kind       OutcomeKind
	Movement   *domain.Movement
	NewBalance decimal.Decimal
	Err        error
}

func executed(mv domain.Movement, balance decimal.Decimal) Outcome {
	return Outcome{Kind: OutcomeExecuted, Movement: &mv, NewBalance: balance}
}

func skipped() Outcome {
	return Outcome{Kind: OutcomeSkippedInsufficientBalance}
}

func failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// Executor runs the execution protocol for a single mandate.
type Executor struct {
	accounts AccountGateway
	ledger   LedgerWriter
	identity IdentityResolver
	notifier Notifier
	logger   *slog.Logger
}

// NewExecutor creates a debit executor wired to its collaborators.
func NewExecutor(accounts AccountGateway, ledger LedgerWriter, identity IdentityResolver, notifier Notifier, logger *slog.Logger) *Executor {
	return &Executor{
		accounts: accounts,
		ledger:   ledger,
		identity: identity,
		notifier: notifier,
		logger:   logger,
	}
}

// Execute runs one mandate at the tick's captured time. The steps are
// strictly ordered; there is no compensation across them, so a failure after
// the debit leaves the debit in place and the mandate unadvanced (it will be
// retried next tick, observable as a duplicate charge risk the batch job
// mitigates by never re-reading the clock mid-tick).
func (e *Executor) Execute(ctx context.Context, mandate domain.Mandate, now time.Time) Outcome {
	if err := mandate.Validate(); err != nil {
		return failed(err)
	}

	account, err := e.accounts.GetByIBAN(ctx, mandate.SourceIBAN)
	if err != nil {
		return failed(fmt.Errorf("resolving source account %s: %w", mandate.SourceIBAN, err))
	}
	if account == nil {
		return failed(fmt.Errorf("source account %s: %w", mandate.SourceIBAN, domain.ErrAccountNotFound))
	}

	// Pre-check so the common case logs as a skip without touching the
	// account row. The conditional debit below re-checks atomically.
	if account.Balance.LessThan(mandate.Amount) {
		return skipped()
	}

	newBalance, err := e.accounts.DebitIfSufficient(ctx, account.ID, mandate.Amount)
	if errors.Is(err, domain.ErrInsufficientBalance) {
		// A concurrent debit won the balance between the read and the
		// conditional update. Same treatment as the pre-check: retry next tick.
		return skipped()
	}
	if err != nil {
		return failed(fmt.Errorf("debiting account %s: %w", account.ID, err))
	}

	e.logger.Info("debited mandate amount",
		"mandate_id", mandate.ID,
		"creditor", mandate.CreditorName,
		"amount", mandate.Amount.String(),
		"new_balance", newBalance.String())

	movement := domain.NewDirectDebitMovement(mandate, account.ClientID, now)
	if err := e.ledger.Append(ctx, movement); err != nil {
		// The balance is already gone. The ledger gap is logged loudly so
		// reconciliation can repair it; see the status endpoint counters.
		return failed(fmt.Errorf("appending movement for mandate %s after debit: %w", mandate.ID, err))
	}

	client, err := e.identity.GetClientByID(ctx, mandate.ClientID)
	if err != nil {
		return failed(fmt.Errorf("resolving client %s: %w", mandate.ClientID, err))
	}
	if client == nil {
		return failed(fmt.Errorf("client %s: %w", mandate.ClientID, domain.ErrClientNotFound))
	}

	user, err := e.identity.GetUserByID(ctx, client.UserID)
	if err != nil {
		return failed(fmt.Errorf("resolving user %s: %w", client.UserID, err))
	}
	if user == nil {
		return failed(fmt.Errorf("user %s: %w", client.UserID, domain.ErrUserNotFound))
	}

	event := domain.NotificationEvent{
		Type:      domain.NotificationTypeExecute,
		CreatedAt: now,
		Data:      movement,
	}
	if err := e.notifier.NotifyUser(ctx, user.ID, event); err != nil {
		e.logger.Warn("direct debit notification failed",
			"mandate_id", mandate.ID, "user_id", user.ID, "error", err)
	}

	return executed(movement, newBalance)
}
