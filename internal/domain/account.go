/**
 * @description
 * Read-side views of the account, client and user entities as this service
 * needs them. These entities are owned by other systems; the direct debit
 * engine only reads them and applies balance debits through the account
 * gateway.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a bank account keyed by IBAN. Balance is the only field this
// service ever writes, and only through an atomic conditional debit.
type Account struct {
	ID       string          `json:"id"`
	ClientID string          `json:"client_id"`
	IBAN     string          `json:"iban"`
	Balance  decimal.Decimal `json:"balance"`
	Active   bool            `json:"active"`
}

// Client is the owner of accounts and mandates.
type Client struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// User is the login identity behind a client, the target of notifications.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// NotificationEvent is the payload delivered to a user when something
// happened on one of their products.
type NotificationEvent struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      any       `json:"data"`
}

// Notification event types emitted by this service.
const (
	NotificationTypeExecute = "EXECUTE"
)
