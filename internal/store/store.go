// Package store owns all persisted collections. Every mutation is
// atomic from the caller's point of view: the file backend serializes
// writers through one mutex, the sqlite backend uses transactions.
package store

import (
	"context"
	"errors"
	"time"

	"integen/api/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type Store interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	UpdateUserPlan(ctx context.Context, id string, plan models.Plan) error

	AppendPayment(ctx context.Context, payment models.PaymentRecord) error
	ListPayments(ctx context.Context) ([]models.PaymentRecord, error)

	AppendMessage(ctx context.Context, message models.MessageRecord) error
	ListMessages(ctx context.Context) ([]models.MessageRecord, error)

	GetSettings(ctx context.Context) (models.Settings, error)
	// PutSettings merges values into the stored settings and returns
	// the merged result.
	PutSettings(ctx context.Context, values models.Settings) (models.Settings, error)

	// EventProcessed reports whether a webhook event id is already in
	// the idempotency ledger.
	EventProcessed(ctx context.Context, eventID string) (bool, error)
	// MarkEventProcessed records a webhook event id in the idempotency
	// ledger. It returns true the first time an id is seen and false on
	// every replay.
	MarkEventProcessed(ctx context.Context, eventID string) (bool, error)
	PruneEvents(ctx context.Context, before time.Time) (int, error)

	Close() error
}
