package store

import (
	"context"
	"time"

	"github.com/zaypaihtet/queue-system/internal/models"
)

type CreateCustomerInput struct {
	Name        string
	Phone       string
	PartySize   int
	ServiceType string
	Confidence  *int
	AIPowered   bool
	AIFactors   []string
	CreatedAt   time.Time
}

type WaitFieldsInput struct {
	EstimatedWait int
	Confidence    *int
	AIPowered     bool
	AIFactors     []string
}

// CustomerStore is the single source of truth for queue order and
// status. Mutating operations commit on their own; the estimate
// recalculation that must follow every mutation runs as a separate
// all-or-nothing pass via RecalculateEstimates.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (models.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (models.Customer, error)
	GetCustomerByQueueNumber(ctx context.Context, queueNumber string) (models.Customer, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	ListByStatus(ctx context.Context, status string) ([]models.Customer, error)
	ListByServiceType(ctx context.Context, serviceType string) ([]models.Customer, error)
	SearchCustomers(ctx context.Context, term string) ([]models.Customer, error)
	UpdateStatus(ctx context.Context, customerID, status string) error
	UpdateWaitFields(ctx context.Context, customerID string, input WaitFieldsInput) error
	DeleteCustomer(ctx context.Context, customerID string) error
	RecalculateEstimates(ctx context.Context) (int, error)
	UpsertDailySnapshot(ctx context.Context, snapshot models.DailySnapshot) error
	GetDailySnapshot(ctx context.Context, date string) (models.DailySnapshot, bool, error)
}
