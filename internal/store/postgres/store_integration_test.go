package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaypaihtet/queue-system/internal/models"
	"github.com/zaypaihtet/queue-system/internal/store"
	"github.com/zaypaihtet/queue-system/migrations"
)

func setupTestStore(t *testing.T, ctx context.Context) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := createSchema(ctx, dsn, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	pool, err := newPoolWithSchema(ctx, dsn, schema)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	st := NewStore(pool)
	if err := st.Migrate(ctx, migrations.Files); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		_ = dropSchema(context.Background(), dsn, schema)
	})
	return st
}

func createSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE SCHEMA "+schema)
	return err
}

func dropSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
	return err
}

func newPoolWithSchema(ctx context.Context, dsn, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	return pgxpool.NewWithConfig(ctx, cfg)
}

func createTestCustomer(t *testing.T, ctx context.Context, st *Store, name, serviceType string, partySize int) models.Customer {
	t.Helper()
	customer, err := st.CreateCustomer(ctx, store.CreateCustomerInput{
		Name:        name,
		Phone:       "0123456789",
		PartySize:   partySize,
		ServiceType: serviceType,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return customer
}

func TestCreateCustomerConcurrency(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)

	const creates = 12
	numbers := make(chan string, creates)
	errs := make(chan error, creates)
	var wg sync.WaitGroup
	for i := 0; i < creates; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			customer, err := st.CreateCustomer(ctx, store.CreateCustomerInput{
				Name:        fmt.Sprintf("guest-%d", i),
				Phone:       "0123456789",
				PartySize:   2,
				ServiceType: models.ServiceTable,
				CreatedAt:   time.Now().UTC(),
			})
			if err != nil {
				errs <- err
				return
			}
			numbers <- customer.QueueNumber
		}(i)
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent create: %v", err)
	}

	var issued []string
	for number := range numbers {
		issued = append(issued, number)
	}
	sort.Strings(issued)
	for i, number := range issued {
		want := fmt.Sprintf("T%03d", i+1)
		if number != want {
			t.Fatalf("sorted number %d = %q, want %q", i, number, want)
		}
	}
}

func TestRecalculatePartitionsByServiceType(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)

	first := createTestCustomer(t, ctx, st, "Alice", models.ServiceTable, 2)
	second := createTestCustomer(t, ctx, st, "Bob", models.ServiceTable, 3)
	takeaway := createTestCustomer(t, ctx, st, "Cara", models.ServiceTakeaway, 1)

	if err := st.UpdateStatus(ctx, first.ID, models.StatusSeated); err != nil {
		t.Fatalf("seat: %v", err)
	}
	if _, err := st.RecalculateEstimates(ctx); err != nil {
		t.Fatalf("recalculate: %v", err)
	}

	got, err := st.GetCustomer(ctx, second.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EstimatedWait != 15 {
		t.Fatalf("table estimate = %d, want 15", got.EstimatedWait)
	}

	got, err = st.GetCustomer(ctx, takeaway.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// The takeaway queue is unaffected by table-side seating.
	if got.EstimatedWait != 10 {
		t.Fatalf("takeaway estimate = %d, want 10", got.EstimatedWait)
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)

	customer := createTestCustomer(t, ctx, st, "Alice Tan", models.ServiceTable, 2)

	byNumber, err := st.GetCustomerByQueueNumber(ctx, customer.QueueNumber)
	if err != nil {
		t.Fatalf("get by number: %v", err)
	}
	if byNumber.ID != customer.ID {
		t.Fatalf("lookup returned %q, want %q", byNumber.ID, customer.ID)
	}

	results, err := st.SearchCustomers(ctx, "alice")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("search results = %d, want 1", len(results))
	}

	if err := st.UpdateStatus(ctx, customer.ID, models.StatusDone); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := st.DeleteCustomer(ctx, customer.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetCustomer(ctx, customer.ID); !errors.Is(err, store.ErrCustomerNotFound) {
		t.Fatalf("get after delete = %v, want ErrCustomerNotFound", err)
	}
}

func TestDailySnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)

	snapshot := models.DailySnapshot{
		Date:            "2025-06-01",
		TotalCustomers:  9,
		AvgWaitTime:     17.5,
		PeakHour:        "1:00 PM",
		EfficiencyScore: 75,
		HourlyData:      make([]int, 24),
	}
	if err := st.UpsertDailySnapshot(ctx, snapshot); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	snapshot.TotalCustomers = 14
	if err := st.UpsertDailySnapshot(ctx, snapshot); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	got, found, err := st.GetDailySnapshot(ctx, "2025-06-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found || got.TotalCustomers != 14 || got.PeakHour != "1:00 PM" {
		t.Fatalf("snapshot = %+v found=%v", got, found)
	}
}
