package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/zaypaihtet/queue-system/internal/models"
	"github.com/zaypaihtet/queue-system/internal/queue"
	"github.com/zaypaihtet/queue-system/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const customerColumns = `id, queue_number, customer_name, phone, party_size, queue_type, status, estimated_wait, confidence, ai_powered, ai_factors, created_at, updated_at`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the postgres schema files in lexicographical order.
func (s *Store) Migrate(ctx context.Context, filesystem fs.FS) error {
	entries, err := fs.ReadDir(filesystem, "postgres")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		sqlBytes, err := fs.ReadFile(filesystem, "postgres/"+entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if len(sqlBytes) == 0 {
			continue
		}
		if err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, string(sqlBytes))
			return err
		}); err != nil {
			return fmt.Errorf("execute migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *Store) CreateCustomer(ctx context.Context, input store.CreateCustomerInput) (models.Customer, error) {
	var created models.Customer
	err := store.WithRetry(ctx, isContention, func() error {
		customer, err := s.createCustomer(ctx, input)
		if err != nil {
			return err
		}
		created = customer
		return nil
	})
	return created, err
}

func (s *Store) createCustomer(ctx context.Context, input store.CreateCustomerInput) (models.Customer, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Customer{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	prefix := queue.Prefix(input.ServiceType)

	// Serialize number issuance per prefix so concurrent creates cannot
	// read the same snapshot and race to the same number.
	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "queue_number:"+prefix); err != nil {
		return models.Customer{}, err
	}

	rows, err := tx.Query(ctx, `SELECT queue_number FROM customers WHERE queue_number LIKE $1`, prefix+"%")
	if err != nil {
		return models.Customer{}, err
	}
	var existing []string
	for rows.Next() {
		var number string
		if err = rows.Scan(&number); err != nil {
			rows.Close()
			return models.Customer{}, err
		}
		existing = append(existing, number)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return models.Customer{}, err
	}
	queueNumber := queue.NextQueueNumber(input.ServiceType, existing)

	var ahead int
	row := tx.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE status = $1 AND queue_type = $2`, models.StatusWaiting, input.ServiceType)
	if err = row.Scan(&ahead); err != nil {
		return models.Customer{}, err
	}
	estimate := queue.QuoteNewCustomer(input.ServiceType, ahead, input.PartySize)

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	factors, err := factorsJSON(input.AIFactors)
	if err != nil {
		return models.Customer{}, err
	}

	row = tx.QueryRow(ctx, `
		INSERT INTO customers (
			id, queue_number, customer_name, phone, party_size, queue_type,
			status, estimated_wait, confidence, ai_powered, ai_factors, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
		RETURNING `+customerColumns,
		uuid.NewString(), queueNumber, input.Name, input.Phone, input.PartySize, input.ServiceType,
		models.StatusWaiting, estimate, nullInt(input.Confidence), input.AIPowered, factors, createdAt)

	customer, err := scanCustomer(row)
	if err != nil {
		if isUniqueViolation(err) {
			err = store.ErrQueueNumberConflict
		}
		return models.Customer{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Customer{}, err
	}
	return customer, nil
}

func (s *Store) GetCustomer(ctx context.Context, customerID string) (models.Customer, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, customerID)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, store.ErrCustomerNotFound
		}
		return models.Customer{}, err
	}
	return customer, nil
}

func (s *Store) GetCustomerByQueueNumber(ctx context.Context, queueNumber string) (models.Customer, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE queue_number = $1`, queueNumber)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, store.ErrCustomerNotFound
		}
		return models.Customer{}, err
	}
	return customer, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return s.list(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at ASC`)
}

func (s *Store) ListByStatus(ctx context.Context, status string) ([]models.Customer, error) {
	return s.list(ctx, `SELECT `+customerColumns+` FROM customers WHERE status = $1 ORDER BY created_at ASC`, status)
}

func (s *Store) ListByServiceType(ctx context.Context, serviceType string) ([]models.Customer, error) {
	return s.list(ctx, `SELECT `+customerColumns+` FROM customers WHERE queue_type = $1 ORDER BY created_at ASC`, serviceType)
}

func (s *Store) SearchCustomers(ctx context.Context, term string) ([]models.Customer, error) {
	pattern := store.LikePattern(term)
	return s.list(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE customer_name ILIKE $1 ESCAPE '\' OR phone ILIKE $1 ESCAPE '\'
		ORDER BY created_at ASC
	`, pattern)
}

func (s *Store) list(ctx context.Context, query string, args ...interface{}) ([]models.Customer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) UpdateStatus(ctx context.Context, customerID, status string) error {
	if !store.ValidStatus(status) {
		return store.ErrInvalidStatus
	}
	return store.WithRetry(ctx, isContention, func() error {
		tag, err := s.pool.Exec(ctx, `
			UPDATE customers
			SET status = $1, updated_at = now()
			WHERE id = $2
		`, status, customerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrCustomerNotFound
		}
		return nil
	})
}

func (s *Store) UpdateWaitFields(ctx context.Context, customerID string, input store.WaitFieldsInput) error {
	factors, err := factorsJSON(input.AIFactors)
	if err != nil {
		return err
	}
	return store.WithRetry(ctx, isContention, func() error {
		tag, err := s.pool.Exec(ctx, `
			UPDATE customers
			SET estimated_wait = $1, confidence = $2, ai_powered = $3, ai_factors = $4, updated_at = now()
			WHERE id = $5
		`, input.EstimatedWait, nullInt(input.Confidence), input.AIPowered, factors, customerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrCustomerNotFound
		}
		return nil
	})
}

func (s *Store) DeleteCustomer(ctx context.Context, customerID string) error {
	return store.WithRetry(ctx, isContention, func() error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, customerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrCustomerNotFound
		}
		return nil
	})
}

// RecalculateEstimates runs one full wait-time pass over every Waiting
// customer inside a single transaction, so a failure leaves every
// estimate as it was. Returns how many rows changed.
func (s *Store) RecalculateEstimates(ctx context.Context) (int, error) {
	updated := 0
	err := store.WithRetry(ctx, isContention, func() error {
		count, err := s.recalculate(ctx)
		if err != nil {
			return err
		}
		updated = count
		return nil
	})
	return updated, err
}

func (s *Store) recalculate(ctx context.Context) (int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(ctx, `
		SELECT id, queue_type, estimated_wait
		FROM customers
		WHERE status = $1
		ORDER BY created_at ASC
		FOR UPDATE
	`, models.StatusWaiting)
	if err != nil {
		return 0, err
	}
	var waiting []models.Customer
	for rows.Next() {
		var customer models.Customer
		if err = rows.Scan(&customer.ID, &customer.ServiceType, &customer.EstimatedWait); err != nil {
			rows.Close()
			return 0, err
		}
		waiting = append(waiting, customer)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return 0, err
	}

	estimates := queue.Recalculate(waiting)

	updated := 0
	for _, customer := range waiting {
		estimate := estimates[customer.ID]
		if estimate == customer.EstimatedWait {
			continue
		}
		if _, err = tx.Exec(ctx, `
			UPDATE customers
			SET estimated_wait = $1, updated_at = now()
			WHERE id = $2
		`, estimate, customer.ID); err != nil {
			return 0, err
		}
		updated++
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return updated, nil
}

func (s *Store) UpsertDailySnapshot(ctx context.Context, snapshot models.DailySnapshot) error {
	hourly, err := json.Marshal(snapshot.HourlyData)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO daily_analytics (date, total_customers, avg_wait_time, peak_hour, efficiency_score, hourly_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (date) DO UPDATE SET
			total_customers = EXCLUDED.total_customers,
			avg_wait_time = EXCLUDED.avg_wait_time,
			peak_hour = EXCLUDED.peak_hour,
			efficiency_score = EXCLUDED.efficiency_score,
			hourly_data = EXCLUDED.hourly_data
	`, snapshot.Date, snapshot.TotalCustomers, snapshot.AvgWaitTime, snapshot.PeakHour, snapshot.EfficiencyScore, string(hourly))
	return err
}

func (s *Store) GetDailySnapshot(ctx context.Context, date string) (models.DailySnapshot, bool, error) {
	var snapshot models.DailySnapshot
	var snapshotDate time.Time
	var peakHour sql.NullString
	var hourly sql.NullString
	row := s.pool.QueryRow(ctx, `
		SELECT date, total_customers, avg_wait_time, peak_hour, efficiency_score, hourly_data, created_at
		FROM daily_analytics
		WHERE date = $1
	`, date)
	if err := row.Scan(&snapshotDate, &snapshot.TotalCustomers, &snapshot.AvgWaitTime, &peakHour, &snapshot.EfficiencyScore, &hourly, &snapshot.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DailySnapshot{}, false, nil
		}
		return models.DailySnapshot{}, false, err
	}
	snapshot.Date = snapshotDate.Format("2006-01-02")
	if peakHour.Valid {
		snapshot.PeakHour = peakHour.String
	}
	if hourly.Valid && hourly.String != "" {
		if err := json.Unmarshal([]byte(hourly.String), &snapshot.HourlyData); err != nil {
			return models.DailySnapshot{}, false, err
		}
	}
	return snapshot, true, nil
}

func scanCustomer(row pgx.Row) (models.Customer, error) {
	var customer models.Customer
	var confidence sql.NullInt64
	var factors sql.NullString
	if err := row.Scan(
		&customer.ID, &customer.QueueNumber, &customer.Name, &customer.Phone,
		&customer.PartySize, &customer.ServiceType, &customer.Status, &customer.EstimatedWait,
		&confidence, &customer.AIPowered, &factors, &customer.CreatedAt, &customer.UpdatedAt,
	); err != nil {
		return models.Customer{}, err
	}
	if confidence.Valid {
		value := int(confidence.Int64)
		customer.Confidence = &value
	}
	if factors.Valid && factors.String != "" {
		if err := json.Unmarshal([]byte(factors.String), &customer.AIFactors); err != nil {
			return models.Customer{}, err
		}
	}
	return customer, nil
}

func factorsJSON(factors []string) (interface{}, error) {
	if len(factors) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(factors)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func nullInt(value *int) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func isContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	default:
		return false
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
