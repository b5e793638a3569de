package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/zaypaihtet/queue-system/internal/models"
	"github.com/zaypaihtet/queue-system/internal/queue"
	"github.com/zaypaihtet/queue-system/internal/store"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Fixed-width UTC layout so lexicographic order matches time order.
const timeLayout = "2006-01-02 15:04:05.000000000"

const customerColumns = `id, queue_number, customer_name, phone, party_size, queue_type, status, estimated_wait, confidence, ai_powered, ai_factors, created_at, updated_at`

type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at path, enabling WAL mode and a
// busy timeout. All access goes through a single connection; the store
// is the only writer and restaurant-counter scale needs nothing more.
func Open(ctx context.Context, path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}
	dsn := trimmed
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn = fmt.Sprintf("%s%s_txlock=immediate&_pragma=busy_timeout=10000&_pragma=journal_mode=WAL&_pragma=foreign_keys=ON", dsn, sep)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Migrate applies the sqlite schema files in lexicographical order.
func (s *Store) Migrate(ctx context.Context, filesystem fs.FS) error {
	entries, err := fs.ReadDir(filesystem, "sqlite")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		sqlBytes, err := fs.ReadFile(filesystem, "sqlite/"+entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if len(sqlBytes) == 0 {
			continue
		}
		if _, err := s.db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("execute migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *Store) CreateCustomer(ctx context.Context, input store.CreateCustomerInput) (models.Customer, error) {
	var created models.Customer
	err := store.WithRetry(ctx, isBusy, func() error {
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Customer{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prefix := queue.Prefix(input.ServiceType)
	rows, err := tx.QueryContext(ctx, `SELECT queue_number FROM customers WHERE queue_number LIKE ?`, prefix+"%")
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
	row := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers WHERE status = ? AND queue_type = ?`, models.StatusWaiting, input.ServiceType)
	if err = row.Scan(&ahead); err != nil {
		return models.Customer{}, err
	}
	estimate := queue.QuoteNewCustomer(input.ServiceType, ahead, input.PartySize)

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	createdRaw := createdAt.UTC().Format(timeLayout)

	factors, err := factorsJSON(input.AIFactors)
	if err != nil {
		return models.Customer{}, err
	}

	customerID := uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO customers (
			id, queue_number, customer_name, phone, party_size, queue_type,
			status, estimated_wait, confidence, ai_powered, ai_factors, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, customerID, queueNumber, input.Name, input.Phone, input.PartySize, input.ServiceType,
		models.StatusWaiting, estimate, nullInt(input.Confidence), input.AIPowered, factors, createdRaw, createdRaw); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			err = store.ErrQueueNumberConflict
		}
		return models.Customer{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Customer{}, err
	}

	customer := models.Customer{
		ID:            customerID,
		QueueNumber:   queueNumber,
		Name:          input.Name,
		Phone:         input.Phone,
		PartySize:     input.PartySize,
		ServiceType:   input.ServiceType,
		Status:        models.StatusWaiting,
		EstimatedWait: estimate,
		Confidence:    input.Confidence,
		AIPowered:     input.AIPowered,
		AIFactors:     input.AIFactors,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	return customer, nil
}

func (s *Store) GetCustomer(ctx context.Context, customerID string) (models.Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, customerID)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Customer{}, store.ErrCustomerNotFound
		}
		return models.Customer{}, err
	}
	return customer, nil
}

func (s *Store) GetCustomerByQueueNumber(ctx context.Context, queueNumber string) (models.Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE queue_number = ?`, queueNumber)
	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	return s.list(ctx, `SELECT `+customerColumns+` FROM customers WHERE status = ? ORDER BY created_at ASC`, status)
}

func (s *Store) ListByServiceType(ctx context.Context, serviceType string) ([]models.Customer, error) {
	return s.list(ctx, `SELECT `+customerColumns+` FROM customers WHERE queue_type = ? ORDER BY created_at ASC`, serviceType)
}

func (s *Store) SearchCustomers(ctx context.Context, term string) ([]models.Customer, error) {
	pattern := store.LikePattern(term)
	return s.list(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE customer_name LIKE ? ESCAPE '\' OR phone LIKE ? ESCAPE '\'
		ORDER BY created_at ASC
	`, pattern, pattern)
}

func (s *Store) list(ctx context.Context, query string, args ...interface{}) ([]models.Customer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
	return store.WithRetry(ctx, isBusy, func() error {
		result, err := s.db.ExecContext(ctx, `
			UPDATE customers
			SET status = ?, updated_at = ?
			WHERE id = ?
		`, status, time.Now().UTC().Format(timeLayout), customerID)
		if err != nil {
			return err
		}
		return requireRow(result)
	})
}

func (s *Store) UpdateWaitFields(ctx context.Context, customerID string, input store.WaitFieldsInput) error {
	factors, err := factorsJSON(input.AIFactors)
	if err != nil {
		return err
	}
	return store.WithRetry(ctx, isBusy, func() error {
		result, err := s.db.ExecContext(ctx, `
			UPDATE customers
			SET estimated_wait = ?, confidence = ?, ai_powered = ?, ai_factors = ?, updated_at = ?
			WHERE id = ?
		`, input.EstimatedWait, nullInt(input.Confidence), input.AIPowered, factors, time.Now().UTC().Format(timeLayout), customerID)
		if err != nil {
			return err
		}
		return requireRow(result)
	})
}

func (s *Store) DeleteCustomer(ctx context.Context, customerID string) error {
	return store.WithRetry(ctx, isBusy, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, customerID)
		if err != nil {
			return err
		}
		return requireRow(result)
	})
}

// RecalculateEstimates runs one full wait-time pass over every Waiting
// customer in a single transaction. Returns how many rows changed.
func (s *Store) RecalculateEstimates(ctx context.Context) (int, error) {
	updated := 0
	err := store.WithRetry(ctx, isBusy, func() error {
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, queue_type, estimated_wait
		FROM customers
		WHERE status = ?
		ORDER BY created_at ASC
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
	now := time.Now().UTC().Format(timeLayout)
	for _, customer := range waiting {
		estimate := estimates[customer.ID]
		if estimate == customer.EstimatedWait {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE customers
			SET estimated_wait = ?, updated_at = ?
			WHERE id = ?
		`, estimate, now, customer.ID); err != nil {
			return 0, err
		}
		updated++
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}

func (s *Store) UpsertDailySnapshot(ctx context.Context, snapshot models.DailySnapshot) error {
	hourly, err := json.Marshal(snapshot.HourlyData)
	if err != nil {
		return err
	}
	return store.WithRetry(ctx, isBusy, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO daily_analytics (date, total_customers, avg_wait_time, peak_hour, efficiency_score, hourly_data, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (date) DO UPDATE SET
				total_customers = excluded.total_customers,
				avg_wait_time = excluded.avg_wait_time,
				peak_hour = excluded.peak_hour,
				efficiency_score = excluded.efficiency_score,
				hourly_data = excluded.hourly_data
		`, snapshot.Date, snapshot.TotalCustomers, snapshot.AvgWaitTime, snapshot.PeakHour,
			snapshot.EfficiencyScore, string(hourly), time.Now().UTC().Format(timeLayout))
		return err
	})
}

func (s *Store) GetDailySnapshot(ctx context.Context, date string) (models.DailySnapshot, bool, error) {
	var snapshot models.DailySnapshot
	var peakHour sql.NullString
	var hourly sql.NullString
	var createdRaw string
	row := s.db.QueryRowContext(ctx, `
		SELECT date, total_customers, avg_wait_time, peak_hour, efficiency_score, hourly_data, created_at
		FROM daily_analytics
		WHERE date = ?
	`, date)
	if err := row.Scan(&snapshot.Date, &snapshot.TotalCustomers, &snapshot.AvgWaitTime, &peakHour, &snapshot.EfficiencyScore, &hourly, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DailySnapshot{}, false, nil
		}
		return models.DailySnapshot{}, false, err
	}
	if peakHour.Valid {
		snapshot.PeakHour = peakHour.String
	}
	if hourly.Valid && hourly.String != "" {
		if err := json.Unmarshal([]byte(hourly.String), &snapshot.HourlyData); err != nil {
			return models.DailySnapshot{}, false, err
		}
	}
	if parsed, err := time.Parse(timeLayout, createdRaw); err == nil {
		snapshot.CreatedAt = parsed
	}
	return snapshot, true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row rowScanner) (models.Customer, error) {
	var customer models.Customer
	var confidence sql.NullInt64
	var factors sql.NullString
	var createdRaw, updatedRaw string
	if err := row.Scan(
		&customer.ID, &customer.QueueNumber, &customer.Name, &customer.Phone,
		&customer.PartySize, &customer.ServiceType, &customer.Status, &customer.EstimatedWait,
		&confidence, &customer.AIPowered, &factors, &createdRaw, &updatedRaw,
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
	createdAt, err := time.Parse(timeLayout, createdRaw)
	if err != nil {
		return models.Customer{}, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := time.Parse(timeLayout, updatedRaw)
	if err != nil {
		return models.Customer{}, fmt.Errorf("parse updated_at: %w", err)
	}
	customer.CreatedAt = createdAt.UTC()
	customer.UpdatedAt = updatedAt.UTC()
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

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrCustomerNotFound
	}
	return nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "database is locked") || strings.Contains(message, "SQLITE_BUSY")
}
