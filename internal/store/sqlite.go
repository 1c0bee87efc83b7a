package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"integen/api/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash BLOB NOT NULL,
	plan          TEXT NOT NULL DEFAULT 'free',
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
	id                  TEXT PRIMARY KEY,
	provider_session_id TEXT NOT NULL,
	customer_ref        TEXT NOT NULL DEFAULT '',
	plan                TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	created_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	prompt     TEXT NOT NULL,
	response   TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS webhook_events (
	id           TEXT PRIMARY KEY,
	processed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLStore is the embedded transactional backend, for deployments that
// outgrow the single-document file.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// OpenSQLite opens (or creates) the database at dsn and applies the
// schema. dsn may be a plain file path.
func OpenSQLite(dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single writer connection sidesteps SQLITE_BUSY under
	// concurrent handlers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	s := &SQLStore{db: db}
	if err := s.seedSettings(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) seedSettings() error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('language', ?)`,
		`"en"`,
	)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

func (s *SQLStore) CreateUser(ctx context.Context, user models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, user.Email).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrEmailTaken
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, plan, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, string(user.Plan), user.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) scanUser(row *sql.Row) (models.User, error) {
	var (
		user      models.User
		plan      string
		createdAt string
	)
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &plan, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	user.Plan = models.Plan(plan)
	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return user, nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, plan, created_at FROM users WHERE email = ?`, email)
	return s.scanUser(row)
}

func (s *SQLStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, plan, created_at FROM users WHERE id = ?`, id)
	return s.scanUser(row)
}

func (s *SQLStore) UpdateUserPlan(ctx context.Context, id string, plan models.Plan) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET plan = ? WHERE id = ?`, string(plan), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLStore) AppendPayment(ctx context.Context, payment models.PaymentRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (id, provider_session_id, customer_ref, plan, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.ProviderSessionID, payment.CustomerRef, payment.Plan,
		string(payment.Status), payment.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLStore) ListPayments(ctx context.Context) ([]models.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider_session_id, customer_ref, plan, status, created_at
		 FROM payments ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []models.PaymentRecord{}
	for rows.Next() {
		var (
			p         models.PaymentRecord
			status    string
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.ProviderSessionID, &p.CustomerRef, &p.Plan, &status, &createdAt); err != nil {
			return nil, err
		}
		p.Status = models.PaymentStatus(status)
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *SQLStore) AppendMessage(ctx context.Context, message models.MessageRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, prompt, response, created_at) VALUES (?, ?, ?, ?)`,
		message.ID, message.Prompt, message.Response, message.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLStore) ListMessages(ctx context.Context) ([]models.MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, response, created_at FROM messages ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.MessageRecord{}
	for rows.Next() {
		var (
			m         models.MessageRecord
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.Prompt, &m.Response, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) GetSettings(ctx context.Context) (models.Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := models.Settings{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SQLStore) PutSettings(ctx context.Context, values models.Settings) (models.Settings, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode setting %q: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, string(raw),
		); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetSettings(ctx)
}

func (s *SQLStore) EventProcessed(ctx context.Context, eventID string) (bool, error) {
	var seen int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM webhook_events WHERE id = ?`, eventID).Scan(&seen)
	if err != nil {
		return false, err
	}
	return seen > 0, nil
}

func (s *SQLStore) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO webhook_events (id, processed_at) VALUES (?, ?)`,
		eventID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *SQLStore) PruneEvents(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM webhook_events WHERE processed_at < ?`,
		before.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
