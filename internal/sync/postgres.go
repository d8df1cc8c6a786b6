package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/lib/pq"
)

var (
	// ErrInvalidConnectionString rejects malformed Postgres DSNs.
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	// ErrEmbeddedCredentials rejects connection strings carrying a password;
	// credentials belong in the OS keyring, environment, or .pgpass.
	ErrEmbeddedCredentials = errors.New("connection string must not contain a password")
)

const remoteSchema = `
CREATE TABLE IF NOT EXISTS habit_data (
	user_id TEXT PRIMARY KEY,
	data JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS conversation_state (
	user_id TEXT PRIMARY KEY,
	data JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres is the RemoteStore backed by a PostgreSQL database, one row per
// user id in each table.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the remote database and ensures the schema.
func OpenPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, remoteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize remote schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) fetch(ctx context.Context, table, userID string) ([]byte, bool, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT data FROM %s WHERE user_id = $1", table), userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (p *Postgres) upsert(ctx context.Context, table, userID string, data []byte) error {
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (user_id, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, table),
		userID, data)
	return err
}

func (p *Postgres) delete(ctx context.Context, table, userID string) error {
	_, err := p.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", table), userID)
	return err
}

func (p *Postgres) FetchHabitData(ctx context.Context, userID string) ([]byte, bool, error) {
	return p.fetch(ctx, "habit_data", userID)
}

func (p *Postgres) UpsertHabitData(ctx context.Context, userID string, data []byte) error {
	return p.upsert(ctx, "habit_data", userID, data)
}

func (p *Postgres) DeleteHabitData(ctx context.Context, userID string) error {
	return p.delete(ctx, "habit_data", userID)
}

func (p *Postgres) FetchConversation(ctx context.Context, userID string) ([]byte, bool, error) {
	return p.fetch(ctx, "conversation_state", userID)
}

func (p *Postgres) UpsertConversation(ctx context.Context, userID string, data []byte) error {
	return p.upsert(ctx, "conversation_state", userID, data)
}

func (p *Postgres) DeleteConversation(ctx context.Context, userID string) error {
	return p.delete(ctx, "conversation_state", userID)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// ValidateConnString checks a connection string before use, rejecting
// embedded passwords in URL-style DSNs.
func ValidateConnString(connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		parsed, err := url.Parse(connStr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
		}
		if _, isSet := parsed.User.Password(); isSet {
			return ErrEmbeddedCredentials
		}
		return nil
	}

	// Keyword/value DSN format.
	for _, pair := range strings.Fields(connStr) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[0]), "password") {
			return ErrEmbeddedCredentials
		}
	}
	return nil
}
