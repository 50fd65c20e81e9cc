package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN string `envconfig:"DSN" split_words:"true" required:"true"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:user_sessions,alias:s"`

	UserID      string         `bun:"user_id,pk"`
	Data        map[string]any `bun:"data,type:jsonb"`
	LastUpdated time.Time      `bun:"last_updated,notnull"`
}

// PostgresStore keeps one jsonb row per user in a user_sessions table.
type PostgresStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())

	store := &PostgresStore{db: db, now: time.Now}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := s.db.NewCreateTable().
		Model((*sessionRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create user_sessions table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (map[string]any, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	row := new(sessionRow)
	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if row.Data == nil {
		return map[string]any{}, nil
	}
	return row.Data, nil
}

func (s *PostgresStore) Update(ctx context.Context, userID string, partial map[string]any) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	data, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	data = merge(data, partial, now)

	row := &sessionRow{UserID: userID, Data: data, LastUpdated: now}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("last_updated = EXCLUDED.last_updated").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	_, err := s.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func (s *PostgresStore) ListAll(ctx context.Context) (map[string]map[string]any, error) {
	var rows []sessionRow
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions := make(map[string]map[string]any, len(rows))
	for _, row := range rows {
		sessions[row.UserID] = row.Data
	}
	return sessions, nil
}

func (s *PostgresStore) PurgeOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	res, err := s.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("last_updated < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
