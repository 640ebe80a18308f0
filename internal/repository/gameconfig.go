package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wotd-bot/internal/model"
)

// Schema creates the table holding game records.
const Schema = `
	CREATE TABLE IF NOT EXISTS game_configs (
		key          VARCHAR(64) PRIMARY KEY,
		channel      TEXT,
		hour         SMALLINT NOT NULL,
		minute       SMALLINT NOT NULL,
		dictionary   TEXT NOT NULL,
		idle_seconds BIGINT NOT NULL,
		max_winners  INT NOT NULL,
		the_word     TEXT,
		winners      TEXT[] NOT NULL DEFAULT '{}',
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

// GameConfigRepository stores game records in PostgreSQL.
type GameConfigRepository struct {
	pool *pgxpool.Pool
	key  string
}

// NewGameConfigRepository creates a repository for the record named key.
func NewGameConfigRepository(pool *pgxpool.Pool, key string) *GameConfigRepository {
	return &GameConfigRepository{pool: pool, key: key}
}

// Migrate applies the schema.
func (r *GameConfigRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate game_configs: %w", err)
	}
	return nil
}

// Load returns the stored record or ErrConfigNotFound.
func (r *GameConfigRepository) Load(ctx context.Context) (*model.GameConfig, error) {
	const query = `
		SELECT channel, hour, minute, dictionary, idle_seconds, max_winners, the_word, winners, updated_at
		FROM game_configs
		WHERE key = $1
	`

	var (
		cfg         model.GameConfig
		idleSeconds int64
	)
	err := r.pool.QueryRow(ctx, query, r.key).Scan(
		&cfg.Channel,
		&cfg.Hour,
		&cfg.Minute,
		&cfg.Dictionary,
		&idleSeconds,
		&cfg.MaxWinners,
		&cfg.Word,
		&cfg.Winners,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get game config: %w", err)
	}

	cfg.IdleTime = time.Duration(idleSeconds) * time.Second
	if cfg.Winners == nil {
		cfg.Winners = []string{}
	}
	return &cfg, nil
}

// Save writes the whole record in a single upsert.
func (r *GameConfigRepository) Save(ctx context.Context, cfg *model.GameConfig) error {
	const query = `
		INSERT INTO game_configs (key, channel, hour, minute, dictionary, idle_seconds, max_winners, the_word, winners, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (key) DO UPDATE SET
			channel = EXCLUDED.channel,
			hour = EXCLUDED.hour,
			minute = EXCLUDED.minute,
			dictionary = EXCLUDED.dictionary,
			idle_seconds = EXCLUDED.idle_seconds,
			max_winners = EXCLUDED.max_winners,
			the_word = EXCLUDED.the_word,
			winners = EXCLUDED.winners,
			updated_at = EXCLUDED.updated_at
	`

	winners := cfg.Winners
	if winners == nil {
		winners = []string{}
	}
	updatedAt := cfg.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, query,
		r.key,
		cfg.Channel,
		cfg.Hour,
		cfg.Minute,
		cfg.Dictionary,
		int64(cfg.IdleTime/time.Second),
		cfg.MaxWinners,
		cfg.Word,
		winners,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save game config: %w", err)
	}
	return nil
}
