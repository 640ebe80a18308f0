package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"wotd-bot/internal/model"
)

const boltBucket = "game_configs"

// BoltStore stores game records in a bbolt file. Every save is one
// read-write transaction.
type BoltStore struct {
	db  *bolt.DB
	key string
}

// OpenBolt opens (or creates) the bbolt file at path.
func OpenBolt(path, key string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	log.Info().Str("path", path).Msg("Opened bolt database")
	return &BoltStore{db: db, key: key}, nil
}

// Load returns the stored record or ErrConfigNotFound.
func (s *BoltStore) Load(ctx context.Context) (*model.GameConfig, error) {
	var cfg *model.GameConfig
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(boltBucket)).Get([]byte(s.key))
		if raw == nil {
			return ErrConfigNotFound
		}
		cfg = &model.GameConfig{}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("json unmarshal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cfg.Winners == nil {
		cfg.Winners = []string{}
	}
	return cfg, nil
}

// Save writes the record, replacing any previous version.
func (s *BoltStore) Save(ctx context.Context, cfg *model.GameConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte(s.key), raw)
	}); err != nil {
		return fmt.Errorf("failed to save game config: %w", err)
	}
	return nil
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("error close bolt database: %w", err)
	}
	return nil
}
