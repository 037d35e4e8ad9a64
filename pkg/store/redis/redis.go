// Package redis stores ledgers and interaction records in Redis so several
// processes can share one subject's budget.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/store"
)

// Config holds connection settings.
type Config struct {
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	PoolSize        int    `yaml:"pool_size"`
	KeyPrefix       string `yaml:"key_prefix"`
	MaxInteractions int    `yaml:"max_interactions"`
}

// Store implements store.Store on Redis.
type Store struct {
	client *goredis.Client
	prefix string
	maxLen int64
	logger *zap.Logger
}

// New connects to Redis and verifies the connection.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	return NewFromClient(client, cfg, logger), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *goredis.Client, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "aigov:"
	}
	maxLen := int64(cfg.MaxInteractions)
	if maxLen <= 0 {
		maxLen = int64(store.DefaultMaxInteractions)
	}
	return &Store{client: client, prefix: prefix, maxLen: maxLen, logger: logger.Named("redis")}
}

func (s *Store) ledgerKey(subjectID string) string {
	return s.prefix + "ledger:" + subjectID
}

func (s *Store) interactionsKey(subjectID string) string {
	return s.prefix + "interactions:" + subjectID
}

// LoadLedger returns the stored ledger or store.ErrNotFound.
func (s *Store) LoadLedger(ctx context.Context, subjectID string) (*ledger.Ledger, error) {
	data, err := s.client.Get(ctx, s.ledgerKey(subjectID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	var l ledger.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", subjectID, err)
	}
	return &l, nil
}

// SaveLedger writes the ledger under WATCH so a concurrent writer aborts it.
func (s *Store) SaveLedger(ctx context.Context, subjectID string, l *ledger.Ledger) error {
	key := s.ledgerKey(subjectID)
	next := *l
	next.Version = l.Version + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *goredis.Tx) error {
		stored, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored != l.Version {
			return store.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		l.Version = next.Version
		return nil
	case errors.Is(err, store.ErrConflict), errors.Is(err, goredis.TxFailedErr):
		return store.ErrConflict
	default:
		return fmt.Errorf("save ledger: %w", err)
	}
}

func storedVersion(ctx context.Context, tx *goredis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read ledger version: %w", err)
	}
	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, fmt.Errorf("decode ledger version: %w", err)
	}
	return head.Version, nil
}

// AppendInteraction pushes rec onto the subject's list and trims it.
func (s *Store) AppendInteraction(ctx context.Context, rec models.InteractionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode interaction: %w", err)
	}
	key := s.interactionsKey(rec.SubjectID)
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, s.maxLen-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// ListRecentInteractions returns up to limit records, newest first.
func (s *Store) ListRecentInteractions(ctx context.Context, subjectID string, limit int) ([]models.InteractionRecord, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	raw, err := s.client.LRange(ctx, s.interactionsKey(subjectID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	return decodeAll(raw)
}

// ListInteractionsSince returns records at or after since, oldest first.
func (s *Store) ListInteractionsSince(ctx context.Context, subjectID string, since time.Time) ([]models.InteractionRecord, error) {
	recent, err := s.ListRecentInteractions(ctx, subjectID, 0)
	if err != nil {
		return nil, err
	}
	var out []models.InteractionRecord
	for i := len(recent) - 1; i >= 0; i-- {
		if !recent[i].Timestamp.Before(since) {
			out = append(out, recent[i])
		}
	}
	return out, nil
}

func decodeAll(raw []string) ([]models.InteractionRecord, error) {
	out := make([]models.InteractionRecord, 0, len(raw))
	for _, item := range raw {
		var r models.InteractionRecord
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode interaction: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Health pings the server.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
