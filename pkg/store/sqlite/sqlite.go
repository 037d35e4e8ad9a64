// Package sqlite stores ledgers and interaction records in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/store"
)

const createLedgers = `
CREATE TABLE IF NOT EXISTS ledgers (
	subject_id TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	plan TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	billed_usd REAL NOT NULL DEFAULT 0,
	period_start INTEGER NOT NULL,
	data TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

const createInteractions = `
CREATE TABLE IF NOT EXISTS interactions (
	id TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	intent TEXT NOT NULL,
	tier TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT 'call',
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	billed_usd REAL NOT NULL,
	duration_ns INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_interactions_subject_time ON interactions(subject_id, created_at);
`

// Store implements store.Store on SQLite.
type Store struct {
	db        *sql.DB
	logger    *zap.Logger
	retention time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithRetention deletes interaction records older than d once an hour.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New opens the database at dbPath and runs auto-migration.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	// SQLite allows one writer; a single connection keeps CAS updates serial.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createLedgers); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledgers table: %w", err)
	}
	if _, err := db.Exec(createInteractions); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate interactions table: %w", err)
	}

	s := &Store{db: db, logger: zap.NewNop(), done: make(chan struct{})}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("sqlite")

	if s.retention > 0 {
		s.wg.Add(1)
		go s.retentionLoop()
	}
	return s, nil
}

// LoadLedger returns the stored ledger or store.ErrNotFound.
func (s *Store) LoadLedger(ctx context.Context, subjectID string) (*ledger.Ledger, error) {
	var version int64
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT version, data FROM ledgers WHERE subject_id = ?`, subjectID,
	).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	var l ledger.Ledger
	if err := json.Unmarshal([]byte(data), &l); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", subjectID, err)
	}
	l.Version = version
	return &l, nil
}

// SaveLedger inserts or updates the ledger when versions match.
func (s *Store) SaveLedger(ctx context.Context, subjectID string, l *ledger.Ledger) error {
	next := *l
	next.Version = l.Version + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	var res sql.Result
	if l.Version == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO ledgers (subject_id, version, plan, tokens_used, billed_usd, period_start, data, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(subject_id) DO NOTHING`,
			subjectID, next.Version, string(l.Plan), l.TokensUsed, l.BilledUSD,
			l.PeriodStart.UnixNano(), string(data), time.Now().UTC().UnixNano(),
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE ledgers SET version = ?, plan = ?, tokens_used = ?, billed_usd = ?, period_start = ?, data = ?, updated_at = ?
			 WHERE subject_id = ? AND version = ?`,
			next.Version, string(l.Plan), l.TokensUsed, l.BilledUSD,
			l.PeriodStart.UnixNano(), string(data), time.Now().UTC().UnixNano(),
			subjectID, l.Version,
		)
	}
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	if n == 0 {
		return store.ErrConflict
	}
	l.Version = next.Version
	return nil
}

// AppendInteraction stores one interaction record.
func (s *Store) AppendInteraction(ctx context.Context, rec models.InteractionRecord) error {
	source := rec.Source
	if source == "" {
		source = models.SourceCall
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO interactions
		 (id, subject_id, created_at, intent, tier, source, input_tokens, output_tokens, billed_usd, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SubjectID, rec.Timestamp.UTC().UnixNano(), string(rec.Intent), string(rec.Tier),
		string(source), rec.InputTokens, rec.OutputTokens, rec.BilledUSD, int64(rec.Duration),
	)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

const selectInteractions = `SELECT id, subject_id, created_at, intent, tier, source,
	input_tokens, output_tokens, billed_usd, duration_ns FROM interactions`

// ListRecentInteractions returns up to limit records, newest first.
func (s *Store) ListRecentInteractions(ctx context.Context, subjectID string, limit int) ([]models.InteractionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		selectInteractions+` WHERE subject_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		subjectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// ListInteractionsSince returns records at or after since, oldest first.
func (s *Store) ListInteractionsSince(ctx context.Context, subjectID string, since time.Time) ([]models.InteractionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		selectInteractions+` WHERE subject_id = ? AND created_at >= ? ORDER BY created_at ASC, id ASC`,
		subjectID, since.UTC().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

func scanInteractions(rows *sql.Rows) ([]models.InteractionRecord, error) {
	var out []models.InteractionRecord
	for rows.Next() {
		var r models.InteractionRecord
		var createdAt, durationNs int64
		var intent, tier, source string
		if err := rows.Scan(&r.ID, &r.SubjectID, &createdAt, &intent, &tier, &source,
			&r.InputTokens, &r.OutputTokens, &r.BilledUSD, &durationNs); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		r.Timestamp = time.Unix(0, createdAt).UTC()
		r.Intent = models.Intent(intent)
		r.Tier = models.ExecutionTier(tier)
		r.Source = models.Source(source)
		r.Duration = time.Duration(durationNs)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Cleanup deletes interaction records older than the retention window.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-s.retention)
	res, err := s.db.ExecContext(ctx, `DELETE FROM interactions WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("cleanup interactions: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) retentionLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			n, err := s.Cleanup(context.Background())
			if err != nil {
				s.logger.Warn("interaction retention failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("pruned interactions", zap.Int64("deleted", n))
			}
		}
	}
}

// Close stops the retention loop and closes the database.
func (s *Store) Close() error {
	close(s.done)
	s.wg.Wait()
	return s.db.Close()
}
