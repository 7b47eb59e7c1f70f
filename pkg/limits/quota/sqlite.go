package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteAccountStore implements AccountStore on SQLite.
//
// Every Reserve runs in one IMMEDIATE transaction: it reads the account,
// rolls the period over if it has passed, applies a conditional increment
// that only succeeds when the new total fits the tier limit, and appends a
// row to the token_reservations history table. The database is opened with
// a single connection, so transactions from this process never interleave.
type SQLiteAccountStore struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	closeOnce          sync.Once

	selectStmt    *sql.Stmt
	rolloverStmt  *sql.Stmt
	incrementStmt *sql.Stmt
	historyStmt   *sql.Stmt
	insertStmt    *sql.Stmt
	pruneStmt     *sql.Stmt
	recentStmt    *sql.Stmt
}

// SQLiteAccountStoreConfig configures the SQLite account store.
type SQLiteAccountStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Reservation is one row of reservation history.
type Reservation struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"userId"`
	Cost       int64     `json:"cost"`
	Allowed    bool      `json:"allowed"`
	TokensUsed int64     `json:"tokensUsed"`
	WasReset   bool      `json:"wasReset"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewSQLiteAccountStore creates a store with default settings.
func NewSQLiteAccountStore(dbPath string) (*SQLiteAccountStore, error) {
	return NewSQLiteAccountStoreWithConfig(SQLiteAccountStoreConfig{DBPath: dbPath})
}

// NewSQLiteAccountStoreWithConfig creates a store with custom configuration.
func NewSQLiteAccountStoreWithConfig(cfg SQLiteAccountStoreConfig) (*SQLiteAccountStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_txlock=immediate",
		cfg.DBPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteAccountStore{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go s.checkpointLoop()

	return s, nil
}

func (s *SQLiteAccountStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quota_accounts (
		user_id TEXT PRIMARY KEY,
		tier TEXT NOT NULL,
		tokens_used INTEGER NOT NULL DEFAULT 0 CHECK (tokens_used >= 0),
		period_reset_at INTEGER NOT NULL,
		period_anchor_day INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS token_reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		cost INTEGER NOT NULL,
		allowed INTEGER NOT NULL,
		tokens_used INTEGER NOT NULL,
		was_reset INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reservations_created_at ON token_reservations(created_at);
	CREATE INDEX IF NOT EXISTS idx_reservations_user ON token_reservations(user_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteAccountStore) prepareStatements() error {
	statements := []struct {
		dst   **sql.Stmt
		name  string
		query string
	}{
		{&s.selectStmt, "select", `
			SELECT tier, tokens_used, period_reset_at, period_anchor_day, created_at
			FROM quota_accounts
			WHERE user_id = ?`},
		{&s.rolloverStmt, "rollover", `
			UPDATE quota_accounts
			SET tokens_used = 0, period_reset_at = ?, updated_at = ?
			WHERE user_id = ? AND period_reset_at <= ?`},
		{&s.incrementStmt, "increment", `
			UPDATE quota_accounts
			SET tokens_used = tokens_used + ?, updated_at = ?
			WHERE user_id = ? AND (? < 0 OR tokens_used + ? <= ?)
			RETURNING tokens_used`},
		{&s.historyStmt, "history", `
			INSERT INTO token_reservations (user_id, cost, allowed, tokens_used, was_reset, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`},
		{&s.insertStmt, "insert", `
			INSERT INTO quota_accounts (user_id, tier, tokens_used, period_reset_at, period_anchor_day, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO NOTHING`},
		{&s.pruneStmt, "prune", `
			DELETE FROM token_reservations
			WHERE created_at < ?`},
		{&s.recentStmt, "recent", `
			SELECT id, user_id, cost, allowed, tokens_used, was_reset, created_at
			FROM token_reservations
			WHERE user_id = ?
			ORDER BY id DESC
			LIMIT ?`},
	}

	for _, st := range statements {
		stmt, err := s.db.Prepare(st.query)
		if err != nil {
			return fmt.Errorf("failed to prepare %s statement: %w", st.name, err)
		}
		*st.dst = stmt
	}
	return nil
}

// Reserve charges cost to userID in one transaction.
func (s *SQLiteAccountStore) Reserve(ctx context.Context, userID string, cost int64, now time.Time) (Decision, error) {
	if cost <= 0 {
		return Decision{}, ErrInvalidCost
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Decision{}, fmt.Errorf("begin reservation: %w", err)
	}
	defer tx.Rollback()

	acct, err := scanAccount(userID, tx.StmtContext(ctx, s.selectStmt).QueryRowContext(ctx, userID))
	if err != nil {
		return Decision{}, err
	}

	nowMs := now.UnixMilli()
	wasReset := false
	if !now.Before(acct.PeriodResetAt) {
		next := NextPeriodReset(acct.PeriodResetAt, acct.PeriodAnchorDay, now)
		res, err := tx.StmtContext(ctx, s.rolloverStmt).ExecContext(ctx, next.UnixMilli(), nowMs, userID, nowMs)
		if err != nil {
			return Decision{}, fmt.Errorf("roll over period: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			wasReset = true
		}
		acct.TokensUsed = 0
		acct.PeriodResetAt = next
	}

	limit := acct.Tier.Limit()
	allowed := true
	err = tx.StmtContext(ctx, s.incrementStmt).
		QueryRowContext(ctx, cost, nowMs, userID, limit, cost, limit).
		Scan(&acct.TokensUsed)
	if errors.Is(err, sql.ErrNoRows) {
		allowed = false
	} else if err != nil {
		return Decision{}, fmt.Errorf("apply reservation: %w", err)
	}

	if _, err := tx.StmtContext(ctx, s.historyStmt).ExecContext(ctx,
		userID, cost, allowed, acct.TokensUsed, wasReset, nowMs); err != nil {
		return Decision{}, fmt.Errorf("record reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Decision{}, fmt.Errorf("commit reservation: %w", err)
	}

	return Decision{
		Allowed:       allowed,
		UserID:        userID,
		Tier:          acct.Tier,
		Cost:          cost,
		TokensUsed:    acct.TokensUsed,
		TokenLimit:    limit,
		Remaining:     remaining(limit, acct.TokensUsed),
		WasReset:      wasReset,
		PeriodResetAt: acct.PeriodResetAt,
	}, nil
}

// GetAccount returns the stored account.
func (s *SQLiteAccountStore) GetAccount(ctx context.Context, userID string) (*Account, error) {
	acct, err := scanAccount(userID, s.selectStmt.QueryRowContext(ctx, userID))
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// CreateAccount inserts acct.
func (s *SQLiteAccountStore) CreateAccount(ctx context.Context, acct Account) error {
	if err := prepareAccount(&acct, time.Now()); err != nil {
		return err
	}

	res, err := s.insertStmt.ExecContext(ctx,
		acct.UserID,
		string(acct.Tier),
		acct.TokensUsed,
		acct.PeriodResetAt.UnixMilli(),
		acct.PeriodAnchorDay,
		acct.CreatedAt.UnixMilli(),
		acct.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountExists
	}
	return nil
}

// PruneHistory deletes reservation history older than before and returns
// the number of rows removed.
func (s *SQLiteAccountStore) PruneHistory(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pruneStmt.ExecContext(ctx, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune reservation history: %w", err)
	}
	return res.RowsAffected()
}

// RecentReservations returns up to limit history rows for userID, newest first.
func (s *SQLiteAccountStore) RecentReservations(ctx context.Context, userID string, limit int) ([]Reservation, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.recentStmt.QueryContext(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var (
			r         Reservation
			createdMs int64
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Cost, &r.Allowed, &r.TokensUsed, &r.WasReset, &createdMs); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases any resources held by the store.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteAccountStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{
			s.selectStmt, s.rolloverStmt, s.incrementStmt, s.historyStmt,
			s.insertStmt, s.pruneStmt, s.recentStmt,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}

		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		closeErr = s.db.Close()
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteAccountStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

func scanAccount(userID string, row *sql.Row) (Account, error) {
	var (
		tier      string
		used      int64
		resetMs   int64
		anchor    int
		createdMs int64
	)
	if err := row.Scan(&tier, &used, &resetMs, &anchor, &createdMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrUserNotFound
		}
		return Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	return Account{
		UserID:          userID,
		Tier:            Tier(strings.TrimSpace(tier)),
		TokensUsed:      used,
		PeriodResetAt:   time.UnixMilli(resetMs).UTC(),
		PeriodAnchorDay: anchor,
		CreatedAt:       time.UnixMilli(createdMs).UTC(),
	}, nil
}
