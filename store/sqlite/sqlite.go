/*
Package sqlite provides a SQLite-backed implementation of household storage.

PURPOSE:
  Persists households, members, bank transactions, the split ledger,
  settlements, categorization rules, policy configs, and webhook events.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

DELETE-AND-REINSERT SPLITS:
  The split engine is deterministic, so recomputation replaces rather
  than amends. ReplaceSplits deletes a transaction's ledger rows and
  inserts the fresh computation inside one SQL transaction: readers
  never observe a half-replaced split.

KEY TABLES:
  households:     Household records
  members:        Member profiles (income, weight)
  transactions:   Bank feed transactions, unique per (household, external_id)
  split_ledger:   Who owes whom per transaction; amounts stored as TEXT
                  decimal strings to avoid float round-tripping
  settlements:    Out-of-band repayments
  rules:          Vendor categorization rules
  policies:       Per-household policy JSON, versioned
  webhook_events: Raw webhook payloads for audit/debugging

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/evenly.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - household/types.go: the domain records persisted here
  - api/handlers.go: the HTTP layer on top of this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/evenly/split-engine/household"
	"github.com/evenly/split-engine/rules"
	"github.com/evenly/split-engine/split"
)

// Store implements household persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS households (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		monthly_income REAL NOT NULL DEFAULT 0,
		weight REAL NOT NULL DEFAULT 0,
		joined_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_members_household
		ON members(household_id);

	-- Bank feed transactions. The feed may redeliver, so the external ID
	-- is unique per household and ingestion upserts.
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL,
		external_id TEXT NOT NULL,
		payer_id TEXT NOT NULL,
		amount REAL NOT NULL,
		vendor TEXT,
		category TEXT,
		date TEXT NOT NULL,
		pending BOOLEAN NOT NULL DEFAULT FALSE,
		transfer BOOLEAN NOT NULL DEFAULT FALSE,
		personal BOOLEAN NOT NULL DEFAULT FALSE,
		split_done BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(household_id, external_id)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_household_date
		ON transactions(household_id, date DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_unsplit
		ON transactions(household_id, split_done) WHERE split_done = FALSE;

	-- Split ledger: who owes whom per transaction. Amounts are stored as
	-- TEXT decimal strings so they round-trip without float noise.
	CREATE TABLE IF NOT EXISTS split_ledger (
		id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL,
		transaction_id TEXT NOT NULL,
		payer_id TEXT NOT NULL,
		payee_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		rationale TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_split_ledger_household
		ON split_ledger(household_id);
	CREATE INDEX IF NOT EXISTS idx_split_ledger_transaction
		ON split_ledger(transaction_id);

	CREATE TABLE IF NOT EXISTS settlements (
		id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		amount REAL NOT NULL,
		note TEXT,
		settled_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_settlements_household
		ON settlements(household_id, settled_at DESC);

	CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL,
		match_vendor_ilike TEXT NOT NULL,
		category_id TEXT,
		mark_as_personal BOOLEAN,
		priority INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_household
		ON rules(household_id, priority DESC);

	-- One policy config per household, versioned on every save.
	CREATE TABLE IF NOT EXISTS policies (
		household_id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One spending cap per household/category/month.
	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL,
		category TEXT NOT NULL,
		month TEXT NOT NULL,
		amount_limit REAL NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(household_id, category, month)
	);

	CREATE INDEX IF NOT EXISTS idx_budgets_household
		ON budgets(household_id, month);

	-- System categories have a NULL household_id and ship with the schema;
	-- households layer custom categories on top.
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		household_id TEXT,
		name TEXT NOT NULL,
		icon TEXT,
		color TEXT,
		personal_default BOOLEAN NOT NULL DEFAULT FALSE,
		is_system BOOLEAN NOT NULL DEFAULT FALSE
	);

	INSERT OR IGNORE INTO categories (id, name, icon, is_system) VALUES
		('groceries', 'Groceries', '🛒', TRUE),
		('rent', 'Rent', '🏠', TRUE),
		('utilities', 'Utilities', '💡', TRUE),
		('dining', 'Dining', '🍽️', TRUE),
		('transport', 'Transport', '🚌', TRUE),
		('entertainment', 'Entertainment', '🎬', TRUE),
		('travel', 'Travel', '✈️', TRUE);
	INSERT OR IGNORE INTO categories (id, name, icon, personal_default, is_system)
		VALUES ('personal', 'Personal', '👤', TRUE, TRUE);

	CREATE TABLE IF NOT EXISTS webhook_events (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		received_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_webhook_events_received
		ON webhook_events(received_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HOUSEHOLDS
// =============================================================================

// SaveHousehold inserts or updates a household.
func (s *Store) SaveHousehold(ctx context.Context, h household.Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO households (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`

	createdAt := h.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query, h.ID, h.Name, createdAt.Format(time.RFC3339))
	return err
}

// GetHousehold retrieves a household by ID. Returns nil when not found.
func (s *Store) GetHousehold(ctx context.Context, id string) (*household.Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var h household.Household
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM households WHERE id = ?", id,
	).Scan(&h.ID, &h.Name, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &h, nil
}

// ListHouseholds returns all households.
func (s *Store) ListHouseholds(ctx context.Context) ([]household.Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM households ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []household.Household
	for rows.Next() {
		var h household.Household
		var createdAt string
		if err := rows.Scan(&h.ID, &h.Name, &createdAt); err != nil {
			return nil, err
		}
		h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// MEMBERS
// =============================================================================

// SaveMember inserts or updates a member profile.
func (s *Store) SaveMember(ctx context.Context, m household.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO members (id, household_id, name, email, monthly_income, weight, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			monthly_income = excluded.monthly_income,
			weight = excluded.weight
	`

	joinedAt := m.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.HouseholdID, m.Name, nullString(m.Email),
		m.MonthlyIncome, m.Weight, joinedAt.Format(time.RFC3339))
	return err
}

// ListMembers returns a household's members ordered by join date.
func (s *Store) ListMembers(ctx context.Context, householdID string) ([]household.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, household_id, name, email, monthly_income, weight, joined_at
		FROM members WHERE household_id = ?
		ORDER BY joined_at ASC, id ASC`, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []household.Member
	for rows.Next() {
		var m household.Member
		var email sql.NullString
		var joinedAt string
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.Name, &email,
			&m.MonthlyIncome, &m.Weight, &joinedAt); err != nil {
			return nil, err
		}
		m.Email = email.String
		m.JoinedAt, _ = time.Parse(time.RFC3339, joinedAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// UpsertTransaction inserts a transaction or refreshes it when the feed
// redelivers the same external ID. Returns the stored transaction ID.
// Every redelivery clears split_done, whether or not anything changed,
// so the next recompute pass picks the transaction up again.
func (s *Store) UpsertTransaction(ctx context.Context, t household.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO transactions
		(id, household_id, external_id, payer_id, amount, vendor, category, date,
		 pending, transfer, personal, split_done, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(household_id, external_id) DO UPDATE SET
			payer_id = excluded.payer_id,
			amount = excluded.amount,
			vendor = excluded.vendor,
			category = excluded.category,
			date = excluded.date,
			pending = excluded.pending,
			personal = excluded.personal,
			split_done = FALSE,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.HouseholdID, t.ExternalID, t.PayerID, t.Amount,
		nullString(t.Vendor), nullString(string(t.Category)),
		t.Date.Format(time.RFC3339),
		t.Pending, t.Transfer, t.Personal, t.SplitDone, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to upsert transaction: %w", err)
	}

	// The insert may have hit the conflict path, in which case the row
	// keeps its original ID.
	var id string
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM transactions WHERE household_id = ? AND external_id = ?",
		t.HouseholdID, t.ExternalID).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetTransaction retrieves a transaction by ID. Returns nil when not found.
func (s *Store) GetTransaction(ctx context.Context, id string) (*household.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs, err := s.queryTransactions(ctx, selectTransactions+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

// ListTransactions returns a household's transactions, newest first.
// Month filters to YYYY-MM when non-empty.
func (s *Store) ListTransactions(ctx context.Context, householdID, month string) ([]household.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if month != "" {
		return s.queryTransactions(ctx,
			selectTransactions+` WHERE household_id = ? AND strftime('%Y-%m', date) = ? ORDER BY date DESC`,
			householdID, month)
	}
	return s.queryTransactions(ctx,
		selectTransactions+" WHERE household_id = ? ORDER BY date DESC", householdID)
}

// ListUnsplitTransactions returns settled, shareable transactions that have
// no ledger rows yet.
func (s *Store) ListUnsplitTransactions(ctx context.Context, householdID string) ([]household.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTransactions(ctx,
		selectTransactions+` WHERE household_id = ? AND split_done = FALSE AND pending = FALSE ORDER BY date ASC`,
		householdID)
}

// TransactionPatch carries the mutable fields of a transaction. Nil fields
// are left untouched.
type TransactionPatch struct {
	Category *string
	Personal *bool
	Transfer *bool
	PayerID  *string
}

// PatchTransaction applies a partial update and clears split_done so the
// transaction is recomputed with the new attributes.
func (s *Store) PatchTransaction(ctx context.Context, id string, patch TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sets := []string{"split_done = FALSE", "updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339)}

	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, nullString(*patch.Category))
	}
	if patch.Personal != nil {
		sets = append(sets, "personal = ?")
		args = append(args, *patch.Personal)
	}
	if patch.Transfer != nil {
		sets = append(sets, "transfer = ?")
		args = append(args, *patch.Transfer)
	}
	if patch.PayerID != nil {
		sets = append(sets, "payer_id = ?")
		args = append(args, *patch.PayerID)
	}

	args = append(args, id)
	query := "UPDATE transactions SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const selectTransactions = `
	SELECT id, household_id, external_id, payer_id, amount, vendor, category, date,
	       pending, transfer, personal, split_done
	FROM transactions`

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]household.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []household.Transaction
	for rows.Next() {
		var t household.Transaction
		var vendor, category sql.NullString
		var date string

		err := rows.Scan(&t.ID, &t.HouseholdID, &t.ExternalID, &t.PayerID,
			&t.Amount, &vendor, &category, &date,
			&t.Pending, &t.Transfer, &t.Personal, &t.SplitDone)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		t.Vendor = vendor.String
		t.Category = split.CategoryID(category.String)
		t.Date, _ = time.Parse(time.RFC3339, date)
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// SPLIT LEDGER
// =============================================================================

// ReplaceSplits swaps a transaction's ledger rows for the fresh computation
// and marks the transaction split. Runs in one SQL transaction so readers
// never see a half-replaced split.
func (s *Store) ReplaceSplits(ctx context.Context, householdID, transactionID string, entries []split.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM split_ledger WHERE transaction_id = ?", transactionID); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range entries {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO split_ledger
			(id, household_id, transaction_id, payer_id, payee_id, amount, rationale, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), householdID, transactionID,
			string(e.Payer), string(e.Payee),
			formatAmount(e.Amount), e.Rationale, now)
		if err != nil {
			return fmt.Errorf("failed to insert split entry: %w", err)
		}
	}

	if _, err := sqlTx.ExecContext(ctx,
		"UPDATE transactions SET split_done = TRUE, updated_at = ? WHERE id = ?",
		now, transactionID); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// ListEntriesByHousehold returns a household's ledger entries. Month filters
// by the underlying transaction date when non-empty.
func (s *Store) ListEntriesByHousehold(ctx context.Context, householdID, month string) ([]household.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT l.id, l.household_id, l.transaction_id, l.payer_id, l.payee_id,
		       l.amount, l.rationale, l.created_at
		FROM split_ledger l
		JOIN transactions t ON t.id = l.transaction_id
		WHERE l.household_id = ?`
	args := []any{householdID}

	if month != "" {
		query += ` AND strftime('%Y-%m', t.date) = ?`
		args = append(args, month)
	}
	query += " ORDER BY l.created_at ASC, l.id ASC"

	return s.queryEntries(ctx, query, args...)
}

// ListEntriesByTransaction returns the ledger rows for one transaction.
func (s *Store) ListEntriesByTransaction(ctx context.Context, transactionID string) ([]household.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, household_id, transaction_id, payer_id, payee_id,
		       amount, rationale, created_at
		FROM split_ledger
		WHERE transaction_id = ?
		ORDER BY created_at ASC, id ASC`

	return s.queryEntries(ctx, query, transactionID)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]household.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query split ledger: %w", err)
	}
	defer rows.Close()

	var out []household.LedgerEntry
	for rows.Next() {
		var e household.LedgerEntry
		var amount, createdAt string
		if err := rows.Scan(&e.ID, &e.HouseholdID, &e.TransactionID,
			&e.PayerID, &e.PayeeID, &amount, &e.Rationale, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan split entry: %w", err)
		}
		e.Amount, err = strconv.ParseFloat(amount, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt split amount %q: %w", amount, err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

// SaveSettlement records a repayment. Assigns an ID when empty.
func (s *Store) SaveSettlement(ctx context.Context, st household.Settlement) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	settledAt := st.SettledAt
	if settledAt.IsZero() {
		settledAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlements (id, household_id, from_id, to_id, amount, note, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.HouseholdID, st.FromID, st.ToID, st.Amount,
		nullString(st.Note), settledAt.Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return st.ID, nil
}

// ListSettlements returns a household's settlements, newest first.
func (s *Store) ListSettlements(ctx context.Context, householdID string) ([]household.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, household_id, from_id, to_id, amount, note, settled_at
		FROM settlements WHERE household_id = ?
		ORDER BY settled_at DESC, id ASC`, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []household.Settlement
	for rows.Next() {
		var st household.Settlement
		var note sql.NullString
		var settledAt string
		if err := rows.Scan(&st.ID, &st.HouseholdID, &st.FromID, &st.ToID,
			&st.Amount, &note, &settledAt); err != nil {
			return nil, err
		}
		st.Note = note.String
		st.SettledAt, _ = time.Parse(time.RFC3339, settledAt)
		out = append(out, st)
	}
	return out, rows.Err()
}

// =============================================================================
// RULES
// =============================================================================

// SaveRule inserts or updates a categorization rule. Assigns an ID when
// empty.
func (s *Store) SaveRule(ctx context.Context, r rules.Rule) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	var personal any
	if r.MarkAsPersonal != nil {
		personal = *r.MarkAsPersonal
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rules
		(id, household_id, match_vendor_ilike, category_id, mark_as_personal, priority, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			match_vendor_ilike = excluded.match_vendor_ilike,
			category_id = excluded.category_id,
			mark_as_personal = excluded.mark_as_personal,
			priority = excluded.priority,
			active = excluded.active`,
		r.ID, r.HouseholdID, r.MatchVendorILike,
		nullString(string(r.CategoryID)), personal, r.Priority, r.Active,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// ListRules returns a household's rules, highest priority first.
func (s *Store) ListRules(ctx context.Context, householdID string) ([]rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, household_id, match_vendor_ilike, category_id, mark_as_personal, priority, active
		FROM rules WHERE household_id = ?
		ORDER BY priority DESC, id ASC`, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rules.Rule
	for rows.Next() {
		var r rules.Rule
		var category sql.NullString
		var personal sql.NullBool
		if err := rows.Scan(&r.ID, &r.HouseholdID, &r.MatchVendorILike,
			&category, &personal, &r.Priority, &r.Active); err != nil {
			return nil, err
		}
		r.CategoryID = split.CategoryID(category.String)
		if personal.Valid {
			v := personal.Bool
			r.MarkAsPersonal = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRule removes a rule.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	return err
}

// =============================================================================
// POLICIES
// =============================================================================

// PolicyRecord is a stored per-household policy config.
type PolicyRecord struct {
	HouseholdID string
	ConfigJSON  string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SavePolicy stores a household's policy JSON, bumping the version when
// the household already has one.
func (s *Store) SavePolicy(ctx context.Context, householdID, configJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO policies (household_id, config_json, version, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(household_id) DO UPDATE SET
			config_json = excluded.config_json,
			version = policies.version + 1,
			updated_at = excluded.updated_at`,
		householdID, configJSON, now, now)
	return err
}

// GetPolicy retrieves a household's policy record. Returns nil when the
// household never configured one.
func (s *Store) GetPolicy(ctx context.Context, householdID string) (*PolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p PolicyRecord
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT household_id, config_json, version, created_at, updated_at FROM policies WHERE household_id = ?",
		householdID,
	).Scan(&p.HouseholdID, &p.ConfigJSON, &p.Version, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// =============================================================================
// BUDGETS
// =============================================================================

// SaveBudget creates a budget or replaces the limit when the household
// already budgets that category for that month. Returns the stored ID.
func (s *Store) SaveBudget(ctx context.Context, b household.Budget) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, household_id, category, month, amount_limit, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(household_id, category, month) DO UPDATE SET
			amount_limit = excluded.amount_limit`,
		b.ID, b.HouseholdID, string(b.Category), b.Month, b.Limit,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to save budget: %w", err)
	}

	// The conflict path keeps the original row ID.
	var id string
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM budgets WHERE household_id = ? AND category = ? AND month = ?",
		b.HouseholdID, string(b.Category), b.Month).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetBudget retrieves a budget by ID. Returns nil when not found.
func (s *Store) GetBudget(ctx context.Context, id string) (*household.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	budgets, err := s.queryBudgets(ctx, selectBudgets+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return nil, nil
	}
	return &budgets[0], nil
}

// ListBudgets returns a household's budgets. Month filters to YYYY-MM when
// non-empty.
func (s *Store) ListBudgets(ctx context.Context, householdID, month string) ([]household.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if month != "" {
		return s.queryBudgets(ctx,
			selectBudgets+" WHERE household_id = ? AND month = ? ORDER BY category ASC",
			householdID, month)
	}
	return s.queryBudgets(ctx,
		selectBudgets+" WHERE household_id = ? ORDER BY month DESC, category ASC", householdID)
}

// UpdateBudgetLimit replaces a budget's spending cap.
func (s *Store) UpdateBudgetLimit(ctx context.Context, id string, limit float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE budgets SET amount_limit = ? WHERE id = ?", limit, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteBudget removes a budget.
func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	return err
}

// SpentByMonth aggregates a household's settled expense spending per
// category for one month. Refunds do not offset spending.
func (s *Store) SpentByMonth(ctx context.Context, householdID, month string) (map[split.CategoryID]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, SUM(-amount)
		FROM transactions
		WHERE household_id = ? AND strftime('%Y-%m', date) = ?
		  AND amount < 0 AND pending = FALSE AND category IS NOT NULL
		GROUP BY category`, householdID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate spending: %w", err)
	}
	defer rows.Close()

	out := make(map[split.CategoryID]float64)
	for rows.Next() {
		var category string
		var spent float64
		if err := rows.Scan(&category, &spent); err != nil {
			return nil, err
		}
		out[split.CategoryID(category)] = spent
	}
	return out, rows.Err()
}

const selectBudgets = `
	SELECT id, household_id, category, month, amount_limit, created_at
	FROM budgets`

func (s *Store) queryBudgets(ctx context.Context, query string, args ...any) ([]household.Budget, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var out []household.Budget
	for rows.Next() {
		var b household.Budget
		var category, createdAt string
		if err := rows.Scan(&b.ID, &b.HouseholdID, &category, &b.Month,
			&b.Limit, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		b.Category = split.CategoryID(category)
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// =============================================================================
// CATEGORIES
// =============================================================================

// SaveCategory adds a custom household category. Assigns an ID when empty.
func (s *Store) SaveCategory(ctx context.Context, c household.Category) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, household_id, name, icon, color, personal_default, is_system)
		VALUES (?, ?, ?, ?, ?, ?, FALSE)`,
		c.ID, nullString(c.HouseholdID), c.Name,
		nullString(c.Icon), nullString(c.Color), c.PersonalDefault)
	if err != nil {
		return "", fmt.Errorf("failed to save category: %w", err)
	}
	return c.ID, nil
}

// ListCategories returns the system defaults plus the household's custom
// categories, ordered by name.
func (s *Store) ListCategories(ctx context.Context, householdID string) ([]household.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, household_id, name, icon, color, personal_default, is_system
		FROM categories
		WHERE household_id IS NULL OR household_id = ?
		ORDER BY name ASC`, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []household.Category
	for rows.Next() {
		var c household.Category
		var hhID, icon, color sql.NullString
		if err := rows.Scan(&c.ID, &hhID, &c.Name, &icon, &color,
			&c.PersonalDefault, &c.System); err != nil {
			return nil, err
		}
		c.HouseholdID = hhID.String
		c.Icon = icon.String
		c.Color = color.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// WEBHOOK EVENTS
// =============================================================================

// WebhookEvent is a raw inbound webhook, kept for audit and replay.
type WebhookEvent struct {
	ID          string
	Source      string
	EventType   string
	PayloadJSON string
	ReceivedAt  time.Time
}

// RecordWebhookEvent persists a webhook delivery.
func (s *Store) RecordWebhookEvent(ctx context.Context, e WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	receivedAt := e.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_events (id, source, event_type, payload_json, received_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.EventType, e.PayloadJSON, receivedAt.Format(time.RFC3339))
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"split_ledger", "settlements", "transactions", "rules",
		"policies", "budgets", "webhook_events", "members", "households"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	// System categories survive a reset; household customs do not.
	_, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE household_id IS NOT NULL")
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// formatAmount renders a cent-aligned amount as a stable decimal string.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
