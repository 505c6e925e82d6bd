package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/KrishnarajT/remindarr/internal/domain"
)

// claimTTL is the grace window after which a claim from a crashed or hung
// worker is considered stale and the row becomes claimable again.
const claimTTL = 5 * time.Minute

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Users ---

// GetUser returns a user by chat id, or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, chatID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT chat_id, first_name, last_name, tz, notion_api_key, notion_enabled,
		       collections, mappings, check_freq_hours, created_at, last_active_at
		FROM users
		WHERE chat_id = ?`,
		chatID,
	)

	var (
		u           domain.User
		enabledInt  int
		collections string
		mappings    string
		createdAt   int64
		lastActive  int64
	)
	if err := row.Scan(
		&u.ChatID, &u.FirstName, &u.LastName, &u.TZ, &u.NotionAPIKey, &enabledInt,
		&collections, &mappings, &u.CheckFreqHours, &createdAt, &lastActive,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	u.NotionEnabled = enabledInt != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.LastActiveAt = time.Unix(lastActive, 0).UTC()
	if err := fromJSON(collections, &u.Collections); err != nil {
		return nil, fmt.Errorf("decode collections: %w", err)
	}
	if err := fromJSON(mappings, &u.Mappings); err != nil {
		return nil, fmt.Errorf("decode mappings: %w", err)
	}
	return &u, nil
}

// UpsertUser inserts or updates a user's settings.
// The chat_id key is immutable; everything else is replaced on conflict.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}

	now := time.Now().UTC()
	created := u.CreatedAt
	if created.IsZero() {
		created = now
	}
	lastActive := u.LastActiveAt
	if lastActive.IsZero() {
		lastActive = now
	}

	collections, err := toJSON(u.Collections)
	if err != nil {
		return fmt.Errorf("encode collections: %w", err)
	}
	mappings, err := toJSON(u.Mappings)
	if err != nil {
		return fmt.Errorf("encode mappings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (
			chat_id, first_name, last_name, tz, notion_api_key, notion_enabled,
			collections, mappings, check_freq_hours, created_at, last_active_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			first_name       = excluded.first_name,
			last_name        = excluded.last_name,
			tz               = excluded.tz,
			notion_api_key   = excluded.notion_api_key,
			notion_enabled   = excluded.notion_enabled,
			collections      = excluded.collections,
			mappings         = excluded.mappings,
			check_freq_hours = excluded.check_freq_hours,
			last_active_at   = excluded.last_active_at`,
		u.ChatID, u.FirstName, u.LastName, u.TZ, u.NotionAPIKey, boolToInt(u.NotionEnabled),
		collections, mappings, u.CheckFreqHours, created.Unix(), lastActive.Unix(),
	)
	return err
}

// TouchUser updates the last-active timestamp for a chat.
func (r *SQLiteRepo) TouchUser(ctx context.Context, chatID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET last_active_at = ?
		WHERE chat_id = ?`,
		at.UTC().Unix(), chatID,
	)
	return err
}

// --- Reminders ---

const reminderColumns = `id, chat_id, name, content, active, interval_minutes,
       next_trigger_at, last_triggered_at, source, notion_page_id,
       created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (domain.Reminder, error) {
	var (
		rem        domain.Reminder
		activeInt  int
		intervalNS sql.NullInt64
		nextNS     sql.NullInt64
		lastNS     sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(
		&rem.ID, &rem.ChatID, &rem.Name, &rem.Content, &activeInt, &intervalNS,
		&nextNS, &lastNS, &rem.Source, &rem.NotionPageID,
		&createdAt, &updatedAt,
	); err != nil {
		return domain.Reminder{}, err
	}
	rem.Active = activeInt != 0
	rem.IntervalMinutes = fromNullInt(intervalNS)
	rem.NextTriggerAt = fromNullTime(nextNS)
	rem.LastTriggeredAt = fromNullTime(lastNS)
	rem.CreatedAt = time.Unix(createdAt, 0).UTC()
	rem.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return rem, nil
}

// InsertReminder inserts a new reminder row.
func (r *SQLiteRepo) InsertReminder(ctx context.Context, rem *domain.Reminder) error {
	if rem == nil {
		return errors.New("nil reminder")
	}
	now := time.Now().UTC()
	created := rem.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (
			id, chat_id, name, content, active, interval_minutes,
			next_trigger_at, last_triggered_at, source, notion_page_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rem.ID, rem.ChatID, rem.Name, rem.Content, boolToInt(rem.Active),
		toNullInt(rem.IntervalMinutes), toNullTime(rem.NextTriggerAt),
		toNullTime(rem.LastTriggeredAt), rem.Source, rem.NotionPageID,
		created.Unix(), now.Unix(),
	)
	return err
}

// SaveReminder writes a reminder's mutable fields back in place.
func (r *SQLiteRepo) SaveReminder(ctx context.Context, rem *domain.Reminder) error {
	if rem == nil {
		return errors.New("nil reminder")
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET name = ?, content = ?, active = ?, interval_minutes = ?,
		    next_trigger_at = ?, last_triggered_at = ?, updated_at = ?
		WHERE id = ?`,
		rem.Name, rem.Content, boolToInt(rem.Active), toNullInt(rem.IntervalMinutes),
		toNullTime(rem.NextTriggerAt), toNullTime(rem.LastTriggeredAt),
		time.Now().UTC().Unix(), rem.ID,
	)
	return err
}

// ListReminders returns all reminders for a chat, newest first.
func (r *SQLiteRepo) ListReminders(ctx context.Context, chatID string) ([]domain.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE chat_id = ?
		ORDER BY created_at DESC`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rem)
	}
	return res, rows.Err()
}

// HasImported reports whether a reminder for this chat already carries the
// given external page id.
func (r *SQLiteRepo) HasImported(ctx context.Context, chatID, pageID string) (bool, error) {
	if pageID == "" {
		return false, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM reminders
		WHERE chat_id = ? AND notion_page_id = ?`,
		chatID, pageID,
	).Scan(&n)
	return n > 0, err
}

// ClaimDue atomically claims every active reminder due at or before now.
//
// SQLite has no SELECT ... FOR UPDATE SKIP LOCKED; the equivalent here is a
// single conditional UPDATE that stamps claimed_at and returns the rows it
// stamped. A concurrent caller racing on the same rows matches nothing: the
// claimed_at predicate already fails for them. Claims older than claimTTL
// are treated as abandoned and re-claimed.
func (r *SQLiteRepo) ClaimDue(ctx context.Context, now time.Time) ([]domain.Reminder, error) {
	now = now.UTC()
	stale := now.Add(-claimTTL)

	rows, err := r.db.QueryContext(ctx, `
		UPDATE reminders
		SET claimed_at = ?
		WHERE active = 1
		  AND next_trigger_at IS NOT NULL
		  AND next_trigger_at <= ?
		  AND (claimed_at IS NULL OR claimed_at <= ?)
		RETURNING `+reminderColumns,
		now.Unix(), now.Unix(), stale.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rem)
	}
	return res, rows.Err()
}

// FinishTick commits one tick's outcome as a single transaction. Delivered
// rows get their new schedule written and the claim cleared; released rows
// only get the claim cleared so the next tick can retry them.
func (r *SQLiteRepo) FinishTick(ctx context.Context, delivered []domain.Reminder, releaseIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Unix()
	for i := range delivered {
		rem := &delivered[i]
		if _, err := tx.ExecContext(ctx, `
			UPDATE reminders
			SET active = ?, next_trigger_at = ?, last_triggered_at = ?,
			    claimed_at = NULL, updated_at = ?
			WHERE id = ?`,
			boolToInt(rem.Active), toNullTime(rem.NextTriggerAt),
			toNullTime(rem.LastTriggeredAt), now, rem.ID,
		); err != nil {
			return err
		}
	}
	for _, id := range releaseIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE reminders
			SET claimed_at = NULL
			WHERE id = ?`,
			id,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
