package store

import (
	"context"
	"errors"
	"time"

	"github.com/KrishnarajT/remindarr/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Repo defines storage operations for users and reminders.
//
// ClaimDue and FinishTick form the delivery engine's mutual-exclusion
// contract: a row handed out by ClaimDue is never handed to another caller
// until it is released or its claim expires.
type Repo interface {
	GetUser(ctx context.Context, chatID string) (*domain.User, error)
	UpsertUser(ctx context.Context, u *domain.User) error
	TouchUser(ctx context.Context, chatID string, at time.Time) error

	InsertReminder(ctx context.Context, r *domain.Reminder) error
	SaveReminder(ctx context.Context, r *domain.Reminder) error
	ListReminders(ctx context.Context, chatID string) ([]domain.Reminder, error)
	HasImported(ctx context.Context, chatID, pageID string) (bool, error)

	// ClaimDue atomically marks all due, unclaimed reminders as claimed by
	// this caller and returns them. Rows already claimed are skipped, not
	// waited on.
	ClaimDue(ctx context.Context, now time.Time) ([]domain.Reminder, error)
	// FinishTick commits one tick's outcome in a single transaction:
	// delivered rows are written back with their new schedule, failed rows
	// (releaseIDs) are left untouched except for releasing the claim.
	FinishTick(ctx context.Context, delivered []domain.Reminder, releaseIDs []string) error

	Close() error
}
