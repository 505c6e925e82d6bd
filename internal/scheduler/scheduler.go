package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KrishnarajT/remindarr/internal/domain"
	"github.com/KrishnarajT/remindarr/internal/store"
)

// Sender is the minimal interface the engine needs to deliver a reminder.
// telegram.Router implements it.
type Sender interface {
	SendMessage(chatID string, text string) error
}

// Engine periodically claims due reminders, dispatches them, and reschedules
// or deactivates them. One engine per process; the claim contract in the
// store keeps overlapping ticks and multiple instances from double-sending.
type Engine struct {
	repo        store.Repo
	log         *zap.Logger
	sender      Sender
	interval    time.Duration
	defaultChat string

	stop chan struct{}
	done chan struct{}
}

// New creates an Engine. defaultChat is the delivery target for rows without
// a chat id of their own; it may be empty.
func New(repo store.Repo, log *zap.Logger, sender Sender, interval time.Duration, defaultChat string) *Engine {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Engine{
		repo:        repo,
		log:         log,
		sender:      sender,
		interval:    interval,
		defaultChat: defaultChat,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the delivery loop.
func (e *Engine) Start() {
	go e.loop()
}

// Stop signals the loop and waits until the in-flight tick has finished, so
// shutdown never leaves a tick's mutations half-applied.
func (e *Engine) Stop() {
	close(e.stop)
	<-e.done
}

// loop runs ticks on a fixed cadence. The stop signal is observed only
// between ticks; a tick in progress always runs to completion.
func (e *Engine) loop() {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.log.Info("delivery engine started", zap.Duration("interval", e.interval))
	for {
		select {
		case <-e.stop:
			e.log.Info("delivery engine stopping")
			return
		case <-ticker.C:
			e.tick(context.Background(), time.Now().UTC())
		}
	}
}

// tick performs one delivery cycle: claim all due reminders, send each
// independently, then commit every outcome in one batch. A failed send only
// releases its row; the row stays active with a past trigger and is picked
// up again on a later tick.
func (e *Engine) tick(ctx context.Context, now time.Time) {
	claimed, err := e.repo.ClaimDue(ctx, now)
	if err != nil {
		e.log.Error("claim due reminders failed", zap.Error(err))
		return
	}
	if len(claimed) == 0 {
		return
	}

	var (
		delivered  []domain.Reminder
		releaseIDs []string
	)
	for i := range claimed {
		r := claimed[i]

		target := r.ChatID
		if target == "" {
			target = e.defaultChat
		}
		if target == "" {
			e.log.Error("no delivery target for reminder", zap.String("id", r.ID))
			releaseIDs = append(releaseIDs, r.ID)
			continue
		}

		if err := e.sender.SendMessage(target, r.Content); err != nil {
			e.log.Error("send failed", zap.Error(err), zap.String("id", r.ID), zap.String("chatID", target))
			releaseIDs = append(releaseIDs, r.ID)
			continue
		}

		if anomaly := domain.Advance(&r, now); anomaly {
			e.log.Warn("reminder had non-positive interval, deactivated",
				zap.String("id", r.ID), zap.Int64("interval", *r.IntervalMinutes))
		}
		delivered = append(delivered, r)
	}

	if err := e.repo.FinishTick(ctx, delivered, releaseIDs); err != nil {
		e.log.Error("commit tick failed", zap.Error(err))
	}
}
