package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KrishnarajT/remindarr/internal/domain"
	"github.com/KrishnarajT/remindarr/internal/store"
)

// Engine is the conversational state machine. It deterministically maps
// (current per-chat state, inbound text) to a new state, exactly one reply,
// and zero or more store writes. It holds no mutable state of its own;
// everything per-chat lives in the Sessions store.
type Engine struct {
	repo      store.Repo
	sessions  Sessions
	ws        Workspace
	log       *zap.Logger
	defaultTZ string
}

func NewEngine(repo store.Repo, sessions Sessions, ws Workspace, log *zap.Logger, defaultTZ string) *Engine {
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &Engine{
		repo:      repo,
		sessions:  sessions,
		ws:        ws,
		log:       log,
		defaultTZ: defaultTZ,
	}
}

// HandleMessage advances the dialog for one inbound message and returns the
// single reply to send back. Every branch replies with exactly one message.
func (e *Engine) HandleMessage(ctx context.Context, chatID, firstName, lastName, text string) string {
	text = strings.TrimSpace(text)

	u, err := e.ensureUser(ctx, chatID, firstName, lastName)
	if err != nil {
		e.log.Error("ensure user failed", zap.Error(err), zap.String("chatID", chatID))
		e.reset(chatID)
		return storeErrText
	}

	// Global commands win over step-local parsing at any state.
	if reply, handled := e.handleCommand(ctx, u, text); handled {
		return reply
	}

	st, ok := e.sessions.Get(chatID)
	if !ok || st.Flow == FlowNone {
		return unknownText
	}

	switch st.Flow {
	case FlowReminder:
		return e.handleReminderStep(ctx, u, st, text)
	case FlowNotion:
		return e.handleNotionStep(ctx, u, st, text)
	case FlowSettings:
		return e.handleSettingsStep(ctx, u, st, text)
	default:
		// Unknown flow tag; drop the stuck session rather than guessing.
		e.log.Warn("unknown dialog flow", zap.Int("flow", int(st.Flow)), zap.String("chatID", chatID))
		e.reset(chatID)
		return unknownText
	}
}

// handleCommand recognizes global commands. They unconditionally reset or
// redirect the flow regardless of the current step.
func (e *Engine) handleCommand(ctx context.Context, u *domain.User, text string) (string, bool) {
	cmd := strings.ToLower(text)
	if i := strings.IndexByte(cmd, '@'); i > 0 && strings.HasPrefix(cmd, "/") {
		cmd = cmd[:i] // strip bot mention, "/add@remindarr_bot"
	}

	switch cmd {
	case "/start":
		e.reset(u.ChatID)
		name := u.FirstName
		if name == "" {
			name = "there"
		}
		return fmt.Sprintf(startTextFmt, name), true
	case "/help":
		e.reset(u.ChatID)
		return helpText, true
	case "/cancel":
		e.reset(u.ChatID)
		return cancelText, true
	case "/add":
		e.sessions.Put(u.ChatID, State{Flow: FlowReminder, Step: StepName})
		return askNameText, true
	case "/notion":
		e.sessions.Put(u.ChatID, State{Flow: FlowNotion, Step: StepNotionMenu})
		return notionMenuText, true
	case "/settings":
		e.sessions.Put(u.ChatID, State{Flow: FlowSettings, Step: StepSettingsMenu})
		return settingsMenuText, true
	case "/status":
		e.reset(u.ChatID)
		return e.statusReply(ctx, u), true
	}
	return "", false
}

func (e *Engine) statusReply(ctx context.Context, u *domain.User) string {
	notion := "not connected"
	if u.NotionEnabled {
		notion = "✅ connected"
	}
	active := 0
	rems, err := e.repo.ListReminders(ctx, u.ChatID)
	if err != nil {
		e.log.Error("list reminders failed", zap.Error(err), zap.String("chatID", u.ChatID))
	} else {
		for _, r := range rems {
			if r.Active {
				active++
			}
		}
	}
	return fmt.Sprintf(statusFmt, u.TZ, notion, len(u.Collections), u.CheckFreqHours, active)
}

// ensureUser loads the chat's user row, creating it with defaults on first
// contact, and touches last-active on every message.
func (e *Engine) ensureUser(ctx context.Context, chatID, firstName, lastName string) (*domain.User, error) {
	now := time.Now().UTC()

	u, err := e.repo.GetUser(ctx, chatID)
	if err == nil {
		if err := e.repo.TouchUser(ctx, chatID, now); err != nil {
			e.log.Warn("touch user failed", zap.Error(err), zap.String("chatID", chatID))
		}
		u.LastActiveAt = now
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	u = &domain.User{
		ChatID:         chatID,
		FirstName:      firstName,
		LastName:       lastName,
		TZ:             e.defaultTZ,
		CheckFreqHours: domain.CheckEvery24h,
		CreatedAt:      now,
		LastActiveAt:   now,
	}
	if err := e.repo.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// reset drops the chat's dialog state back to none.
func (e *Engine) reset(chatID string) {
	e.sessions.Delete(chatID)
}

// saveUser persists user mutations made mid-flow. On failure the flow is
// aborted, never left half-complete.
func (e *Engine) saveUser(ctx context.Context, u *domain.User) bool {
	if err := e.repo.UpsertUser(ctx, u); err != nil {
		e.log.Error("save user failed", zap.Error(err), zap.String("chatID", u.ChatID))
		e.reset(u.ChatID)
		return false
	}
	return true
}
