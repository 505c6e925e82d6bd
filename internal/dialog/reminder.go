package dialog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KrishnarajT/remindarr/internal/domain"
)

// handleReminderStep advances the reminder-creation flow:
// name → recurrence → unit → amount → content. Invalid input re-prompts and
// stays in the step; only the final content step writes a reminder row.
func (e *Engine) handleReminderStep(ctx context.Context, u *domain.User, st State, text string) string {
	switch st.Step {
	case StepName:
		if text == "" {
			return askNameText
		}
		st.Name = text
		st.Step = StepRecurrence
		e.sessions.Put(u.ChatID, st)
		return askRecurrenceText

	case StepRecurrence:
		recurring, ok := parseRecurrence(text)
		if !ok {
			return badRecurrenceText
		}
		st.Recurring = recurring
		st.Step = StepUnit
		e.sessions.Put(u.ChatID, st)
		return askUnitText

	case StepUnit:
		perUnit, label, ok := domain.ParseUnit(text)
		if !ok {
			return badUnitText
		}
		st.UnitMinutes = perUnit
		st.UnitLabel = label
		st.Step = StepAmount
		e.sessions.Put(u.ChatID, st)
		return askAmountText

	case StepAmount:
		amount, err := strconv.ParseInt(text, 10, 64)
		if err != nil || amount <= 0 {
			return badAmountText
		}
		st.Amount = amount
		st.Step = StepContent
		e.sessions.Put(u.ChatID, st)
		return askContentText

	case StepContent:
		if text == "" {
			return askContentText
		}
		return e.finishReminder(ctx, u, st, text)

	default:
		e.log.Warn("unknown reminder step", zap.Int("step", int(st.Step)), zap.String("chatID", u.ChatID))
		e.reset(u.ChatID)
		return unknownText
	}
}

// finishReminder is the single point where a reminder row is created. The
// flow is reset exactly once, whether persistence succeeds or fails, so a
// duplicate webhook delivery of the final message cannot insert twice.
func (e *Engine) finishReminder(ctx context.Context, u *domain.User, st State, content string) string {
	defer e.reset(u.ChatID)

	interval, next, err := domain.ComputeSchedule(st.Amount, st.UnitMinutes, st.Recurring)
	if err != nil {
		// Steps validated amount and unit already; reaching this means the
		// accumulator was corrupted, so start over.
		e.log.Error("compute schedule failed", zap.Error(err), zap.String("chatID", u.ChatID))
		return badAmountText
	}

	r := &domain.Reminder{
		ID:              uuid.NewString(),
		ChatID:          u.ChatID,
		Name:            st.Name,
		Content:         content,
		Active:          true,
		IntervalMinutes: interval,
		NextTriggerAt:   &next,
		Source:          domain.SourceUser,
	}
	if err := e.repo.InsertReminder(ctx, r); err != nil {
		e.log.Error("insert reminder failed", zap.Error(err), zap.String("chatID", u.ChatID))
		return storeErrText
	}

	when := domain.FormatInZone(next, u.TZ)
	if st.Recurring {
		return fmt.Sprintf("✅ Reminder %q set: first at %s, then every %d %s.",
			st.Name, when, st.Amount, st.UnitLabel)
	}
	return fmt.Sprintf("✅ Reminder %q set for %s.", st.Name, when)
}

func parseRecurrence(text string) (recurring, ok bool) {
	switch normalize(text) {
	case "once", "one", "onetime", "one-time", "single":
		return false, true
	case "recurring", "recur", "repeat", "repeating", "every":
		return true, true
	}
	return false, false
}
