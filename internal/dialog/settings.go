package dialog

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/KrishnarajT/remindarr/internal/domain"
)

// handleSettingsStep advances the settings flow: a menu branching to the
// display timezone or the Notion check frequency.
func (e *Engine) handleSettingsStep(ctx context.Context, u *domain.User, st State, text string) string {
	switch st.Step {
	case StepSettingsMenu:
		switch normalize(text) {
		case "timezone", "tz":
			st.Step = StepSettingsTZ
			e.sessions.Put(u.ChatID, st)
			return askTZText
		case "frequency", "freq":
			st.Step = StepSettingsFreq
			e.sessions.Put(u.ChatID, st)
			return askFreqText
		}
		return settingsMenuText

	case StepSettingsTZ:
		tz, err := domain.ValidateTZ(text)
		if err != nil {
			return badTZText
		}
		u.TZ = tz
		if !e.saveUser(ctx, u) {
			return storeErrText
		}
		e.reset(u.ChatID)
		return fmt.Sprintf(tzSavedFmt, tz)

	case StepSettingsFreq:
		h, err := strconv.Atoi(normalize(text))
		if err != nil || !domain.ValidCheckFrequency(h) {
			return badFreqText
		}
		u.CheckFreqHours = h
		if !e.saveUser(ctx, u) {
			return storeErrText
		}
		e.reset(u.ChatID)
		return fmt.Sprintf(freqSavedFmt, h)

	default:
		e.log.Warn("unknown settings step", zap.Int("step", int(st.Step)), zap.String("chatID", u.ChatID))
		e.reset(u.ChatID)
		return unknownText
	}
}
