package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KrishnarajT/remindarr/internal/domain"
)

// handleNotionStep advances the integration-setup flow. The flow is a tree
// rooted at the menu: connect (token), import (collection-id → three
// property picks → confirm) and remove. Collaborator failures keep the user
// in the current step; persistence failures abort the flow.
func (e *Engine) handleNotionStep(ctx context.Context, u *domain.User, st State, text string) string {
	switch st.Step {
	case StepNotionMenu:
		return e.notionMenu(u, st, text)
	case StepNotionToken:
		return e.notionToken(ctx, u, st, text)
	case StepNotionCollection:
		return e.notionCollection(ctx, u, st, text)
	case StepNotionNameProp, StepNotionTimeProp, StepNotionDoneProp:
		return e.notionProperty(ctx, u, st, text)
	case StepNotionImportConfirm:
		return e.notionImportConfirm(ctx, u, st, text)
	case StepNotionRemove:
		return e.notionRemove(ctx, u, st, text)
	default:
		e.log.Warn("unknown notion step", zap.Int("step", int(st.Step)), zap.String("chatID", u.ChatID))
		e.reset(u.ChatID)
		return unknownText
	}
}

func (e *Engine) notionMenu(u *domain.User, st State, text string) string {
	switch normalize(text) {
	case "connect", "token":
		st.Step = StepNotionToken
		e.sessions.Put(u.ChatID, st)
		return notionAskTokenText
	case "import":
		if !u.NotionEnabled || u.NotionAPIKey == "" {
			return notionNotConnectedText
		}
		st.Step = StepNotionCollection
		e.sessions.Put(u.ChatID, st)
		return notionAskCollectionText
	case "remove":
		if len(u.Collections) == 0 {
			return notionNothingWatchedText
		}
		st.Step = StepNotionRemove
		e.sessions.Put(u.ChatID, st)
		return fmt.Sprintf(notionAskRemoveFmt, strings.Join(u.Collections, ", "))
	}
	return notionMenuText
}

func (e *Engine) notionToken(ctx context.Context, u *domain.User, st State, text string) string {
	if !strings.HasPrefix(text, "secret_") && !strings.HasPrefix(text, "ntn_") {
		return notionBadTokenFormatText
	}

	name, err := e.ws.ValidateToken(ctx, text)
	if err != nil {
		// Bad credential or Notion unreachable: recoverable, stay in step.
		e.log.Warn("notion token validation failed", zap.Error(err), zap.String("chatID", u.ChatID))
		return notionTokenRejectedText
	}

	u.NotionAPIKey = text
	u.NotionEnabled = true
	if !e.saveUser(ctx, u) {
		return storeErrText
	}

	st.Step = StepNotionMenu
	e.sessions.Put(u.ChatID, st)
	return fmt.Sprintf("✅ Connected to Notion as %q. Type `import` to pull tasks from a collection.", name)
}

func (e *Engine) notionCollection(ctx context.Context, u *domain.User, st State, text string) string {
	props, err := e.ws.CollectionProperties(ctx, u.NotionAPIKey, text)
	switch {
	case errors.Is(err, ErrCollectionNotFound):
		return notionCollectionNotFoundText
	case err != nil:
		e.log.Warn("fetch collection schema failed", zap.Error(err), zap.String("chatID", u.ChatID))
		return notionUnreachableText
	}

	u.WatchCollection(text)
	if !e.saveUser(ctx, u) {
		return storeErrText
	}

	st.CollectionID = text
	st.Props = props
	st.Mapping = domain.PropertyMapping{CollectionID: text}
	st.Step = StepNotionNameProp
	e.sessions.Put(u.ChatID, st)
	return fmt.Sprintf(notionAskNamePropFmt, strings.Join(props, ", "))
}

// notionProperty handles the three property-selection steps. The reply is
// validated against the exact set discovered for the collection; a mismatch
// re-prompts verbatim instead of guessing.
func (e *Engine) notionProperty(ctx context.Context, u *domain.User, st State, text string) string {
	available := strings.Join(st.Props, ", ")

	if st.Step == StepNotionDoneProp && normalize(text) == "skip" {
		st.Mapping.DoneProp = ""
		return e.finishMapping(ctx, u, st)
	}

	if !containsExact(st.Props, text) {
		switch st.Step {
		case StepNotionNameProp:
			return fmt.Sprintf(notionAskNamePropFmt, available)
		case StepNotionTimeProp:
			return fmt.Sprintf(notionAskTimePropFmt, available)
		default:
			return fmt.Sprintf(notionAskDonePropFmt, available)
		}
	}

	switch st.Step {
	case StepNotionNameProp:
		st.Mapping.NameProp = text
		st.Step = StepNotionTimeProp
		e.sessions.Put(u.ChatID, st)
		return fmt.Sprintf(notionAskTimePropFmt, available)
	case StepNotionTimeProp:
		st.Mapping.TimeProp = text
		st.Step = StepNotionDoneProp
		e.sessions.Put(u.ChatID, st)
		return fmt.Sprintf(notionAskDonePropFmt, available)
	default:
		st.Mapping.DoneProp = text
		return e.finishMapping(ctx, u, st)
	}
}

func (e *Engine) finishMapping(ctx context.Context, u *domain.User, st State) string {
	u.SetMapping(st.Mapping)
	if !e.saveUser(ctx, u) {
		return storeErrText
	}
	st.Step = StepNotionImportConfirm
	e.sessions.Put(u.ChatID, st)
	return notionImportConfirmText
}

func (e *Engine) notionImportConfirm(ctx context.Context, u *domain.User, st State, text string) string {
	switch normalize(text) {
	case "yes", "y", "import":
		return e.runImport(ctx, u, st)
	case "no", "n":
		e.reset(u.ChatID)
		return notionImportLaterText
	}
	return notionImportConfirmText
}

// runImport pulls the collection and creates one reminder per usable record.
// Skipped: empty names, records already done, and pages imported before.
func (e *Engine) runImport(ctx context.Context, u *domain.User, st State) string {
	records, err := e.ws.QueryCollection(ctx, u.NotionAPIKey, st.CollectionID, st.Mapping)
	if err != nil {
		e.log.Warn("query collection failed", zap.Error(err), zap.String("chatID", u.ChatID))
		return notionUnreachableText
	}

	imported, skipped := 0, 0
	for _, rec := range records {
		if rec.Name == "" || rec.Done {
			skipped++
			continue
		}
		dup, err := e.repo.HasImported(ctx, u.ChatID, rec.PageID)
		if err != nil {
			e.log.Error("import dedup check failed", zap.Error(err), zap.String("chatID", u.ChatID))
			e.reset(u.ChatID)
			return storeErrText
		}
		if dup {
			skipped++
			continue
		}

		r := &domain.Reminder{
			ID:           uuid.NewString(),
			ChatID:       u.ChatID,
			Name:         rec.Name,
			Content:      rec.Name,
			Active:       true,
			Source:       domain.SourceImported,
			NotionPageID: rec.PageID,
		}
		if rec.DueAt != nil {
			due := rec.DueAt.UTC()
			r.NextTriggerAt = &due
		}
		if err := e.repo.InsertReminder(ctx, r); err != nil {
			e.log.Error("insert imported reminder failed", zap.Error(err), zap.String("chatID", u.ChatID))
			e.reset(u.ChatID)
			return storeErrText
		}
		imported++
	}

	e.reset(u.ChatID)
	return fmt.Sprintf(notionImportDoneFmt, imported, skipped)
}

func (e *Engine) notionRemove(ctx context.Context, u *domain.User, st State, text string) string {
	if !u.UnwatchCollection(text) {
		return notionNotWatchedText
	}
	if !e.saveUser(ctx, u) {
		return storeErrText
	}
	e.reset(u.ChatID)
	return fmt.Sprintf(notionRemovedFmt, text)
}

func containsExact(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
