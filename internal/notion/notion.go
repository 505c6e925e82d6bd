// Package notion implements the dialog.Workspace contract against the
// Notion API: credential validation, database schema discovery, and querying
// database pages as candidate reminders.
package notion

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"

	"github.com/KrishnarajT/remindarr/internal/dialog"
	"github.com/KrishnarajT/remindarr/internal/domain"
)

// Adapter talks to Notion. Tokens are per-user and passed per call, so a
// fresh API client is built for each operation.
type Adapter struct {
	log *zap.Logger
}

var _ dialog.Workspace = (*Adapter)(nil)

func New(log *zap.Logger) *Adapter {
	return &Adapter{log: log}
}

func client(token string) *notionapi.Client {
	return notionapi.NewClient(notionapi.Token(token))
}

// ValidateToken checks the credential by fetching the integration's own bot
// user and returns its display name.
func (a *Adapter) ValidateToken(ctx context.Context, token string) (string, error) {
	me, err := client(token).User.Me(ctx)
	if err != nil {
		return "", err
	}
	return me.Name, nil
}

// CollectionProperties returns the sorted property names of a database, or
// dialog.ErrCollectionNotFound when Notion cannot see it (unknown id, or the
// database was not shared with the integration).
func (a *Adapter) CollectionProperties(ctx context.Context, token, collectionID string) ([]string, error) {
	db, err := client(token).Database.Get(ctx, notionapi.DatabaseID(collectionID))
	if err != nil {
		if isNotFound(err) {
			return nil, dialog.ErrCollectionNotFound
		}
		return nil, err
	}

	names := make([]string, 0, len(db.Properties))
	for name := range db.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// QueryCollection pages through the database and extracts one Record per
// page using the saved mapping. Extraction is lenient: a property of an
// unexpected type yields an absent value for that field, never an error.
func (a *Adapter) QueryCollection(ctx context.Context, token, collectionID string, m domain.PropertyMapping) ([]dialog.Record, error) {
	cl := client(token)

	var (
		records []dialog.Record
		cursor  notionapi.Cursor
	)
	for {
		resp, err := cl.Database.Query(ctx, notionapi.DatabaseID(collectionID), &notionapi.DatabaseQueryRequest{
			PageSize:    100,
			StartCursor: cursor,
		})
		if err != nil {
			if isNotFound(err) {
				return nil, dialog.ErrCollectionNotFound
			}
			return nil, err
		}

		for _, page := range resp.Results {
			records = append(records, dialog.Record{
				Name:   textValue(page.Properties[m.NameProp]),
				DueAt:  dateValue(page.Properties[m.TimeProp]),
				Done:   doneValue(page.Properties[m.DoneProp], m.DoneProp),
				PageID: page.ID.String(),
			})
		}

		if !resp.HasMore {
			return records, nil
		}
		cursor = resp.NextCursor
	}
}

func isNotFound(err error) bool {
	var apiErr *notionapi.Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// textValue extracts a plain-text string from a title or rich-text property.
func textValue(p notionapi.Property) string {
	switch v := p.(type) {
	case *notionapi.TitleProperty:
		return joinRichText(v.Title)
	case *notionapi.RichTextProperty:
		return joinRichText(v.RichText)
	}
	return ""
}

func joinRichText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(b.String())
}

// dateValue extracts the start instant of a date property, nil otherwise.
func dateValue(p notionapi.Property) *time.Time {
	v, ok := p.(*notionapi.DateProperty)
	if !ok || v.Date == nil || v.Date.Start == nil {
		return nil
	}
	t := time.Time(*v.Date.Start).UTC()
	return &t
}

// doneValue resolves the done flag: a checkbox is taken as-is; a select or
// status counts as done when its option is named "done" (case-insensitive).
// No mapped property, or a type mismatch, means not done.
func doneValue(p notionapi.Property, propName string) bool {
	if propName == "" {
		return false
	}
	switch v := p.(type) {
	case *notionapi.CheckboxProperty:
		return v.Checkbox
	case *notionapi.SelectProperty:
		return strings.EqualFold(v.Select.Name, "done")
	case *notionapi.StatusProperty:
		return strings.EqualFold(v.Status.Name, "done")
	}
	return false
}
