package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/KrishnarajT/remindarr/internal/domain"
	"github.com/KrishnarajT/remindarr/internal/store"
)

// fakeRepo is an in-memory store.Repo for dialog tests.
type fakeRepo struct {
	users     map[string]*domain.User
	reminders []domain.Reminder
	insertErr error
	upsertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*domain.User)}
}

func (f *fakeRepo) GetUser(_ context.Context, chatID string) (*domain.User, error) {
	u, ok := f.users[chatID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, u *domain.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *u
	f.users[u.ChatID] = &cp
	return nil
}

func (f *fakeRepo) TouchUser(_ context.Context, chatID string, at time.Time) error {
	if u, ok := f.users[chatID]; ok {
		u.LastActiveAt = at
	}
	return nil
}

func (f *fakeRepo) InsertReminder(_ context.Context, r *domain.Reminder) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.reminders = append(f.reminders, *r)
	return nil
}

func (f *fakeRepo) SaveReminder(_ context.Context, r *domain.Reminder) error {
	for i := range f.reminders {
		if f.reminders[i].ID == r.ID {
			f.reminders[i] = *r
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeRepo) ListReminders(_ context.Context, chatID string) ([]domain.Reminder, error) {
	var res []domain.Reminder
	for _, r := range f.reminders {
		if r.ChatID == chatID {
			res = append(res, r)
		}
	}
	return res, nil
}

func (f *fakeRepo) HasImported(_ context.Context, chatID, pageID string) (bool, error) {
	if pageID == "" {
		return false, nil
	}
	for _, r := range f.reminders {
		if r.ChatID == chatID && r.NotionPageID == pageID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ClaimDue(_ context.Context, _ time.Time) ([]domain.Reminder, error) {
	return nil, nil
}

func (f *fakeRepo) FinishTick(_ context.Context, _ []domain.Reminder, _ []string) error {
	return nil
}

func (f *fakeRepo) Close() error { return nil }

// fakeWorkspace scripts the import collaborator.
type fakeWorkspace struct {
	validateErr error
	botName     string
	props       []string
	schemaErr   error
	records     []Record
	queryErr    error
}

func (f *fakeWorkspace) ValidateToken(context.Context, string) (string, error) {
	if f.validateErr != nil {
		return "", f.validateErr
	}
	return f.botName, nil
}

func (f *fakeWorkspace) CollectionProperties(context.Context, string, string) ([]string, error) {
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	return f.props, nil
}

func (f *fakeWorkspace) QueryCollection(context.Context, string, string, domain.PropertyMapping) ([]Record, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.records, nil
}

func newTestEngine(repo *fakeRepo, ws Workspace) *Engine {
	if ws == nil {
		ws = &fakeWorkspace{}
	}
	return NewEngine(repo, NewMemorySessions(), ws, zap.NewNop(), "UTC")
}

func say(t *testing.T, e *Engine, chatID, text string) string {
	t.Helper()
	return e.HandleMessage(context.Background(), chatID, "Krish", "", text)
}

func TestCreateReminder_EndToEnd(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo, nil)

	say(t, e, "42", "/add")
	say(t, e, "42", "Take pills")
	say(t, e, "42", "recurring")
	say(t, e, "42", "hours")
	say(t, e, "42", "8")
	reply := say(t, e, "42", "Time for meds")

	if !strings.Contains(reply, "Take pills") {
		t.Fatalf("confirmation should echo the name, got %q", reply)
	}
	if len(repo.reminders) != 1 {
		t.Fatalf("want 1 reminder, got %d", len(repo.reminders))
	}
	r := repo.reminders[0]
	if r.ChatID != "42" || r.Name != "Take pills" || r.Content != "Time for meds" {
		t.Fatalf("reminder fields wrong: %+v", r)
	}
	if r.Source != domain.SourceUser || !r.Active {
		t.Fatalf("want active user-sourced reminder: %+v", r)
	}
	if r.IntervalMinutes == nil || *r.IntervalMinutes != 480 {
		t.Fatalf("want interval 480, got %v", r.IntervalMinutes)
	}
	want := time.Now().UTC().Add(8 * time.Hour)
	if r.NextTriggerAt == nil {
		t.Fatal("next trigger not set")
	}
	if d := r.NextTriggerAt.Sub(want); d < -5*time.Second || d > 5*time.Second {
		t.Fatalf("next trigger off by %v", d)
	}
}

func TestCreateReminder_DuplicateFinalMessage(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo, nil)

	say(t, e, "42", "/add")
	say(t, e, "42", "Water plants")
	say(t, e, "42", "once")
	say(t, e, "42", "days")
	say(t, e, "42", "2")
	say(t, e, "42", "Do the watering")

	// A replayed final message lands with the flow already reset and must
	// not create a second row.
	reply := say(t, e, "42", "Do the watering")
	if reply != unknownText {
		t.Fatalf("replayed final message got %q", reply)
	}
	if len(repo.reminders) != 1 {
		t.Fatalf("duplicate delivery created %d reminders", len(repo.reminders))
	}
}

func TestCreateReminder_InvalidInputsStayInStep(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo, nil)

	say(t, e, "42", "/add")
	say(t, e, "42", "Stretch")

	if got := say(t, e, "42", "sometimes"); got != badRecurrenceText {
		t.Fatalf("bad recurrence reply: %q", got)
	}
	say(t, e, "42", "once")

	if got := say(t, e, "42", "fortnights"); got != badUnitText {
		t.Fatalf("bad unit reply: %q", got)
	}
	say(t, e, "42", "minutes")

	for _, bad := range []string{"0", "-3", "eight", "1.5"} {
		if got := say(t, e, "42", bad); got != badAmountText {
			t.Fatalf("amount %q reply: %q", bad, got)
		}
	}
	say(t, e, "42", "45")
	say(t, e, "42", "Stretch your legs")

	if len(repo.reminders) != 1 {
		t.Fatalf("want 1 reminder after re-prompts, got %d", len(repo.reminders))
	}
	if repo.reminders[0].IntervalMinutes != nil {
		t.Fatal("one-time reminder should have nil interval")
	}
}

func TestCreateReminder_PersistFailureResetsFlow(t *testing.T) {
	repo := newFakeRepo()
	repo.insertErr = errors.New("disk full")
	e := newTestEngine(repo, nil)

	say(t, e, "42", "/add")
	say(t, e, "42", "Call mom")
	say(t, e, "42", "once")
	say(t, e, "42", "h")
	say(t, e, "42", "1")
	if got := say(t, e, "42", "Call her!"); got != storeErrText {
		t.Fatalf("persist failure reply: %q", got)
	}

	// Flow was reset, not left half-complete.
	if got := say(t, e, "42", "Call her!"); got != unknownText {
		t.Fatalf("flow not reset after persist failure: %q", got)
	}
}

func TestCancelResetsAnyFlow(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo, nil)

	say(t, e, "42", "/add")
	say(t, e, "42", "Something")
	if got := say(t, e, "42", "/cancel"); got != cancelText {
		t.Fatalf("cancel reply: %q", got)
	}
	if got := say(t, e, "42", "recurring"); got != unknownText {
		t.Fatalf("state survived cancel: %q", got)
	}
}

func TestCommandsTakePriorityOverSteps(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo, nil)

	say(t, e, "42", "/add")
	// Mid-flow, a flow-entry command redirects instead of being taken as a name.
	if got := say(t, e, "42", "/settings"); got != settingsMenuText {
		t.Fatalf("command mid-flow: %q", got)
	}
	if got := say(t, e, "42", "frequency"); got != askFreqText {
		t.Fatalf("redirected flow not active: %q", got)
	}
}

func TestEnsureUser_CreatedOnFirstMessage(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo, nil)

	say(t, e, "42", "/start")
	u, ok := repo.users["42"]
	if !ok {
		t.Fatal("user not created on first message")
	}
	if u.TZ != "UTC" || u.CheckFreqHours != domain.CheckEvery24h {
		t.Fatalf("defaults wrong: %+v", u)
	}
	if u.FirstName != "Krish" {
		t.Fatalf("name not recorded: %+v", u)
	}
}

func notionConnect(t *testing.T, e *Engine, chatID string) {
	t.Helper()
	say(t, e, chatID, "/notion")
	say(t, e, chatID, "connect")
	say(t, e, chatID, "secret_token_1")
}

func TestNotionFlow_ConnectValidatesFormatFirst(t *testing.T) {
	repo := newFakeRepo()
	ws := &fakeWorkspace{botName: "Remindarr"}
	e := newTestEngine(repo, ws)

	say(t, e, "42", "/notion")
	say(t, e, "42", "connect")
	if got := say(t, e, "42", "not-a-token"); got != notionBadTokenFormatText {
		t.Fatalf("format check reply: %q", got)
	}

	reply := say(t, e, "42", "secret_abcdef")
	if !strings.Contains(reply, "Remindarr") {
		t.Fatalf("connect confirmation: %q", reply)
	}
	u := repo.users["42"]
	if !u.NotionEnabled || u.NotionAPIKey != "secret_abcdef" {
		t.Fatalf("token not saved: %+v", u)
	}
}

func TestNotionFlow_RejectedTokenStaysInStep(t *testing.T) {
	repo := newFakeRepo()
	ws := &fakeWorkspace{validateErr: errors.New("401 unauthorized")}
	e := newTestEngine(repo, ws)

	say(t, e, "42", "/notion")
	say(t, e, "42", "connect")
	if got := say(t, e, "42", "secret_bad"); got != notionTokenRejectedText {
		t.Fatalf("rejected token reply: %q", got)
	}
	// Still in the token step: a retry is parsed as a token again.
	ws.validateErr = nil
	ws.botName = "bot"
	if got := say(t, e, "42", "secret_good"); !strings.Contains(got, "Connected") {
		t.Fatalf("retry after rejection: %q", got)
	}
}

func TestNotionFlow_ImportScenario(t *testing.T) {
	due := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	ws := &fakeWorkspace{
		botName: "Remindarr",
		props:   []string{"Name", "Due", "Done"},
		records: []Record{
			{Name: "Finished task", Done: true, PageID: "p1"},
			{Name: "", PageID: "p2"},
			{Name: "Pay rent", DueAt: &due, PageID: "p3"},
		},
	}
	e := newTestEngine(repo, ws)
	notionConnect(t, e, "42")

	say(t, e, "42", "import")
	say(t, e, "42", "col-123")

	// Property replies are validated against the discovered set.
	if got := say(t, e, "42", "Title"); got != fmt.Sprintf(notionAskNamePropFmt, "Name, Due, Done") {
		t.Fatalf("mismatched property should re-prompt verbatim, got %q", got)
	}
	say(t, e, "42", "Name")
	say(t, e, "42", "Due")
	say(t, e, "42", "Done")

	reply := say(t, e, "42", "yes")
	if reply != fmt.Sprintf(notionImportDoneFmt, 1, 2) {
		t.Fatalf("import summary: %q", reply)
	}

	if len(repo.reminders) != 1 {
		t.Fatalf("want 1 imported reminder, got %d", len(repo.reminders))
	}
	r := repo.reminders[0]
	if r.Source != domain.SourceImported || r.NotionPageID != "p3" || !r.Active {
		t.Fatalf("imported reminder wrong: %+v", r)
	}
	if r.NextTriggerAt == nil || !r.NextTriggerAt.Equal(due) {
		t.Fatalf("imported trigger = %v, want %v", r.NextTriggerAt, due)
	}
	if r.IntervalMinutes != nil {
		t.Fatal("imported reminders are one-time")
	}

	// Mapping saved on the user, idempotently keyed by collection.
	u := repo.users["42"]
	m := u.Mapping("col-123")
	if m == nil || m.NameProp != "Name" || m.TimeProp != "Due" || m.DoneProp != "Done" {
		t.Fatalf("mapping not saved: %+v", u.Mappings)
	}
}

func TestNotionFlow_ReimportSkipsKnownPages(t *testing.T) {
	repo := newFakeRepo()
	ws := &fakeWorkspace{
		botName: "b",
		props:   []string{"Name", "Due"},
		records: []Record{{Name: "Pay rent", PageID: "p3"}},
	}
	e := newTestEngine(repo, ws)
	notionConnect(t, e, "42")

	runImport := func() string {
		say(t, e, "42", "/notion")
		say(t, e, "42", "import")
		say(t, e, "42", "col-123")
		say(t, e, "42", "Name")
		say(t, e, "42", "Due")
		say(t, e, "42", "skip")
		return say(t, e, "42", "yes")
	}

	if got := runImport(); got != fmt.Sprintf(notionImportDoneFmt, 1, 0) {
		t.Fatalf("first import: %q", got)
	}
	if got := runImport(); got != fmt.Sprintf(notionImportDoneFmt, 0, 1) {
		t.Fatalf("second import should dedup: %q", got)
	}
	if len(repo.reminders) != 1 {
		t.Fatalf("dedup failed, %d reminders", len(repo.reminders))
	}
}

func TestNotionFlow_UnknownCollectionReprompts(t *testing.T) {
	repo := newFakeRepo()
	ws := &fakeWorkspace{botName: "b", schemaErr: ErrCollectionNotFound}
	e := newTestEngine(repo, ws)
	notionConnect(t, e, "42")

	say(t, e, "42", "import")
	if got := say(t, e, "42", "nope"); got != notionCollectionNotFoundText {
		t.Fatalf("unknown collection reply: %q", got)
	}
	// Recoverable: the step is still collection-id.
	ws.schemaErr = nil
	ws.props = []string{"Name", "Due"}
	if got := say(t, e, "42", "col-1"); got != fmt.Sprintf(notionAskNamePropFmt, "Name, Due") {
		t.Fatalf("retry after not-found: %q", got)
	}
}

func TestNotionFlow_ImportRequiresConnection(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo, &fakeWorkspace{})

	say(t, e, "42", "/notion")
	if got := say(t, e, "42", "import"); got != notionNotConnectedText {
		t.Fatalf("import without connection: %q", got)
	}
}

func TestNotionFlow_RemoveCollection(t *testing.T) {
	repo := newFakeRepo()
	ws := &fakeWorkspace{botName: "b", props: []string{"Name", "Due"}}
	e := newTestEngine(repo, ws)
	notionConnect(t, e, "42")

	say(t, e, "42", "import")
	say(t, e, "42", "col-1")
	say(t, e, "42", "/cancel")

	say(t, e, "42", "/notion")
	say(t, e, "42", "remove")
	if got := say(t, e, "42", "col-2"); got != notionNotWatchedText {
		t.Fatalf("unknown removal target: %q", got)
	}
	if got := say(t, e, "42", "col-1"); got != fmt.Sprintf(notionRemovedFmt, "col-1") {
		t.Fatalf("removal reply: %q", got)
	}
	if len(repo.users["42"].Collections) != 0 {
		t.Fatalf("collection not removed: %v", repo.users["42"].Collections)
	}
}

func TestSettingsFlow(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo, nil)

	say(t, e, "42", "/settings")
	say(t, e, "42", "timezone")
	if got := say(t, e, "42", "Not/AZone"); got != badTZText {
		t.Fatalf("bad tz reply: %q", got)
	}
	if got := say(t, e, "42", "Asia/Kolkata"); got != fmt.Sprintf(tzSavedFmt, "Asia/Kolkata") {
		t.Fatalf("tz saved reply: %q", got)
	}
	if repo.users["42"].TZ != "Asia/Kolkata" {
		t.Fatalf("tz not persisted: %+v", repo.users["42"])
	}

	say(t, e, "42", "/settings")
	say(t, e, "42", "frequency")
	if got := say(t, e, "42", "6"); got != badFreqText {
		t.Fatalf("bad freq reply: %q", got)
	}
	if got := say(t, e, "42", "12"); got != fmt.Sprintf(freqSavedFmt, 12) {
		t.Fatalf("freq saved reply: %q", got)
	}
	if repo.users["42"].CheckFreqHours != 12 {
		t.Fatalf("freq not persisted: %+v", repo.users["42"])
	}
}

func TestEveryBranchReplies(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo, &fakeWorkspace{botName: "b", props: []string{"Name"}})

	inputs := []string{
		"/start", "/help", "hello", "/add", "Name", "garbage", "once",
		"garbage", "h", "garbage", "2", "text", "/notion", "garbage",
		"connect", "bad", "/settings", "garbage", "timezone", "bad",
		"/status", "/cancel",
	}
	for _, in := range inputs {
		if reply := say(t, e, "42", in); reply == "" {
			t.Fatalf("input %q produced an empty reply", in)
		}
	}
}
