package dialog

import (
	"sync"

	"github.com/KrishnarajT/remindarr/internal/domain"
)

// Flow identifies a multi-step dialog.
type Flow int

const (
	FlowNone Flow = iota
	FlowReminder
	FlowNotion
	FlowSettings
)

// Step identifies a position inside a flow. Steps are scoped to their flow;
// the engine switches on (Flow, Step) exhaustively so an unknown pair can
// never fall through to another flow's handler.
type Step int

// Reminder-creation steps.
const (
	StepName Step = iota
	StepRecurrence
	StepUnit
	StepAmount
	StepContent
)

// Integration-setup steps.
const (
	StepNotionMenu Step = iota
	StepNotionToken
	StepNotionCollection
	StepNotionNameProp
	StepNotionTimeProp
	StepNotionDoneProp
	StepNotionImportConfirm
	StepNotionRemove
)

// Settings steps.
const (
	StepSettingsMenu Step = iota
	StepSettingsTZ
	StepSettingsFreq
)

// State is the per-chat dialog position plus the fields collected so far.
// It lives only in process memory: a restart abandons the dialog without
// corrupting anything, because no partial reminder is persisted before the
// final step.
type State struct {
	Flow Flow
	Step Step

	// Reminder-creation accumulator.
	Name        string
	Recurring   bool
	UnitMinutes int64
	UnitLabel   string
	Amount      int64

	// Integration-setup accumulator.
	CollectionID string
	Props        []string
	Mapping      domain.PropertyMapping
}

// Sessions is a keyed store for per-chat dialog state. The interface exists
// so the in-memory map can be swapped for a shared cache without touching
// the state-machine logic.
type Sessions interface {
	Get(chatID string) (State, bool)
	Put(chatID string, s State)
	Delete(chatID string)
}

// MemorySessions implements Sessions with a mutex-guarded map.
type MemorySessions struct {
	mu sync.RWMutex
	m  map[string]State
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{m: make(map[string]State)}
}

func (s *MemorySessions) Get(chatID string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[chatID]
	return st, ok
}

func (s *MemorySessions) Put(chatID string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = st
}

func (s *MemorySessions) Delete(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}
