package domain

import "time"

// Allowed Notion check frequencies, in hours.
const (
	CheckEvery12h = 12
	CheckEvery24h = 24
)

// ValidCheckFrequency reports whether h is an allowed check frequency.
func ValidCheckFrequency(h int) bool {
	return h == CheckEvery12h || h == CheckEvery24h
}

// PropertyMapping binds a Notion collection to the property names Remindarr
// reads when importing tasks from it.
type PropertyMapping struct {
	CollectionID string `json:"collection_id"`
	NameProp     string `json:"name_prop"`
	TimeProp     string `json:"time_prop"`
	DoneProp     string `json:"done_prop,omitempty"`
}

// User represents a chat and its integration settings.
// ChatID is the stable chat identifier and never changes once created.
type User struct {
	ChatID         string
	FirstName      string
	LastName       string
	TZ             string // IANA label, display only
	NotionAPIKey   string
	NotionEnabled  bool
	Collections    []string // watched collection ids
	Mappings       []PropertyMapping
	CheckFreqHours int // 12 or 24
	CreatedAt      time.Time
	LastActiveAt   time.Time
}

// Mapping returns the saved mapping for a collection, if any.
func (u *User) Mapping(collectionID string) *PropertyMapping {
	for i := range u.Mappings {
		if u.Mappings[i].CollectionID == collectionID {
			return &u.Mappings[i]
		}
	}
	return nil
}

// SetMapping saves a mapping, replacing any existing one for the same
// collection. Saving the same collection twice keeps a single entry.
func (u *User) SetMapping(m PropertyMapping) {
	for i := range u.Mappings {
		if u.Mappings[i].CollectionID == m.CollectionID {
			u.Mappings[i] = m
			return
		}
	}
	u.Mappings = append(u.Mappings, m)
}

// WatchCollection adds a collection id to the watched set if not present.
func (u *User) WatchCollection(id string) {
	for _, c := range u.Collections {
		if c == id {
			return
		}
	}
	u.Collections = append(u.Collections, id)
}

// UnwatchCollection removes a collection id and its mapping.
// Returns false if the id was not watched.
func (u *User) UnwatchCollection(id string) bool {
	found := false
	kept := u.Collections[:0]
	for _, c := range u.Collections {
		if c == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	u.Collections = kept

	keptM := u.Mappings[:0]
	for _, m := range u.Mappings {
		if m.CollectionID == id {
			continue
		}
		keptM = append(keptM, m)
	}
	u.Mappings = keptM
	return found
}
