package study

import (
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeyPrefix starts every storage key produced by StorageKey.
const KeyPrefix = "study"

// Option is one trackable choice within a Study.
type Option struct {
	// Description identifies the option inside its study.
	Description string
	// TimesTaken counts how often the option was chosen.
	TimesTaken int
	// TimesEncountered counts how often the option was offered.
	TimesEncountered int
}

// OptionSet is an unordered set of options keyed by description.
// The zero value is an empty, usable set; a nil *OptionSet means "absent".
type OptionSet struct {
	items map[string]Option
}

// NewOptionSet builds a set from options, keeping the first option seen for each description.
func NewOptionSet(options ...Option) *OptionSet {
	set := &OptionSet{
		items: make(map[string]Option, len(options)),
	}

	for _, option := range options {
		set.Add(option)
	}

	return set
}

// Add inserts option unless an option with the same description is already present.
// It reports whether the option was inserted.
func (s *OptionSet) Add(option Option) bool {
	if s.items == nil {
		s.items = make(map[string]Option)
	}

	if _, exists := s.items[option.Description]; exists {
		return false
	}

	s.items[option.Description] = option

	return true
}

// Put inserts option, replacing any option with the same description.
func (s *OptionSet) Put(option Option) {
	if s.items == nil {
		s.items = make(map[string]Option)
	}

	s.items[option.Description] = option
}

// Get returns the option stored under description.
func (s *OptionSet) Get(description string) (Option, bool) {
	if s == nil {
		return Option{}, false
	}

	option, ok := s.items[description]

	return option, ok
}

// Contains reports whether an option with the same description is in the set.
func (s *OptionSet) Contains(option Option) bool {
	_, ok := s.Get(option.Description)

	return ok
}

// Len returns the number of options in the set.
func (s *OptionSet) Len() int {
	if s == nil {
		return 0
	}

	return len(s.items)
}

// Options returns the options sorted by description.
func (s *OptionSet) Options() []Option {
	if s == nil {
		return nil
	}

	result := make([]Option, 0, len(s.items))
	for _, option := range s.items {
		result = append(result, option)
	}

	slices.SortFunc(result, func(a, b Option) int {
		return strings.Compare(a.Description, b.Description)
	})

	return result
}

// Equal reports whether both sets hold the same descriptions. Counters are ignored.
func (s *OptionSet) Equal(other *OptionSet) bool {
	if s.Len() != other.Len() {
		return false
	}

	for description := range s.itemsOrNil() {
		if _, ok := other.Get(description); !ok {
			return false
		}
	}

	return true
}

// Clone returns a copy of the set that shares no state with the original.
func (s *OptionSet) Clone() *OptionSet {
	if s == nil {
		return nil
	}

	return NewOptionSet(s.Options()...)
}

func (s *OptionSet) itemsOrNil() map[string]Option {
	if s == nil {
		return nil
	}

	return s.items
}

// Study is the named entity being tracked.
type Study struct {
	// Description names the study and derives its storage key.
	Description string
	// Options holds the study's choices.
	Options *OptionSet
}

// New builds a study from a description and options.
func New(description string, options ...Option) Study {
	return Study{
		Description: description,
		Options:     NewOptionSet(options...),
	}
}

// Key returns the storage key of the study.
func (s Study) Key() string {
	return StorageKey(s.Description)
}

// Clone returns a deep copy of the study.
func (s Study) Clone() Study {
	return Study{
		Description: s.Description,
		Options:     s.Options.Clone(),
	}
}

// ChangeEvent is the payload published when a study changes.
// A nil field means the publisher left it out, and stores ignore such events.
type ChangeEvent struct {
	// StudyDescription names the changed study.
	StudyDescription *string
	// Options is the full option set of the study after the change.
	Options *OptionSet
}

// NewChangeEvent builds a complete event for study.
func NewChangeEvent(s Study) ChangeEvent {
	description := s.Description

	options := s.Options.Clone()
	if options == nil {
		options = NewOptionSet()
	}

	return ChangeEvent{
		StudyDescription: &description,
		Options:          options,
	}
}

// Study returns the study carried by the event, or false when a field is missing.
func (e ChangeEvent) Study() (Study, bool) {
	if e.StudyDescription == nil || e.Options == nil {
		return Study{}, false
	}

	return Study{
		Description: *e.StudyDescription,
		Options:     e.Options.Clone(),
	}, true
}

// StorageKey derives the storage key for a study description.
// The hash is stable across processes and platforms.
func StorageKey(description string) string {
	return KeyPrefix + strconv.FormatUint(xxhash.Sum64String(description), 10)
}
