// Package mapping turns raw tracker field values into the labels stored in
// release detail rows. Every method is total: empty or unknown input yields
// the documented default instead of an error.
package mapping

import (
	"strings"

	"github.com/giantswarm/microerror"
)

// countries maps upper-cased tag codes to country labels.
var countries = map[string]string{
	"CO":  "Colombia",
	"ECU": "Ecuador",
	"EC":  "Ecuador",
	"BR":  "Brasil",
	"ES":  "España",
	"ESP": "España",
	"VE":  "Venezuela",
	"VEN": "Venezuela",
	"CHI": "Chile",
	"CH":  "Chile",
	"AR":  "Argentina",
	"RE":  "Regional",
}

type kind int

const (
	kindRequirement kind = iota
	kindDefect
)

var kinds = map[string]kind{
	"Bug":        kindDefect,
	"Defect":     kindDefect,
	"User Story": kindRequirement,
	"Feature":    kindRequirement,
	"Task":       kindRequirement,
}

// Project labels. Markers are checked in order; the first hit wins.
const (
	ProjectLegacy      = "Sir Legacy"
	ProjectBack        = "Sir Back"
	ProjectIntegration = "Sir Integration"

	DefaultProject = ProjectLegacy
)

var projectMarkers = []struct {
	marker  string
	project string
}{
	{"Legacy", ProjectLegacy},
	{"Back", ProjectBack},
	{"Integration", ProjectIntegration},
}

// DefaultCompletedStates is the set of tracker states that mark a detail
// row as QA-completed when nothing else is configured.
var DefaultCompletedStates = []string{"Done"}

// Config selects the label language and the states treated as completed.
type Config struct {
	Language        string
	CompletedStates []string
}

// Mapper holds the resolved label set. It is immutable after New and safe
// for concurrent use.
type Mapper struct {
	labels    Labels
	completed map[string]bool
}

// New builds a Mapper. A nil CompletedStates falls back to
// DefaultCompletedStates; an explicitly empty slice disables the marker.
func New(cfg Config) (*Mapper, error) {
	labels, err := LoadLabels(cfg.Language)
	if err != nil {
		return nil, microerror.Mask(err)
	}

	states := cfg.CompletedStates
	if states == nil {
		states = DefaultCompletedStates
	}
	completed := make(map[string]bool, len(states))
	for _, s := range states {
		s = strings.TrimSpace(s)
		if s != "" {
			completed[s] = true
		}
	}

	return &Mapper{labels: labels, completed: completed}, nil
}

// Labels returns the label set in use.
func (m *Mapper) Labels() Labels {
	return m.labels
}

// Countries extracts country labels from a ";"-separated tag string in
// first-seen order. Duplicates are kept. When nothing matches the result
// is the single unspecified sentinel.
func (m *Mapper) Countries(tags string) []string {
	var out []string
	for _, tag := range strings.Split(tags, ";") {
		if c, ok := countries[strings.ToUpper(strings.TrimSpace(tag))]; ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{m.labels.Unspecified}
	}
	return out
}

// Type maps a work item kind to a detail type label.
func (m *Mapper) Type(workItemKind string) string {
	if kinds[strings.TrimSpace(workItemKind)] == kindDefect {
		return m.labels.Defect
	}
	return m.labels.Requirement
}

// Sprint returns the first iteration path segment that mentions a sprint.
func (m *Mapper) Sprint(iterationPath string) string {
	parts := strings.FieldsFunc(iterationPath, func(r rune) bool {
		return r == '\\' || r == '/'
	})
	for _, p := range parts {
		if strings.Contains(strings.ToLower(p), "sprint") {
			return p
		}
	}
	return m.labels.NoSprint
}

// IsNoSprint reports whether s is the no-sprint sentinel.
func (m *Mapper) IsNoSprint(s string) bool {
	return s == m.labels.NoSprint
}

// Project derives the project label. The area path is checked before tags.
func (m *Mapper) Project(areaPath, tags string) string {
	for _, src := range []string{areaPath, tags} {
		if src == "" {
			continue
		}
		for _, pm := range projectMarkers {
			if strings.Contains(src, pm.marker) {
				return pm.project
			}
		}
	}
	return DefaultProject
}

// QAStatus returns the completed marker for accepted states and "" otherwise.
func (m *Mapper) QAStatus(state string) string {
	if m.completed[strings.TrimSpace(state)] {
		return m.labels.Completed
	}
	return ""
}

// IsCountry reports whether label is one of the known country labels.
func IsCountry(label string) bool {
	for _, c := range countries {
		if c == label {
			return true
		}
	}
	return false
}
