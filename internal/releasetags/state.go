package releasetags

import (
	"encoding/json"
	"sort"
)

// Decision is the resolved release decision for one destination and the tag
// that produced it.
type Decision struct {
	Release bool `json:"release"`
	Tag     Tag  `json:"-"`
}

// State maps destination namespace to its decision. A namespace with no
// applicable tag is absent.
type State map[string]Decision

// Released reports the decision for a namespace and whether one exists.
func (s State) Released(to string) (release, ok bool) {
	d, ok := s[to]
	return d.Release, ok
}

// Namespaces returns the resolved namespaces in sorted order.
func (s State) Namespaces() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Tags returns the winning tags ordered by namespace.
func (s State) Tags() []Tag {
	out := make([]Tag, 0, len(s))
	for _, ns := range s.Namespaces() {
		out = append(out, s[ns].Tag)
	}
	return out
}

// MarshalJSON renders {"namespace": {"release": bool}}.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Decision(s))
}
