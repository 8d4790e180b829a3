// Package signals resolves Nanonis signal names to indices and, where
// known, to data-logger TCP channels, with fuzzy name matching for
// callers that only have an approximate label.
package signals

import (
	"fmt"
	"sort"
	"strings"
)

// Confidence tags how a signal's TCP logger channel mapping was
// established, since the controller exposes no query for it.
type Confidence int

const (
	Missing Confidence = iota
	Assumed
	Confirmed
	Conflicted
)

func (c Confidence) String() string {
	switch c {
	case Missing:
		return "missing"
	case Assumed:
		return "assumed"
	case Confirmed:
		return "confirmed"
	case Conflicted:
		return "conflicted"
	default:
		return "unknown"
	}
}

// Signal is one entry in the registry.
type Signal struct {
	Name          string
	NanonisIndex  int32
	TCPChannel    *int32
	TCPConfidence Confidence
}

// Registry maps normalized names and Nanonis indices to Signals.
type Registry struct {
	byName  map[string]Signal
	byIndex map[int32]Signal
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewRegistry builds an empty registry; use Builder for the fluent
// construction path.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]Signal{}, byIndex: map[int32]Signal{}}
}

func (r *Registry) add(s Signal) {
	r.byName[normalize(s.Name)] = s
	r.byIndex[s.NanonisIndex] = s
}

// GetByName looks up a signal by its normalized name.
func (r *Registry) GetByName(name string) (Signal, bool) {
	s, ok := r.byName[normalize(name)]
	return s, ok
}

// GetByIndex looks up a signal by its Nanonis index.
func (r *Registry) GetByIndex(index int32) (Signal, bool) {
	s, ok := r.byIndex[index]
	return s, ok
}

// AllNames returns every known signal name, sorted.
func (r *Registry) AllNames() []string {
	names := make([]string, 0, len(r.byName))
	for _, s := range r.byName {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// TCPSignals returns every signal with a known TCP logger channel.
func (r *Registry) TCPSignals() []Signal {
	out := make([]Signal, 0)
	for _, s := range r.byIndex {
		if s.TCPChannel != nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].TCPChannel < *out[j].TCPChannel })
	return out
}

// NanonisToTCP converts a Nanonis index to its TCP channel, if mapped.
func (r *Registry) NanonisToTCP(index int32) (int32, bool) {
	s, ok := r.byIndex[index]
	if !ok || s.TCPChannel == nil {
		return 0, false
	}
	return *s.TCPChannel, true
}

// TCPToNanonis is the inverse of NanonisToTCP.
func (r *Registry) TCPToNanonis(channel int32) (int32, bool) {
	for _, s := range r.byIndex {
		if s.TCPChannel != nil && *s.TCPChannel == channel {
			return s.NanonisIndex, true
		}
	}
	return 0, false
}

// HasTCPChannel reports whether index has a known TCP mapping.
func (r *Registry) HasTCPChannel(index int32) bool {
	_, ok := r.NanonisToTCP(index)
	return ok
}

// NotFoundError carries fuzzy suggestions for a failed lookup.
type NotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("signals: %q not found", e.Name)
	}
	return fmt.Sprintf("signals: %q not found, did you mean: %s", e.Name, strings.Join(e.Suggestions, ", "))
}

// Resolve looks up name exactly; on a miss it returns a NotFoundError
// whose Suggestions are populated via FindLike.
func (r *Registry) Resolve(name string) (Signal, error) {
	if s, ok := r.GetByName(name); ok {
		return s, nil
	}
	matches := r.FindLike(name)
	suggestions := make([]string, 0, len(matches))
	for _, m := range matches {
		suggestions = append(suggestions, m.Name)
	}
	return Signal{}, &NotFoundError{Name: name, Suggestions: suggestions}
}

// FindLike returns signals whose name contains query (or is contained
// in it), whose generated aliases include query, or whose name contains
// one of query's own generated aliases — a plain substring and
// alias-table search, not an edit-distance metric.
func (r *Registry) FindLike(query string) []Signal {
	q := normalize(query)
	qAliases := generateSignalAliases(q)

	seen := map[string]bool{}
	var out []Signal
	for key, s := range r.byName {
		if strings.Contains(key, q) || strings.Contains(q, key) {
			if !seen[key] {
				out = append(out, s)
				seen[key] = true
			}
			continue
		}
		for _, alias := range generateSignalAliases(key) {
			if alias == q {
				if !seen[key] {
					out = append(out, s)
					seen[key] = true
				}
				break
			}
		}
		if seen[key] {
			continue
		}
		for _, alias := range qAliases {
			if strings.Contains(key, alias) {
				if !seen[key] {
					out = append(out, s)
					seen[key] = true
				}
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
